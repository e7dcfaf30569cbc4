// Package pruner detects reasoning lock-in in a message history and
// amputates the failed turns. Lock-in occurs when the assistant produces 3+
// consecutive error responses; the pruner removes those messages and injects
// an escalating recovery prompt to break the cycle.
package pruner

import (
	"fmt"
	"strings"
)

// Message is a single message in the Anthropic messages format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Analysis is the result of scanning a history for reasoning lock-in.
type Analysis struct {
	ConsecutiveErrors  int
	ShouldPrune        bool
	ErrorIndices       []int
	SuggestedInjection string
}

// Config holds the pruner knobs.
type Config struct {
	// ErrorThreshold: consecutive assistant errors at which pruning kicks in.
	ErrorThreshold int
	// ErrorPatterns: substrings that mark an assistant message as an error.
	ErrorPatterns []string
}

// DefaultConfig returns the standard threshold and pattern bag. Case
// variants are deliberate: the pattern summary in the injection uses the raw
// matched text.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 3,
		ErrorPatterns: []string{
			"error", "Error", "ERROR",
			"failed", "Failed", "FAILED",
			"traceback", "Traceback",
			"panic",
			"exception", "Exception",
			"cannot", "Cannot",
			"not found", "Not found",
			"permission denied",
			"compilation failed",
			"test failed", "tests failed",
		},
	}
}

// ContextPruner applies the analysis and amputation rules.
type ContextPruner struct {
	config Config
}

// New creates a pruner with the given configuration.
func New(config Config) *ContextPruner {
	return &ContextPruner{config: config}
}

// NewWithDefaults creates a pruner with the default configuration.
func NewWithDefaults() *ContextPruner {
	return New(DefaultConfig())
}

func (p *ContextPruner) isErrorMessage(m Message) bool {
	for _, pattern := range p.config.ErrorPatterns {
		if strings.Contains(m.Content, pattern) {
			return true
		}
	}
	return false
}

// summarizeErrors collects the unique patterns found across the pruned
// messages, in pattern iteration order per message.
func (p *ContextPruner) summarizeErrors(messages []Message, indices []int) string {
	var found []string
	for _, idx := range indices {
		if idx < 0 || idx >= len(messages) {
			continue
		}
		for _, pattern := range p.config.ErrorPatterns {
			if strings.Contains(messages[idx].Content, pattern) && !contains(found, pattern) {
				found = append(found, pattern)
			}
		}
	}
	if len(found) == 0 {
		return "repeated errors"
	}
	return strings.Join(found, ", ")
}

// Analyze scans from the end of the history, counting consecutive assistant
// error messages. Non-assistant messages are transparent to the streak; a
// successful assistant message breaks it.
func (p *ContextPruner) Analyze(messages []Message) Analysis {
	consecutive := 0
	var indices []int

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != "assistant" {
			continue
		}
		if p.isErrorMessage(msg) {
			consecutive++
			indices = append(indices, i)
		} else {
			break
		}
	}

	// Reverse so indices are ascending.
	for l, r := 0, len(indices)-1; l < r; l, r = l+1, r-1 {
		indices[l], indices[r] = indices[r], indices[l]
	}

	analysis := Analysis{
		ConsecutiveErrors: consecutive,
		ShouldPrune:       consecutive >= p.config.ErrorThreshold,
		ErrorIndices:      indices,
	}
	if analysis.ShouldPrune {
		analysis.SuggestedInjection = fmt.Sprintf(
			"[ALETHEIA: Context pruned. %d failed reasoning attempts removed. "+
				"Previous approaches failed due to: %s. "+
				"Start with a fundamentally different approach.]",
			consecutive, p.summarizeErrors(messages, indices))
	}
	return analysis
}

// Prune removes the error messages identified by Analyze and injects a
// single recovery message at the position of the first removal. User
// messages and the first and last messages are never removed.
func (p *ContextPruner) Prune(messages []Message) []Message {
	analysis := p.Analyze(messages)
	if !analysis.ShouldPrune {
		return messages
	}

	lastIdx := len(messages) - 1
	removable := make(map[int]bool, len(analysis.ErrorIndices))
	for _, i := range analysis.ErrorIndices {
		if i != 0 && i != lastIdx && messages[i].Role != "user" {
			removable[i] = true
		}
	}

	result := make([]Message, 0, len(messages))
	injectionPlaced := false
	for i, msg := range messages {
		if removable[i] {
			if !injectionPlaced {
				result = append(result, Message{
					Role:    "assistant",
					Content: analysis.SuggestedInjection,
				})
				injectionPlaced = true
			}
			continue
		}
		result = append(result, msg)
	}
	return result
}

// AmplifiedRecovery renders the recovery line at the given amplification
// level: level 2 is emphatic (CRITICAL, different approach) and level 3
// escalates to the operator.
func (p *ContextPruner) AmplifiedRecovery(reason string, level int) string {
	switch {
	case level >= 3:
		return fmt.Sprintf(
			"[ALETHEIA ESCALATE] %s. Automated recovery is not working — stop and run /metacog-escalate to involve the operator.",
			reason)
	case level == 2:
		return fmt.Sprintf(
			"[ALETHEIA CRITICAL] %s. Previous recovery guidance was ignored; you MUST take a different approach this time.",
			reason)
	default:
		return fmt.Sprintf("[ALETHEIA] %s. Try a different approach.", reason)
	}
}

// EstimateTokens gives a rough token count (~4 characters per token).
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
