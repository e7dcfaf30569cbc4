package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ToolPattern is a detected pattern of tool usage.
type ToolPattern struct {
	// Tools is the ordered sequence of tool names, e.g. ["Grep", "Read", "Edit"].
	Tools []string `json:"tools"`
	// Count is how many times this exact sequence has been observed.
	Count uint32 `json:"count"`
	// LastSeen is the RFC 3339 timestamp of the most recent observation.
	LastSeen string `json:"last_seen"`
	// Hash is the SHA-256 hex digest of the sequence (dedup key).
	Hash string `json:"hash"`
}

// SkillCrystallizer observes tool sequences and crystallizes recurring
// patterns into skill templates once they exceed an observation threshold.
// Safe for concurrent use.
type SkillCrystallizer struct {
	mu        sync.Mutex
	patterns  map[string]*ToolPattern
	threshold uint32
}

// NewSkillCrystallizer creates a crystallizer with the given threshold.
func NewSkillCrystallizer(threshold uint32) *SkillCrystallizer {
	return &SkillCrystallizer{
		patterns:  make(map[string]*ToolPattern),
		threshold: threshold,
	}
}

// Observe records an observed tool sequence. Empty sequences are ignored.
func (c *SkillCrystallizer) Observe(tools []string) {
	if len(tools) == 0 {
		return
	}
	hash := hashSequence(tools)

	c.mu.Lock()
	defer c.mu.Unlock()
	pattern, ok := c.patterns[hash]
	if !ok {
		pattern = &ToolPattern{
			Tools: append([]string(nil), tools...),
			Hash:  hash,
		}
		c.patterns[hash] = pattern
	}
	pattern.Count++
	pattern.LastSeen = time.Now().UTC().Format(time.RFC3339)
}

// Crystallized returns the patterns that meet the threshold, most-observed
// first.
func (c *SkillCrystallizer) Crystallized() []ToolPattern {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []ToolPattern
	for _, p := range c.patterns {
		if p.Count >= c.threshold {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Hash < out[j].Hash
	})
	return out
}

// TotalPatterns returns the number of distinct sequences observed, including
// those below the threshold.
func (c *SkillCrystallizer) TotalPatterns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.patterns)
}

// GenerateSkillMD renders a SKILL.md template for a crystallized pattern.
func GenerateSkillMD(pattern ToolPattern) string {
	toolsList := strings.Join(pattern.Tools, " -> ")
	shortHash := pattern.Hash
	if len(shortHash) > 8 {
		shortHash = shortHash[:8]
	}

	var numbered strings.Builder
	for i, tool := range pattern.Tools {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, tool)
	}

	return fmt.Sprintf(`---
name: crystallized-%s
description: Auto-detected pattern (%dx): %s
user-invocable: true
---

# Crystallized Pattern

This workflow was automatically detected from %d observations.

## Tool Sequence
%s
## Usage
Invoke this skill when you need to perform the same sequence of operations.
`, shortHash, pattern.Count, toolsList, pattern.Count, numbered.String())
}

// hashSequence computes the SHA-256 hex digest of a tool sequence, with a
// separator so ["ab","c"] and ["a","bc"] hash differently.
func hashSequence(tools []string) string {
	h := sha256.New()
	for _, tool := range tools {
		h.Write([]byte(tool))
		h.Write([]byte("|"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
