// Package guard composes independent policy checks into an allow/deny/ask
// verdict over pending tool calls. Every guard runs on every check so the
// full result set is available for observability even after a block.
package guard

import (
	"fmt"
	"regexp"
	"strings"
)

// Result is the outcome of a single guard check. Score is 0..100; lower
// means more severe.
type Result struct {
	GuardName string `json:"guard_name"`
	Score     int    `json:"score"`
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
}

// Decision is the aggregate pipeline verdict.
type Decision struct {
	Allowed        bool     `json:"allowed"`
	Results        []Result `json:"results"`
	AggregateScore int      `json:"aggregate_score"`
	BlockingGuard  string   `json:"blocking_guard,omitempty"`
}

// Guard is a single policy check, a pure function of the tool name and the
// serialised tool input.
type Guard interface {
	Name() string
	Check(toolName, input string) Result
}

func allowResult(name string) Result {
	return Result{GuardName: name, Score: 100, Allowed: true}
}

// patternGuard blocks on the first matching regex with a fixed score.
type patternGuard struct {
	name     string
	score    int
	reason   string
	patterns []*regexp.Regexp
}

func (g *patternGuard) Name() string { return g.name }

func (g *patternGuard) Check(_, input string) Result {
	for _, re := range g.patterns {
		if re.MatchString(input) {
			return Result{
				GuardName: g.name,
				Score:     g.score,
				Allowed:   false,
				Reason:    fmt.Sprintf("%s: %s", g.reason, re.String()),
			}
		}
	}
	return allowResult(g.name)
}

func mustCompile(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// NewDestructiveGuard blocks destructive shell patterns such as `rm -rf /`,
// `mkfs`, `dd if=`, `shutdown`, `reboot`, fork bombs, and `chmod 777 /`.
// Matches score 0 (always denied).
func NewDestructiveGuard() Guard {
	return &patternGuard{
		name:   "destructive",
		score:  0,
		reason: "Destructive pattern detected",
		patterns: mustCompile([]string{
			`rm\s+-rf\s+/`,
			`sudo\s+rm\s+-rf`,
			`\bmkfs\b`,
			`\bdd\s+if=`,
			`\bshutdown\b`,
			`\breboot\b`,
			`:\(\)\{.*\|.*\}`, // fork bomb
			`chmod\s+777\s+/`,
		}),
	}
}

// NewHighRiskGuard flags operations that typically require confirmation,
// such as `git push`, `terraform apply`, `kubectl delete`, and piped
// installs. Matches score 30.
func NewHighRiskGuard() Guard {
	return &patternGuard{
		name:   "high_risk",
		score:  30,
		reason: "High-risk operation detected",
		patterns: mustCompile([]string{
			`\bgit\s+push\b`,
			`\bgit\s+reset\s+--hard\b`,
			`\bterraform\s+apply\b`,
			`\bterraform\s+destroy\b`,
			`\bkubectl\s+apply\b`,
			`\bkubectl\s+delete\b`,
			`\bcurl\b.*\|\s*bash`,
			`\bsudo\b`,
			`\bdocker\s+push\b`,
			`\bdocker\s+prune\b`,
		}),
	}
}

// NewSecretPathGuard flags commands referencing secret-bearing paths such as
// `.env`, `*.pem`, `id_rsa`, and `credentials.json`. Matches score 20.
func NewSecretPathGuard() Guard {
	return &patternGuard{
		name:   "secret_path",
		score:  20,
		reason: "Secret path detected",
		patterns: mustCompile([]string{
			`\.env\b`,
			`\bsecrets/`,
			`\.pem\b`,
			`\.key\b`,
			`\bid_rsa\b`,
			`\bcredentials\.json\b`,
			`\.npmrc\b`,
			`\.pypirc\b`,
			`\bkubeconfig\b`,
		}),
	}
}

// mcpGuard gates any tool whose name starts with "mcp__". Matches score 40.
type mcpGuard struct{}

func (mcpGuard) Name() string { return "mcp" }

func (mcpGuard) Check(toolName, _ string) Result {
	if strings.HasPrefix(toolName, "mcp__") {
		return Result{
			GuardName: "mcp",
			Score:     40,
			Allowed:   false,
			Reason:    fmt.Sprintf("MCP tool call gated: %s", toolName),
		}
	}
	return allowResult("mcp")
}

// defaultGuard always allows with score 100.
type defaultGuard struct{}

func (defaultGuard) Name() string { return "default" }

func (defaultGuard) Check(_, _ string) Result {
	return allowResult("default")
}

// Pipeline runs guards in order and aggregates their results. Immutable
// after construction; safe to share across goroutines.
type Pipeline struct {
	guards []Guard
}

// NewPipeline creates a pipeline with the default guard ordering.
func NewPipeline() *Pipeline {
	return &Pipeline{
		guards: []Guard{
			NewDestructiveGuard(),
			NewHighRiskGuard(),
			NewSecretPathGuard(),
			mcpGuard{},
			defaultGuard{},
		},
	}
}

// NewPipelineWithGuards creates a pipeline with a custom guard set.
func NewPipelineWithGuards(guards []Guard) *Pipeline {
	return &Pipeline{guards: guards}
}

// Check runs every guard — even after a block, for observability — and
// returns the aggregate decision. The aggregate score is the minimum across
// all guard scores; the blocking guard is the first one that denied.
func (p *Pipeline) Check(toolName, input string) Decision {
	decision := Decision{
		Allowed:        true,
		Results:        make([]Result, 0, len(p.guards)),
		AggregateScore: 100,
	}

	for _, g := range p.guards {
		result := g.Check(toolName, input)

		if result.Score < decision.AggregateScore {
			decision.AggregateScore = result.Score
		}
		if !result.Allowed {
			decision.Allowed = false
			if decision.BlockingGuard == "" {
				decision.BlockingGuard = result.GuardName
			}
		}
		decision.Results = append(decision.Results, result)
	}

	return decision
}

// BlockingReason returns the reason of the first denying guard, or "".
func (d Decision) BlockingReason() string {
	for _, r := range d.Results {
		if !r.Allowed {
			return r.Reason
		}
	}
	return ""
}

// Verdict maps the aggregate score onto a hook permission verdict:
// 0 denies, 1–49 asks, 50+ allows.
func (d Decision) Verdict() string {
	switch {
	case d.AggregateScore == 0:
		return "deny"
	case d.AggregateScore < 50:
		return "ask"
	default:
		return "allow"
	}
}
