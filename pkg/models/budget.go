package models

import "fmt"

// budgetWarningThreshold is the utilization fraction at which hook responses
// start carrying a budget warning.
const budgetWarningThreshold = 0.80

// SessionBudget tracks token and cost consumption across a whole session so
// budget usage is visible to the developer in every hook response.
type SessionBudget struct {
	MaxTokens        uint64  `json:"max_tokens"`
	MaxCostUSD       float64 `json:"max_cost_usd"`
	ConsumedTokens   uint64  `json:"consumed_tokens"`
	ConsumedCostUSD  float64 `json:"consumed_cost_usd"`
	WarningThreshold float64 `json:"warning_threshold"`
}

// NewSessionBudget creates a budget with the given maximums, zero consumed,
// and the warning threshold at 80%.
func NewSessionBudget(maxTokens uint64, maxCostUSD float64) *SessionBudget {
	return &SessionBudget{
		MaxTokens:        maxTokens,
		MaxCostUSD:       maxCostUSD,
		WarningThreshold: budgetWarningThreshold,
	}
}

// Consume records token and cost consumption.
func (b *SessionBudget) Consume(tokens uint64, costUSD float64) {
	b.ConsumedTokens += tokens
	b.ConsumedCostUSD += costUSD
}

// RemainingTokens returns tokens left before the cap.
func (b *SessionBudget) RemainingTokens() uint64 {
	if b.ConsumedTokens > b.MaxTokens {
		return 0
	}
	return b.MaxTokens - b.ConsumedTokens
}

// Utilization returns the consumed fraction based on whichever dimension
// (tokens or cost) is more utilized.
func (b *SessionBudget) Utilization() float64 {
	var tokenUtil, costUtil float64
	if b.MaxTokens > 0 {
		tokenUtil = float64(b.ConsumedTokens) / float64(b.MaxTokens)
	}
	if b.MaxCostUSD > 0 {
		costUtil = b.ConsumedCostUSD / b.MaxCostUSD
	}
	if costUtil > tokenUtil {
		return costUtil
	}
	return tokenUtil
}

// IsOverBudget reports whether either the token or cost cap is exceeded.
func (b *SessionBudget) IsOverBudget() bool {
	return b.ConsumedTokens > b.MaxTokens || b.ConsumedCostUSD > b.MaxCostUSD
}

// ShouldWarn reports whether utilization has reached the warning threshold.
func (b *SessionBudget) ShouldWarn() bool {
	return b.Utilization() >= b.WarningThreshold
}

// Summary renders a human-readable budget line for hook responses.
func (b *SessionBudget) Summary() string {
	pct := uint64(b.Utilization() * 100)
	return fmt.Sprintf("[budget: %dtok/$%.2f used of %dtok/$%.2f | %d%%]",
		b.ConsumedTokens, b.ConsumedCostUSD, b.MaxTokens, b.MaxCostUSD, pct)
}
