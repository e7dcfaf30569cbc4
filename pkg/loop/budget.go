package loop

import (
	"log/slog"

	"github.com/metaygn/aletheia/pkg/models"
)

// budgetStage (stage 5) allocates token, latency, and cost budgets from the
// assessed difficulty and risk.
type budgetStage struct{}

func (budgetStage) Name() string { return "budget" }

func (s budgetStage) Run(ctx *Context) StageResult {
	ctx.Budget.MaxTokens = tokensForDifficulty(ctx.Difficulty)
	ctx.Budget.RiskTolerance = ctx.Risk

	// Latency budget: tighter for low risk, more generous for high risk.
	switch ctx.Risk {
	case models.RiskLow:
		ctx.Budget.MaxLatencyMS = 10_000
	case models.RiskMedium:
		ctx.Budget.MaxLatencyMS = 30_000
	case models.RiskHigh:
		ctx.Budget.MaxLatencyMS = 60_000
	}

	ctx.Budget.MaxCostUSD = float64(ctx.Budget.MaxTokens) * 0.00002

	slog.Debug("set budget",
		"stage", s.Name(),
		"max_tokens", ctx.Budget.MaxTokens,
		"max_latency_ms", ctx.Budget.MaxLatencyMS)
	return Continue()
}

// tokensForDifficulty maps difficulty bands to token budgets:
// <0.3 -> 1000, <0.7 -> 5000, otherwise 20000.
func tokensForDifficulty(difficulty float64) uint64 {
	switch {
	case difficulty < 0.3:
		return 1_000
	case difficulty < 0.7:
		return 5_000
	default:
		return 20_000
	}
}
