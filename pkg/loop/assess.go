package loop

import (
	"log/slog"
	"strings"

	"github.com/metaygn/aletheia/pkg/models"
)

// assessStage (stage 2) estimates difficulty and risk from the prompt and
// tool context.
type assessStage struct{}

func (assessStage) Name() string { return "assess" }

func (s assessStage) Run(ctx *Context) StageResult {
	text := assessText(ctx)

	ctx.Difficulty = estimateDifficulty(text)
	ctx.Risk = estimateRisk(ctx)

	slog.Debug("assessed task",
		"stage", s.Name(), "difficulty", ctx.Difficulty, "risk", ctx.Risk)
	return Continue()
}

func assessText(ctx *Context) string {
	parts := make([]string, 0, 2)
	if ctx.Input.Prompt != "" {
		parts = append(parts, ctx.Input.Prompt)
	}
	if text := ctx.Input.ToolInputText(); text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

var complexityKeywords = []string{
	"complex", "concurren", "async", "parallel", "distributed",
	"performance", "optimize", "scale", "migration", "backward",
	"compatibility", "recursive", "cryptograph",
}

// estimateDifficulty scores [0,1]: base from prompt length (capped at 0.6)
// plus 0.1 per complexity keyword, clamped to 1.
func estimateDifficulty(text string) float64 {
	words := len(strings.Fields(text))
	base := float64(words) / 200.0
	if base > 0.6 {
		base = 0.6
	}

	lower := strings.ToLower(text)
	bonus := 0.0
	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw) {
			bonus += 0.1
		}
	}

	d := base + bonus
	if d > 1.0 {
		d = 1.0
	}
	return d
}

var (
	highRiskKeywords = []string{
		"bash", "write", "delete", "rm ", "drop", "force", "deploy",
		"push", "credential", "secret",
	}
	mediumRiskKeywords = []string{
		"edit", "replace", "modify", "update", "install", "create",
	}
)

func estimateRisk(ctx *Context) models.RiskLevel {
	combined := strings.ToLower(ctx.Input.ToolName + " " + ctx.Input.Prompt)
	if containsAny(combined, highRiskKeywords) {
		return models.RiskHigh
	}
	if containsAny(combined, mediumRiskKeywords) {
		return models.RiskMedium
	}
	return models.RiskLow
}
