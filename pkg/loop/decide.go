package loop

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/metaygn/aletheia/pkg/models"
)

// escalationCompetenceThreshold: high-risk tasks below this competence are
// escalated to a human.
const escalationCompetenceThreshold = 0.4

// reviseQualityThreshold: metacognitive quality below this triggers Revise.
const reviseQualityThreshold = 0.3

// decideStage (stage 11) makes the final decision for this loop iteration.
type decideStage struct{}

func (decideStage) Name() string { return "decide" }

func (s decideStage) Run(ctx *Context) StageResult {
	quality := ctx.MetacogVector.OverallQuality()

	// High risk + low competence: hand over to the human.
	if ctx.Risk == models.RiskHigh && ctx.Competence < escalationCompetenceThreshold {
		ctx.Decision = models.DecideEscalate
		reason := fmt.Sprintf("high risk (%s) with low competence (%.2f)", ctx.Risk, ctx.Competence)
		slog.Warn("escalating", "stage", s.Name(), "reason", reason)
		return Escalate(reason)
	}

	if quality < reviseQualityThreshold {
		ctx.Decision = models.DecideRevise
		slog.Debug("quality below threshold, revising", "stage", s.Name(), "quality", quality)
		return Continue()
	}

	for _, r := range ctx.VerificationResults {
		if strings.HasPrefix(r, "tool_error") || strings.HasPrefix(r, "response_contains") {
			ctx.Decision = models.DecideRevise
			slog.Debug("verification errors detected, revising", "stage", s.Name())
			return Continue()
		}
	}

	ctx.Decision = models.DecideContinue
	slog.Debug("decided", "stage", s.Name(), "decision", ctx.Decision, "quality", quality)
	return Continue()
}
