package loop

import (
	"log/slog"
	"strings"
)

// calibrateStage (stage 9) adjusts the metacognitive vector from the
// verification results and feeds the entropy tracker.
type calibrateStage struct{}

func (calibrateStage) Name() string { return "calibrate" }

func (s calibrateStage) Run(ctx *Context) StageResult {
	v := &ctx.MetacogVector

	errorCount := countErrorSignals(ctx.VerificationResults)

	if errorCount == 0 {
		v.Confidence = min1(v.Confidence + 0.1)
		v.Grounding = min1(v.Grounding + 0.1)
	} else {
		penalty := float64(errorCount) * 0.15
		if penalty > 0.5 {
			penalty = 0.5
		}
		v.Confidence = max0(v.Confidence - penalty)
		v.Grounding = max0(v.Grounding - 0.1)
	}

	// Overconfidence detection: high-confidence wrong answers erode
	// confidence further.
	wasCorrect := errorCount == 0
	ctx.EntropyTracker.Record(v.Confidence, wasCorrect)
	if ctx.EntropyTracker.IsOverconfident() {
		score := ctx.EntropyTracker.OverconfidenceScore()
		v.Confidence = max0(v.Confidence - score*0.2)
		slog.Warn("overconfidence detected, applying calibration penalty",
			"stage", s.Name(), "overconfidence_score", score)
	}

	// Complexity tracks the difficulty estimate.
	v.Complexity = ctx.Difficulty

	// Coherence: higher once a task type is classified.
	if ctx.TaskType != "" {
		v.Coherence = min1(v.Coherence + 0.1)
	}

	// Progress bumps slightly each run.
	v.Progress = min1(v.Progress + 0.1)

	slog.Debug("calibrated metacog vector",
		"stage", s.Name(),
		"confidence", v.Confidence,
		"coherence", v.Coherence,
		"grounding", v.Grounding,
		"overall", v.OverallQuality())
	return Continue()
}

// countErrorSignals counts verification results that indicate failure.
func countErrorSignals(results []string) int {
	count := 0
	for _, r := range results {
		if strings.HasPrefix(r, "tool_error") ||
			strings.HasPrefix(r, "response_contains") ||
			strings.HasPrefix(r, "test_failures") ||
			strings.HasPrefix(r, "tool_mismatch") ||
			strings.HasPrefix(r, "syntax_error") ||
			strings.Contains(r, "empty tool response") {
			count++
		}
	}
	return count
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

func max0(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	return v
}
