package loop

import (
	"fmt"
	"log/slog"
	"strings"
)

// learnStage (stage 12) collects human-readable lessons summarising the run.
type learnStage struct{}

func (learnStage) Name() string { return "learn" }

func (s learnStage) Run(ctx *Context) StageResult {
	if ctx.TaskType != "" {
		ctx.Lessons = append(ctx.Lessons, fmt.Sprintf("task_type=%s", ctx.TaskType))
	}
	ctx.Lessons = append(ctx.Lessons,
		fmt.Sprintf("risk=%s difficulty=%.2f", ctx.Risk, ctx.Difficulty),
		fmt.Sprintf("strategy=%s", ctx.Strategy),
		fmt.Sprintf("decision=%s", ctx.Decision),
		fmt.Sprintf("metacog_quality=%.3f", ctx.MetacogVector.OverallQuality()),
	)

	for _, result := range ctx.VerificationResults {
		if strings.HasPrefix(result, "tool_error") || strings.HasPrefix(result, "response_contains") {
			ctx.Lessons = append(ctx.Lessons, "verification_issue: "+result)
		}
	}

	slog.Debug("collected lessons", "stage", s.Name(), "lesson_count", len(ctx.Lessons))
	return Continue()
}
