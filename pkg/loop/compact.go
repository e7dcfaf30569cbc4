package loop

import (
	"fmt"
	"strings"
)

// compactStage (stage 10) performs memory compaction: lessons are
// deduplicated (first occurrence wins, max 5) and a one-line iteration
// summary is appended.
type compactStage struct{}

func (compactStage) Name() string { return "compact" }

func (compactStage) Run(ctx *Context) StageResult {
	unique := make([]string, 0, 5)
	for _, lesson := range ctx.Lessons {
		if len(unique) >= 5 {
			break
		}
		seen := false
		for _, u := range unique {
			if u == lesson {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, lesson)
		}
	}

	ok := 0
	for _, r := range ctx.VerificationResults {
		if !strings.Contains(r, "error") && !strings.Contains(r, "fail") {
			ok++
		}
	}

	summary := fmt.Sprintf("[compact] task=%s risk=%s strategy=%s verifications=%d/%d",
		ctx.TaskType, ctx.Risk, ctx.Strategy, ok, len(ctx.VerificationResults))
	ctx.Lessons = append(unique, summary)

	return Continue()
}
