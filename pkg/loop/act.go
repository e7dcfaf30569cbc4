package loop

import (
	"fmt"

	"github.com/metaygn/aletheia/pkg/models"
)

// actStage (stage 7) records the intended action for post-verification:
// which tool is about to run, its target, and the purpose derived from the
// selected strategy. The verify stage consults this to detect mismatches.
type actStage struct{}

func (actStage) Name() string { return "act" }

func (actStage) Run(ctx *Context) StageResult {
	if ctx.Input.ToolInput == nil {
		return Continue()
	}

	target := ctx.Input.ToolInputField("file_path")
	if target == "" {
		target = ctx.Input.ToolInputField("command")
	}
	if target == "" {
		target = ctx.Input.ToolInputField("path")
	}

	ctx.IntendedAction = &models.IntendedAction{
		Tool:    ctx.Input.ToolName,
		Target:  target,
		Purpose: fmt.Sprintf("Execute via %s strategy", ctx.Strategy),
	}
	return Continue()
}
