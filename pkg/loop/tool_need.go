package loop

import "log/slog"

// toolNeedStage (stage 4) determines whether a tool invocation is required:
// the hook input carries a tool name exactly when the agent is about to
// invoke (or has just invoked) a tool.
type toolNeedStage struct{}

func (toolNeedStage) Name() string { return "tool_need" }

func (s toolNeedStage) Run(ctx *Context) StageResult {
	ctx.ToolNecessary = ctx.Input.ToolName != ""

	slog.Debug("assessed tool need",
		"stage", s.Name(),
		"tool_necessary", ctx.ToolNecessary,
		"tool_name", ctx.Input.ToolName)
	return Continue()
}
