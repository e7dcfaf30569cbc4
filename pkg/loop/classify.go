package loop

import (
	"log/slog"
	"strings"

	"github.com/metaygn/aletheia/pkg/models"
)

// classifyStage (stage 1) classifies the task type from prompt keywords and
// tool context.
type classifyStage struct{}

func (classifyStage) Name() string { return "classify" }

func (s classifyStage) Run(ctx *Context) StageResult {
	text := strings.ToLower(combinedText(ctx))
	ctx.TaskType = classifyFromKeywords(text)

	slog.Debug("classified task", "stage", s.Name(), "task_type", ctx.TaskType)
	return Continue()
}

// combinedText builds a single searchable string from the prompt, tool name,
// tool input, and last assistant message.
func combinedText(ctx *Context) string {
	parts := make([]string, 0, 4)
	if ctx.Input.Prompt != "" {
		parts = append(parts, ctx.Input.Prompt)
	}
	if ctx.Input.ToolName != "" {
		parts = append(parts, ctx.Input.ToolName)
	}
	if text := ctx.Input.ToolInputText(); text != "" {
		parts = append(parts, text)
	}
	if ctx.Input.LastAssistantMessage != "" {
		parts = append(parts, ctx.Input.LastAssistantMessage)
	}
	return strings.Join(parts, " ")
}

// Keyword sets in priority order: security > bugfix > refactor >
// architecture > release > research; anything else is a feature.
var (
	securityKeywords = []string{"security", "vulnerability", "cve", "auth", "permission", "secret", "credential"}
	bugfixKeywords   = []string{"fix", "bug", "error", "crash", "broken", "issue", "patch", "regression"}
	refactorKeywords = []string{"refactor", "cleanup", "reorganize", "rename", "simplify", "extract", "deduplicate"}
	archKeywords     = []string{"architecture", "design", "system", "infrastructure", "migration", "schema"}
	releaseKeywords  = []string{"release", "deploy", "publish", "version", "tag", "changelog"}
	researchKeywords = []string{"research", "investigate", "explore", "prototype", "spike", "experiment"}
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func classifyFromKeywords(text string) models.TaskType {
	switch {
	case containsAny(text, securityKeywords):
		return models.TaskSecurity
	case containsAny(text, bugfixKeywords):
		return models.TaskBugfix
	case containsAny(text, refactorKeywords):
		return models.TaskRefactor
	case containsAny(text, archKeywords):
		return models.TaskArchitecture
	case containsAny(text, releaseKeywords):
		return models.TaskRelease
	case containsAny(text, researchKeywords):
		return models.TaskResearch
	default:
		return models.TaskFeature
	}
}
