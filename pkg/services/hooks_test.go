package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaygn/aletheia/pkg/config"
	"github.com/metaygn/aletheia/pkg/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewAppInMemory(config.Defaults())
	require.NoError(t, err)
	return app
}

func TestSessionStateCarriesAcrossHooks(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	app.HandleUserPromptSubmit(ctx, models.HookInput{
		HookEventName: models.EventUserPromptSubmit,
		SessionID:     "carry",
		Prompt:        "fix the broken parser regression",
	})

	sess := app.Sessions.GetOrCreate("carry")
	sess.Lock()
	taskType := sess.TaskType
	sess.Unlock()
	assert.Equal(t, models.TaskBugfix, taskType)

	// A follow-up hook with no prompt still sees the session's strategy.
	out := app.HandlePostToolUse(ctx, models.HookInput{
		HookEventName: models.EventPostToolUse,
		SessionID:     "carry",
		ToolName:      "Read",
		ToolResponse:  strPtr("file contents"),
	})
	require.NotNil(t, out.HookSpecificOutput)

	sess.Lock()
	defer sess.Unlock()
	assert.Equal(t, uint32(1), sess.ToolCalls)
	assert.Equal(t, uint32(1), sess.SuccessCount)
}

func TestPostToolUseCountsErrors(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	app.HandlePostToolUse(ctx, models.HookInput{
		HookEventName: models.EventPostToolUse,
		SessionID:     "errs",
		ToolName:      "Bash",
		Error:         "command not found",
	})

	sess := app.Sessions.GetOrCreate("errs")
	sess.Lock()
	defer sess.Unlock()
	assert.Equal(t, uint32(1), sess.Errors)
	assert.Equal(t, uint32(0), sess.SuccessCount)
}

func TestPostToolUseValidatesWrittenJSON(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	out := app.HandlePostToolUse(ctx, models.HookInput{
		HookEventName: models.EventPostToolUse,
		SessionID:     "syntax",
		ToolName:      "Write",
		ToolInput: map[string]any{
			"file_path": "broken.json",
			"content":   `{"unterminated": `,
		},
	})

	require.NotNil(t, out.HookSpecificOutput)
	assert.Contains(t, out.HookSpecificOutput.AdditionalContext, "syntax_error")

	sess := app.Sessions.GetOrCreate("syntax")
	sess.Lock()
	defer sess.Unlock()
	require.NotEmpty(t, sess.VerificationResults)
	assert.Contains(t, sess.VerificationResults[len(sess.VerificationResults)-1], "syntax_error")
}

func TestStopReportsCompletionCheck(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	out := app.HandleStop(ctx, models.HookInput{
		HookEventName:        models.EventStop,
		SessionID:            "stop",
		CWD:                  t.TempDir(),
		LastAssistantMessage: "Done! Implemented everything in pkg/ghost/nowhere.go",
	})

	require.NotNil(t, out.HookSpecificOutput)
	assert.Contains(t, out.HookSpecificOutput.AdditionalContext, "Completion check FAILED")
}

func TestEditWeakeningTestsIsFlagged(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	out := app.HandlePostToolUse(ctx, models.HookInput{
		HookEventName: models.EventPostToolUse,
		SessionID:     "integrity",
		ToolName:      "Edit",
		ToolInput: map[string]any{
			"file_path":  "pkg/math/math_test.go",
			"old_string": "assert.Equal(t, 4, Add(2, 2))\n\tassert.Equal(t, 0, Add(-1, 1))",
			"new_string": "assert.Equal(t, 4, Add(2, 2))",
		},
	})

	require.NotNil(t, out.HookSpecificOutput)
	assert.Contains(t, out.HookSpecificOutput.AdditionalContext, "TEST INTEGRITY WARNING")

	sess := app.Sessions.GetOrCreate("integrity")
	sess.Lock()
	defer sess.Unlock()
	found := false
	for _, r := range sess.VerificationResults {
		if strings.HasPrefix(r, "test_integrity:") {
			found = true
		}
	}
	assert.True(t, found, "expected a test_integrity verification result, got %v", sess.VerificationResults)
}

func TestRecurringToolSequenceCrystallizes(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	for turn := 0; turn < 3; turn++ {
		sessionID := "crystal-" + string(rune('a'+turn))
		for _, tool := range []string{"Grep", "Read", "Edit"} {
			app.HandlePostToolUse(ctx, models.HookInput{
				HookEventName: models.EventPostToolUse,
				SessionID:     sessionID,
				ToolName:      tool,
				ToolResponse:  strPtr("ok"),
			})
		}
		app.HandleStop(ctx, models.HookInput{
			HookEventName: models.EventStop,
			SessionID:     sessionID,
		})
	}

	patterns := app.Crystallizer.Crystallized()
	require.Len(t, patterns, 1)
	assert.Equal(t, []string{"Grep", "Read", "Edit"}, patterns[0].Tools)
	assert.Equal(t, uint32(3), patterns[0].Count)
}

func TestStopRecordsOutcomeForEvolution(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sessionID := string(rune('a' + i))
		app.HandleUserPromptSubmit(ctx, models.HookInput{
			HookEventName: models.EventUserPromptSubmit,
			SessionID:     sessionID,
			Prompt:        "add a small feature",
		})
		app.HandleStop(ctx, models.HookInput{
			HookEventName: models.EventStop,
			SessionID:     sessionID,
		})
	}

	assert.Equal(t, 3, app.Evolver.OutcomeCount())
}

func TestRecoveryOutcomeObservedOncePerInjection(t *testing.T) {
	app := newTestApp(t)

	app.MarkRecoveryInjected()
	app.ObserveRecoveryOutcome(false)
	app.ObserveRecoveryOutcome(false) // no pending injection; ignored

	assert.Equal(t, 2, app.AmplificationLevel())
}

func strPtr(s string) *string { return &s }
