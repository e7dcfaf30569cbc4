package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/metaygn/aletheia/pkg/loop"
	"github.com/metaygn/aletheia/pkg/models"
	"github.com/metaygn/aletheia/pkg/monitor"
	"github.com/metaygn/aletheia/pkg/profiler"
	"github.com/metaygn/aletheia/pkg/session"
	"github.com/metaygn/aletheia/pkg/verifier"
)

// HandleSessionStart registers the session and records the event.
func (a *App) HandleSessionStart(ctx context.Context, input models.HookInput) models.HookOutput {
	if input.SessionID != "" {
		a.Sessions.GetOrCreate(input.SessionID)
	}
	a.spawnLogEvent(input, "session_start")
	return models.Allow()
}

// HandleUserPromptSubmit classifies the prompt through the control loop and
// returns the chosen task, risk, strategy, and budget as additional context.
func (a *App) HandleUserPromptSubmit(ctx context.Context, input models.HookInput) models.HookOutput {
	sess := a.sessionFor(input)
	loopCtx, plan := a.runLoop(input, sess)

	a.WithFatigue(func(p *profiler.FatigueProfiler) {
		p.OnPrompt(input.Prompt, time.Now())
	})
	anomaly := a.Monitor.Observe(monitor.ReasoningStep{
		Content:   input.Prompt,
		Timestamp: time.Now(),
	})

	var b strings.Builder
	fmt.Fprintf(&b, "[task: %s] [risk: %s] [strategy: %s] [budget: %d tokens / $%.2f / %dms]",
		loopCtx.TaskType, loopCtx.Risk, loopCtx.Strategy,
		loopCtx.Budget.MaxTokens, loopCtx.Budget.MaxCostUSD, loopCtx.Budget.MaxLatencyMS)
	fmt.Fprintf(&b, " %s", loopCtx.MetacogVector.CompactEncode())

	if report := a.AssessFatigue(); report.Score > 0.4 {
		fmt.Fprintf(&b, " | %s", report.Recommendation)
	}
	if anomaly.IsAnomalous {
		fmt.Fprintf(&b, " | %s", anomaly.Reason)
	}
	budget := a.BudgetSnapshot()
	if budget.ShouldWarn() {
		fmt.Fprintf(&b, " | %s", budget.Summary())
	}

	a.spawnLogEvent(input, "user_prompt_submit")
	a.spawnAfterPromptSubmit(sess, plan)

	return models.Context(models.EventUserPromptSubmit, b.String())
}

// HandlePreToolUse gates the pending tool call: the control loop runs for
// the session, then the guard pipeline produces the permission verdict.
func (a *App) HandlePreToolUse(ctx context.Context, input models.HookInput) models.HookOutput {
	sess := a.sessionFor(input)
	loopCtx, _ := a.runLoop(input, sess)

	command := input.ToolInputText()
	decision := a.Guards.Check(input.ToolName, command)

	a.spawnLogEvent(input, "pre_tool_use")
	a.spawnToolGated(input.ToolName, decision)

	var output models.HookOutput
	switch decision.Verdict() {
	case "deny":
		output = models.Permission(models.DecisionDeny, decision.BlockingReason())
	case "ask":
		output = models.Permission(models.DecisionAsk, decision.BlockingReason())
	default:
		output = models.Allow()
	}

	if loopCtx.Decision == models.DecideEscalate {
		output = output.WithContext(models.EventPreToolUse,
			fmt.Sprintf("Escalation: %s. %s",
				lastLesson(loopCtx.Lessons), loopCtx.MetacogVector.CompactEncode()))
	}
	return output
}

// HandlePostToolUse verifies the tool outcome, feeds the session trackers,
// and emits verification context for the agent.
func (a *App) HandlePostToolUse(ctx context.Context, input models.HookInput) models.HookOutput {
	sess := a.sessionFor(input)
	loopCtx, _ := a.runLoop(input, sess)

	wasError := input.Error != "" || loopCtx.Decision == models.DecideRevise

	// Structured file content written by the agent gets validated in-process.
	var syntaxIssue string
	var integrity verifier.TestIntegrityReport
	if input.ToolName == "Write" || input.ToolName == "Edit" {
		filePath := input.ToolInputField("file_path")
		content := input.ToolInputField("content")
		if filePath != "" && content != "" {
			if msg := verifier.ValidateFileContent(filePath, content); msg != "" {
				syntaxIssue = "syntax_error: " + msg
				wasError = true
			}
		}

		// Edits to test files are checked for assertion weakening: the agent
		// must not game failing tests instead of fixing the code.
		if input.ToolName == "Edit" && filePath != "" {
			oldString := input.ToolInputField("old_string")
			newString := input.ToolInputField("new_string")
			if oldString != "" || newString != "" {
				integrity = verifier.AnalyzeTestEdit(filePath, oldString, newString)
				if integrity.Suspicious {
					a.spawnTestIntegrityWarning(filePath, integrity)
				}
			}
		}
	}

	if sess != nil {
		sess.Lock()
		sess.ToolCalls++
		if wasError {
			sess.Errors++
		} else {
			sess.SuccessCount++
		}
		if syntaxIssue != "" {
			sess.VerificationResults = append(sess.VerificationResults, syntaxIssue)
		}
		if integrity.Suspicious {
			for _, issue := range integrity.Issues {
				sess.VerificationResults = append(sess.VerificationResults,
					"test_integrity: "+issue.Detail)
			}
		}
		sess.Unlock()
	}

	a.WithFatigue(func(p *profiler.FatigueProfiler) {
		if wasError {
			p.OnError()
		} else {
			p.OnSuccess()
		}
	})
	a.ObserveRecoveryOutcome(!wasError)

	a.spawnLogEvent(input, "post_tool_use")
	a.spawnAfterToolUse(sess, input.ToolName, wasError)

	response := ""
	if input.ToolResponse != nil {
		response = *input.ToolResponse
	}
	var context string
	switch {
	case integrity.Suspicious:
		context = integrity.Recommendation
	case syntaxIssue != "":
		context = "Structured file failed validation: " + syntaxIssue
	case input.ToolName == "Bash" && strings.Contains(response, "FAIL"):
		context = "Test failure detected in Bash output. Review results before proceeding."
	case input.ToolName == "Write" || input.ToolName == "Edit":
		context = "File modification recorded. Verify changes align with intent."
	case strings.HasPrefix(input.ToolName, "mcp__"):
		context = "MCP tool output recorded. Verify external system state."
	default:
		context = "Tool output recorded."
	}

	return models.Context(models.EventPostToolUse, context)
}

// HandlePostToolUseFailure records the failure signal without producing an
// opinion.
func (a *App) HandlePostToolUseFailure(ctx context.Context, input models.HookInput) models.HookOutput {
	sess := a.sessionFor(input)
	if sess != nil {
		sess.Lock()
		sess.Errors++
		sess.Unlock()
	}
	a.WithFatigue(func(p *profiler.FatigueProfiler) { p.OnError() })
	a.ObserveRecoveryOutcome(false)
	a.spawnLogEvent(input, "post_tool_use_failure")
	a.spawnToolFailed(input.ToolName, input.Error)
	return models.Allow()
}

// HandleStop summarises the turn: the loop runs once more, the completion
// claims in the last assistant message are checked against the filesystem,
// and the session outcome is recorded for heuristic evolution.
func (a *App) HandleStop(ctx context.Context, input models.HookInput) models.HookOutput {
	sess := a.sessionFor(input)
	loopCtx, _ := a.runLoop(input, sess)

	var b strings.Builder
	fmt.Fprintf(&b, "Turn complete: decision=%s quality=%.2f %s",
		loopCtx.Decision, loopCtx.MetacogVector.OverallQuality(),
		loopCtx.MetacogVector.CompactEncode())

	if input.LastAssistantMessage != "" {
		cwd := input.CWD
		if cwd == "" {
			cwd = "."
		}
		result := verifier.VerifyCompletion(input.LastAssistantMessage, cwd)
		if !result.Verified {
			fmt.Fprintf(&b, " | Completion check FAILED: %s",
				strings.Join(result.BlockingIssues, "; "))
		} else if len(result.Warnings) > 0 {
			fmt.Fprintf(&b, " | %s", strings.Join(result.Warnings, "; "))
		}
		a.spawnCompletionVerified(result)
	}

	a.spawnLogEvent(input, "stop")
	a.spawnAfterStop(sess, loopCtx)

	return models.Context(models.EventStop, b.String())
}

// HandlePreCompact records the event; compaction itself happens agent-side.
func (a *App) HandlePreCompact(ctx context.Context, input models.HookInput) models.HookOutput {
	a.spawnLogEvent(input, "pre_compact")
	return models.Allow()
}

// HandleSessionEnd drops the session and records the reason.
func (a *App) HandleSessionEnd(ctx context.Context, input models.HookInput) models.HookOutput {
	if input.SessionID != "" {
		a.Sessions.Remove(input.SessionID)
	}
	a.spawnLogEvent(input, "session_end")
	a.spawnSessionEnded(input.Reason)
	return models.Allow()
}

// Analyze runs the planner and pipeline for an input and returns the full
// loop context, for debugging.
func (a *App) Analyze(ctx context.Context, input models.HookInput) *loop.Context {
	sess := a.sessionFor(input)
	loopCtx, _ := a.runLoop(input, sess)
	return loopCtx
}

// sessionFor looks up (or lazily creates) the session named by the input;
// nil when the input carries no session id.
func (a *App) sessionFor(input models.HookInput) *session.Session {
	if input.SessionID == "" {
		return nil
	}
	return a.Sessions.GetOrCreate(input.SessionID)
}

// runLoop builds a loop context seeded from the session, plans the topology,
// runs the plan, and writes the results back to the session. The loop is
// pure CPU work, so it is safe to drive while holding the session lock.
func (a *App) runLoop(input models.HookInput, sess *session.Session) (*loop.Context, loop.ExecutionPlan) {
	loopCtx := loop.NewContext(input)

	a.plasticityMu.Lock()
	loopCtx.PlasticityLost = a.Plasticity.IsLowPlasticity()
	a.plasticityMu.Unlock()

	if sess == nil {
		plan := loop.Plan(loopCtx.Risk, loopCtx.Difficulty, loopCtx.TaskType)
		a.ControlLoop.RunPlan(loopCtx, plan)
		loopCtx.OverconfidenceScore = loopCtx.EntropyTracker.OverconfidenceScore()
		return loopCtx, plan
	}

	sess.Lock()
	defer sess.Unlock()

	loopCtx.TaskType = sess.TaskType
	loopCtx.Risk = sess.Risk
	loopCtx.Strategy = sess.Strategy
	loopCtx.Difficulty = sess.Difficulty
	loopCtx.Competence = sess.Competence
	loopCtx.MetacogVector = sess.MetacogVector
	loopCtx.EntropyTracker = sess.EntropyTracker

	plan := loop.Plan(loopCtx.Risk, loopCtx.Difficulty, loopCtx.TaskType)
	a.ControlLoop.RunPlan(loopCtx, plan)
	loopCtx.OverconfidenceScore = loopCtx.EntropyTracker.OverconfidenceScore()

	sess.TaskType = loopCtx.TaskType
	sess.Risk = loopCtx.Risk
	sess.Strategy = loopCtx.Strategy
	sess.Difficulty = loopCtx.Difficulty
	sess.Competence = loopCtx.Competence
	sess.MetacogVector = loopCtx.MetacogVector
	sess.VerificationResults = append([]string(nil), loopCtx.VerificationResults...)
	sess.Lessons = append(sess.Lessons, loopCtx.Lessons...)
	sess.ExecutionPlan = &plan
	sess.TokensConsumed += loopCtx.Budget.ConsumedTokens

	return loopCtx, plan
}

func lastLesson(lessons []string) string {
	if len(lessons) == 0 {
		return ""
	}
	return lessons[len(lessons)-1]
}
