package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/metaygn/aletheia/pkg/guard"
	"github.com/metaygn/aletheia/pkg/heuristics"
	"github.com/metaygn/aletheia/pkg/loop"
	"github.com/metaygn/aletheia/pkg/memory"
	"github.com/metaygn/aletheia/pkg/models"
	"github.com/metaygn/aletheia/pkg/session"
	"github.com/metaygn/aletheia/pkg/verifier"
)

// Post-processing runs after the HTTP response is written. These tasks are
// fire-and-forget: they touch only persistence and mutex-guarded state, and
// correctness never depends on their completion order. Failures are logged
// and swallowed so agent-facing semantics are unaffected.

// postProcessTimeout bounds each background task.
const postProcessTimeout = 10 * time.Second

// evolutionThreshold is the minimum accumulated outcomes before evolution
// triggers on stop.
func (a *App) evolutionThreshold() int {
	return a.Config.Evolver.EvolutionThreshold
}

func (a *App) spawn(name string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), postProcessTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Warn("post-processing task failed", "task", name, "error", err)
		}
	}()
}

// spawnLogEvent appends the hook input to the event log and the evidence
// pack.
func (a *App) spawnLogEvent(input models.HookInput, eventType string) {
	payload := marshalPayload(input)
	a.Evidence.Append(eventType, payload)
	a.spawn("log_event", func(ctx context.Context) error {
		sessionID := input.SessionID
		if sessionID == "" {
			sessionID = "daemon"
		}
		_, err := a.Store.LogEvent(ctx, sessionID, eventType, string(payload))
		return err
	})
}

// spawnAfterPromptSubmit inserts a Task node capturing the classification.
func (a *App) spawnAfterPromptSubmit(sess *session.Session, plan loop.ExecutionPlan) {
	if sess == nil {
		return
	}
	sess.Lock()
	taskType := sess.TaskType
	risk := sess.Risk
	strategy := sess.Strategy
	sess.Unlock()

	event := models.PromptClassifiedEvent(risk, strategy, string(plan.Topology))
	a.Evidence.Append(event.Type, marshalPayload(event))

	a.spawn("task_node", func(ctx context.Context) error {
		return a.Graph.UpsertNode(ctx, memory.Node{
			ID:        "task-" + uuid.New().String(),
			NodeType:  memory.NodeTask,
			Scope:     memory.ScopeSession,
			Label:     "Task: " + string(taskType) + " (risk: " + string(risk) + ")",
			Content:   "task_type=" + string(taskType) + ", risk=" + string(risk) + ", strategy=" + string(strategy),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

// spawnToolGated records the guard verdict as a typed event.
func (a *App) spawnToolGated(tool string, decision guard.Decision) {
	verdict := models.PermissionDecision(decision.Verdict())
	event := models.ToolGatedEvent(tool, verdict, decision.BlockingGuard, decision.AggregateScore)
	a.Evidence.Append(event.Type, marshalPayload(event))
}

// spawnAfterToolUse updates the session entropy tracker and inserts an
// Evidence node.
func (a *App) spawnAfterToolUse(sess *session.Session, tool string, wasError bool) {
	if sess != nil {
		sess.Lock()
		confidence := sess.MetacogVector.Confidence
		sess.EntropyTracker.Record(confidence, !wasError)
		// The per-turn tool trail feeds skill crystallization at stop.
		sess.ToolSequence = append(sess.ToolSequence, tool)
		sess.Unlock()
	}

	event := models.ToolCompletedEvent(tool, !wasError)
	a.Evidence.Append(event.Type, marshalPayload(event))

	outcome := "success"
	if wasError {
		outcome = "error"
	}
	a.spawn("evidence_node", func(ctx context.Context) error {
		return a.Graph.UpsertNode(ctx, memory.Node{
			ID:        "evidence-" + uuid.New().String(),
			NodeType:  memory.NodeEvidence,
			Scope:     memory.ScopeSession,
			Label:     "Tool: " + tool + " (" + outcome + ")",
			Content:   "tool=" + tool + ", error=" + outcome,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

// spawnToolFailed records a typed failure event.
func (a *App) spawnToolFailed(tool, errMsg string) {
	event := models.ToolFailedEvent(tool, errMsg)
	a.Evidence.Append(event.Type, marshalPayload(event))
}

// spawnTestIntegrityWarning records a suspicious test-file edit.
func (a *App) spawnTestIntegrityWarning(file string, report verifier.TestIntegrityReport) {
	issues := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issues = append(issues, issue.Detail)
	}
	event := models.TestIntegrityWarningEvent(file, issues)
	a.Evidence.Append(event.Type, marshalPayload(event))
}

// spawnCompletionVerified records the stop-hook completion check.
func (a *App) spawnCompletionVerified(result verifier.CompletionResult) {
	event := models.CompletionVerifiedEvent(result.Verified, result.BlockingIssues)
	a.Evidence.Append(event.Type, marshalPayload(event))
}

// spawnSessionEnded records the session end.
func (a *App) spawnSessionEnded(reason string) {
	event := models.SessionEndedEvent(reason)
	a.Evidence.Append(event.Type, marshalPayload(event))
}

// spawnAfterStop inserts Decision and Lesson nodes, records the session
// outcome for heuristic evolution, and persists the evolved best version
// once enough outcomes have accumulated.
func (a *App) spawnAfterStop(sess *session.Session, loopCtx *loop.Context) {
	if sess == nil {
		return
	}

	sess.Lock()
	sessionID := sess.SessionID
	taskType := sess.TaskType
	risk := sess.Risk
	strategy := sess.Strategy
	errors := sess.Errors
	tokensConsumed := sess.TokensConsumed
	durationMS := uint64(time.Since(sess.CreatedAt).Milliseconds())
	lessons := append([]string(nil), sess.Lessons...)
	toolSequence := sess.ToolSequence
	sess.ToolSequence = nil
	sess.Unlock()

	// The turn's tool trail becomes a crystallization observation; recurring
	// sequences surface as skill templates via /memory/skills.
	a.Crystallizer.Observe(toolSequence)

	decision := string(loopCtx.Decision)

	a.spawn("decision_node", func(ctx context.Context) error {
		return a.Graph.UpsertNode(ctx, memory.Node{
			ID:        "decision-" + uuid.New().String(),
			NodeType:  memory.NodeDecision,
			Scope:     memory.ScopeSession,
			Label:     "Decision: " + decision,
			Content:   decision,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Lesson nodes are project-scoped for cross-session learning; capped at
	// 5 to avoid flooding the graph.
	if len(lessons) > 5 {
		lessons = lessons[:5]
	}
	a.spawn("lesson_nodes", func(ctx context.Context) error {
		for i, lesson := range lessons {
			node := memory.Node{
				ID:        "lesson-" + sessionID + "-" + strconv.Itoa(i),
				NodeType:  memory.NodeLesson,
				Scope:     memory.ScopeProject,
				Label:     lesson,
				Content:   lesson,
				CreatedAt: time.Now().UTC().Format(time.RFC3339),
			}
			if err := a.Graph.UpsertNode(ctx, node); err != nil {
				return err
			}
		}
		return nil
	})

	// Lessons also land in the tiered cache so hot recall skips the
	// database; frequently-read entries get promoted and persisted.
	if len(lessons) > 0 {
		a.Tiered.Put("lessons:"+sessionID, strings.Join(lessons, "\n"), []string{"lesson", sessionID})
	}
	a.spawn("tiered_maintenance", func(ctx context.Context) error {
		a.Tiered.EvictExpired()
		return a.Tiered.PromoteHotToWarm(ctx)
	})

	outcome := heuristics.SessionOutcome{
		SessionID:         sessionID,
		TaskType:          string(taskType),
		RiskLevel:         strings.ToLower(string(risk)),
		StrategyUsed:      string(strategy),
		Success:           errors == 0,
		TokensConsumed:    tokensConsumed,
		DurationMS:        durationMS,
		ErrorsEncountered: errors,
	}
	a.Evolver.RecordOutcome(outcome)

	var best *heuristics.Version
	if a.Evolver.OutcomeCount() >= a.evolutionThreshold() {
		a.Evolver.EvaluateAll()
		if v, ok := a.Evolver.Best(); ok {
			best = &v
		}
	}

	a.spawn("record_outcome", func(ctx context.Context) error {
		err := a.Store.SaveOutcome(ctx, memory.OutcomeRow{
			SessionID:         outcome.SessionID,
			TaskType:          outcome.TaskType,
			RiskLevel:         outcome.RiskLevel,
			StrategyUsed:      outcome.StrategyUsed,
			Success:           outcome.Success,
			TokensConsumed:    outcome.TokensConsumed,
			DurationMS:        outcome.DurationMS,
			ErrorsEncountered: outcome.ErrorsEncountered,
		})
		if err != nil {
			return err
		}
		if best != nil {
			return a.Store.SaveHeuristic(ctx, memory.HeuristicRow{
				ID:             best.ID,
				Generation:     best.Generation,
				ParentID:       best.ParentID,
				Fitness:        string(marshalPayload(best.Fitness)),
				RiskWeights:    string(marshalPayload(best.RiskWeights)),
				StrategyScores: string(marshalPayload(best.StrategyScores)),
				CreatedAt:      best.CreatedAt,
			})
		}
		return nil
	})

	slog.Info("session outcome recorded for heuristic evolution",
		"session_id", sessionID, "success", errors == 0)
}
