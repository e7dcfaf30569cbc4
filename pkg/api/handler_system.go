package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/metaygn/aletheia/pkg/heuristics"
	"github.com/metaygn/aletheia/pkg/models"
	"github.com/metaygn/aletheia/pkg/profiler"
	"github.com/metaygn/aletheia/pkg/sandbox"
	"github.com/metaygn/aletheia/pkg/version"
)

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Kernel  string `json:"kernel"`
}

// healthHandler handles GET /health. The kernel hash is re-verified on every
// probe so rule tampering surfaces immediately.
func (s *Server) healthHandler(c *echo.Context) error {
	kernelStatus := "verified"
	status := "ok"
	if err := s.app.Kernel.Verify(); err != nil {
		kernelStatus = err.Error()
		status = "degraded"
	}
	return c.JSON(http.StatusOK, &HealthResponse{
		Status:  status,
		Version: version.Full(),
		Kernel:  kernelStatus,
	})
}

// metricsHandler handles GET /metrics, formatting internal counters as
// Prometheus exposition text.
func (s *Server) metricsHandler(c *echo.Context) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# HELP aletheia_active_sessions Current active sessions\n"+
		"# TYPE aletheia_active_sessions gauge\n"+
		"aletheia_active_sessions %d\n\n", s.app.Sessions.Count())

	if eventCount, err := s.app.Store.EventCount(c.Request().Context()); err == nil {
		fmt.Fprintf(&b, "# HELP aletheia_events_total Total events logged\n"+
			"# TYPE aletheia_events_total counter\n"+
			"aletheia_events_total %d\n\n", eventCount)
	}

	if nodeCount, err := s.app.Graph.NodeCount(c.Request().Context()); err == nil {
		fmt.Fprintf(&b, "# HELP aletheia_graph_nodes_total Total graph memory nodes\n"+
			"# TYPE aletheia_graph_nodes_total counter\n"+
			"aletheia_graph_nodes_total %d\n\n", nodeCount)
	}

	report := s.app.AssessFatigue()
	fmt.Fprintf(&b, "# HELP aletheia_fatigue_score Current fatigue score\n"+
		"# TYPE aletheia_fatigue_score gauge\n"+
		"aletheia_fatigue_score %.4f\n\n", report.Score)

	budget := s.app.BudgetSnapshot()
	fmt.Fprintf(&b, "# HELP aletheia_tokens_consumed_total Total tokens consumed globally\n"+
		"# TYPE aletheia_tokens_consumed_total counter\n"+
		"aletheia_tokens_consumed_total %d\n\n", budget.ConsumedTokens)

	fmt.Fprintf(&b, "# HELP aletheia_evidence_entries_total Evidence pack entries\n"+
		"# TYPE aletheia_evidence_entries_total counter\n"+
		"aletheia_evidence_entries_total %d\n", s.app.Evidence.Len())

	return c.Blob(http.StatusOK, "text/plain; version=0.0.4", []byte(b.String()))
}

// SignalRequest is the body for POST /profiler/signal.
type SignalRequest struct {
	SignalType string `json:"signal_type"`
	Prompt     string `json:"prompt,omitempty"`
	// Timestamp is RFC 3339; defaults to now.
	Timestamp string `json:"timestamp,omitempty"`
}

// profilerSignalHandler handles POST /profiler/signal and returns the
// updated report.
func (s *Server) profilerSignalHandler(c *echo.Context) error {
	var req SignalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signal request: "+err.Error())
	}

	s.app.WithFatigue(func(p *profiler.FatigueProfiler) {
		switch req.SignalType {
		case "prompt":
			ts := time.Now()
			if req.Timestamp != "" {
				if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
					ts = parsed
				}
			}
			p.OnPrompt(req.Prompt, ts)
		case "error":
			p.OnError()
		case "success":
			p.OnSuccess()
		default:
			// Unknown signal type — ignore gracefully.
		}
	})

	return c.JSON(http.StatusOK, s.app.AssessFatigue())
}

// profilerFatigueHandler handles GET /profiler/fatigue.
func (s *Server) profilerFatigueHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.app.AssessFatigue())
}

// ExecRequest is the body for POST /sandbox/exec.
type ExecRequest struct {
	Language  string `json:"language"`
	Code      string `json:"code"`
	TimeoutMS uint64 `json:"timeout_ms,omitempty"`
}

// sandboxExecHandler handles POST /sandbox/exec. Sandbox failures are never
// transport errors: they surface as a structured result.
func (s *Server) sandboxExecHandler(c *echo.Context) error {
	var req ExecRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid exec request: "+err.Error())
	}

	result, err := s.app.Sandbox.Execute(c.Request().Context(), req.Language, req.Code)
	if err != nil {
		result = sandbox.Result{Success: false, Stderr: err.Error()}
	}
	return c.JSON(http.StatusOK, result)
}

// sandboxHypothesisHandler handles POST /sandbox/hypothesis.
func (s *Server) sandboxHypothesisHandler(c *echo.Context) error {
	var h sandbox.Hypothesis
	if err := c.Bind(&h); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hypothesis: "+err.Error())
	}
	return c.JSON(http.StatusOK, s.app.Sandbox.TestHypothesis(c.Request().Context(), h))
}

// heuristicsOutcomeHandler handles POST /heuristics/outcome.
func (s *Server) heuristicsOutcomeHandler(c *echo.Context) error {
	var outcome heuristics.SessionOutcome
	if err := c.Bind(&outcome); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid outcome: "+err.Error())
	}
	s.app.Evolver.RecordOutcome(outcome)
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// heuristicsEvolveHandler handles POST /heuristics/evolve.
func (s *Server) heuristicsEvolveHandler(c *echo.Context) error {
	best, ok := s.app.Evolver.EvolveGeneration()
	if !ok {
		return c.JSON(http.StatusOK, map[string]any{"ok": false, "error": "empty population"})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "best": best})
}

// heuristicsBestHandler handles GET /heuristics/best.
func (s *Server) heuristicsBestHandler(c *echo.Context) error {
	best, ok := s.app.Evolver.Best()
	if !ok {
		return c.JSON(http.StatusOK, map[string]any{"error": "empty population"})
	}
	return c.JSON(http.StatusOK, map[string]any{"best": best})
}

// heuristicsPopulationHandler handles GET /heuristics/population.
func (s *Server) heuristicsPopulationHandler(c *echo.Context) error {
	var bestFitness float64
	if best, ok := s.app.Evolver.Best(); ok {
		bestFitness = best.Fitness.Composite
	}
	return c.JSON(http.StatusOK, map[string]any{
		"size":         s.app.Evolver.PopulationSize(),
		"generation":   s.app.Evolver.Generation(),
		"best_fitness": bestFitness,
	})
}

// ConsumeRequest is the body for POST /budget/consume.
type ConsumeRequest struct {
	Tokens  uint64  `json:"tokens"`
	CostUSD float64 `json:"cost_usd"`
}

// budgetHandler handles GET /budget.
func (s *Server) budgetHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.app.BudgetSnapshot())
}

// budgetConsumeHandler handles POST /budget/consume.
func (s *Server) budgetConsumeHandler(c *echo.Context) error {
	var req ConsumeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid consume request: "+err.Error())
	}

	var snapshot models.SessionBudget
	s.app.WithBudget(func(b *models.SessionBudget) {
		b.Consume(req.Tokens, req.CostUSD)
		snapshot = *b
	})

	return c.JSON(http.StatusOK, map[string]any{
		"summary":           snapshot.Summary(),
		"is_over_budget":    snapshot.IsOverBudget(),
		"should_warn":       snapshot.ShouldWarn(),
		"consumed_tokens":   snapshot.ConsumedTokens,
		"consumed_cost_usd": snapshot.ConsumedCostUSD,
	})
}

// adminShutdownHandler handles POST /admin/shutdown.
func (s *Server) adminShutdownHandler(c *echo.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "message": "Shutdown initiated"})
}
