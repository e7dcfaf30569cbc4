// Package services hosts the application state and the hook service that
// drives the control plane: it builds loop contexts from sessions, runs the
// planner and pipeline, merges guard verdicts, and spawns fire-and-forget
// post-processing.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/metaygn/aletheia/pkg/config"
	"github.com/metaygn/aletheia/pkg/evidence"
	"github.com/metaygn/aletheia/pkg/guard"
	"github.com/metaygn/aletheia/pkg/heuristics"
	"github.com/metaygn/aletheia/pkg/kernel"
	"github.com/metaygn/aletheia/pkg/loop"
	"github.com/metaygn/aletheia/pkg/memory"
	"github.com/metaygn/aletheia/pkg/models"
	"github.com/metaygn/aletheia/pkg/monitor"
	"github.com/metaygn/aletheia/pkg/profiler"
	"github.com/metaygn/aletheia/pkg/pruner"
	"github.com/metaygn/aletheia/pkg/sandbox"
	"github.com/metaygn/aletheia/pkg/session"
)

// globalBudgetTokens and globalBudgetCost cap the per-process session budget
// tracker surfaced in hook responses and /budget.
const (
	globalBudgetTokens = 1_000_000
	globalBudgetCost   = 20.0
)

// crystallizeThreshold is how often a tool sequence must recur before it is
// crystallized into a skill template.
const crystallizeThreshold = 3

// App bundles the long-lived components shared by every handler. Mutex-
// guarded members are locked only for short critical sections and never
// across I/O.
type App struct {
	Config *config.Config

	Store  *memory.Store
	Graph  *memory.Graph
	Tiered *memory.Tiered
	Search *memory.UnifiedSearch

	ControlLoop  *loop.ControlLoop
	Guards       *guard.Pipeline
	Sessions     *session.Store
	Sandbox      *sandbox.ProcessSandbox
	Kernel       *kernel.Kernel
	Evidence     *evidence.Pack
	Monitor      *monitor.Monitor
	Evolver      *heuristics.Evolver
	Pruner       *pruner.ContextPruner
	Crystallizer *memory.SkillCrystallizer

	fatigueMu sync.Mutex
	Fatigue   *profiler.FatigueProfiler

	plasticityMu    sync.Mutex
	Plasticity      *profiler.PlasticityTracker
	pendingRecovery bool

	budgetMu sync.Mutex
	Budget   *models.SessionBudget
}

// NewApp wires an App over a file-backed database.
func NewApp(cfg *config.Config, dbPath string) (*App, error) {
	store, err := memory.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	return newApp(cfg, store)
}

// NewAppInMemory wires an App over an in-memory database, for tests.
func NewAppInMemory(cfg *config.Config) (*App, error) {
	store, err := memory.OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory store: %w", err)
	}
	return newApp(cfg, store)
}

func newApp(cfg *config.Config, store *memory.Store) (*App, error) {
	graph := memory.NewGraph(store)

	pack, err := evidence.NewSigningPack()
	if err != nil {
		return nil, fmt.Errorf("failed to create evidence pack: %w", err)
	}

	app := &App{
		Config:       cfg,
		Store:        store,
		Graph:        graph,
		Tiered:       memory.NewTiered(store, 5*time.Minute),
		Search:       memory.NewUnifiedSearch(store, graph),
		ControlLoop:  loop.New(),
		Guards:       guard.NewPipeline(),
		Sessions:     session.NewStore(),
		Kernel:       kernel.Default(),
		Evidence:     pack,
		Evolver:      heuristics.NewEvolver(cfg.Evolver.MaxPopulation),
		Plasticity:   profiler.NewPlasticityTracker(),
		Crystallizer: memory.NewSkillCrystallizer(crystallizeThreshold),
		Budget:       models.NewSessionBudget(globalBudgetTokens, globalBudgetCost),
		Monitor: monitor.New(monitor.Config{
			WindowSize:          cfg.Monitor.WindowSize,
			AnomalyThreshold:    cfg.Monitor.AnomalyThreshold,
			StagnationThreshold: cfg.Monitor.StagnationThreshold,
		}),
		Sandbox: sandbox.New(sandbox.Config{
			Timeout:        time.Duration(cfg.Sandbox.TimeoutMS) * time.Millisecond,
			MaxOutputBytes: cfg.Sandbox.MaxOutputBytes,
		}),
		Fatigue: profiler.NewFatigueProfiler(profiler.FatigueConfig{
			HighFrictionThreshold: cfg.Fatigue.HighFrictionThreshold,
			SignalWindow:          cfg.Fatigue.SignalWindow,
			ShortPromptThreshold:  cfg.Fatigue.ShortPromptThreshold,
			RapidRetry:            time.Duration(cfg.Fatigue.RapidRetryMS) * time.Millisecond,
		}),
	}

	prunerCfg := pruner.DefaultConfig()
	prunerCfg.ErrorThreshold = cfg.Pruner.ErrorThreshold
	app.Pruner = pruner.New(prunerCfg)

	app.restoreHeuristics()

	return app, nil
}

// restoreHeuristics reloads persisted heuristic versions into the evolver
// population. Failures are logged and ignored: a fresh seed population is a
// valid starting point.
func (a *App) restoreHeuristics() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := a.Store.LoadHeuristics(ctx, a.Config.Evolver.MaxPopulation)
	if err != nil {
		slog.Warn("failed to load persisted heuristics", "error", err)
		return
	}
	for _, row := range rows {
		version := heuristics.Version{
			ID:         row.ID,
			Generation: row.Generation,
			ParentID:   row.ParentID,
			CreatedAt:  row.CreatedAt,
		}
		if err := json.Unmarshal([]byte(row.Fitness), &version.Fitness); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(row.RiskWeights), &version.RiskWeights); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(row.StrategyScores), &version.StrategyScores); err != nil {
			continue
		}
		a.Evolver.RestoreVersion(version)
	}
	if len(rows) > 0 {
		slog.Info("restored heuristic versions", "count", len(rows))
	}
}

// WithFatigue runs fn while holding the fatigue lock.
func (a *App) WithFatigue(fn func(p *profiler.FatigueProfiler)) {
	a.fatigueMu.Lock()
	defer a.fatigueMu.Unlock()
	fn(a.Fatigue)
}

// AssessFatigue returns a snapshot fatigue report.
func (a *App) AssessFatigue() profiler.FatigueReport {
	a.fatigueMu.Lock()
	defer a.fatigueMu.Unlock()
	return a.Fatigue.Assess()
}

// WithPlasticity runs fn while holding the plasticity lock.
func (a *App) WithPlasticity(fn func(t *profiler.PlasticityTracker)) {
	a.plasticityMu.Lock()
	defer a.plasticityMu.Unlock()
	fn(a.Plasticity)
}

// AmplificationLevel returns the current recovery amplification level.
func (a *App) AmplificationLevel() int {
	a.plasticityMu.Lock()
	defer a.plasticityMu.Unlock()
	return a.Plasticity.AmplificationLevel()
}

// MarkRecoveryInjected records an injection and flags that its outcome is
// still unobserved.
func (a *App) MarkRecoveryInjected() {
	a.plasticityMu.Lock()
	defer a.plasticityMu.Unlock()
	a.Plasticity.RecordRecoveryInjected()
	a.pendingRecovery = true
}

// ObserveRecoveryOutcome feeds the next post-injection tool result into the
// plasticity tracker, once per injection.
func (a *App) ObserveRecoveryOutcome(success bool) {
	a.plasticityMu.Lock()
	defer a.plasticityMu.Unlock()
	if !a.pendingRecovery {
		return
	}
	a.pendingRecovery = false
	if success {
		a.Plasticity.RecordOutcome(profiler.RecoverySuccess)
	} else {
		a.Plasticity.RecordOutcome(profiler.RecoveryFailure)
	}
}

// WithBudget runs fn while holding the budget lock.
func (a *App) WithBudget(fn func(b *models.SessionBudget)) {
	a.budgetMu.Lock()
	defer a.budgetMu.Unlock()
	fn(a.Budget)
}

// BudgetSnapshot returns a copy of the global budget.
func (a *App) BudgetSnapshot() models.SessionBudget {
	a.budgetMu.Lock()
	defer a.budgetMu.Unlock()
	return *a.Budget
}

// marshalPayload renders a value as a JSON payload for the event and
// evidence logs; marshal failures degrade to an empty object.
func marshalPayload(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
