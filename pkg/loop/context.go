// Package loop implements the 12-stage metacognitive control loop: the
// mutable LoopContext that flows through the stages, the stages themselves,
// the sequential runner, and the topology planner that selects which stage
// subset runs for a given event.
package loop

import (
	"github.com/metaygn/aletheia/pkg/heuristics"
	"github.com/metaygn/aletheia/pkg/models"
)

// entropyWindowSize is the default window for overconfidence tracking.
const entropyWindowSize = 20

// Context is the mutable working set that flows through the pipeline. Each
// stage reads and/or writes fields so later stages observe every earlier
// stage's decisions. The loop is pure CPU work: it never suspends and may be
// driven while holding the session lock.
type Context struct {
	// Input is the raw hook event that triggered this run.
	Input models.HookInput `json:"input"`

	// TaskType is set by the classify stage; empty until then.
	TaskType models.TaskType `json:"task_type,omitempty"`

	// Risk is set by the assess stage.
	Risk models.RiskLevel `json:"risk"`

	// Difficulty is the [0,1] estimate set by the assess stage.
	Difficulty float64 `json:"difficulty"`

	// Competence is the [0,1] self-assessment set by the competence stage.
	Competence float64 `json:"competence"`

	// ToolNecessary is set by the tool_need stage.
	ToolNecessary bool `json:"tool_necessary"`

	// Budget is allocated by the budget stage.
	Budget models.BudgetState `json:"budget"`

	// Strategy is selected by the strategy stage.
	Strategy models.Strategy `json:"strategy"`

	// Decision is set by the decide stage (or by escalation).
	Decision models.Decision `json:"decision"`

	// MetacogVector is updated by the calibrate stage.
	MetacogVector models.MetacognitiveVector `json:"metacog_vector"`

	// VerificationResults collects tagged findings from the verify stage.
	VerificationResults []string `json:"verification_results"`

	// Lessons collects human-readable lessons from learn and escalations.
	Lessons []string `json:"lessons"`

	// IntendedAction is recorded by the act stage for post-verification.
	IntendedAction *models.IntendedAction `json:"intended_action,omitempty"`

	// OverconfidenceScore mirrors the entropy tracker; set by the handler.
	OverconfidenceScore float64 `json:"overconfidence_score"`

	// PlasticityLost is set by the handler when recovery feedback is being
	// ignored.
	PlasticityLost bool `json:"plasticity_lost"`

	// EntropyTracker detects overconfidence; excluded from serialisation.
	EntropyTracker *heuristics.EntropyTracker `json:"-"`
}

// NewContext creates a context from a hook input with neutral defaults.
func NewContext(input models.HookInput) *Context {
	return &Context{
		Input:          input,
		Risk:           models.RiskLow,
		Difficulty:     0.5,
		Competence:     0.7,
		Budget:         models.DefaultBudget(),
		Strategy:       models.StrategyStepByStep,
		Decision:       models.DecideContinue,
		MetacogVector:  models.DefaultMetacogVector(),
		EntropyTracker: heuristics.NewEntropyTracker(entropyWindowSize),
	}
}
