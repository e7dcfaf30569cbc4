package loop

import (
	"log/slog"

	"github.com/metaygn/aletheia/pkg/models"
)

// ControlLoop orchestrates the 12-stage metacognitive pipeline. Stages run
// sequentially; a stage can end the run early via Skip or Escalate.
// Immutable after construction and safe to share.
type ControlLoop struct {
	stages []Stage
	byName map[string]Stage
}

// New builds the default 12-stage control loop.
func New() *ControlLoop {
	stages := []Stage{
		classifyStage{},   // 1. classify task type
		assessStage{},     // 2. assess difficulty + risk
		competenceStage{}, // 3. self-assess competence
		toolNeedStage{},   // 4. determine if a tool is needed
		budgetStage{},     // 5. allocate budget
		strategyStage{},   // 6. select reasoning strategy
		actStage{},        // 7. record intended action
		verifyStage{},     // 8. verify tool output
		calibrateStage{},  // 9. calibrate metacog vector
		compactStage{},    // 10. memory compaction
		decideStage{},     // 11. make decision
		learnStage{},      // 12. collect lessons
	}
	byName := make(map[string]Stage, len(stages))
	for _, s := range stages {
		byName[s.Name()] = s
	}
	return &ControlLoop{stages: stages, byName: byName}
}

// Run executes the full pipeline on ctx and returns the final decision.
func (l *ControlLoop) Run(ctx *Context) models.Decision {
	for _, stage := range l.stages {
		if stopped := l.step(ctx, stage); stopped {
			break
		}
	}
	return ctx.Decision
}

// RunPlan executes only the stages named by the plan, in plan order. A stage
// name appearing twice (as in the Horizontal double verify+calibrate pass)
// is executed each time; unknown names are ignored.
func (l *ControlLoop) RunPlan(ctx *Context, plan ExecutionPlan) models.Decision {
	for _, name := range plan.Stages {
		stage, ok := l.byName[name]
		if !ok {
			continue
		}
		if stopped := l.step(ctx, stage); stopped {
			break
		}
	}
	return ctx.Decision
}

// step runs one stage and reports whether the pipeline should stop.
func (l *ControlLoop) step(ctx *Context, stage Stage) bool {
	result := stage.Run(ctx)
	switch result.Status {
	case StatusSkip:
		slog.Debug("stage requested skip", "stage", stage.Name())
		return true
	case StatusEscalate:
		ctx.Decision = models.DecideEscalate
		ctx.Lessons = append(ctx.Lessons,
			"escalated at stage '"+stage.Name()+"': "+result.Reason)
		slog.Warn("pipeline escalated", "stage", stage.Name(), "reason", result.Reason)
		return true
	default:
		return false
	}
}

// StageCount returns the number of stages in the default pipeline.
func (l *ControlLoop) StageCount() int {
	return len(l.stages)
}

// StageNames returns the names of all stages in pipeline order.
func (l *ControlLoop) StageNames() []string {
	names := make([]string, len(l.stages))
	for i, s := range l.stages {
		names[i] = s.Name()
	}
	return names
}
