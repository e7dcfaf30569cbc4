package loop

// StageStatus is the control-flow outcome of a single stage.
type StageStatus int

const (
	// StatusContinue proceeds to the next stage.
	StatusContinue StageStatus = iota
	// StatusSkip stops remaining stages (early exit, not an error).
	StatusSkip
	// StatusEscalate stops the pipeline and escalates to a human.
	StatusEscalate
)

// StageResult carries the status plus the escalation reason when set.
type StageResult struct {
	Status StageStatus
	Reason string
}

// Continue is the common all-clear result.
func Continue() StageResult {
	return StageResult{Status: StatusContinue}
}

// Skip requests an early exit from the pipeline.
func Skip() StageResult {
	return StageResult{Status: StatusSkip}
}

// Escalate stops the pipeline with a reason for the human operator.
func Escalate(reason string) StageResult {
	return StageResult{Status: StatusEscalate, Reason: reason}
}

// Stage is one step of the control loop. Stages are stateless: all mutable
// state lives on the Context.
type Stage interface {
	// Name is the unique stage identifier used by execution plans.
	Name() string
	// Run executes the stage logic, reading and writing ctx.
	Run(ctx *Context) StageResult
}
