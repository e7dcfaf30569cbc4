package loop

import (
	"log/slog"

	"github.com/metaygn/aletheia/pkg/models"
)

// strategyStage (stage 6) selects a reasoning strategy from risk, difficulty,
// and task type.
type strategyStage struct{}

func (strategyStage) Name() string { return "strategy" }

func (s strategyStage) Run(ctx *Context) StageResult {
	ctx.Strategy = selectStrategy(ctx.Risk, ctx.Difficulty, ctx.TaskType)

	slog.Debug("selected strategy", "stage", s.Name(), "strategy", ctx.Strategy)
	return Continue()
}

// selectStrategy applies the task-type overrides (Security -> Adversarial,
// Research -> TreeExplore) and otherwise the risk x difficulty matrix:
//
//	           | Low (<0.3)  | Medium (<0.7) | High (>=0.7)
//	Low        | Rapid       | StepByStep    | DivideConquer
//	Medium     | StepByStep  | TreeExplore   | Iterative
//	High       | VerifyFirst | Adversarial   | VerifyFirst
func selectStrategy(risk models.RiskLevel, difficulty float64, taskType models.TaskType) models.Strategy {
	switch taskType {
	case models.TaskSecurity:
		return models.StrategyAdversarial
	case models.TaskResearch:
		return models.StrategyTreeExplore
	}

	band := difficultyBand(difficulty)
	switch risk {
	case models.RiskLow:
		switch band {
		case bandLow:
			return models.StrategyRapid
		case bandMedium:
			return models.StrategyStepByStep
		default:
			return models.StrategyDivideConquer
		}
	case models.RiskMedium:
		switch band {
		case bandLow:
			return models.StrategyStepByStep
		case bandMedium:
			return models.StrategyTreeExplore
		default:
			return models.StrategyIterative
		}
	default: // RiskHigh
		switch band {
		case bandLow:
			return models.StrategyVerifyFirst
		case bandMedium:
			return models.StrategyAdversarial
		default:
			return models.StrategyVerifyFirst
		}
	}
}

type band int

const (
	bandLow band = iota
	bandMedium
	bandHigh
)

func difficultyBand(d float64) band {
	switch {
	case d < 0.3:
		return bandLow
	case d < 0.7:
		return bandMedium
	default:
		return bandHigh
	}
}
