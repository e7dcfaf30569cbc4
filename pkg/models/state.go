package models

import "fmt"

// TaskType categorises the work the agent is performing.
type TaskType string

const (
	TaskBugfix       TaskType = "Bugfix"
	TaskFeature      TaskType = "Feature"
	TaskRefactor     TaskType = "Refactor"
	TaskArchitecture TaskType = "Architecture"
	TaskSecurity     TaskType = "Security"
	TaskResearch     TaskType = "Research"
	TaskRelease      TaskType = "Release"
)

// RiskLevel classifies operation risk. Levels are totally ordered
// Low < Medium < High via Rank.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Rank returns the ordinal position of the level (Low=0, Medium=1, High=2).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 0
	}
}

// Strategy is a reasoning strategy the agent may adopt.
type Strategy string

const (
	StrategyStepByStep    Strategy = "StepByStep"
	StrategyTreeExplore   Strategy = "TreeExplore"
	StrategyVerifyFirst   Strategy = "VerifyFirst"
	StrategyDivideConquer Strategy = "DivideConquer"
	StrategyAnalogical    Strategy = "Analogical"
	StrategyAdversarial   Strategy = "Adversarial"
	StrategyRapid         Strategy = "Rapid"
	StrategyIterative     Strategy = "Iterative"
)

// Decision is the control loop's verdict on how to proceed.
type Decision string

const (
	DecideContinue Decision = "Continue"
	DecideRevise   Decision = "Revise"
	DecideAbstain  Decision = "Abstain"
	DecideEscalate Decision = "Escalate"
	DecideStop     Decision = "Stop"
)

// MetacognitiveVector is the 5-dimensional representation of the agent's
// metacognitive state. All values are expected to stay in [0, 1].
type MetacognitiveVector struct {
	Confidence float64 `json:"confidence"`
	Coherence  float64 `json:"coherence"`
	Grounding  float64 `json:"grounding"`
	Complexity float64 `json:"complexity"`
	Progress   float64 `json:"progress"`
}

// DefaultMetacogVector returns the neutral starting vector.
func DefaultMetacogVector() MetacognitiveVector {
	return MetacognitiveVector{
		Confidence: 0.5,
		Coherence:  0.5,
		Grounding:  0.5,
		Complexity: 0.5,
		Progress:   0.0,
	}
}

// OverallQuality computes the derived quality scalar. Complexity is inverted
// because higher complexity reduces quality.
func (v MetacognitiveVector) OverallQuality() float64 {
	return (v.Confidence + v.Coherence + v.Grounding + (1.0 - v.Complexity) + v.Progress) / 5.0
}

// CompactEncode renders the vector as "META:c{n}h{n}g{n}x{n}p{n}" with each
// digit n = floor(value * 9) in 0..9.
func (v MetacognitiveVector) CompactEncode() string {
	return fmt.Sprintf("META:c%dh%dg%dx%dp%d",
		int(v.Confidence*9), int(v.Coherence*9), int(v.Grounding*9),
		int(v.Complexity*9), int(v.Progress*9))
}

// BudgetState tracks token/cost/latency limits for a single loop run.
type BudgetState struct {
	MaxTokens      uint64    `json:"max_tokens"`
	ConsumedTokens uint64    `json:"consumed_tokens"`
	MaxLatencyMS   uint64    `json:"max_latency_ms"`
	MaxCostUSD     float64   `json:"max_cost_usd"`
	RiskTolerance  RiskLevel `json:"risk_tolerance"`
}

// DefaultBudget returns the budget used before the budget stage has run.
func DefaultBudget() BudgetState {
	return BudgetState{
		MaxTokens:     5000,
		MaxLatencyMS:  30_000,
		MaxCostUSD:    0.10,
		RiskTolerance: RiskMedium,
	}
}

// TokensRemaining returns the unconsumed part of the token budget.
func (b BudgetState) TokensRemaining() uint64 {
	if b.ConsumedTokens > b.MaxTokens {
		return 0
	}
	return b.MaxTokens - b.ConsumedTokens
}

// Utilization returns the consumed fraction of the token budget.
func (b BudgetState) Utilization() float64 {
	if b.MaxTokens == 0 {
		return 0.0
	}
	return float64(b.ConsumedTokens) / float64(b.MaxTokens)
}

// IntendedAction records what tool the act stage expected to run, consulted
// by the verify stage to detect tool mismatches.
type IntendedAction struct {
	Tool    string `json:"tool"`
	Target  string `json:"target"`
	Purpose string `json:"purpose"`
}
