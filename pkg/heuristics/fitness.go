package heuristics

// FitnessScore is the multi-objective fitness of a heuristic version. Each
// dimension is normalised to [0, 1]; the composite is the weighted average
// 0.5*success + 0.3*tokens + 0.2*latency.
type FitnessScore struct {
	VerificationSuccessRate float64 `json:"verification_success_rate"`
	TokenEfficiency         float64 `json:"token_efficiency"`
	LatencyScore            float64 `json:"latency_score"`
	Composite               float64 `json:"composite"`
}

// ComputeFitness builds a fitness score from the three normalised objectives.
func ComputeFitness(successRate, tokenEfficiency, latencyScore float64) FitnessScore {
	return FitnessScore{
		VerificationSuccessRate: successRate,
		TokenEfficiency:         tokenEfficiency,
		LatencyScore:            latencyScore,
		Composite:               successRate*0.5 + tokenEfficiency*0.3 + latencyScore*0.2,
	}
}

// SessionOutcome records how a session went, used for statistical learning.
type SessionOutcome struct {
	SessionID         string `json:"session_id"`
	TaskType          string `json:"task_type"`
	RiskLevel         string `json:"risk_level"`
	StrategyUsed      string `json:"strategy_used"`
	Success           bool   `json:"success"`
	TokensConsumed    uint64 `json:"tokens_consumed"`
	DurationMS        uint64 `json:"duration_ms"`
	ErrorsEncountered uint32 `json:"errors_encountered"`
}
