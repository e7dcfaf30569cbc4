package heuristics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedHasDefaultWeights(t *testing.T) {
	seed := SeedVersion()
	assert.Equal(t, uint32(0), seed.Generation)
	assert.Empty(t, seed.ParentID)
	assert.Len(t, seed.RiskWeights, 8)
	assert.Equal(t, 0.9, seed.RiskWeights["credential_access"])
	assert.Len(t, seed.StrategyScores, 8)
}

func TestNewEvolverHasSeed(t *testing.T) {
	e := NewEvolver(20)
	assert.Equal(t, 1, e.PopulationSize())
	assert.Equal(t, uint32(0), e.Generation())
}

func TestOutcomeWindowDropsOldest(t *testing.T) {
	e := NewEvolver(20)
	for i := 0; i < 25; i++ {
		e.RecordOutcome(SessionOutcome{SessionID: fmt.Sprintf("s%d", i), Success: true})
	}
	assert.Equal(t, 20, e.OutcomeCount())
}

func TestMutateBestIncrementsGenerationAndLineage(t *testing.T) {
	e := NewEvolver(20)
	parent, ok := e.Best()
	require.True(t, ok)

	child, ok := e.MutateBest()
	require.True(t, ok)

	assert.Equal(t, parent.Generation+1, child.Generation)
	assert.Equal(t, parent.ID, child.ParentID)
	assert.NotEqual(t, parent.ID, child.ID)
	assert.Equal(t, 2, e.PopulationSize())
}

func TestMutationKeepsWeightsInRange(t *testing.T) {
	e := NewEvolver(64)
	for i := 0; i < 30; i++ {
		child, ok := e.MutateBest()
		require.True(t, ok)
		for marker, w := range child.RiskWeights {
			assert.GreaterOrEqual(t, w, 0.0, marker)
			assert.LessOrEqual(t, w, 1.0, marker)
		}
		for key, s := range child.StrategyScores {
			assert.GreaterOrEqual(t, s, 0.0, key)
			assert.LessOrEqual(t, s, 1.0, key)
		}
	}
}

func TestEvaluateAllComputesFitness(t *testing.T) {
	e := NewEvolver(20)
	e.RecordOutcome(SessionOutcome{
		SessionID:      "s1",
		RiskLevel:      "medium",
		Success:        true,
		TokensConsumed: 10_000,
		DurationMS:     30_000,
	})
	e.RecordOutcome(SessionOutcome{
		SessionID:      "s2",
		RiskLevel:      "medium",
		Success:        false,
		TokensConsumed: 50_000,
		DurationMS:     90_000,
	})

	e.EvaluateAll()
	best, ok := e.Best()
	require.True(t, ok)

	f := best.Fitness
	assert.Greater(t, f.Composite, 0.0)
	assert.InDelta(t,
		f.VerificationSuccessRate*0.5+f.TokenEfficiency*0.3+f.LatencyScore*0.2,
		f.Composite, 1e-9)
	// avg tokens 30k of 100k -> 0.7 efficiency; avg 60s of 300s -> 0.8.
	assert.InDelta(t, 0.7, f.TokenEfficiency, 1e-9)
	assert.InDelta(t, 0.8, f.LatencyScore, 1e-9)
}

func TestEvaluateAllWithoutOutcomesIsNoop(t *testing.T) {
	e := NewEvolver(20)
	e.EvaluateAll()
	best, ok := e.Best()
	require.True(t, ok)
	assert.Equal(t, 0.0, best.Fitness.Composite)
}

func TestEvolveGenerationCapsPopulation(t *testing.T) {
	e := NewEvolver(3)
	e.RecordOutcome(SessionOutcome{SessionID: "s", RiskLevel: "low", Success: true})
	for i := 0; i < 10; i++ {
		_, ok := e.EvolveGeneration()
		require.True(t, ok)
	}
	// Truncated to max, then one mutation is pushed.
	assert.LessOrEqual(t, e.PopulationSize(), 4)
	assert.GreaterOrEqual(t, e.Generation(), uint32(1))
}

func TestFitnessComposite(t *testing.T) {
	f := ComputeFitness(0.8, 0.6, 0.4)
	assert.InDelta(t, 0.66, f.Composite, 1e-9)
}
