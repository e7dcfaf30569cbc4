package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func step(content string, n int) ReasoningStep {
	return ReasoningStep{Content: content, StepNumber: n, Timestamp: time.Now()}
}

func TestFirstStepNeverAnomalous(t *testing.T) {
	m := NewWithDefaults()
	report := m.Observe(step("analyzing the login handler", 1))

	assert.False(t, report.IsAnomalous)
	assert.Equal(t, 1.0, report.SimilarityScore)
	assert.Equal(t, 1, m.HistoryLen())
}

func TestIdenticalStepsFlagStagnation(t *testing.T) {
	m := NewWithDefaults()
	content := "checking the database connection pool settings again"
	for i := 0; i < 3; i++ {
		m.Observe(step(content, i))
	}
	report := m.Observe(step(content, 3))

	assert.True(t, report.IsAnomalous)
	assert.Greater(t, report.SimilarityScore, 0.95)
	assert.Contains(t, report.Reason, "stagnant")
}

func TestDivergentStepFlagsAnomaly(t *testing.T) {
	m := NewWithDefaults()
	m.Observe(step("reviewing the http router and middleware ordering", 1))
	m.Observe(step("reviewing the http handler registration and routes", 2))
	report := m.Observe(step("quantum entanglement cooking recipe zebra", 3))

	assert.True(t, report.IsAnomalous)
	assert.Less(t, report.SimilarityScore, 0.15)
	assert.Contains(t, report.Reason, "diverged")
}

func TestWindowSlides(t *testing.T) {
	m := New(Config{WindowSize: 3, AnomalyThreshold: 0.15, StagnationThreshold: 0.95})
	for i := 0; i < 10; i++ {
		m.Observe(step(fmt.Sprintf("step number %d with some content", i), i))
	}
	assert.Equal(t, 3, m.HistoryLen())
}

func TestCheckDoesNotMutateHistory(t *testing.T) {
	m := NewWithDefaults()
	m.Observe(step("looking at the session store implementation", 1))

	before := m.HistoryLen()
	report := m.Check("looking at the session store implementation")
	assert.Equal(t, before, m.HistoryLen())
	assert.NotZero(t, report.SimilarityScore)
}

func TestCheckEmptyHistory(t *testing.T) {
	m := NewWithDefaults()
	report := m.Check("anything at all")
	assert.False(t, report.IsAnomalous)
	assert.Equal(t, 1.0, report.SimilarityScore)
}

func TestReset(t *testing.T) {
	m := NewWithDefaults()
	m.Observe(step("some content", 1))
	m.Reset()
	assert.Equal(t, 0, m.HistoryLen())
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "123"}, tokenize("Hello, World! 123"))
	assert.Empty(t, tokenize("!!! ... ---"))
}

func TestCosineSimilarityBasics(t *testing.T) {
	a := map[string]float64{"x": 1.0, "y": 2.0}
	assert.InDelta(t, 1.0, cosineSimilarity(a, a), 1e-9)

	b := map[string]float64{"z": 1.0}
	assert.InDelta(t, 0.0, cosineSimilarity(a, b), 1e-9)

	assert.Equal(t, 0.0, cosineSimilarity(a, map[string]float64{}))
}
