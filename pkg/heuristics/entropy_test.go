package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyTrackerScoresZero(t *testing.T) {
	tracker := NewEntropyTracker(20)
	assert.Equal(t, 0.0, tracker.OverconfidenceScore())
	assert.False(t, tracker.IsOverconfident())
	assert.Equal(t, 0, tracker.Len())
}

func TestWindowRespectsCapacityFIFO(t *testing.T) {
	tracker := NewEntropyTracker(3)
	tracker.Record(0.1, true)
	tracker.Record(0.2, true)
	tracker.Record(0.3, true)
	tracker.Record(0.4, true)

	assert.Equal(t, 3, tracker.Len())
	samples := tracker.Samples()
	assert.Equal(t, 0.2, samples[0].Confidence)
	assert.Equal(t, 0.4, samples[2].Confidence)
}

func TestOverconfidenceScore(t *testing.T) {
	tracker := NewEntropyTracker(10)
	// Three high-confidence samples, two of them wrong.
	tracker.Record(0.9, false)
	tracker.Record(0.8, false)
	tracker.Record(0.95, true)
	// Low-confidence samples don't count.
	tracker.Record(0.2, false)
	tracker.Record(0.3, false)

	assert.InDelta(t, 2.0/3.0, tracker.OverconfidenceScore(), 1e-9)
	assert.True(t, tracker.IsOverconfident())
}

func TestHighConfidenceCorrectIsNotOverconfident(t *testing.T) {
	tracker := NewEntropyTracker(10)
	for i := 0; i < 5; i++ {
		tracker.Record(0.9, true)
	}
	assert.Equal(t, 0.0, tracker.OverconfidenceScore())
	assert.False(t, tracker.IsOverconfident())
}

func TestThresholdIsExclusive(t *testing.T) {
	tracker := NewEntropyTracker(10)
	// Exactly 30% wrong: not overconfident (threshold is strict).
	for i := 0; i < 7; i++ {
		tracker.Record(0.9, true)
	}
	for i := 0; i < 3; i++ {
		tracker.Record(0.9, false)
	}
	assert.InDelta(t, 0.3, tracker.OverconfidenceScore(), 1e-9)
	assert.False(t, tracker.IsOverconfident())
}
