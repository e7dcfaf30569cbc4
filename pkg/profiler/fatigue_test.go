package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFreshProfilerScoreIsZero(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	report := p.Assess()

	assert.Equal(t, 0.0, report.Score)
	assert.False(t, report.HighFriction)
	assert.Equal(t, "No fatigue signals detected", report.Recommendation)
}

func TestShortPromptSignal(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p.OnPrompt("fix it", noon)

	report := p.Assess()
	assert.InDelta(t, 0.15, report.Score, 1e-9)
	assert.Contains(t, report.Signals[0], "short prompt")
}

func TestLateNightSignal(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	threeAM := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	p.OnPrompt("please refactor the authentication middleware carefully", threeAM)

	report := p.Assess()
	assert.InDelta(t, 0.20, report.Score, 1e-9)
}

func TestRapidRetrySignal(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p.OnPrompt("please run the full integration suite now", noon)
	p.OnPrompt("please run the full integration suite again", noon)

	report := p.Assess()
	assert.InDelta(t, 0.15, report.Score, 1e-9)
}

func TestErrorLoopSignal(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	p.OnError()
	p.OnError()
	assert.Equal(t, 0.0, p.Assess().Score)

	p.OnError()
	report := p.Assess()
	assert.InDelta(t, 0.30, report.Score, 1e-9)
}

func TestOnSuccessResetsConsecutiveErrors(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	p.OnError()
	p.OnError()
	assert.Equal(t, 2, p.ConsecutiveErrors())
	p.OnSuccess()
	assert.Equal(t, 0, p.ConsecutiveErrors())
}

func TestHighFrictionModeActivates(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	threeAM := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	// Short + late-night + rapid-retry signals pile up past 0.7.
	for i := 0; i < 3; i++ {
		p.OnPrompt("fix", threeAM)
	}

	report := p.Assess()
	assert.True(t, report.HighFriction)
	assert.Contains(t, report.Recommendation, "High-Friction mode")
}

func TestScoreCapsAtOne(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	threeAM := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		p.OnPrompt("no", threeAM)
	}
	assert.Equal(t, 1.0, p.Assess().Score)
}

func TestSignalWindowBounded(t *testing.T) {
	cfg := DefaultFatigueConfig()
	cfg.SignalWindow = 5
	p := NewFatigueProfiler(cfg)
	threeAM := time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		p.OnPrompt("hm", threeAM)
	}
	assert.LessOrEqual(t, len(p.signals), 5)
}

func TestReset(t *testing.T) {
	p := NewFatigueProfilerWithDefaults()
	p.OnError()
	p.OnError()
	p.OnError()
	p.Reset()
	assert.Equal(t, 0.0, p.Assess().Score)
	assert.Equal(t, 0, p.ConsecutiveErrors())
}
