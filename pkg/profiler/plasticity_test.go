package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreshTrackerIsOptimistic(t *testing.T) {
	tr := NewPlasticityTracker()
	assert.Equal(t, 1.0, tr.PlasticityScore())
	assert.False(t, tr.IsLowPlasticity())
	assert.Equal(t, uint32(0), tr.TotalRecoveries())
}

func TestScoreIsSuccessFraction(t *testing.T) {
	tr := NewPlasticityTracker()
	tr.RecordRecoveryInjected()
	tr.RecordOutcome(RecoverySuccess)
	tr.RecordRecoveryInjected()
	tr.RecordOutcome(RecoveryFailure)
	tr.RecordRecoveryInjected()
	tr.RecordOutcome(RecoveryFailure)

	assert.InDelta(t, 1.0/3.0, tr.PlasticityScore(), 1e-9)
	assert.Equal(t, uint32(3), tr.TotalRecoveries())
}

func TestLowPlasticityDetection(t *testing.T) {
	tr := NewPlasticityTracker()
	for i := 0; i < 4; i++ {
		tr.RecordOutcome(RecoveryFailure)
	}
	tr.RecordOutcome(RecoverySuccess)
	// 1/5 = 0.2 < 0.3
	assert.True(t, tr.IsLowPlasticity())
}

func TestAmplificationLevels(t *testing.T) {
	tr := NewPlasticityTracker()
	assert.Equal(t, 1, tr.AmplificationLevel())

	tr.RecordOutcome(RecoveryFailure)
	assert.Equal(t, 2, tr.AmplificationLevel())

	tr.RecordOutcome(RecoveryFailure)
	assert.Equal(t, 3, tr.AmplificationLevel())

	tr.RecordOutcome(RecoveryFailure)
	assert.Equal(t, 3, tr.AmplificationLevel())

	tr.RecordOutcome(RecoverySuccess)
	assert.Equal(t, 1, tr.AmplificationLevel())
}
