package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metaygn/aletheia/pkg/models"
)

func TestAllStagesHasTwelveEntries(t *testing.T) {
	assert.Len(t, AllStages, 12)
}

func TestSecurityGetsHorizontal(t *testing.T) {
	plan := Plan(models.RiskLow, 0.1, models.TaskSecurity)
	assert.Equal(t, TopologyHorizontal, plan.Topology)
	assert.Len(t, plan.Stages, 14)
	assert.Equal(t, "verify", plan.Stages[12])
	assert.Equal(t, "calibrate", plan.Stages[13])
}

func TestResearchGetsSlimVertical(t *testing.T) {
	plan := Plan(models.RiskMedium, 0.5, models.TaskResearch)
	assert.Equal(t, TopologyVertical, plan.Topology)
	assert.Equal(t, []string{"classify", "assess", "competence", "strategy", "act", "learn"}, plan.Stages)
}

func TestHighRiskGetsHorizontal(t *testing.T) {
	plan := Plan(models.RiskHigh, 0.1, models.TaskBugfix)
	assert.Equal(t, TopologyHorizontal, plan.Topology)
	assert.Len(t, plan.Stages, 14)
}

func TestTrivialTaskGetsSingle(t *testing.T) {
	plan := Plan(models.RiskLow, 0.1, models.TaskBugfix)
	assert.Equal(t, TopologySingle, plan.Topology)
	assert.Equal(t, []string{"classify", "assess", "act", "decide"}, plan.Stages)
}

func TestDefaultGetsFullVertical(t *testing.T) {
	plan := Plan(models.RiskMedium, 0.5, models.TaskFeature)
	assert.Equal(t, TopologyVertical, plan.Topology)
	assert.Len(t, plan.Stages, 12)
}

func TestDifficultyBoundaryFallsIntoVertical(t *testing.T) {
	// Exactly 0.2 is not trivial.
	plan := Plan(models.RiskLow, 0.2, models.TaskFeature)
	assert.Equal(t, TopologyVertical, plan.Topology)
}
