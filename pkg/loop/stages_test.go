package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metaygn/aletheia/pkg/models"
)

func TestClassifyKeywordPriorities(t *testing.T) {
	tests := []struct {
		text string
		want models.TaskType
	}{
		{"fix the login bug", models.TaskBugfix},
		{"check for vulnerability", models.TaskSecurity},
		{"refactor the parser", models.TaskRefactor},
		{"design the new infrastructure", models.TaskArchitecture},
		{"publish the changelog", models.TaskRelease},
		{"investigate a prototype", models.TaskResearch},
		{"add a new button", models.TaskFeature},
		// Security outranks bugfix even when both match.
		{"fix the auth bug", models.TaskSecurity},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyFromKeywords(tt.text), "text %q", tt.text)
	}
}

func TestEstimateDifficulty(t *testing.T) {
	assert.Less(t, estimateDifficulty("hello world"), 0.2)

	d := estimateDifficulty("implement a distributed concurrent system with async parallel processing")
	assert.Greater(t, d, 0.3)

	// Clamped to 1 even with many complexity keywords and a long prompt.
	long := ""
	for i := 0; i < 300; i++ {
		long += "concurrent distributed parallel async recursive cryptographic migration "
	}
	assert.LessOrEqual(t, estimateDifficulty(long), 1.0)
}

func TestEstimateRiskLevels(t *testing.T) {
	high := NewContext(models.HookInput{ToolName: "Bash", Prompt: "run the script"})
	assert.Equal(t, models.RiskHigh, estimateRisk(high))

	medium := NewContext(models.HookInput{Prompt: "update the readme wording"})
	assert.Equal(t, models.RiskMedium, estimateRisk(medium))

	low := NewContext(models.HookInput{Prompt: "what does this function do?"})
	assert.Equal(t, models.RiskLow, estimateRisk(low))
}

func TestBaseCompetenceByTaskType(t *testing.T) {
	assert.Equal(t, 0.4, baseCompetence(models.TaskSecurity))
	assert.Equal(t, 0.8, baseCompetence(models.TaskBugfix))
	assert.Equal(t, 0.5, baseCompetence(""))
}

func TestTokensForDifficultyBands(t *testing.T) {
	assert.Equal(t, uint64(1000), tokensForDifficulty(0.1))
	assert.Equal(t, uint64(5000), tokensForDifficulty(0.5))
	assert.Equal(t, uint64(20000), tokensForDifficulty(0.9))

	// Band boundaries fall into the higher band.
	assert.Equal(t, uint64(5000), tokensForDifficulty(0.3))
	assert.Equal(t, uint64(20000), tokensForDifficulty(0.7))
}

func TestStrategyMatrix(t *testing.T) {
	assert.Equal(t, models.StrategyRapid, selectStrategy(models.RiskLow, 0.1, models.TaskBugfix))
	assert.Equal(t, models.StrategyStepByStep, selectStrategy(models.RiskLow, 0.5, models.TaskBugfix))
	assert.Equal(t, models.StrategyDivideConquer, selectStrategy(models.RiskLow, 0.8, models.TaskBugfix))
	assert.Equal(t, models.StrategyStepByStep, selectStrategy(models.RiskMedium, 0.1, models.TaskBugfix))
	assert.Equal(t, models.StrategyTreeExplore, selectStrategy(models.RiskMedium, 0.5, models.TaskBugfix))
	assert.Equal(t, models.StrategyIterative, selectStrategy(models.RiskMedium, 0.8, models.TaskBugfix))
	assert.Equal(t, models.StrategyVerifyFirst, selectStrategy(models.RiskHigh, 0.1, models.TaskFeature))
	assert.Equal(t, models.StrategyAdversarial, selectStrategy(models.RiskHigh, 0.5, models.TaskFeature))
	assert.Equal(t, models.StrategyVerifyFirst, selectStrategy(models.RiskHigh, 0.8, models.TaskFeature))
}

func TestStrategyOverridesIgnoreMatrix(t *testing.T) {
	assert.Equal(t, models.StrategyAdversarial, selectStrategy(models.RiskLow, 0.1, models.TaskSecurity))
	assert.Equal(t, models.StrategyTreeExplore, selectStrategy(models.RiskHigh, 0.9, models.TaskResearch))
}

func TestActRecordsIntendedAction(t *testing.T) {
	ctx := NewContext(models.HookInput{
		ToolName:  "Bash",
		ToolInput: map[string]any{"command": "go test ./..."},
	})
	ctx.Strategy = models.StrategyVerifyFirst
	actStage{}.Run(ctx)

	assert.NotNil(t, ctx.IntendedAction)
	assert.Equal(t, "Bash", ctx.IntendedAction.Tool)
	assert.Equal(t, "go test ./...", ctx.IntendedAction.Target)
	assert.Equal(t, "Execute via VerifyFirst strategy", ctx.IntendedAction.Purpose)
}

func TestActWithoutToolInputIsNoop(t *testing.T) {
	ctx := NewContext(models.HookInput{Prompt: "just thinking"})
	actStage{}.Run(ctx)
	assert.Nil(t, ctx.IntendedAction)
}

func TestCompactDeduplicatesLessons(t *testing.T) {
	ctx := NewContext(models.HookInput{})
	ctx.Lessons = []string{"a", "b", "a", "c", "b", "d", "e", "f", "g"}
	compactStage{}.Run(ctx)

	// 5 unique lessons plus the compact summary.
	assert.Len(t, ctx.Lessons, 6)
	assert.Contains(t, ctx.Lessons[5], "[compact]")
}

func TestCompactCountsCleanVerifications(t *testing.T) {
	ctx := NewContext(models.HookInput{})
	ctx.VerificationResults = []string{
		"tool_response_length: 42",
		"response_contains: error",
		"test_failures: 2 tests failed",
	}
	compactStage{}.Run(ctx)
	assert.Contains(t, ctx.Lessons[0], "verifications=1/3")
}
