package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTestFileDetection(t *testing.T) {
	for _, path := range []string{
		"pkg/loop/runner_test.go",
		"tests/fixtures.py",
		"src/app.spec.ts",
		"component.test.js",
		"test_parser.py",
	} {
		assert.True(t, IsTestFile(path), "path %q", path)
	}
	for _, path := range []string{
		"pkg/loop/runner.go",
		"cmd/aletheiad/main.go",
		"README.md",
	} {
		assert.False(t, IsTestFile(path), "path %q", path)
	}
}

func TestNonTestFileIsNeverSuspicious(t *testing.T) {
	report := AnalyzeTestEdit("pkg/loop/runner.go", "assert.Equal(t, 1, x)", "")
	assert.False(t, report.IsTestFile)
	assert.False(t, report.Suspicious)
	assert.Equal(t, "Not a test file", report.Recommendation)
}

func TestAssertionRemovalDetected(t *testing.T) {
	oldString := `func TestAdd(t *testing.T) {
	assert.Equal(t, 4, Add(2, 2))
	assert.Equal(t, 0, Add(-1, 1))
}`
	newString := `func TestAdd(t *testing.T) {
	assert.Equal(t, 4, Add(2, 2))
}`
	report := AnalyzeTestEdit("math_test.go", oldString, newString)

	require.True(t, report.Suspicious)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueAssertionRemoved, report.Issues[0].IssueType)
	assert.Contains(t, report.Issues[0].Detail, "1 assertion(s) removed (was 2, now 1)")
	assert.Contains(t, report.Recommendation, "TEST INTEGRITY WARNING")
}

func TestTestFunctionRemovalDetected(t *testing.T) {
	oldString := "func TestA(t *testing.T) {}\nfunc TestB(t *testing.T) {}"
	newString := "func TestA(t *testing.T) {}"
	report := AnalyzeTestEdit("pkg/foo/foo_test.go", oldString, newString)

	require.True(t, report.Suspicious)
	assert.Equal(t, IssueTestFunctionRemoved, report.Issues[0].IssueType)
}

func TestSkipMarkerDetected(t *testing.T) {
	oldString := "func TestFlaky(t *testing.T) {\n\tassert.True(t, check())\n}"
	newString := "func TestFlaky(t *testing.T) {\n\tt.Skip(\"later\")\n\tassert.True(t, check())\n}"
	report := AnalyzeTestEdit("flaky_test.go", oldString, newString)

	require.True(t, report.Suspicious)
	found := false
	for _, issue := range report.Issues {
		if issue.IssueType == IssueTestSkipped {
			found = true
		}
	}
	assert.True(t, found, "expected a TestSkipped issue, got %v", report.Issues)
}

func TestExpectedValueChangeDetected(t *testing.T) {
	oldString := "assert.Equal(t, 42, Answer())"
	newString := "assert.Equal(t, 41, Answer())"
	report := AnalyzeTestEdit("answer_test.go", oldString, newString)

	require.True(t, report.Suspicious)
	assert.Equal(t, IssueExpectedValueChanged, report.Issues[0].IssueType)
}

func TestLegitimateEditPasses(t *testing.T) {
	oldString := "func TestAdd(t *testing.T) {\n\tassert.Equal(t, 4, Add(2, 2))\n}"
	newString := "func TestAdd(t *testing.T) {\n\tassert.Equal(t, 4, Add(2, 2))\n\tassert.Equal(t, 6, Add(3, 3))\n}"
	report := AnalyzeTestEdit("math_test.go", oldString, newString)

	assert.True(t, report.IsTestFile)
	assert.False(t, report.Suspicious)
	assert.Contains(t, report.Recommendation, "legitimate")
}
