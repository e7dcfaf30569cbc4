package verifier

import (
	"fmt"
	"strings"
)

// TestIssueType categorises a suspicious test modification.
type TestIssueType string

const (
	// IssueAssertionRemoved: an assertion line was deleted.
	IssueAssertionRemoved TestIssueType = "AssertionRemoved"
	// IssueExpectedValueChanged: the expected value in an assertion changed.
	IssueExpectedValueChanged TestIssueType = "ExpectedValueChanged"
	// IssueTestFunctionRemoved: a test function was deleted.
	IssueTestFunctionRemoved TestIssueType = "TestFunctionRemoved"
	// IssueTestSkipped: a skip/ignore marker was added.
	IssueTestSkipped TestIssueType = "TestSkipped"
)

// TestIntegrityIssue is one finding from a test-file edit.
type TestIntegrityIssue struct {
	IssueType TestIssueType `json:"issue_type"`
	Detail    string        `json:"detail"`
}

// TestIntegrityReport is the analysis of a test file modification. It exists
// to catch the agent weakening tests to hide bugs instead of fixing the
// implementation.
type TestIntegrityReport struct {
	IsTestFile     bool                 `json:"is_test_file"`
	Suspicious     bool                 `json:"suspicious"`
	Issues         []TestIntegrityIssue `json:"issues"`
	Recommendation string               `json:"recommendation"`
}

// IsTestFile reports whether a path looks like a test file.
func IsTestFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "test") ||
		strings.Contains(lower, "spec") ||
		strings.HasSuffix(lower, "_test.go") ||
		strings.HasSuffix(lower, "_test.py") ||
		strings.HasSuffix(lower, ".test.ts") ||
		strings.HasSuffix(lower, ".test.js") ||
		strings.HasSuffix(lower, ".spec.ts") ||
		strings.HasSuffix(lower, ".spec.js") ||
		strings.Contains(lower, "/tests/") ||
		strings.Contains(lower, `\tests\`) ||
		strings.HasPrefix(lower, "test_")
}

var assertionPatterns = []string{
	"assert.Equal(",
	"assert.NoError(",
	"assert.True(",
	"assert.False(",
	"require.Equal(",
	"require.NoError(",
	"assertEqual(",
	"assertNotEqual(",
	"assertTrue(",
	"assertFalse(",
	"expect(",
	".toBe(",
	".toEqual(",
	".toMatch(",
	".should.",
	"assert.equal(",
	"assert.deepEqual(",
}

var testFunctionPatterns = []string{
	"func Test",
	"def test_",
	`it("`,
	"it('",
	`test("`,
	"test('",
}

var skipPatterns = []string{
	"t.Skip(",
	"t.SkipNow(",
	"@pytest.mark.skip",
	".skip(",
	"xit(",
	"xdescribe(",
	"test.skip",
	"@unittest.skip",
}

// AnalyzeTestEdit compares the old and new content of an edit to a test file
// and flags assertion removal, test deletion, skip markers, and changed
// expected values.
func AnalyzeTestEdit(filePath, oldString, newString string) TestIntegrityReport {
	if !IsTestFile(filePath) {
		return TestIntegrityReport{Recommendation: "Not a test file"}
	}

	var issues []TestIntegrityIssue

	oldAsserts := countMatches(oldString, assertionPatterns)
	newAsserts := countMatches(newString, assertionPatterns)
	if newAsserts < oldAsserts {
		issues = append(issues, TestIntegrityIssue{
			IssueType: IssueAssertionRemoved,
			Detail: fmt.Sprintf("%d assertion(s) removed (was %d, now %d)",
				oldAsserts-newAsserts, oldAsserts, newAsserts),
		})
	}

	oldTests := countMatches(oldString, testFunctionPatterns)
	newTests := countMatches(newString, testFunctionPatterns)
	if newTests < oldTests {
		issues = append(issues, TestIntegrityIssue{
			IssueType: IssueTestFunctionRemoved,
			Detail: fmt.Sprintf("%d test function(s) removed (was %d, now %d)",
				oldTests-newTests, oldTests, newTests),
		})
	}

	oldSkips := countContaining(oldString, skipPatterns)
	newSkips := countContaining(newString, skipPatterns)
	if newSkips > oldSkips {
		issues = append(issues, TestIntegrityIssue{
			IssueType: IssueTestSkipped,
			Detail:    fmt.Sprintf("%d new skip/ignore marker(s) added", newSkips-oldSkips),
		})
	}

	if detectExpectedValueChange(oldString, newString) {
		issues = append(issues, TestIntegrityIssue{
			IssueType: IssueExpectedValueChanged,
			Detail:    "Expected values in assertions appear to have changed",
		})
	}

	suspicious := len(issues) > 0
	recommendation := "Test modification looks legitimate (no assertions removed or weakened)"
	if suspicious {
		recommendation = fmt.Sprintf(
			"TEST INTEGRITY WARNING: the agent is modifying test assertions instead of fixing the implementation. "+
				"%d issue(s) detected. Review carefully — the tests may be weakened to hide bugs.",
			len(issues))
	}

	return TestIntegrityReport{
		IsTestFile:     true,
		Suspicious:     suspicious,
		Issues:         issues,
		Recommendation: recommendation,
	}
}

// countMatches sums occurrence counts of every pattern.
func countMatches(text string, patterns []string) int {
	total := 0
	for _, p := range patterns {
		total += strings.Count(text, p)
	}
	return total
}

// countContaining counts how many patterns appear at least once.
func countContaining(text string, patterns []string) int {
	n := 0
	for _, p := range patterns {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}

// detectExpectedValueChange flags edits where the assertion count is
// unchanged but the assertion lines themselves differ — the shape of an
// expected value being rewritten to match broken output.
func detectExpectedValueChange(oldString, newString string) bool {
	oldLines := assertionLines(oldString)
	newLines := assertionLines(newString)
	if len(oldLines) == 0 || len(newLines) == 0 {
		return false
	}
	if len(oldLines) != len(newLines) {
		return false
	}
	for i := range oldLines {
		if oldLines[i] != newLines[i] {
			return true
		}
	}
	return false
}

var equalityAssertPatterns = []string{"assert.Equal(", "require.Equal(", "assertEqual("}

func assertionLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		for _, p := range equalityAssertPatterns {
			if strings.Contains(line, p) {
				lines = append(lines, line)
				break
			}
		}
	}
	return lines
}
