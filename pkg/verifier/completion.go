// Package verifier checks the agent's claims against reality: completion
// claims in the last assistant message are verified against the filesystem,
// and structured file content is validated in-process.
package verifier

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// CompletionClaim is what the agent claims to have done, extracted from its
// last message.
type CompletionClaim struct {
	FilesMentioned   []string `json:"files_mentioned"`
	ClaimsCompletion bool     `json:"claims_completion"`
	ClaimsTestsPass  bool     `json:"claims_tests_pass"`
	ClaimsCompiles   bool     `json:"claims_compiles"`
}

// Check is a single verification step.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// CompletionResult is the outcome of verifying the claims.
type CompletionResult struct {
	Verified bool    `json:"verified"`
	Checks   []Check `json:"checks"`
	// BlockingIssues should block a "Done!" claim.
	BlockingIssues []string `json:"blocking_issues"`
	// Warnings are non-blocking concerns.
	Warnings []string `json:"warnings"`
}

var (
	// Paths with a directory component, e.g. `pkg/loop/runner.go`.
	filePathPattern = regexp.MustCompile(`(?:^|[\s` + "`" + `(])((?:[\w.\-]+/)+[\w.\-]+\.\w{1,10})`)
	// Standalone filenames with a recognised extension, e.g. "updated go.mod".
	standalonePattern = regexp.MustCompile(
		`(?:^|[\s` + "`" + `(])([A-Z][\w.\-]*\.\w{1,10}|[\w.\-]+\.(?:go|mod|rs|py|ts|js|toml|json|yaml|yml|md|sh|sql|html|css))\b`)
)

var (
	completionMarkers = []string{"done", "finished", "completed", "implemented", "all set", "ready", "everything is", "that's it"}
	testMarkers       = []string{"tests pass", "all tests", "test suite passes", "tests green", "passing tests", "tests are passing", "test results: ok"}
	compileMarkers    = []string{"compiles", "builds successfully", "no errors", "compilation successful", "build passed"}
)

// ExtractClaims parses the completion claims out of response text.
func ExtractClaims(text string) CompletionClaim {
	lower := strings.ToLower(text)

	seen := make(map[string]bool)
	var files []string
	addFile := func(f string) {
		if seen[f] || strings.HasPrefix(f, "http") || strings.Contains(f, "...") ||
			strings.HasPrefix(f, "e.g.") || strings.HasPrefix(f, "i.e.") {
			return
		}
		seen[f] = true
		files = append(files, f)
	}
	for _, m := range filePathPattern.FindAllStringSubmatch(text, -1) {
		addFile(m[1])
	}
	for _, m := range standalonePattern.FindAllStringSubmatch(text, -1) {
		addFile(m[1])
	}
	sort.Strings(files)

	return CompletionClaim{
		FilesMentioned:   files,
		ClaimsCompletion: containsAny(lower, completionMarkers),
		ClaimsTestsPass:  containsAny(lower, testMarkers),
		ClaimsCompiles:   containsAny(lower, compileMarkers),
	}
}

// VerifyFilesExist checks each mentioned file against the filesystem rooted
// at cwd.
func VerifyFilesExist(claims CompletionClaim, cwd string) []Check {
	checks := make([]Check, 0, len(claims.FilesMentioned))
	for _, file := range claims.FilesMentioned {
		_, err := os.Stat(filepath.Join(cwd, file))
		exists := err == nil
		detail := fmt.Sprintf("%s exists", file)
		if !exists {
			detail = fmt.Sprintf("%s NOT FOUND — the agent mentioned this file but it doesn't exist", file)
		}
		checks = append(checks, Check{
			Name:   "file_exists:" + file,
			Passed: exists,
			Detail: detail,
		})
	}
	return checks
}

// VerifyCompletion builds the full verification result for a response.
func VerifyCompletion(text, cwd string) CompletionResult {
	claims := ExtractClaims(text)
	result := CompletionResult{}

	if claims.ClaimsCompletion && len(claims.FilesMentioned) > 0 {
		fileChecks := VerifyFilesExist(claims, cwd)
		for _, check := range fileChecks {
			if !check.Passed {
				result.BlockingIssues = append(result.BlockingIssues, check.Detail)
			}
		}
		result.Checks = append(result.Checks, fileChecks...)
	}

	if claims.ClaimsTestsPass {
		result.Warnings = append(result.Warnings,
			"Agent claims tests pass — verify by running tests yourself")
		result.Checks = append(result.Checks, Check{
			Name:   "test_claim",
			Passed: true, // cannot verify without running the tests
			Detail: "Test pass claim detected — recommend manual verification",
		})
	}

	if claims.ClaimsCompiles {
		result.Warnings = append(result.Warnings,
			"Agent claims code compiles — verify with a build command")
		result.Checks = append(result.Checks, Check{
			Name:   "compile_claim",
			Passed: true,
			Detail: "Compilation claim detected — recommend manual verification",
		})
	}

	if claims.ClaimsCompletion && len(claims.FilesMentioned) == 0 {
		result.Warnings = append(result.Warnings,
			"Agent claims completion but no files were mentioned in the response")
	}

	result.Verified = len(result.BlockingIssues) == 0
	return result
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
