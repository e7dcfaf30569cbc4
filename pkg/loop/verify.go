package loop

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// verifyStage (stage 8) collects verification results from the tool
// response. Results are tagged strings consumed by calibrate, decide, and
// learn.
type verifyStage struct{}

func (verifyStage) Name() string { return "verify" }

// responseErrorPatterns are scanned in the lower-cased tool response.
var responseErrorPatterns = []string{"error", "failed", "exception", "panic", "traceback"}

func (s verifyStage) Run(ctx *Context) StageResult {
	ctx.VerificationResults = ctx.VerificationResults[:0]

	// Intended vs actual tool.
	if action := ctx.IntendedAction; action != nil && action.Tool != "" &&
		ctx.Input.ToolName != "" && ctx.Input.ToolName != action.Tool {
		ctx.VerificationResults = append(ctx.VerificationResults, fmt.Sprintf(
			"tool_mismatch: intended '%s' but executed '%s'", action.Tool, ctx.Input.ToolName))
	}

	// Test results in Bash output: the last whitespace-separated token
	// before the first "failed" must parse as a positive integer. A token
	// like "2;" intentionally does not parse.
	if ctx.Input.ToolName == "Bash" && ctx.Input.ToolResponse != nil {
		lower := strings.ToLower(*ctx.Input.ToolResponse)
		if pos := strings.Index(lower, "failed"); pos >= 0 {
			fields := strings.Fields(lower[:pos])
			if len(fields) > 0 {
				if failed, err := strconv.ParseUint(fields[len(fields)-1], 10, 32); err == nil && failed > 0 {
					ctx.VerificationResults = append(ctx.VerificationResults,
						fmt.Sprintf("test_failures: %d tests failed", failed))
				}
			}
		}
	}

	// Error carried from a previous tool invocation.
	if ctx.Input.Error != "" {
		ctx.VerificationResults = append(ctx.VerificationResults,
			"tool_error: "+ctx.Input.Error)
	}

	// Basic sanity checks on the response itself.
	if ctx.Input.ToolResponse != nil {
		response := *ctx.Input.ToolResponse
		if response == "" {
			ctx.VerificationResults = append(ctx.VerificationResults,
				"warning: empty tool response")
		} else {
			ctx.VerificationResults = append(ctx.VerificationResults,
				fmt.Sprintf("tool_response_length: %d", len(response)))
		}

		lower := strings.ToLower(response)
		for _, pattern := range responseErrorPatterns {
			if strings.Contains(lower, pattern) {
				ctx.VerificationResults = append(ctx.VerificationResults,
					"response_contains: "+pattern)
			}
		}
	} else {
		ctx.VerificationResults = append(ctx.VerificationResults, "no_tool_response")
	}

	slog.Debug("verification complete",
		"stage", s.Name(), "results", ctx.VerificationResults)
	return Continue()
}
