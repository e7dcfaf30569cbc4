// Package sandbox runs short verification snippets as subprocesses with a
// hard deadline and a combined-output cap. The agent uses it to test
// hypotheses before presenting results.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

// Config bounds sandbox execution.
type Config struct {
	// Timeout is the hard deadline per execution.
	Timeout time.Duration
	// MaxOutputBytes caps stdout and stderr individually.
	MaxOutputBytes int
}

// DefaultConfig returns the standard limits: 5 s and 64 KiB.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxOutputBytes: 64 * 1024,
	}
}

// Result is the structured outcome of one execution. Failures are always
// expressed here, never as transport errors.
type Result struct {
	Success    bool   `json:"success"`
	ExitCode   *int   `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMS uint64 `json:"duration_ms"`
	TimedOut   bool   `json:"timed_out"`
}

// Hypothesis is a testable snippet plus the expected outcome.
type Hypothesis struct {
	Description string `json:"description"`
	// Language is one of "python", "node", "bash".
	Language        string `json:"language"`
	Code            string `json:"code"`
	ExpectedSuccess bool   `json:"expected_success"`
}

// ErrUnsupportedLanguage is returned for languages the sandbox cannot run.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ProcessSandbox executes snippets as subprocesses.
type ProcessSandbox struct {
	config Config
}

// New creates a sandbox with the given configuration.
func New(config Config) *ProcessSandbox {
	return &ProcessSandbox{config: config}
}

// NewWithDefaults creates a sandbox with the default limits.
func NewWithDefaults() *ProcessSandbox {
	return New(DefaultConfig())
}

// buildCommand maps a language to an interpreter invocation.
func buildCommand(language, code string) (string, []string, error) {
	switch language {
	case "python":
		return "python3", []string{"-c", code}, nil
	case "node":
		return "node", []string{"-e", code}, nil
	case "bash":
		return "bash", []string{"-c", code}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
}

// Execute runs a snippet. On deadline expiry the child is killed and the
// result carries timed_out=true with best-effort captured output.
func (s *ProcessSandbox) Execute(ctx context.Context, language, code string) (Result, error) {
	program, args, err := buildCommand(language, code)
	if err != nil {
		return Result{}, err
	}

	slog.Debug("sandbox: spawning process", "language", language)

	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, program, args...)
	var stdout, stderr limitedBuffer
	stdout.limit = s.config.MaxOutputBytes
	stderr.limit = s.config.MaxOutputBytes
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	durationMS := uint64(time.Since(start).Milliseconds())

	result := Result{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: durationMS,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		if result.Stderr == "" {
			result.Stderr = fmt.Sprintf("execution timed out after %s", s.config.Timeout)
		}
		return result, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code := exitErr.ExitCode()
			result.ExitCode = &code
			return result, nil
		}
		return Result{}, fmt.Errorf("failed to spawn %s: %w", program, runErr)
	}

	exitCode := cmd.ProcessState.ExitCode()
	result.ExitCode = &exitCode
	result.Success = exitCode == 0

	slog.Debug("sandbox: execution completed",
		"language", language, "exit_code", exitCode, "duration_ms", durationMS)
	return result, nil
}

// TestHypothesis executes the hypothesis and reports success relative to the
// expected outcome. Spawn errors are folded into the result.
func (s *ProcessSandbox) TestHypothesis(ctx context.Context, h Hypothesis) Result {
	result, err := s.Execute(ctx, h.Language, h.Code)
	if err != nil {
		return Result{Success: false, Stderr: err.Error()}
	}
	ran := result.ExitCode != nil && *result.ExitCode == 0 && !result.TimedOut
	result.Success = ran == h.ExpectedSuccess
	return result
}

// limitedBuffer keeps at most limit bytes and silently drops the rest.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string { return b.buf.String() }

var _ io.Writer = (*limitedBuffer)(nil)
