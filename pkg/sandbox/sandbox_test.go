package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteBashSuccess(t *testing.T) {
	s := NewWithDefaults()
	result, err := s.Execute(context.Background(), "bash", "echo $((100+23))")
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.Equal(t, "123", strings.TrimSpace(result.Stdout))
	assert.False(t, result.TimedOut)
}

func TestExecuteNonZeroExit(t *testing.T) {
	s := NewWithDefaults()
	result, err := s.Execute(context.Background(), "bash", "echo oops >&2; exit 3")
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 3, *result.ExitCode)
	assert.Contains(t, result.Stderr, "oops")
}

func TestExecuteTimeout(t *testing.T) {
	s := New(Config{Timeout: 200 * time.Millisecond, MaxOutputBytes: 1024})
	result, err := s.Execute(context.Background(), "bash", "sleep 5")
	require.NoError(t, err)

	assert.True(t, result.TimedOut)
	assert.False(t, result.Success)
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	s := NewWithDefaults()
	_, err := s.Execute(context.Background(), "rust", "fn main() {}")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestOutputCap(t *testing.T) {
	s := New(Config{Timeout: 5 * time.Second, MaxOutputBytes: 100})
	result, err := s.Execute(context.Background(), "bash", "yes x | head -c 10000")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Stdout), 100)
}

func TestHypothesisExpectedFailure(t *testing.T) {
	s := NewWithDefaults()
	result := s.TestHypothesis(context.Background(), Hypothesis{
		Description:     "division by zero exits non-zero",
		Language:        "bash",
		Code:            "exit 1",
		ExpectedSuccess: false,
	})
	// The snippet failed as expected, so the hypothesis holds.
	assert.True(t, result.Success)
}

func TestHypothesisUnsupportedLanguageFoldsIntoResult(t *testing.T) {
	s := NewWithDefaults()
	result := s.TestHypothesis(context.Background(), Hypothesis{
		Language: "cobol",
		Code:     "DISPLAY 'HI'",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Stderr, "unsupported language")
}
