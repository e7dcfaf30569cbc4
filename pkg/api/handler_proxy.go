package api

import (
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/metaygn/aletheia/pkg/pruner"
)

// PruneRequest is an Anthropic-format messages payload.
type PruneRequest struct {
	Messages  []pruner.Message `json:"messages"`
	Model     string           `json:"model,omitempty"`
	MaxTokens uint64           `json:"max_tokens,omitempty"`
}

// PruneResponse carries the (possibly pruned) messages plus metadata.
type PruneResponse struct {
	Messages         []pruner.Message `json:"messages"`
	Pruned           bool             `json:"pruned"`
	TokensRemoved    int              `json:"tokens_removed"`
	RecoveryInjected bool             `json:"recovery_injected"`
	Reason           string           `json:"reason,omitempty"`
}

// proxyAnthropicHandler handles POST /proxy/anthropic: it analyses a message
// history for reasoning lock-in and returns either the original payload or a
// pruned one with an amplified recovery injection. The client forwards the
// result to the real API.
func (s *Server) proxyAnthropicHandler(c *echo.Context) error {
	var req PruneRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prune request: "+err.Error())
	}

	analysis := s.app.Pruner.Analyze(req.Messages)
	if !analysis.ShouldPrune {
		return c.JSON(http.StatusOK, &PruneResponse{Messages: req.Messages})
	}

	pruned := s.app.Pruner.Prune(req.Messages)
	tokensRemoved := pruner.EstimateTokens(req.Messages) - pruner.EstimateTokens(pruned)
	if tokensRemoved < 0 {
		tokensRemoved = 0
	}

	level := s.app.AmplificationLevel()
	reason := s.app.Pruner.AmplifiedRecovery(
		fmt.Sprintf("%d consecutive errors detected", analysis.ConsecutiveErrors), level)

	s.app.MarkRecoveryInjected()

	return c.JSON(http.StatusOK, &PruneResponse{
		Messages:         pruned,
		Pruned:           true,
		TokensRemoved:    tokensRemoved,
		RecoveryInjected: true,
		Reason:           reason,
	})
}
