package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/metaygn/aletheia/pkg/models"
)

// bindHookInput deserialises the hook body; malformed input is a 400 and
// does not touch session state.
func bindHookInput(c *echo.Context) (models.HookInput, error) {
	var input models.HookInput
	if err := c.Bind(&input); err != nil {
		return input, echo.NewHTTPError(http.StatusBadRequest, "invalid hook input: "+err.Error())
	}
	if input.HookEventName == "" {
		return input, echo.NewHTTPError(http.StatusBadRequest, "hook_event_name is required")
	}
	return input, nil
}

// sessionStartHandler handles POST /hooks/session-start.
func (s *Server) sessionStartHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandleSessionStart(c.Request().Context(), input))
}

// userPromptSubmitHandler handles POST /hooks/user-prompt-submit.
func (s *Server) userPromptSubmitHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandleUserPromptSubmit(c.Request().Context(), input))
}

// preToolUseHandler handles POST /hooks/pre-tool-use.
func (s *Server) preToolUseHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandlePreToolUse(c.Request().Context(), input))
}

// postToolUseHandler handles POST /hooks/post-tool-use.
func (s *Server) postToolUseHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandlePostToolUse(c.Request().Context(), input))
}

// postToolUseFailureHandler handles POST /hooks/post-tool-use-failure.
func (s *Server) postToolUseFailureHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandlePostToolUseFailure(c.Request().Context(), input))
}

// stopHandler handles POST /hooks/stop.
func (s *Server) stopHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandleStop(c.Request().Context(), input))
}

// preCompactHandler handles POST /hooks/pre-compact.
func (s *Server) preCompactHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandlePreCompact(c.Request().Context(), input))
}

// sessionEndHandler handles POST /hooks/session-end.
func (s *Server) sessionEndHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.HandleSessionEnd(c.Request().Context(), input))
}

// analyzeHandler handles POST /hooks/analyze: returns the full LoopContext
// for debugging.
func (s *Server) analyzeHandler(c *echo.Context) error {
	input, err := bindHookInput(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.app.Analyze(c.Request().Context(), input))
}
