// Package api provides the loopback HTTP surface of the Aletheia daemon.
// Every handler is a thin adaptor: deserialise the event, drive the core
// components through the service layer, serialise the response.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/metaygn/aletheia/pkg/services"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	app        *services.App

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewServer creates the API server with all routes registered.
func NewServer(app *services.App) *Server {
	e := echo.New()

	s := &Server{
		echo:       e,
		app:        app,
		shutdownCh: make(chan struct{}),
	}

	s.setupRoutes()
	return s
}

// ShutdownRequested is closed when POST /admin/shutdown fires.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	// Hook payloads are small; reject oversized bodies at the HTTP read
	// level before deserialization.
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/metrics", s.metricsHandler)

	// Hook lifecycle endpoints: the agent host posts events synchronously
	// and consumes decisions inline.
	s.echo.POST("/hooks/session-start", s.sessionStartHandler)
	s.echo.POST("/hooks/user-prompt-submit", s.userPromptSubmitHandler)
	s.echo.POST("/hooks/pre-tool-use", s.preToolUseHandler)
	s.echo.POST("/hooks/post-tool-use", s.postToolUseHandler)
	s.echo.POST("/hooks/post-tool-use-failure", s.postToolUseFailureHandler)
	s.echo.POST("/hooks/stop", s.stopHandler)
	s.echo.POST("/hooks/pre-compact", s.preCompactHandler)
	s.echo.POST("/hooks/session-end", s.sessionEndHandler)
	s.echo.POST("/hooks/analyze", s.analyzeHandler)

	// Memory: event recall plus the graph store.
	s.echo.POST("/memory/recall", s.recallHandler)
	s.echo.POST("/memory/search", s.unifiedSearchHandler)
	s.echo.GET("/memory/stats", s.memoryStatsHandler)
	s.echo.POST("/memory/nodes", s.upsertNodeHandler)
	s.echo.POST("/memory/edges", s.upsertEdgeHandler)
	s.echo.POST("/memory/graph/search", s.graphSearchHandler)
	s.echo.GET("/memory/graph/stats", s.graphStatsHandler)
	s.echo.GET("/memory/skills", s.skillsHandler)

	// Operator fatigue profiler.
	s.echo.POST("/profiler/signal", s.profilerSignalHandler)
	s.echo.GET("/profiler/fatigue", s.profilerFatigueHandler)

	// Sandbox.
	s.echo.POST("/sandbox/exec", s.sandboxExecHandler)
	s.echo.POST("/sandbox/hypothesis", s.sandboxHypothesisHandler)

	// Heuristic evolver.
	s.echo.POST("/heuristics/outcome", s.heuristicsOutcomeHandler)
	s.echo.POST("/heuristics/evolve", s.heuristicsEvolveHandler)
	s.echo.GET("/heuristics/best", s.heuristicsBestHandler)
	s.echo.GET("/heuristics/population", s.heuristicsPopulationHandler)

	// Global budget tracker.
	s.echo.GET("/budget", s.budgetHandler)
	s.echo.POST("/budget/consume", s.budgetConsumeHandler)

	// Context-pruning proxy.
	s.echo.POST("/proxy/anthropic", s.proxyAnthropicHandler)

	// Admin.
	s.echo.POST("/admin/shutdown", s.adminShutdownHandler)
}

// Start serves on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener serves on a pre-created listener. Used by the daemon to
// bind a dynamic port and publish it, and by tests.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Handler exposes the route tree for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
