package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/metaygn/aletheia/pkg/memory"
)

// RecallRequest is the body for POST /memory/recall and
// POST /memory/graph/search.
type RecallRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (r *RecallRequest) limitOrDefault() int {
	if r.Limit <= 0 {
		return 10
	}
	return r.Limit
}

// recallHandler handles POST /memory/recall — full-text recall over events.
func (s *Server) recallHandler(c *echo.Context) error {
	var req RecallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recall request: "+err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	rows, err := s.app.Store.SearchEvents(c.Request().Context(), req.Query, req.limitOrDefault())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"events": rows})
}

// unifiedSearchHandler handles POST /memory/search — merged ranking over
// the event log, the graph store, and the tiered cache.
func (s *Server) unifiedSearchHandler(c *echo.Context) error {
	var req RecallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid search request: "+err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	limit := req.limitOrDefault()

	results, err := s.app.Search.Search(c.Request().Context(), req.Query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Tiered cache hits ride along so hot lessons surface without a
	// database roundtrip.
	entries, err := s.app.Tiered.Search(c.Request().Context(), req.Query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	tiered := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		tiered = append(tiered, map[string]any{
			"key":   e.Key,
			"value": e.Value,
			"tier":  string(e.Tier),
			"tags":  e.Tags,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"results": results,
		"tiered":  tiered,
	})
}

// memoryStatsHandler handles GET /memory/stats.
func (s *Server) memoryStatsHandler(c *echo.Context) error {
	count, err := s.app.Store.EventCount(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"event_count": count})
}

// upsertNodeHandler handles POST /memory/nodes.
func (s *Server) upsertNodeHandler(c *echo.Context) error {
	var node memory.Node
	if err := c.Bind(&node); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid node: "+err.Error())
	}
	if node.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "node id is required")
	}

	if err := s.app.Graph.UpsertNode(c.Request().Context(), node); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "id": node.ID})
}

// upsertEdgeHandler handles POST /memory/edges.
func (s *Server) upsertEdgeHandler(c *echo.Context) error {
	var edge memory.Edge
	if err := c.Bind(&edge); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid edge: "+err.Error())
	}
	if edge.SourceID == "" || edge.TargetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source_id and target_id are required")
	}

	if err := s.app.Graph.UpsertEdge(c.Request().Context(), edge); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// graphSearchHandler handles POST /memory/graph/search.
func (s *Server) graphSearchHandler(c *echo.Context) error {
	var req RecallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid search request: "+err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	nodes, err := s.app.Graph.SearchContent(c.Request().Context(), req.Query, req.limitOrDefault())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"nodes": nodes})
}

// skillsHandler handles GET /memory/skills — recurring tool sequences that
// crossed the crystallization threshold, rendered as SKILL.md templates.
func (s *Server) skillsHandler(c *echo.Context) error {
	patterns := s.app.Crystallizer.Crystallized()
	skills := make([]map[string]any, 0, len(patterns))
	for _, p := range patterns {
		skills = append(skills, map[string]any{
			"pattern":  p,
			"skill_md": memory.GenerateSkillMD(p),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total_patterns": s.app.Crystallizer.TotalPatterns(),
		"skills":         skills,
	})
}

// graphStatsHandler handles GET /memory/graph/stats.
func (s *Server) graphStatsHandler(c *echo.Context) error {
	nodeCount, err := s.app.Graph.NodeCount(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	edgeCount, err := s.app.Graph.EdgeCount(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"node_count": nodeCount,
		"edge_count": edgeCount,
	})
}
