package memory

import (
	"context"
	"sort"
)

// SearchSource tags where a unified search result came from.
type SearchSource string

const (
	SourceEvent     SearchSource = "Event"
	SourceGraphNode SearchSource = "GraphNode"
)

// SearchResult is one merged hit from the unified search.
type SearchResult struct {
	Source  SearchSource `json:"source"`
	ID      string       `json:"id"`
	Content string       `json:"content"`
	Score   float64      `json:"score"`
}

// UnifiedSearch merges event-log recall with graph content search.
type UnifiedSearch struct {
	store *Store
	graph *Graph
}

// NewUnifiedSearch creates a unified searcher over the two repositories.
func NewUnifiedSearch(store *Store, graph *Graph) *UnifiedSearch {
	return &UnifiedSearch{store: store, graph: graph}
}

// Search queries both sources, scores events ahead of graph nodes with a
// position-based decay, merges, sorts descending, and truncates to limit.
func (u *UnifiedSearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	eventRows, err := u.store.SearchEvents(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(eventRows))
	for i, row := range eventRows {
		results = append(results, SearchResult{
			Source:  SourceEvent,
			ID:      row.ID,
			Content: row.Payload,
			Score:   1.0 - float64(i)*0.01,
		})
	}

	nodes, err := u.graph.SearchContent(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for i, node := range nodes {
		results = append(results, SearchResult{
			Source:  SourceGraphNode,
			ID:      node.ID,
			Content: node.Content,
			Score:   0.5 - float64(i)*0.01,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
