package memory

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope bounds how widely a graph node is shared.
type Scope string

const (
	ScopeSession Scope = "Session"
	ScopeProject Scope = "Project"
	ScopeGlobal  Scope = "Global"
)

// NodeType categorises graph nodes.
type NodeType string

const (
	NodeTask     NodeType = "Task"
	NodeDecision NodeType = "Decision"
	NodeEvidence NodeType = "Evidence"
	NodeTool     NodeType = "Tool"
	NodeAgent    NodeType = "Agent"
	NodeCode     NodeType = "Code"
	NodeError    NodeType = "Error"
	NodeLesson   NodeType = "Lesson"
)

// EdgeType categorises graph edges.
type EdgeType string

const (
	EdgeDependsOn   EdgeType = "DependsOn"
	EdgeProduces    EdgeType = "Produces"
	EdgeVerifies    EdgeType = "Verifies"
	EdgeContradicts EdgeType = "Contradicts"
	EdgeSupersedes  EdgeType = "Supersedes"
	EdgeRelatedTo   EdgeType = "RelatedTo"
)

// Node is a graph memory node. The embedding, when present, is stored as a
// little-endian f32 array.
type Node struct {
	ID          string    `json:"id"`
	NodeType    NodeType  `json:"node_type"`
	Scope       Scope     `json:"scope"`
	Label       string    `json:"label"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   string    `json:"created_at"`
	AccessCount uint32    `json:"access_count"`
	HitCount    uint32    `json:"hit_count"`
	RewardSum   float64   `json:"reward_sum"`
}

// Edge is a graph memory edge; (source, target, type) is the primary key.
type Edge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	EdgeType EdgeType `json:"edge_type"`
	Weight   float64  `json:"weight"`
	Metadata string   `json:"metadata,omitempty"`
}

// NodeRow is the persisted node shape.
type NodeRow struct {
	ID          string `gorm:"primaryKey"`
	NodeType    string `gorm:"index"`
	Scope       string
	Label       string
	Content     string
	Embedding   []byte
	CreatedAt   string
	AccessCount uint32
	HitCount    uint32
	RewardSum   float64
}

func (NodeRow) TableName() string { return "graph_nodes" }

// EdgeRow is the persisted edge shape.
type EdgeRow struct {
	SourceID string `gorm:"primaryKey;index"`
	TargetID string `gorm:"primaryKey;index"`
	EdgeType string `gorm:"primaryKey"`
	Weight   float64
	Metadata string
}

func (EdgeRow) TableName() string { return "graph_edges" }

// Graph is the SQLite-backed graph memory. The graph admits cycles;
// traversal uses an explicit visited set and a depth bound.
type Graph struct {
	db *gorm.DB
}

// NewGraph creates a graph repository over the store's database.
func NewGraph(store *Store) *Graph {
	return &Graph{db: store.DB()}
}

// UpsertNode inserts or replaces a node.
func (g *Graph) UpsertNode(ctx context.Context, node Node) error {
	row := NodeRow{
		ID:          node.ID,
		NodeType:    string(node.NodeType),
		Scope:       string(node.Scope),
		Label:       node.Label,
		Content:     node.Content,
		Embedding:   encodeEmbedding(node.Embedding),
		CreatedAt:   node.CreatedAt,
		AccessCount: node.AccessCount,
		HitCount:    node.HitCount,
		RewardSum:   node.RewardSum,
	}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert node: %w", err)
	}
	return nil
}

// UpsertEdge inserts or replaces an edge.
func (g *Graph) UpsertEdge(ctx context.Context, edge Edge) error {
	row := EdgeRow{
		SourceID: edge.SourceID,
		TargetID: edge.TargetID,
		EdgeType: string(edge.EdgeType),
		Weight:   edge.Weight,
		Metadata: edge.Metadata,
	}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// GetNode fetches a node by id, bumping its access count.
func (g *Graph) GetNode(ctx context.Context, id string) (Node, bool, error) {
	var row NodeRow
	err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Node{}, false, nil
	}
	if err != nil {
		return Node{}, false, fmt.Errorf("failed to get node: %w", err)
	}

	g.db.WithContext(ctx).Model(&NodeRow{}).
		Where("id = ?", id).
		UpdateColumn("access_count", gorm.Expr("access_count + 1"))
	row.AccessCount++

	return rowToNode(row), true, nil
}

// SearchContent performs text search over node labels and content.
func (g *Graph) SearchContent(ctx context.Context, query string, limit int) ([]Node, error) {
	var rows []NodeRow
	like := "%" + query + "%"
	err := g.db.WithContext(ctx).
		Where("label LIKE ? OR content LIKE ?", like, like).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search graph: %w", err)
	}
	nodes := make([]Node, len(rows))
	for i, row := range rows {
		nodes[i] = rowToNode(row)
	}
	return nodes, nil
}

// Neighbourhood returns the nodes reachable from start within maxDepth hops,
// BFS order, excluding the start node. Cycles are handled with a visited set.
func (g *Graph) Neighbourhood(ctx context.Context, start string, maxDepth int) ([]Node, error) {
	type queued struct {
		id    string
		depth int
	}
	visited := map[string]bool{start: true}
	queue := []queued{{id: start}}
	var result []Node

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}

		var edges []EdgeRow
		err := g.db.WithContext(ctx).
			Where("source_id = ? OR target_id = ?", current.id, current.id).
			Find(&edges).Error
		if err != nil {
			return nil, fmt.Errorf("failed to traverse edges: %w", err)
		}

		for _, e := range edges {
			next := e.TargetID
			if next == current.id {
				next = e.SourceID
			}
			if visited[next] {
				continue
			}
			visited[next] = true

			var row NodeRow
			if err := g.db.WithContext(ctx).First(&row, "id = ?", next).Error; err != nil {
				continue
			}
			result = append(result, rowToNode(row))
			queue = append(queue, queued{id: next, depth: current.depth + 1})
		}
	}
	return result, nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount(ctx context.Context) (int64, error) {
	var count int64
	if err := g.db.WithContext(ctx).Model(&NodeRow{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount(ctx context.Context) (int64, error) {
	var count int64
	if err := g.db.WithContext(ctx).Model(&EdgeRow{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return count, nil
}

func rowToNode(row NodeRow) Node {
	return Node{
		ID:          row.ID,
		NodeType:    NodeType(row.NodeType),
		Scope:       Scope(row.Scope),
		Label:       row.Label,
		Content:     row.Content,
		Embedding:   decodeEmbedding(row.Embedding),
		CreatedAt:   row.CreatedAt,
		AccessCount: row.AccessCount,
		HitCount:    row.HitCount,
		RewardSum:   row.RewardSum,
	}
}

// encodeEmbedding packs an f32 vector as little-endian bytes.
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := new(bytes.Buffer)
	for _, f := range v {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		v = append(v, math.Float32frombits(binary.LittleEndian.Uint32(b[i:i+4])))
	}
	return v
}

// CosineSimilarity between two f32 vectors; 0 for degenerate inputs (empty,
// zero magnitude, mismatched lengths).
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float32
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	magA = float32(math.Sqrt(float64(magA)))
	magB = float32(math.Sqrt(float64(magB)))
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}
