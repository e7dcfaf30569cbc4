// Package memory is the persistence layer: a SQLite-backed event log with
// full-text recall, the graph memory of nodes and edges, the tiered
// hot/warm/cold cache, and the unified search over all of them.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EventRow is one row of the event log.
type EventRow struct {
	ID        string `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"index:idx_events_session" json:"session_id"`
	EventType string `gorm:"index:idx_events_type" json:"event_type"`
	Payload   string `json:"payload"`
	Timestamp string `gorm:"index:idx_events_session" json:"timestamp"`
}

// TableName keeps the historical table name.
func (EventRow) TableName() string { return "events" }

// OutcomeRow persists a session outcome for heuristic evolution.
type OutcomeRow struct {
	ID                string `gorm:"primaryKey" json:"id"`
	SessionID         string `gorm:"index" json:"session_id"`
	TaskType          string `json:"task_type"`
	RiskLevel         string `json:"risk_level"`
	StrategyUsed      string `json:"strategy_used"`
	Success           bool   `json:"success"`
	TokensConsumed    uint64 `json:"tokens_consumed"`
	DurationMS        uint64 `json:"duration_ms"`
	ErrorsEncountered uint32 `json:"errors_encountered"`
	CreatedAt         string `json:"created_at"`
}

func (OutcomeRow) TableName() string { return "outcomes" }

// HeuristicRow persists a heuristic version snapshot. The fitness and weight
// maps are stored as JSON text.
type HeuristicRow struct {
	ID             string `gorm:"primaryKey" json:"id"`
	Generation     uint32 `json:"generation"`
	ParentID       string `json:"parent_id"`
	Fitness        string `json:"fitness"`
	RiskWeights    string `json:"risk_weights"`
	StrategyScores string `json:"strategy_scores"`
	CreatedAt      string `json:"created_at"`
}

func (HeuristicRow) TableName() string { return "heuristics" }

// Store is the SQLite-backed event log plus outcome and heuristic
// repositories.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) a file-backed database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	return open(path + "?_busy_timeout=5000&_journal_mode=WAL")
}

// OpenInMemory opens a fresh in-memory database, useful for tests. Each call
// gets its own namespace so stores never share state.
func OpenInMemory() (*Store, error) {
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
}

func open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&EventRow{}, &OutcomeRow{}, &HeuristicRow{}, &NodeRow{}, &EdgeRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for sibling repositories.
func (s *Store) DB() *gorm.DB { return s.db }

// LogEvent inserts an event and returns its id.
func (s *Store) LogEvent(ctx context.Context, sessionID, eventType, payload string) (string, error) {
	row := EventRow{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to log event: %w", err)
	}
	return row.ID, nil
}

// EventCount returns the total number of logged events.
func (s *Store) EventCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&EventRow{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// RecentEvents returns a session's events ordered by timestamp ascending.
func (s *Store) RecentEvents(ctx context.Context, sessionID string, limit int) ([]EventRow, error) {
	var rows []EventRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	return rows, nil
}

// SearchEvents performs full-text recall over event payloads.
func (s *Store) SearchEvents(ctx context.Context, query string, limit int) ([]EventRow, error) {
	var rows []EventRow
	err := s.db.WithContext(ctx).
		Where("payload LIKE ?", "%"+query+"%").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	return rows, nil
}

// SaveOutcome persists a session outcome.
func (s *Store) SaveOutcome(ctx context.Context, row OutcomeRow) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.CreatedAt == "" {
		row.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

// SaveHeuristic upserts a heuristic version snapshot.
func (s *Store) SaveHeuristic(ctx context.Context, row HeuristicRow) error {
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save heuristic: %w", err)
	}
	return nil
}

// LoadHeuristics returns persisted heuristic versions, newest generation
// first, bounded by limit.
func (s *Store) LoadHeuristics(ctx context.Context, limit int) ([]HeuristicRow, error) {
	var rows []HeuristicRow
	err := s.db.WithContext(ctx).
		Order("generation DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load heuristics: %w", err)
	}
	return rows, nil
}
