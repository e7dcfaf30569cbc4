// Package session carries metacognitive state across the sequence of hooks
// belonging to one agent conversation.
package session

import (
	"sync"
	"time"

	"github.com/metaygn/aletheia/pkg/heuristics"
	"github.com/metaygn/aletheia/pkg/loop"
	"github.com/metaygn/aletheia/pkg/models"
)

// Session is the accumulated state for a single agent conversation,
// persisted across hooks. Lock before touching any field; handlers hold the
// lock only for their critical section and never across I/O.
type Session struct {
	mu sync.Mutex

	SessionID           string
	CreatedAt           time.Time
	TaskType            models.TaskType
	Risk                models.RiskLevel
	Strategy            models.Strategy
	Difficulty          float64
	Competence          float64
	EntropyTracker      *heuristics.EntropyTracker
	MetacogVector       models.MetacognitiveVector
	VerificationResults []string
	Lessons             []string
	ExecutionPlan       *loop.ExecutionPlan
	ToolSequence        []string
	ToolCalls           uint32
	Errors              uint32
	SuccessCount        uint32
	TokensConsumed      uint64
}

// newSession creates a session with neutral defaults.
func newSession(sessionID string) *Session {
	return &Session{
		SessionID:      sessionID,
		CreatedAt:      time.Now(),
		Risk:           models.RiskLow,
		Strategy:       models.StrategyStepByStep,
		Difficulty:     0.5,
		Competence:     0.7,
		EntropyTracker: heuristics.NewEntropyTracker(20),
		MetacogVector:  models.DefaultMetacogVector(),
	}
}

// Lock acquires the session's exclusive lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's exclusive lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Store is a thread-safe map from session id to session. GetOrCreate is
// pointer-stable: every caller for the same id receives a handle aliasing
// the same record.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for the given id, creating it with
// defaults on first use.
func (s *Store) GetOrCreate(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = newSession(sessionID)
		s.sessions[sessionID] = sess
	}
	return sess
}

// Remove drops the session from the store and returns it (nil when absent).
// Outstanding handlers may still hold the pointer until their critical
// section ends.
func (s *Store) Remove(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return sess
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
