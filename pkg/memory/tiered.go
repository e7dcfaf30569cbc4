package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Tier identifies where a memory entry currently lives.
type Tier string

const (
	TierHot  Tier = "Hot"
	TierWarm Tier = "Warm"
	TierCold Tier = "Cold"
)

// promoteAccessThreshold: entries accessed more than this many times are
// promoted from Hot to Warm.
const promoteAccessThreshold = 3

// Entry is a single tiered memory entry.
type Entry struct {
	Key         string
	Value       string
	Tags        []string
	Tier        Tier
	CreatedAt   time.Time
	AccessedAt  time.Time
	AccessCount uint32
}

// TieredStats is a snapshot of entry counts per tier. Counting the Cold tier
// requires a database query, so Stats leaves ColdCount zero; the Cold size
// is returned separately by the ColdCount method.
type TieredStats struct {
	HotCount  int `json:"hot_count"`
	WarmCount int `json:"warm_count"`
	ColdCount int `json:"cold_count"`
}

// Tiered is the three-tier memory: Hot (in-process map with TTL), Warm
// (promoted, persisted), Cold (the searchable event log). Safe for
// concurrent use.
type Tiered struct {
	mu     sync.Mutex
	hot    map[string]*Entry
	warm   map[string]*Entry
	hotTTL time.Duration
	store  *Store
}

// NewTiered creates a tiered memory over the given store. hotTTL controls
// how long entries stay hot before eviction (5 minutes is the usual choice).
func NewTiered(store *Store, hotTTL time.Duration) *Tiered {
	return &Tiered{
		hot:    make(map[string]*Entry),
		warm:   make(map[string]*Entry),
		hotTTL: hotTTL,
		store:  store,
	}
}

// Put inserts or overwrites an entry. New entries always start Hot.
func (t *Tiered) Put(key, value string, tags []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.hot[key] = &Entry{
		Key:        key,
		Value:      value,
		Tags:       append([]string(nil), tags...),
		Tier:       TierHot,
		CreatedAt:  now,
		AccessedAt: now,
	}
}

// Get retrieves an entry by key, Hot first then Warm, bumping the access
// count and timestamp. Expired Hot entries are dropped on lookup. Cold
// lookups by key are not supported; use Search.
func (t *Tiered) Get(key string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.hot[key]; ok {
		if time.Since(entry.CreatedAt) >= t.hotTTL {
			delete(t.hot, key)
		} else {
			entry.AccessCount++
			entry.AccessedAt = time.Now()
			return *entry, true
		}
	}

	if entry, ok := t.warm[key]; ok {
		entry.AccessCount++
		entry.AccessedAt = time.Now()
		return *entry, true
	}

	return Entry{}, false
}

// Search matches Hot and Warm entries by substring and unions the result
// with full-text search over the Cold event log.
func (t *Tiered) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	t.mu.Lock()
	results := make([]Entry, 0, limit)
	for _, entry := range t.hot {
		if strings.Contains(entry.Value, query) {
			results = append(results, *entry)
		}
	}
	for _, entry := range t.warm {
		if strings.Contains(entry.Value, query) {
			results = append(results, *entry)
		}
	}
	t.mu.Unlock()

	rows, err := t.store.SearchEvents(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("cold tier search failed: %w", err)
	}
	now := time.Now()
	for _, row := range rows {
		results = append(results, Entry{
			Key:        row.ID,
			Value:      row.Payload,
			Tags:       []string{row.EventType},
			Tier:       TierCold,
			CreatedAt:  now, // approximate
			AccessedAt: now,
		})
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// EvictExpired removes expired Hot entries and returns how many were
// dropped. Frequently-accessed entries are left for PromoteHotToWarm.
func (t *Tiered) EvictExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, entry := range t.hot {
		if time.Since(entry.CreatedAt) >= t.hotTTL {
			delete(t.hot, key)
			removed++
		}
	}
	return removed
}

// PromoteHotToWarm moves Hot entries above the access threshold into Warm
// and persists them so they survive restarts.
func (t *Tiered) PromoteHotToWarm(ctx context.Context) error {
	t.mu.Lock()
	promoted := make([]*Entry, 0)
	for key, entry := range t.hot {
		if entry.AccessCount > promoteAccessThreshold {
			delete(t.hot, key)
			entry.Tier = TierWarm
			t.warm[key] = entry
			promoted = append(promoted, entry)
		}
	}
	t.mu.Unlock()

	for _, entry := range promoted {
		sessionID := "warm:" + strings.Join(entry.Tags, ",")
		if _, err := t.store.LogEvent(ctx, sessionID, "warm_memory", entry.Value); err != nil {
			return fmt.Errorf("failed to persist warm entry %q: %w", entry.Key, err)
		}
	}
	return nil
}

// Stats returns Hot/Warm counts; ColdCount is left zero in this sync
// snapshot.
func (t *Tiered) Stats() TieredStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TieredStats{HotCount: len(t.hot), WarmCount: len(t.warm)}
}

// ColdCount returns the number of events in the Cold tier.
func (t *Tiered) ColdCount(ctx context.Context) (int64, error) {
	return t.store.EventCount(ctx)
}
