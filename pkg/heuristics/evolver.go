package heuristics

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxOutcomes bounds the rolling window of outcomes used for fitness
// evaluation.
const maxOutcomes = 20

// Normalisation ceilings for token and latency efficiency.
const (
	maxExpectedTokens     = 100_000
	maxExpectedDurationMS = 300_000
)

// riskMarkers is the catalogue of markers a mutation may add.
var riskMarkers = []string{
	"fs_write",
	"exec_command",
	"network_access",
	"env_mutation",
	"credential_access",
	"large_diff",
	"multi_file",
	"untested_path",
}

// Version is a versioned set of heuristic parameters. Generations increase
// monotonically; ParentID tracks lineage.
type Version struct {
	ID             string             `json:"id"`
	Generation     uint32             `json:"generation"`
	ParentID       string             `json:"parent_id,omitempty"`
	Fitness        FitnessScore       `json:"fitness"`
	RiskWeights    map[string]float64 `json:"risk_weights"`
	StrategyScores map[string]float64 `json:"strategy_scores"`
	CreatedAt      string             `json:"created_at"`
}

// SeedVersion creates the generation-0 version with default parameters.
func SeedVersion() Version {
	return Version{
		ID:         uuid.New().String(),
		Generation: 0,
		RiskWeights: map[string]float64{
			"fs_write":          0.6,
			"exec_command":      0.8,
			"network_access":    0.5,
			"env_mutation":      0.7,
			"credential_access": 0.9,
			"large_diff":        0.4,
			"multi_file":        0.3,
			"untested_path":     0.5,
		},
		// Keys are "(risk,difficulty)" pairs; higher means a more cautious
		// strategy is preferred for that cell.
		StrategyScores: map[string]float64{
			"(low,easy)":      0.2,
			"(low,medium)":    0.4,
			"(medium,easy)":   0.5,
			"(medium,medium)": 0.6,
			"(medium,hard)":   0.7,
			"(high,easy)":     0.7,
			"(high,medium)":   0.8,
			"(high,hard)":     0.9,
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func (v Version) clone() Version {
	child := v
	child.RiskWeights = make(map[string]float64, len(v.RiskWeights))
	for k, w := range v.RiskWeights {
		child.RiskWeights[k] = w
	}
	child.StrategyScores = make(map[string]float64, len(v.StrategyScores))
	for k, s := range v.StrategyScores {
		child.StrategyScores[k] = s
	}
	return child
}

// Evolver maintains a bounded population of heuristic versions and a rolling
// window of session outcomes, and evolves the population by statistical
// mutation. Safe for concurrent use.
type Evolver struct {
	mu            sync.Mutex
	population    []Version
	maxPopulation int
	outcomes      []SessionOutcome
	rng           *rand.Rand
}

// NewEvolver creates an evolver seeded with a default version.
func NewEvolver(maxPopulation int) *Evolver {
	return &Evolver{
		population:    []Version{SeedVersion()},
		maxPopulation: maxPopulation,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RestoreVersion reinstates a persisted version into the population, up to
// the population cap. Used at daemon startup.
func (e *Evolver) RestoreVersion(v Version) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.population) < e.maxPopulation {
		e.population = append(e.population, v)
	}
}

// RecordOutcome appends an outcome, dropping the oldest beyond the window.
func (e *Evolver) RecordOutcome(o SessionOutcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes = append(e.outcomes, o)
	if len(e.outcomes) > maxOutcomes {
		e.outcomes = e.outcomes[1:]
	}
}

// OutcomeCount returns the number of outcomes currently in the window.
func (e *Evolver) OutcomeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.outcomes)
}

// Best returns the version with the highest composite fitness.
func (e *Evolver) Best() (Version, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bestLocked()
}

func (e *Evolver) bestLocked() (Version, bool) {
	if len(e.population) == 0 {
		return Version{}, false
	}
	best := 0
	for i := 1; i < len(e.population); i++ {
		if e.population[i].Fitness.Composite > e.population[best].Fitness.Composite {
			best = i
		}
	}
	return e.population[best], true
}

// EvaluateAll recomputes fitness for every version against the recorded
// outcomes. Versions whose strategy preferences align with the outcomes that
// actually succeeded receive a bounded success-rate modifier.
func (e *Evolver) EvaluateAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluateAllLocked()
}

func (e *Evolver) evaluateAllLocked() {
	if len(e.outcomes) == 0 {
		return
	}

	total := float64(len(e.outcomes))
	successes := 0.0
	var tokenSum, durationSum float64
	for _, o := range e.outcomes {
		if o.Success {
			successes++
		}
		tokenSum += float64(o.TokensConsumed)
		durationSum += float64(o.DurationMS)
	}
	baseSuccessRate := successes / total

	tokenEfficiency := clamp(1.0-(tokenSum/total)/maxExpectedTokens, 0, 1)
	latencyScore := clamp(1.0-(durationSum/total)/maxExpectedDurationMS, 0, 1)

	for i := range e.population {
		version := &e.population[i]

		// Strategy alignment: difficulty is keyed as "medium" for outcomes —
		// the outcome schema does not carry a difficulty band.
		alignment := 0.0
		count := 0
		for _, o := range e.outcomes {
			key := fmt.Sprintf("(%s,medium)", strings.ToLower(o.RiskLevel))
			score, ok := version.StrategyScores[key]
			if !ok {
				continue
			}
			if o.Success {
				alignment += score
			} else {
				alignment -= score * 0.5
			}
			count++
		}
		modifier := 0.0
		if count > 0 {
			modifier = clamp(alignment/float64(count), -0.2, 0.2)
		}

		successRate := clamp(baseSuccessRate+modifier, 0, 1)
		version.Fitness = ComputeFitness(successRate, tokenEfficiency, latencyScore)
	}
}

// MutateBest clones the fittest version and applies exactly one of three
// mutations: jitter a random risk weight, jitter a random strategy score, or
// add/remove a risk marker. The child joins the population and is returned.
func (e *Evolver) MutateBest() (Version, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutateBestLocked()
}

func (e *Evolver) mutateBestLocked() (Version, bool) {
	parent, ok := e.bestLocked()
	if !ok {
		return Version{}, false
	}

	child := parent.clone()
	child.ID = uuid.New().String()
	child.Generation = parent.Generation + 1
	child.ParentID = parent.ID
	child.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	switch e.rng.Intn(3) {
	case 0:
		if key, ok := randomKey(e.rng, child.RiskWeights); ok {
			child.RiskWeights[key] = clamp(child.RiskWeights[key]*e.jitterFactor(), 0, 1)
		}
	case 1:
		if key, ok := randomKey(e.rng, child.StrategyScores); ok {
			child.StrategyScores[key] = clamp(child.StrategyScores[key]*e.jitterFactor(), 0, 1)
		}
	case 2:
		if e.rng.Intn(2) == 0 && len(child.RiskWeights) > 0 {
			if key, ok := randomKey(e.rng, child.RiskWeights); ok {
				delete(child.RiskWeights, key)
			}
		} else {
			marker := riskMarkers[e.rng.Intn(len(riskMarkers))]
			if _, exists := child.RiskWeights[marker]; !exists {
				child.RiskWeights[marker] = 0.1 + e.rng.Float64()*0.8
			}
		}
	}

	e.population = append(e.population, child)
	return child, true
}

// jitterFactor returns a multiplicative factor of (1 ± U(0.10, 0.20)).
func (e *Evolver) jitterFactor() float64 {
	delta := 0.10 + e.rng.Float64()*0.10
	if e.rng.Intn(2) == 0 {
		return 1.0 + delta
	}
	return 1.0 - delta
}

// EvolveGeneration runs one cycle: evaluate, sort by composite descending,
// truncate to the population cap, mutate the best, return the current best.
func (e *Evolver) EvolveGeneration() (Version, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.evaluateAllLocked()

	sort.SliceStable(e.population, func(i, j int) bool {
		return e.population[i].Fitness.Composite > e.population[j].Fitness.Composite
	})
	if len(e.population) > e.maxPopulation {
		e.population = e.population[:e.maxPopulation]
	}

	if _, ok := e.mutateBestLocked(); !ok {
		return Version{}, false
	}

	best, ok := e.bestLocked()
	if ok {
		slog.Debug("Evolution generation complete",
			"population", len(e.population),
			"best_fitness", best.Fitness.Composite,
			"generation", best.Generation)
	}
	return best, ok
}

// PopulationSize returns the current population count.
func (e *Evolver) PopulationSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.population)
}

// Generation returns the highest generation number in the population.
func (e *Evolver) Generation() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var max uint32
	for _, v := range e.population {
		if v.Generation > max {
			max = v.Generation
		}
	}
	return max
}

func randomKey(rng *rand.Rand, m map[string]float64) (string, bool) {
	if len(m) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[rng.Intn(len(keys))], true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
