// Package profiler watches the human side of the loop: the fatigue profiler
// scores operator-behaviour signals into a high-friction mode, and the
// plasticity tracker measures whether recovery injections actually change
// the agent's behaviour.
package profiler

import (
	"fmt"
	"time"
)

// Signal weights.
const (
	weightShortPrompt = 0.15
	weightErrorLoop   = 0.30
	weightLateNight   = 0.20
	weightRapidRetry  = 0.15
)

// SignalKind identifies a behavioural signal from a hook event.
type SignalKind int

const (
	// SignalShortPrompt: very short, possibly aggressive prompts ("just fix it").
	SignalShortPrompt SignalKind = iota
	// SignalErrorLoop: repeated consecutive errors — stuck in a loop.
	SignalErrorLoop
	// SignalLateNight: working late at night (23:00–05:00).
	SignalLateNight
	// SignalRapidRetry: retrying too quickly (< 5 seconds between attempts).
	SignalRapidRetry
)

// FatigueReport is the assessment result.
type FatigueReport struct {
	// Score: 0.0 = fully alert, 1.0 = exhausted.
	Score float64 `json:"score"`
	// HighFriction: should High-Friction mode activate?
	HighFriction bool `json:"high_friction"`
	// Signals: human-readable signal descriptions.
	Signals []string `json:"signals"`
	// Recommendation: what to do.
	Recommendation string `json:"recommendation"`
}

// FatigueConfig holds the profiler knobs.
type FatigueConfig struct {
	// HighFrictionThreshold: score at or above which High-Friction mode
	// activates.
	HighFrictionThreshold float64
	// SignalWindow: how many recent signals to consider.
	SignalWindow int
	// ShortPromptThreshold: characters below which a prompt counts as short.
	ShortPromptThreshold int
	// RapidRetry: interval below which a retry counts as rapid.
	RapidRetry time.Duration
}

// DefaultFatigueConfig returns the standard knobs.
func DefaultFatigueConfig() FatigueConfig {
	return FatigueConfig{
		HighFrictionThreshold: 0.7,
		SignalWindow:          20,
		ShortPromptThreshold:  20,
		RapidRetry:            5 * time.Second,
	}
}

type fatigueSignal struct {
	at   time.Time
	kind SignalKind
}

// FatigueProfiler tracks behavioural signals and computes a fatigue score.
// This is "inverse metacognition" — the system monitors the human
// developer's behaviour to protect the codebase when the human is exhausted.
// Not self-locking; callers wrap it in their own mutex.
type FatigueProfiler struct {
	config            FatigueConfig
	signals           []fatigueSignal
	lastPromptTime    time.Time
	consecutiveErrors int
}

// NewFatigueProfiler creates a profiler with the given configuration.
func NewFatigueProfiler(config FatigueConfig) *FatigueProfiler {
	return &FatigueProfiler{config: config}
}

// NewFatigueProfilerWithDefaults creates a profiler with default settings.
func NewFatigueProfilerWithDefaults() *FatigueProfiler {
	return NewFatigueProfiler(DefaultFatigueConfig())
}

// OnPrompt records a user prompt submission at the given timestamp.
func (p *FatigueProfiler) OnPrompt(prompt string, timestamp time.Time) {
	now := time.Now()

	if len(prompt) < p.config.ShortPromptThreshold {
		p.pushSignal(now, SignalShortPrompt)
	}

	if !p.lastPromptTime.IsZero() && now.Sub(p.lastPromptTime) < p.config.RapidRetry {
		p.pushSignal(now, SignalRapidRetry)
	}

	hour := timestamp.Hour()
	if hour < 5 || hour >= 23 {
		p.pushSignal(now, SignalLateNight)
	}

	p.lastPromptTime = now
}

// OnError records a tool-use failure; three consecutive errors push an
// error-loop signal.
func (p *FatigueProfiler) OnError() {
	p.consecutiveErrors++
	if p.consecutiveErrors >= 3 {
		p.pushSignal(time.Now(), SignalErrorLoop)
	}
}

// OnSuccess records a tool-use success and resets the error counter.
func (p *FatigueProfiler) OnSuccess() {
	p.consecutiveErrors = 0
}

// Assess computes the current fatigue score from the signal window.
func (p *FatigueProfiler) Assess() FatigueReport {
	var shortPrompts, errorLoops, lateNights, rapidRetries int
	for _, s := range p.signals {
		switch s.kind {
		case SignalShortPrompt:
			shortPrompts++
		case SignalErrorLoop:
			errorLoops++
		case SignalLateNight:
			lateNights++
		case SignalRapidRetry:
			rapidRetries++
		}
	}

	// Each occurrence contributes its full weight; the raw sum is capped at
	// 1.0, so a few heavy signals can meaningfully move the score.
	raw := float64(shortPrompts)*weightShortPrompt +
		float64(errorLoops)*weightErrorLoop +
		float64(lateNights)*weightLateNight +
		float64(rapidRetries)*weightRapidRetry
	score := raw
	if score > 1.0 {
		score = 1.0
	}

	descriptions := make([]string, 0, 4)
	if shortPrompts > 0 {
		descriptions = append(descriptions, fmt.Sprintf("%d short prompt(s) detected", shortPrompts))
	}
	if errorLoops > 0 {
		descriptions = append(descriptions, fmt.Sprintf("%d error-loop signal(s)", errorLoops))
	}
	if lateNights > 0 {
		descriptions = append(descriptions, fmt.Sprintf("%d late-night signal(s)", lateNights))
	}
	if rapidRetries > 0 {
		descriptions = append(descriptions, fmt.Sprintf("%d rapid-retry signal(s)", rapidRetries))
	}

	var highFriction bool
	var recommendation string
	switch {
	case score >= p.config.HighFrictionThreshold:
		highFriction = true
		recommendation = "High-Friction mode: refuse major refactors, require tests before destructive actions"
	case score > 0.4:
		recommendation = "Moderate fatigue detected: prefer smaller, safer changes"
	default:
		recommendation = "No fatigue signals detected"
	}

	return FatigueReport{
		Score:          score,
		HighFriction:   highFriction,
		Signals:        descriptions,
		Recommendation: recommendation,
	}
}

// Reset clears all profiler state.
func (p *FatigueProfiler) Reset() {
	p.signals = nil
	p.lastPromptTime = time.Time{}
	p.consecutiveErrors = 0
}

// ConsecutiveErrors returns the current consecutive-error count.
func (p *FatigueProfiler) ConsecutiveErrors() int {
	return p.consecutiveErrors
}

func (p *FatigueProfiler) pushSignal(at time.Time, kind SignalKind) {
	if len(p.signals) >= p.config.SignalWindow {
		p.signals = p.signals[1:]
	}
	p.signals = append(p.signals, fatigueSignal{at: at, kind: kind})
}
