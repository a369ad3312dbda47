package convo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	hedgingRe  = regexp.MustCompile(`(?i)\b(maybe|perhaps|possibly|probably|i think|i guess|not sure|might|could be|sort of|kind of)\b`)
	urgencyRe  = regexp.MustCompile(`(?i)\b(urgent|asap|critical|blocker|blocking|immediately|right now|emergency)\b`)
	assigneeRe = regexp.MustCompile(`(?i)(@[A-Za-z][\w-]{2,}|\b\w+\s+(?:will|can|should)\s+(?:take|handle|own|do)\b)`)
	questionRe = regexp.MustCompile(`(?i)^\s*(?:who|what|when|where|why|how|should|could|can|do|does|is|are)\b`)
)

// confidenceLevels is the ordered scale adjustments step along.
var confidenceLevels = []string{"low", "medium", "high"}

// correlation is one fixed feature→confidence hypothesis checked against
// the trail.
type correlation struct {
	feature   string
	target    string // confidence level the feature is expected to predict
	threshold float64
	applies   func(MessagePatterns) bool
}

var correlations = []correlation{
	{"hedging", "low", 0.60, func(p MessagePatterns) bool { return p.HasHedging }},
	{"urgency", "high", 0.55, func(p MessagePatterns) bool { return p.HasUrgency }},
	{"question", "low", 0.60, func(p MessagePatterns) bool { return p.IsQuestion }},
}

// minCorrelationSample is the fewest matching trail entries a correlation
// needs before it may nudge a confidence level.
const minCorrelationSample = 5

// derivePatterns computes a message's feature set once, at entry-creation
// time.
func derivePatterns(message string) MessagePatterns {
	trimmed := strings.TrimSpace(message)
	p := MessagePatterns{
		HasHedging:  hedgingRe.MatchString(message),
		HasUrgency:  urgencyRe.MatchString(message),
		HasAssignee: assigneeRe.MatchString(message),
		HasDeadline: extractTimeContext(message).Deadline != nil,
		IsQuestion:  strings.HasSuffix(trimmed, "?") || questionRe.MatchString(trimmed),
		WordCount:   len(strings.Fields(message)),
	}
	if f := strings.Fields(trimmed); len(f) > 0 {
		p.FirstWord = strings.ToLower(f[0])
	}
	return p
}

// RecordConfidence appends an actionability decision to the trail. The
// trail is a ring: the 1001st entry evicts the oldest.
func (e *Engine) RecordConfidence(message string, result ExtractionResult, action string) *ConfidenceEntry {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()

	entry := &ConfidenceEntry{
		ID:        ulid.Make().String(),
		Timestamp: time.Now(),
		Message:   message,
		Result:    result,
		Action:    action,
		Patterns:  derivePatterns(message),
	}
	e.store.trail = append(e.store.trail, entry)
	if len(e.store.trail) > confidenceCap {
		e.store.trail = e.store.trail[len(e.store.trail)-confidenceCap:]
	}
	cp := *entry
	return &cp
}

// RecordOutcome mutates a trail entry with its later-observed human
// outcome (accepted, rejected, corrected). Returns false for unknown IDs,
// including entries already evicted from the ring.
func (e *Engine) RecordOutcome(entryID, outcome, correction string) bool {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()

	for _, entry := range e.store.trail {
		if entry.ID == entryID {
			entry.Outcome = outcome
			entry.Correction = correction
			return true
		}
	}
	return false
}

// TrailLen reports the current trail size.
func (e *Engine) TrailLen() int {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()
	return len(e.store.trail)
}

// patternStats aggregates the whole trail: confidence and outcome
// histograms plus the hit rate of each fixed correlation. Recomputed on
// demand over the bounded trail rather than maintained incrementally, to
// keep the correlation logic auditable.
type patternStats struct {
	confidence map[string]int
	outcomes   map[string]int
	rates      map[string]float64 // feature name -> fraction at target level
	samples    map[string]int     // feature name -> matching entries
}

func (s *Store) analyzePatternsLocked() patternStats {
	stats := patternStats{
		confidence: make(map[string]int),
		outcomes:   make(map[string]int),
		rates:      make(map[string]float64),
		samples:    make(map[string]int),
	}
	for _, entry := range s.trail {
		stats.confidence[entry.Result.Confidence]++
		if entry.Outcome != "" {
			stats.outcomes[entry.Outcome]++
		}
	}
	for _, c := range correlations {
		matching, atTarget := 0, 0
		for _, entry := range s.trail {
			if !c.applies(entry.Patterns) {
				continue
			}
			matching++
			if entry.Result.Confidence == c.target {
				atTarget++
			}
		}
		stats.samples[c.feature] = matching
		if matching > 0 {
			stats.rates[c.feature] = float64(atTarget) / float64(matching)
		}
	}
	return stats
}

// LearnedConfidenceAdjustment nudges a base confidence level by at most
// one step per triggered correlation. Advisory only: it never fabricates
// a decision, and always explains what fired.
func (e *Engine) LearnedConfidenceAdjustment(message, base string) Adjustment {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	adj := Adjustment{Adjusted: base}
	idx := levelIndex(base)
	if idx < 0 {
		return adj
	}

	features := derivePatterns(message)
	stats := e.store.analyzePatternsLocked()

	for _, c := range correlations {
		if !c.applies(features) {
			continue
		}
		if stats.samples[c.feature] < minCorrelationSample {
			continue
		}
		rate := stats.rates[c.feature]
		if rate < c.threshold {
			continue
		}
		step := levelIndex(c.target) - 1 // low pulls down, high pushes up
		if step < 0 {
			step = -1
		} else if step > 0 {
			step = 1
		}
		adj.Delta += step
		adj.Reasons = append(adj.Reasons, fmt.Sprintf(
			"%s messages land %s confidence %.0f%% of the time (%d samples)",
			c.feature, c.target, rate*100, stats.samples[c.feature]))
	}

	idx += adj.Delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(confidenceLevels)-1 {
		idx = len(confidenceLevels) - 1
	}
	adj.Adjusted = confidenceLevels[idx]
	return adj
}

func levelIndex(level string) int {
	for i, l := range confidenceLevels {
		if l == level {
			return i
		}
	}
	return -1
}
