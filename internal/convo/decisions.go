package convo

import (
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Decision-intent patterns, tried in priority order. The first match wins
// and at most one decision is extracted per message.
var decisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:let'?s|we should|we'?re going to|decided to|we decided to)\s+(.+)`),
	regexp.MustCompile(`(?i)\b(?:going with|choosing|picking|picked|we chose)\s+(.+)`),
	regexp.MustCompile(`(?i)\bthe plan is to\s+(.+)`),
}

var (
	whyRe  = regexp.MustCompile(`(?i)\bbecause\s+(.+?)(?:\.|$)`)
	altRe  = regexp.MustCompile(`(?i)\binstead of\s+(.+?)(?:\.|$)`)
	overRe = regexp.MustCompile(`(?i)\bover\s+(.+?)(?:\.|,|$)`)
)

// ExtractDecision detects a decision sentence and appends it to the
// channel's decision log. Returns nil with no side effect when the
// message states no decision.
func (e *Engine) ExtractDecision(channelID, content, username string, ts time.Time) *Decision {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.extractDecisionLocked(channelID, content, username, ts)
}

func (e *Engine) extractDecisionLocked(channelID, content, username string, ts time.Time) *Decision {
	var what string
	for _, p := range decisionPatterns {
		if m := p.FindStringSubmatch(content); m != nil {
			what = m[1]
			break
		}
	}
	if what == "" {
		return nil
	}

	d := &Decision{
		ID:        ulid.Make().String(),
		ChannelID: channelID,
		What:      trimDecisionWhat(what),
		Who:       username,
		When:      ts,
	}

	if m := whyRe.FindStringSubmatch(content); m != nil {
		d.Why = strings.TrimSpace(m[1])
	}
	if m := altRe.FindStringSubmatch(content); m != nil {
		d.Alternatives = append(d.Alternatives, strings.TrimSpace(m[1]))
	} else if m := overRe.FindStringSubmatch(content); m != nil {
		d.Alternatives = append(d.Alternatives, strings.TrimSpace(m[1]))
	}

	ch := e.store.channel(channelID)
	if t := activeThread(ch); t != nil {
		d.ThreadID = t.ID
	}
	ch.decisions = append(ch.decisions, d)

	if e.hooks.OnDecision != nil {
		e.hooks.OnDecision()
	}
	return d
}

// trimDecisionWhat strips the rationale and alternative clauses so "what"
// holds only the action itself.
func trimDecisionWhat(what string) string {
	lc := strings.ToLower(what)
	cut := len(what)
	for _, marker := range []string{" because ", " instead of ", " over "} {
		if i := strings.Index(lc, marker); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimRight(strings.TrimSpace(what[:cut]), ".!,")
}

// Decisions returns the channel's decision log, oldest first.
func (e *Engine) Decisions(channelID string) []Decision {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()
	ch, ok := e.store.channels[channelID]
	if !ok {
		return nil
	}
	out := make([]Decision, 0, len(ch.decisions))
	for _, d := range ch.decisions {
		out = append(out, *d)
	}
	return out
}

// latestDecision returns the channel's newest decision, or nil.
// Caller must hold at least the read lock.
func (s *Store) latestDecision(channelID string) *Decision {
	ch, ok := s.channels[channelID]
	if !ok || len(ch.decisions) == 0 {
		return nil
	}
	return ch.decisions[len(ch.decisions)-1]
}
