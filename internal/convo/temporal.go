package convo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Per-category regexes, tried in order. Only the first hit per category
// is kept even when a message contains several temporal expressions.
type relativeRule struct {
	re    *regexp.Regexp
	value int    // -1 means "use the captured number"
	unit  string // "" means "use the captured unit"
}

var relativeRules = []relativeRule{
	{regexp.MustCompile(`(?i)\byesterday\b`), 1, "days"},
	{regexp.MustCompile(`(?i)\btoday\b`), 0, "days"},
	{regexp.MustCompile(`(?i)\b(\d+)\s+(minute|hour|day|week|month)s?\s+ago\b`), -1, ""},
	{regexp.MustCompile(`(?i)\blast\s+week\b`), 1, "weeks"},
	{regexp.MustCompile(`(?i)\blast\s+month\b`), 1, "months"},
	{regexp.MustCompile(`(?i)\bthis\s+morning\b`), 0, "days"},
	{regexp.MustCompile(`(?i)\bearlier\b`), 0, "days"},
}

var deadlineRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bby\s+(?:end of\s+)?(today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|eod|eow|the day|the week|this week|next week)\b`),
	regexp.MustCompile(`(?i)\b(eod|eow|end of (?:day|week|sprint))\b`),
	regexp.MustCompile(`(?i)\bdeadline(?:\s+is)?\s+(\S+(?:\s+\S+)?)`),
	regexp.MustCompile(`(?i)\bdue\s+(?:by\s+|on\s+)?(\S+(?:\s+\S+)?)`),
	regexp.MustCompile(`(?i)\bbefore\s+(?:the\s+)?(launch|release|demo|meeting|standup)\b`),
}

var durationRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:for|take[sn]?|took|spent|spend|about|around)\s+(?:about\s+|around\s+)?(\d+)\s+(minute|hour|day|week)s?\b`),
	regexp.MustCompile(`(?i)\b(\d+)\s*(min|hr|h)s?\b`),
}

// ExtractTimeContext scans a message for relative-time, deadline, and
// duration expressions. Pure; unmatched categories stay nil.
func (e *Engine) ExtractTimeContext(content string) TimeContext {
	return extractTimeContext(content)
}

func extractTimeContext(content string) TimeContext {
	var tc TimeContext

	for _, r := range relativeRules {
		m := r.re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		rel := &RelativeTime{Value: r.value, Unit: r.unit, Raw: strings.ToLower(m[0])}
		if r.value == -1 {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			rel.Value = n
			rel.Unit = strings.ToLower(m[2]) + "s"
		}
		tc.Relative = rel
		break
	}

	for _, re := range deadlineRules {
		if m := re.FindString(content); m != "" {
			tc.Deadline = &Deadline{Raw: strings.ToLower(strings.TrimSpace(m))}
			break
		}
	}

	for _, re := range durationRules {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		unit := strings.ToLower(m[2])
		switch unit {
		case "min":
			unit = "minutes"
		case "hr", "h":
			unit = "hours"
		default:
			unit += "s"
		}
		tc.Duration = &DurationHint{Value: n, Unit: unit, Raw: strings.ToLower(strings.TrimSpace(m[0]))}
		break
	}

	return tc
}

// AnalyzeTemporalPatterns scans a channel's threads and entities for
// recurring topics and stale tasks. Deadline warnings are reserved.
func (e *Engine) AnalyzeTemporalPatterns(channelID string) TemporalReport {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	var report TemporalReport
	ch, ok := e.store.channels[channelID]
	if !ok {
		return report
	}
	now := time.Now()

	// Recurring topics: any seeded topic seen on two or more threads.
	counts := make(map[string]int)
	var order []string
	for _, t := range ch.threads {
		if t.Topic == "" {
			continue
		}
		if counts[t.Topic] == 0 {
			order = append(order, t.Topic)
		}
		counts[t.Topic]++
	}
	for _, topic := range order {
		if counts[topic] >= 2 {
			report.RecurringTopics = append(report.RecurringTopics, TopicCount{Topic: topic, Count: counts[topic]})
		}
	}

	// Staleness: task entities still open whose owning thread has been
	// silent past the threshold.
	for _, ent := range ch.entities.entities {
		if ent.Kind != KindTask {
			continue
		}
		if ent.Status != "mentioned" && ent.Status != "in_progress" {
			continue
		}
		t := findTaskThread(ch, ent)
		if t == nil {
			continue
		}
		idle := now.Sub(t.LastActivityAt)
		if idle <= staleAfter {
			continue
		}
		alert := StalenessAlert{
			Task:               ent.Name,
			HoursSinceActivity: int(math.Round(idle.Hours())),
		}
		if n := len(t.Messages); n > 0 {
			alert.LastMentionedBy = t.Messages[n-1].Username
		}
		report.StalenessAlerts = append(report.StalenessAlerts, alert)
	}

	return report
}

// findTaskThread locates the thread carrying a task entity: by the
// stamped task ID when a ticket exists, otherwise by entity-set
// membership, preferring the most recent thread.
func findTaskThread(ch *channelState, ent *Entity) *Thread {
	if ent.TaskID != "" {
		for i := len(ch.threads) - 1; i >= 0; i-- {
			if ch.threads[i].TaskID == ent.TaskID {
				return ch.threads[i]
			}
		}
	}
	for i := len(ch.threads) - 1; i >= 0; i-- {
		if _, ok := ch.threads[i].Entities[ent.Name]; ok {
			return ch.threads[i]
		}
	}
	return nil
}
