package convo

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ProcessMessage drives the full per-message pipeline in a fixed order:
// thread append, entity registration, reference resolution, decision
// extraction, time-context extraction, attention scoring, and optional
// cross-channel sync when the channel belongs to a declared project.
// It never fails; heuristic misses degrade to empty fields.
func (e *Engine) ProcessMessage(channelID, messageID, content, username string, ts time.Time, project string) *Enriched {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()

	ch := e.store.channel(channelID)

	// (1) thread segmentation
	thread, started := e.addMessageLocked(channelID, messageID, content, username, ts)

	// (2) entity extraction + registration
	ents := extractEntities(content)
	e.registerEntities(ch, ents, ts)

	// (3) pronoun / vague-reference resolution
	resolved := e.resolveInContent(ch, content)

	// (4) decision extraction
	decision := e.extractDecisionLocked(channelID, content, username, ts)

	// (5) time-context extraction
	tc := extractTimeContext(content)

	// (6) attention scoring + caching
	att := scoreAttention(content, &AttentionContext{
		IsReply:     !started && len(thread.Messages) > 1,
		ActiveTopic: thread.Topic,
	})
	ch.cacheScored(ScoredMessage{Content: content, Username: username, Timestamp: ts, Attention: att})

	// (7) cross-channel sync
	if project != "" {
		e.syncProjectLocked(project, channelID)
	}

	if e.hooks.OnMessage != nil {
		e.hooks.OnMessage(att.Level, started)
	}

	enriched := &Enriched{
		ThreadID:      thread.ID,
		ThreadTopic:   thread.Topic,
		ThreadStarted: started,
		MessageCount:  len(thread.Messages),
		Entities:      ents,
		Resolved:      resolved,
		Decision:      decision,
		Time:          tc,
		Attention:     att,
	}
	if f := ch.entities.Focus(); len(f) > 0 {
		if len(f) > 3 {
			f = f[:3]
		}
		enriched.Focus = f
	}
	return enriched
}

// referenceWordRe finds candidate reference words in running text.
var referenceWordRe = regexp.MustCompile(`(?i)\b(he|she|they|him|her|them|it|that|this|the issue|the bug|the task|the feature)\b`)

// resolveInContent resolves every reference word present in the message
// against the focus stack. Caller must hold the write lock.
func (e *Engine) resolveInContent(ch *channelState, content string) map[string]FocusEntry {
	var resolved map[string]FocusEntry
	for _, m := range referenceWordRe.FindAllString(content, -1) {
		word := strings.ToLower(m)
		if resolved != nil {
			if _, done := resolved[word]; done {
				continue
			}
		}
		entry, ok := ch.entities.Resolve(word)
		if !ok {
			continue
		}
		if resolved == nil {
			resolved = make(map[string]FocusEntry)
		}
		resolved[word] = entry
		if e.hooks.OnResolve != nil {
			e.hooks.OnResolve(string(entry.Kind))
		}
	}
	return resolved
}

// FormattedContext renders a channel's current context as text for prompt
// injection: active thread tail, recent decisions, and current focus.
func (e *Engine) FormattedContext(channelID string, opts ContextOptions) string {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	ch, ok := e.store.channels[channelID]
	if !ok {
		return "No conversation context for this channel yet."
	}

	maxMsgs := opts.MaxMessages
	if maxMsgs <= 0 {
		maxMsgs = 5
	}

	var b strings.Builder
	if t := activeThread(ch); t != nil {
		if t.Topic != "" {
			fmt.Fprintf(&b, "Current discussion: %s\n", t.Topic)
		} else {
			b.WriteString("Current discussion:\n")
		}
		msgs := t.Messages
		if len(msgs) > maxMsgs {
			msgs = msgs[len(msgs)-maxMsgs:]
		}
		for _, m := range msgs {
			fmt.Fprintf(&b, "  %s: %s\n", m.Username, m.Content)
		}
	} else {
		b.WriteString("No active discussion.\n")
	}

	if opts.IncludeDecisions && len(ch.decisions) > 0 {
		b.WriteString("Recent decisions:\n")
		start := len(ch.decisions) - 3
		if start < 0 {
			start = 0
		}
		for _, d := range ch.decisions[start:] {
			fmt.Fprintf(&b, "  - %s", d.What)
			if d.Why != "" {
				fmt.Fprintf(&b, " (because %s)", d.Why)
			}
			if d.Who != "" {
				fmt.Fprintf(&b, " [%s]", d.Who)
			}
			b.WriteString("\n")
		}
	}

	if opts.IncludeFocus && len(ch.entities.focus) > 0 {
		b.WriteString("Currently discussing: ")
		top := ch.entities.focus
		if len(top) > 3 {
			top = top[:3]
		}
		parts := make([]string, 0, len(top))
		for _, f := range top {
			parts = append(parts, fmt.Sprintf("%s (%s)", f.Name, f.Kind))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}

	return b.String()
}

// TaskContextForAI renders a ticket's conversational provenance: the
// originating thread window and any associated decision. Returns false
// for unknown task IDs.
func (e *Engine) TaskContextForAI(taskID string) (string, bool) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	o, ok := e.store.origins[taskID]
	if !ok {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task %s was created from a conversation in channel %s.\n", o.TaskID, o.ChannelID)
	if len(o.Messages) > 0 {
		b.WriteString("Originating messages:\n")
		for _, m := range o.Messages {
			fmt.Fprintf(&b, "  %s: %s\n", m.Username, m.Content)
		}
	}
	if o.Decision != nil {
		fmt.Fprintf(&b, "Decision: %s", o.Decision.What)
		if o.Decision.Why != "" {
			fmt.Fprintf(&b, " (because %s)", o.Decision.Why)
		}
		if o.Decision.Who != "" {
			fmt.Fprintf(&b, " — decided by %s", o.Decision.Who)
		}
		b.WriteString("\n")
	}
	return b.String(), true
}

// Context-query shapes, matched in order.
var (
	queryTaskNumberRe = regexp.MustCompile(`(?i)(?:task|issue|ticket)\s*#?([\w-]+)`)
	queryWhyDecideRe  = regexp.MustCompile(`(?i)\bwhy\s+(?:did\s+we|was\s+it|do\s+we)?\s*(?:decide|choose|pick|go\s+with)`)
	queryStaleRe      = regexp.MustCompile(`(?i)\b(stale|stalled|stuck|forgotten|no\s+activity)\b`)
	queryDiscussRe    = regexp.MustCompile(`(?i)\bwhat(?:'s|\s+is|\s+are)?\s+(?:we\s+)?(?:discussing|talking\s+about|working\s+on)\b`)
	queryTrendingRe   = regexp.MustCompile(`(?i)\b(trending|across\s+channels|project\s+activity)\b`)
)

// AnswerContextQuery routes a free-text question to the matching
// read-only accessor. Falls back to the generic formatted context when no
// question shape matches.
func (e *Engine) AnswerContextQuery(query, channelID, project string) string {
	if m := queryTaskNumberRe.FindStringSubmatch(query); m != nil {
		if text, ok := e.taskByKeyword(m[1], channelID); ok {
			return text
		}
	}

	if queryWhyDecideRe.MatchString(query) {
		if text, ok := e.latestDecisionText(channelID); ok {
			return text
		}
		return "I don't have a recorded decision for this channel."
	}

	if queryStaleRe.MatchString(query) {
		return e.stalenessText(channelID)
	}

	if queryDiscussRe.MatchString(query) {
		return e.FormattedContext(channelID, ContextOptions{IncludeFocus: true})
	}

	if project != "" && queryTrendingRe.MatchString(query) {
		if text, ok := e.trendingText(project); ok {
			return text
		}
	}

	return e.FormattedContext(channelID, ContextOptions{IncludeDecisions: true, IncludeFocus: true})
}

// taskByKeyword answers "task 123"-style queries: exact origin match
// first, then the best-effort keyword scan.
func (e *Engine) taskByKeyword(ref, channelID string) (string, bool) {
	if text, ok := e.TaskContextForAI(ref); ok {
		return text, true
	}
	if o, ok := e.FindTaskOriginByKeyword(ref, channelID); ok {
		return fmt.Sprintf("Closest match is task %s in channel %s (%d originating messages).",
			o.TaskID, o.ChannelID, len(o.Messages)), true
	}
	return "", false
}

func (e *Engine) latestDecisionText(channelID string) (string, bool) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	d := e.store.latestDecision(channelID)
	if d == nil {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "We decided to %s", d.What)
	if d.Why != "" {
		fmt.Fprintf(&b, " because %s", d.Why)
	}
	if d.Who != "" {
		fmt.Fprintf(&b, " (per %s, %s)", d.Who, d.When.Format("Jan 2 15:04"))
	}
	if len(d.Alternatives) > 0 {
		fmt.Fprintf(&b, ". Alternatives considered: %s", strings.Join(d.Alternatives, ", "))
	}
	b.WriteString(".")
	return b.String(), true
}

func (e *Engine) stalenessText(channelID string) string {
	report := e.AnalyzeTemporalPatterns(channelID)
	if len(report.StalenessAlerts) == 0 {
		return "Nothing looks stale — all tracked tasks saw activity in the last 24 hours."
	}
	var b strings.Builder
	b.WriteString("Stale tasks:\n")
	for _, a := range report.StalenessAlerts {
		fmt.Fprintf(&b, "  - %q: no activity for %d hours", a.Task, a.HoursSinceActivity)
		if a.LastMentionedBy != "" {
			fmt.Fprintf(&b, " (last mentioned by %s)", a.LastMentionedBy)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Engine) trendingText(project string) (string, bool) {
	pc, ok := e.CrossChannelContext(project)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Project %s spans %d channel(s) with %d tracked task(s).\n", project, len(pc.Channels), pc.TotalTasks)
	if len(pc.TrendingEntities) > 0 {
		b.WriteString("Trending:\n")
		for _, t := range pc.TrendingEntities {
			fmt.Fprintf(&b, "  - %s (%s): %d mentions across %d channel(s)\n", t.Name, t.Kind, t.Mentions, t.Channels)
		}
	}
	return b.String(), true
}
