package convo

import (
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// topicMarkers are discourse openers that signal a conversational shift.
// Matched against the lowercased message prefix.
var topicMarkers = []string{
	"hey",
	"so,",
	"so ",
	"anyway",
	"new topic",
	"also",
	"btw",
	"by the way",
	"separately",
	"moving on",
	"unrelated",
	"on another note",
}

// topicSeedRe pulls a short topic label out of "<words> issue|bug|feature|task|problem".
var topicSeedRe = regexp.MustCompile(`(?i)\b([a-z0-9][\w-]*(?:[ \t][\w-]+){0,2}[ \t](?:issue|bug|feature|task|problem))\b`)

// AddMessage appends a message to the channel's active thread, or starts a
// new thread when a topic shift is detected or no thread is active.
// It always succeeds and returns the owning thread.
func (e *Engine) AddMessage(channelID, messageID, content, username string, ts time.Time) *Thread {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	t, _ := e.addMessageLocked(channelID, messageID, content, username, ts)
	return t
}

// addMessageLocked requires the store write lock. The bool result reports
// whether a new thread was started.
func (e *Engine) addMessageLocked(channelID, messageID, content, username string, ts time.Time) (*Thread, bool) {
	ch := e.store.channel(channelID)

	active := activeThread(ch)
	started := false
	if active == nil || isTopicShift(content) {
		if active != nil {
			active.Active = false
		}
		active = &Thread{
			ID:             ulid.Make().String(),
			ChannelID:      channelID,
			Topic:          seedTopic(content),
			Entities:       make(map[string]struct{}),
			StartedAt:      ts,
			LastActivityAt: ts,
			Active:         true,
		}
		ch.threads = append(ch.threads, active)
		started = true
	}

	prev := active.LastActivityAt
	active.Messages = append(active.Messages, ThreadMessage{
		ID:        messageID,
		Content:   content,
		Username:  username,
		Timestamp: ts,
	})
	if ts.After(active.LastActivityAt) {
		active.LastActivityAt = ts
	}

	// Closure is lazy: a thread is only marked inactive when its channel
	// receives the next message after a 30-minute silence. Idle threads
	// never expire on their own.
	if !started && ts.Sub(prev) > threadIdleAfter {
		active.Active = false
	}

	for _, name := range extractEntities(content).all() {
		active.Entities[normalizeName(name)] = struct{}{}
	}

	return active, started
}

// activeThread returns the channel's current active thread, newest first.
func activeThread(ch *channelState) *Thread {
	for i := len(ch.threads) - 1; i >= 0; i-- {
		if ch.threads[i].Active {
			return ch.threads[i]
		}
	}
	return nil
}

func isTopicShift(content string) bool {
	lc := strings.ToLower(strings.TrimSpace(content))
	for _, m := range topicMarkers {
		if strings.HasPrefix(lc, m) {
			return true
		}
	}
	return false
}

func seedTopic(content string) string {
	m := topicSeedRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	words := strings.Fields(strings.ToLower(m[1]))
	for len(words) > 1 {
		if words[0] != "the" && words[0] != "a" && words[0] != "an" && words[0] != "this" && words[0] != "that" {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// ThreadWindow returns a copy of the last n messages of a thread, or all of
// them when n <= 0. Returns nil for unknown threads.
func (e *Engine) ThreadWindow(channelID, threadID string, n int) []ThreadMessage {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	t := e.store.findThread(channelID, threadID)
	if t == nil {
		return nil
	}
	msgs := t.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]ThreadMessage, len(msgs))
	copy(out, msgs)
	return out
}

// findThread locates a thread by ID across the channel's thread list.
// Caller must hold at least the read lock.
func (s *Store) findThread(channelID, threadID string) *Thread {
	ch, ok := s.channels[channelID]
	if !ok {
		return nil
	}
	for _, t := range ch.threads {
		if t.ID == threadID {
			return t
		}
	}
	return nil
}
