package convo

import (
	"strings"
	"time"
)

// LinkTaskToOrigin binds a created ticket to the thread and message
// window that produced it, plus the channel's most recent decision.
// Relinking the same task ID overwrites the prior origin (last write
// wins) and restamps the owning thread.
func (e *Engine) LinkTaskToOrigin(taskID, channelID, threadID string, msgs []ThreadMessage) *TaskOrigin {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()

	now := time.Now()
	origin := &TaskOrigin{
		TaskID:    taskID,
		ChannelID: channelID,
		ThreadID:  threadID,
		Messages:  append([]ThreadMessage(nil), msgs...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if prior, ok := e.store.origins[taskID]; ok {
		origin.CreatedAt = prior.CreatedAt
	} else {
		e.store.originOrder = append(e.store.originOrder, taskID)
	}

	if d := e.store.latestDecision(channelID); d != nil {
		if d.RelatedTaskID == "" {
			d.RelatedTaskID = taskID
		}
		cp := *d
		origin.Decision = &cp
	}

	if t := e.store.findThread(channelID, threadID); t != nil {
		t.TaskCreated = true
		t.TaskID = taskID
	}

	e.store.origins[taskID] = origin
	return origin
}

// TaskOrigin returns the stored provenance for a ticket.
func (e *Engine) TaskOrigin(taskID string) (*TaskOrigin, bool) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()
	o, ok := e.store.origins[taskID]
	if !ok {
		return nil, false
	}
	cp := *o
	cp.Messages = append([]ThreadMessage(nil), o.Messages...)
	return &cp, true
}

// FindTaskOriginByKeyword does a case-insensitive substring scan over all
// stored origins' message bodies, optionally restricted to one channel.
// First match in link order wins; this is a best-effort scan, not an index.
func (e *Engine) FindTaskOriginByKeyword(keyword, channelID string) (*TaskOrigin, bool) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	kw := strings.ToLower(keyword)
	if kw == "" {
		return nil, false
	}
	for _, taskID := range e.store.originOrder {
		o := e.store.origins[taskID]
		if channelID != "" && o.ChannelID != channelID {
			continue
		}
		for _, m := range o.Messages {
			if strings.Contains(strings.ToLower(m.Content), kw) {
				cp := *o
				cp.Messages = append([]ThreadMessage(nil), o.Messages...)
				return &cp, true
			}
		}
	}
	return nil, false
}
