package convo

import "sort"

const trendingLimit = 5

// SyncChannelToProject folds the channel's current entity registry into
// the named project's shared memory. Syncing is idempotent per channel:
// each call replaces that channel's contribution rather than stacking it,
// so a channel is reported exactly once no matter how often it syncs.
func (e *Engine) SyncChannelToProject(project, channelID string) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.syncProjectLocked(project, channelID)
}

func (e *Engine) syncProjectLocked(project, channelID string) {
	ch, ok := e.store.channels[channelID]
	if !ok {
		return
	}
	p := e.store.project(project)

	if _, seen := p.seen[channelID]; !seen {
		p.seen[channelID] = struct{}{}
		p.channels = append(p.channels, channelID)
	}

	for key, ent := range ch.entities.entities {
		se, ok := p.shared[key]
		if !ok {
			se = &sharedEntity{
				kind:       ent.Kind,
				name:       ent.Name,
				channels:   make(map[string]struct{}),
				perChannel: make(map[string]int),
			}
			p.shared[key] = se
			p.order = append(p.order, key)
		}
		se.channels[channelID] = struct{}{}
		se.perChannel[channelID] = ent.Mentions

		if ent.Kind == KindTask && ent.TaskID != "" {
			p.tasks[ent.TaskID] = taskActivity{channelID: channelID, status: ent.Status}
		}
	}
}

// CrossChannelContext reports the project's channels, trending entities,
// and task distribution. Returns false for an undeclared project.
func (e *Engine) CrossChannelContext(project string) (*ProjectContext, bool) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	p, ok := e.store.projects[project]
	if !ok {
		return nil, false
	}

	out := &ProjectContext{
		Channels:         append([]string(nil), p.channels...),
		TaskDistribution: make(map[string]int),
		TotalTasks:       len(p.tasks),
	}
	for _, act := range p.tasks {
		out.TaskDistribution[act.channelID]++
	}

	// Trending = top-N shared entities by mention count, descending.
	// Stable sort over insertion order breaks ties deterministically.
	keys := append([]string(nil), p.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return p.shared[keys[i]].mentions() > p.shared[keys[j]].mentions()
	})
	if len(keys) > trendingLimit {
		keys = keys[:trendingLimit]
	}
	for _, k := range keys {
		se := p.shared[k]
		out.TrendingEntities = append(out.TrendingEntities, TrendingEntity{
			Kind:     se.kind,
			Name:     se.name,
			Mentions: se.mentions(),
			Channels: len(se.channels),
		})
	}

	return out, true
}
