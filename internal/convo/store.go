package convo

import (
	"sync"
	"time"
)

const (
	focusStackCap     = 10
	confidenceCap     = 1000
	attentionCacheCap = 100

	threadIdleAfter = 30 * time.Minute
	staleAfter      = 24 * time.Hour
)

// channelState owns everything the engine tracks for a single channel.
type channelState struct {
	threads   []*Thread
	entities  *EntityMap
	decisions []*Decision
	attention []ScoredMessage // ring, newest last, cap attentionCacheCap
}

// projectMemory aggregates entity and task activity across the channels
// declared under one project name.
type projectMemory struct {
	name     string
	channels []string // registration order
	seen     map[string]struct{}
	shared   map[string]*sharedEntity // key: kind + "/" + normalized name
	order    []string                 // shared insertion order, for stable trending ties
	tasks    map[string]taskActivity
}

type sharedEntity struct {
	kind       EntityKind
	name       string
	channels   map[string]struct{}
	perChannel map[string]int // latest mention count contributed by each channel
}

func (s *sharedEntity) mentions() int {
	total := 0
	for _, n := range s.perChannel {
		total += n
	}
	return total
}

type taskActivity struct {
	channelID string
	status    string
}

// Store is the arena owning all per-channel, per-project, and per-task
// sub-stores. Components receive it explicitly so tests can instantiate
// isolated stores instead of sharing package-level state.
type Store struct {
	mu          sync.RWMutex
	channels    map[string]*channelState
	projects    map[string]*projectMemory
	origins     map[string]*TaskOrigin
	originOrder []string // insertion order for deterministic keyword scans
	trail       []*ConfidenceEntry
}

// NewStore initializes an empty arena.
func NewStore() *Store {
	return &Store{
		channels: make(map[string]*channelState),
		projects: make(map[string]*projectMemory),
		origins:  make(map[string]*TaskOrigin),
	}
}

// channel returns the channel's state, creating it on first use.
// Caller must hold the write lock.
func (s *Store) channel(channelID string) *channelState {
	ch, ok := s.channels[channelID]
	if !ok {
		ch = &channelState{entities: newEntityMap()}
		s.channels[channelID] = ch
	}
	return ch
}

// project returns the project's memory, creating it on first use.
// Caller must hold the write lock.
func (s *Store) project(name string) *projectMemory {
	p, ok := s.projects[name]
	if !ok {
		p = &projectMemory{
			name:   name,
			seen:   make(map[string]struct{}),
			shared: make(map[string]*sharedEntity),
			tasks:  make(map[string]taskActivity),
		}
		s.projects[name] = p
	}
	return p
}

// ClearChannel drops all state for one channel: threads, entities, focus,
// decisions, and the attention cache. Task origins and the confidence
// trail survive because they are keyed by task, not channel.
func (s *Store) ClearChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
}

// Channels returns the IDs of all channels with recorded state.
func (s *Store) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for id := range s.channels {
		out = append(out, id)
	}
	return out
}
