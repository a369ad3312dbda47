package convo

import (
	"regexp"
	"strings"
	"time"
)

// Extraction is regex-driven, not a parser. Candidates are best-effort:
// a wrong hit decays off the focus stack instead of being corrected.
var (
	// @mentions, with the sigil stripped.
	mentionRe = regexp.MustCompile(`@([A-Za-z][\w-]{2,})`)

	// Bare capitalized tokens are person candidates only past the first
	// word, where English capitalization is informative.
	bareNameRe = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)

	// Verb-phrase task candidates: "fix the login flow", "implement retries".
	taskVerbRe = regexp.MustCompile(`(?i)\b(?:fix(?:ing)?|implement(?:ing)?|build(?:ing)?|debug(?:ging)?|refactor(?:ing)?|investigate|ship)\s+(?:the\s+|a\s+|an\s+)?([a-z0-9][\w-]*(?:\s+[\w-]+){0,4})`)

	// "bug in <noun phrase>" task candidates.
	bugInRe = regexp.MustCompile(`(?i)\b(?:bug|problem|issue)\s+(?:in|with)\s+(?:the\s+)?([a-z0-9][\w-]*(?:\s+[\w-]+){0,3})`)

	// Runs of two or more capitalized words are feature candidates.
	featureRe = regexp.MustCompile(`\b([A-Z][a-z0-9]+(?:\s+[A-Z][a-z0-9]+)+)\b`)
)

// referenceKinds maps surface reference words to the entity kind they
// select on the focus stack. Resolution is recency-only: the first stack
// entry of the selected kind wins, regardless of grammatical agreement.
var referenceKinds = map[string][]EntityKind{
	"he":   {KindPerson},
	"she":  {KindPerson},
	"they": {KindPerson},
	"him":  {KindPerson},
	"her":  {KindPerson},
	"them": {KindPerson},

	"it":   {KindTask, KindFeature},
	"that": {KindTask, KindFeature},
	"this": {KindTask, KindFeature},

	"the issue": {KindTask},
	"the bug":   {KindTask},
	"the task":  {KindTask},

	"the feature": {KindFeature},
}

// EntityMap is the channel-scoped entity registry plus its focus stack.
type EntityMap struct {
	entities map[string]*Entity // key: kind + "/" + normalized name
	focus    []FocusEntry       // index 0 = most recently discussed
}

func newEntityMap() *EntityMap {
	return &EntityMap{entities: make(map[string]*Entity)}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func entityKey(kind EntityKind, name string) string {
	return string(kind) + "/" + normalizeName(name)
}

// AddPerson records a person mention and promotes it on the focus stack.
func (m *EntityMap) AddPerson(name, github string, ts time.Time) *Entity {
	e := m.touch(KindPerson, name, ts)
	if github != "" {
		e.GitHub = github
	}
	return e
}

// AddTask records a task mention. Status defaults to "mentioned".
func (m *EntityMap) AddTask(name, taskID, status string, ts time.Time) *Entity {
	e := m.touch(KindTask, name, ts)
	if taskID != "" {
		e.TaskID = taskID
	}
	if status != "" {
		e.Status = status
	} else if e.Status == "" {
		e.Status = "mentioned"
	}
	return e
}

// AddFeature records a feature mention.
func (m *EntityMap) AddFeature(name string, ts time.Time) *Entity {
	return m.touch(KindFeature, name, ts)
}

// touch upserts the entity record and moves it to the focus front.
// Entities are never removed; relevance decays via stack position only.
func (m *EntityMap) touch(kind EntityKind, name string, ts time.Time) *Entity {
	key := entityKey(kind, name)
	e, ok := m.entities[key]
	if !ok {
		e = &Entity{Kind: kind, Name: normalizeName(name)}
		m.entities[key] = e
	}
	e.Mentions++
	if ts.After(e.LastMention) {
		e.LastMention = ts
	}
	m.promote(FocusEntry{Kind: kind, Name: e.Name, Timestamp: ts})
	return e
}

// promote pushes the entry to index 0, deduplicated by (kind, name).
// The stack is capped; the oldest entry falls off the back.
func (m *EntityMap) promote(entry FocusEntry) {
	for i, f := range m.focus {
		if f.Kind == entry.Kind && f.Name == entry.Name {
			m.focus = append(m.focus[:i], m.focus[i+1:]...)
			break
		}
	}
	m.focus = append([]FocusEntry{entry}, m.focus...)
	if len(m.focus) > focusStackCap {
		m.focus = m.focus[:focusStackCap]
	}
}

// Focus returns a copy of the focus stack, most recent first.
func (m *EntityMap) Focus() []FocusEntry {
	out := make([]FocusEntry, len(m.focus))
	copy(out, m.focus)
	return out
}

// Resolve maps a reference word to the most recent matching focus entry.
func (m *EntityMap) Resolve(word string) (FocusEntry, bool) {
	kinds, ok := referenceKinds[strings.ToLower(strings.TrimSpace(word))]
	if !ok {
		return FocusEntry{}, false
	}
	for _, f := range m.focus {
		for _, k := range kinds {
			if f.Kind == k {
				return f, true
			}
		}
	}
	return FocusEntry{}, false
}

// Get looks up an entity record by kind and name.
func (m *EntityMap) Get(kind EntityKind, name string) (*Entity, bool) {
	e, ok := m.entities[entityKey(kind, name)]
	return e, ok
}

// all flattens extraction output for thread entity-set union.
func (e Entities) all() []string {
	out := make([]string, 0, len(e.People)+len(e.Tasks)+len(e.Features)+len(e.Concepts))
	out = append(out, e.People...)
	out = append(out, e.Tasks...)
	out = append(out, e.Features...)
	out = append(out, e.Concepts...)
	return out
}

// ExtractEntities scans one message for entity candidates. Pure: no
// registry mutation, no locking.
func (e *Engine) ExtractEntities(content string) Entities {
	return extractEntities(content)
}

func extractEntities(content string) Entities {
	var out Entities
	seen := make(map[string]struct{})
	add := func(dst *[]string, name string) {
		n := normalizeName(name)
		if n == "" {
			return
		}
		if _, dup := seen[n]; dup {
			return
		}
		seen[n] = struct{}{}
		*dst = append(*dst, n)
	}

	// Features first so multi-word capitalized runs are not re-claimed
	// as individual person names.
	featureSpans := featureRe.FindAllStringIndex(content, -1)
	for _, m := range featureRe.FindAllStringSubmatch(content, -1) {
		add(&out.Features, m[1])
	}

	for _, m := range mentionRe.FindAllStringSubmatch(content, -1) {
		add(&out.People, m[1])
	}
	firstWordEnd := len(content)
	if i := strings.IndexAny(content, " \t\n"); i >= 0 {
		firstWordEnd = i
	}
	for _, span := range bareNameRe.FindAllStringIndex(content, -1) {
		if span[0] < firstWordEnd {
			continue // sentence-initial capitalization is uninformative
		}
		if insideAny(span, featureSpans) {
			continue
		}
		add(&out.People, content[span[0]:span[1]])
	}

	for _, m := range taskVerbRe.FindAllStringSubmatch(content, -1) {
		add(&out.Tasks, trimTaskPhrase(m[1]))
	}
	for _, m := range bugInRe.FindAllStringSubmatch(content, -1) {
		add(&out.Tasks, trimTaskPhrase(m[1]))
	}

	// Concepts are reserved: the type exists but no heuristic feeds it.
	return out
}

func insideAny(span []int, spans [][]int) bool {
	for _, s := range spans {
		if span[0] >= s[0] && span[1] <= s[1] {
			return true
		}
	}
	return false
}

// stopTails are trailing function words stripped from task phrases.
var stopTails = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "for": {}, "of": {},
	"and": {}, "or": {}, "in": {}, "on": {}, "by": {}, "with": {},
	"is": {}, "it": {}, "that": {}, "this": {},
}

func trimTaskPhrase(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 0 {
		if _, stop := stopTails[strings.ToLower(words[len(words)-1])]; !stop {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// ResolveReference resolves a pronoun or vague reference against the
// channel's focus stack. Returns false when no stack entry of the
// selected kind exists, or the word is not a known reference.
func (e *Engine) ResolveReference(channelID, word string) (FocusEntry, bool) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()
	ch, ok := e.store.channels[channelID]
	if !ok {
		return FocusEntry{}, false
	}
	f, ok := ch.entities.Resolve(word)
	if ok && e.hooks.OnResolve != nil {
		e.hooks.OnResolve(string(f.Kind))
	}
	return f, ok
}

// Focus returns the top n focus-stack entries for a channel.
func (e *Engine) Focus(channelID string, n int) []FocusEntry {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()
	ch, ok := e.store.channels[channelID]
	if !ok {
		return nil
	}
	f := ch.entities.Focus()
	if n > 0 && len(f) > n {
		f = f[:n]
	}
	return f
}

// EntityMapSnapshot returns copies of all entity records for a channel,
// for prompt grounding by the extraction layer.
func (e *Engine) EntityMapSnapshot(channelID string) []Entity {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()
	ch, ok := e.store.channels[channelID]
	if !ok {
		return nil
	}
	out := make([]Entity, 0, len(ch.entities.entities))
	for _, ent := range ch.entities.entities {
		out = append(out, *ent)
	}
	return out
}

// registerEntities folds extraction output into the channel registry.
// Caller must hold the write lock.
func (e *Engine) registerEntities(ch *channelState, ents Entities, ts time.Time) {
	for _, p := range ents.People {
		ch.entities.AddPerson(p, "", ts)
	}
	for _, t := range ents.Tasks {
		ch.entities.AddTask(t, "", "mentioned", ts)
	}
	for _, f := range ents.Features {
		ch.entities.AddFeature(f, ts)
	}
}
