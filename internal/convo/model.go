package convo

import "time"

// EntityKind classifies what a conversation entity refers to.
type EntityKind string

const (
	KindPerson  EntityKind = "person"
	KindTask    EntityKind = "task"
	KindFeature EntityKind = "feature"

	// KindConcept is reserved; no current heuristic populates it.
	KindConcept EntityKind = "concept"
)

// ThreadMessage is one message captured inside a thread.
type ThreadMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Thread is a bounded run of messages in one channel considered part of
// the same conversation. Owned exclusively by the per-channel thread list.
type Thread struct {
	ID             string              `json:"id"`
	ChannelID      string              `json:"channel_id"`
	Topic          string              `json:"topic,omitempty"`
	Messages       []ThreadMessage     `json:"messages"`
	Entities       map[string]struct{} `json:"-"`
	TaskCreated    bool                `json:"task_created"`
	TaskID         string              `json:"task_id,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	LastActivityAt time.Time           `json:"last_activity_at"`
	Active         bool                `json:"active"`
}

// Entity is a recognized person, task, feature, or concept mentioned in
// conversation, tracked inside a channel-scoped registry.
type Entity struct {
	Kind        EntityKind `json:"kind"`
	Name        string     `json:"name"`
	Mentions    int        `json:"mentions"`
	LastMention time.Time  `json:"last_mention"`

	// kind-specific fields
	GitHub string `json:"github,omitempty"`  // person
	TaskID string `json:"task_id,omitempty"` // task
	Status string `json:"status,omitempty"`  // task
}

// FocusEntry is one slot on the per-channel recency stack used for
// pronoun and vague-reference resolution.
type FocusEntry struct {
	Kind      EntityKind `json:"kind"`
	Name      string     `json:"name"`
	Title     string     `json:"title,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Entities is the result of pure entity extraction over one message.
type Entities struct {
	People   []string `json:"people,omitempty"`
	Tasks    []string `json:"tasks,omitempty"`
	Features []string `json:"features,omitempty"`
	Concepts []string `json:"concepts,omitempty"`
}

// Empty reports whether extraction found nothing.
func (e Entities) Empty() bool {
	return len(e.People) == 0 && len(e.Tasks) == 0 && len(e.Features) == 0 && len(e.Concepts) == 0
}

// Decision is a recorded statement of what the team agreed to do.
// Immutable after creation except for later linkage to a task.
type Decision struct {
	ID            string    `json:"id"`
	ChannelID     string    `json:"channel_id"`
	ThreadID      string    `json:"thread_id,omitempty"`
	What          string    `json:"what"`
	Why           string    `json:"why,omitempty"`
	Who           string    `json:"who,omitempty"`
	When          time.Time `json:"when"`
	Alternatives  []string  `json:"alternatives,omitempty"`
	RelatedTaskID string    `json:"related_task_id,omitempty"`
}

// RelativeTime is a backward-looking time reference ("yesterday", "2 days ago").
type RelativeTime struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
	Raw   string `json:"raw"`
}

// Deadline is a forward-looking due reference ("by friday", "eod").
type Deadline struct {
	Raw string `json:"raw"`
}

// DurationHint is an effort/elapsed expression ("took 3 hours").
type DurationHint struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
	Raw   string `json:"raw"`
}

// TimeContext holds at most one hit per temporal category for a message.
type TimeContext struct {
	Relative *RelativeTime `json:"relative,omitempty"`
	Deadline *Deadline     `json:"deadline,omitempty"`
	Duration *DurationHint `json:"duration,omitempty"`
}

// Empty reports whether no temporal expression was found.
func (t TimeContext) Empty() bool {
	return t.Relative == nil && t.Deadline == nil && t.Duration == nil
}

// Attention is the heuristic importance rating for a single message.
type Attention struct {
	Score   int      `json:"score"` // 0..100
	Level   string   `json:"level"` // high, medium, low
	Reasons []string `json:"reasons,omitempty"`
}

// AttentionContext carries thread-derived signals into scoring.
type AttentionContext struct {
	IsReply     bool
	ActiveTopic string
}

// ScoredMessage is a message with its attention rating, cached per channel.
type ScoredMessage struct {
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Attention Attention `json:"attention"`
}

// TaskOrigin is the conversational provenance behind a created ticket.
type TaskOrigin struct {
	TaskID    string          `json:"task_id"`
	ChannelID string          `json:"channel_id"`
	ThreadID  string          `json:"thread_id"`
	Messages  []ThreadMessage `json:"messages"`
	Decision  *Decision       `json:"decision,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TopicCount reports how often a thread topic recurred in a channel.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// StalenessAlert flags a task entity whose owning thread has gone quiet.
type StalenessAlert struct {
	Task               string `json:"task"`
	HoursSinceActivity int    `json:"hours_since_activity"`
	LastMentionedBy    string `json:"last_mentioned_by,omitempty"`
}

// TemporalReport is the output of a channel-wide temporal scan.
// DeadlineWarnings is reserved and not currently populated.
type TemporalReport struct {
	RecurringTopics  []TopicCount     `json:"recurring_topics,omitempty"`
	StalenessAlerts  []StalenessAlert `json:"staleness_alerts,omitempty"`
	DeadlineWarnings []string         `json:"deadline_warnings,omitempty"`
}

// ExtractionResult is the slice of an extraction outcome the confidence
// trail needs to correlate against message features.
type ExtractionResult struct {
	Actionable bool   `json:"actionable"`
	Title      string `json:"title,omitempty"`
	Confidence string `json:"confidence"` // low, medium, high
}

// MessagePatterns are the boolean/numeric features derived from a message
// at confidence-entry creation time.
type MessagePatterns struct {
	HasHedging  bool   `json:"has_hedging"`
	HasUrgency  bool   `json:"has_urgency"`
	HasAssignee bool   `json:"has_assignee"`
	HasDeadline bool   `json:"has_deadline"`
	IsQuestion  bool   `json:"is_question"`
	WordCount   int    `json:"word_count"`
	FirstWord   string `json:"first_word,omitempty"`
}

// ConfidenceEntry is one logged actionability decision plus its
// later-observed human outcome.
type ConfidenceEntry struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Message    string           `json:"message"`
	Result     ExtractionResult `json:"result"`
	Action     string           `json:"action"`
	Outcome    string           `json:"outcome,omitempty"`
	Correction string           `json:"correction,omitempty"`
	Patterns   MessagePatterns  `json:"patterns"`
}

// Adjustment is an advisory confidence nudge derived from the trail.
type Adjustment struct {
	Adjusted string   `json:"adjusted_confidence"`
	Delta    int      `json:"adjustment"`
	Reasons  []string `json:"reasons,omitempty"`
}

// TrendingEntity is one row of a cross-channel trending report.
type TrendingEntity struct {
	Kind     EntityKind `json:"kind"`
	Name     string     `json:"name"`
	Mentions int        `json:"mentions"`
	Channels int        `json:"channels"`
}

// ProjectContext is the cross-channel view for one declared project.
type ProjectContext struct {
	Channels         []string         `json:"channels"`
	TrendingEntities []TrendingEntity `json:"trending_entities,omitempty"`
	TaskDistribution map[string]int   `json:"task_distribution,omitempty"`
	TotalTasks       int              `json:"total_tasks"`
}

// Enriched is the per-message context bundle returned by ProcessMessage.
type Enriched struct {
	ThreadID      string                `json:"thread_id"`
	ThreadTopic   string                `json:"thread_topic,omitempty"`
	ThreadStarted bool                  `json:"thread_started"`
	MessageCount  int                   `json:"message_count"`
	Entities      Entities              `json:"entities"`
	Resolved      map[string]FocusEntry `json:"resolved,omitempty"`
	Focus         []FocusEntry          `json:"focus,omitempty"`
	Decision      *Decision             `json:"decision,omitempty"`
	Time          TimeContext           `json:"time"`
	Attention     Attention             `json:"attention"`
}

// ContextOptions controls FormattedContext rendering.
type ContextOptions struct {
	MaxMessages      int  // 0 means default (5)
	IncludeDecisions bool
	IncludeFocus     bool
}
