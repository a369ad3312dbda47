package extract

import "time"

// Status tracks where an extraction is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means finished with errors
	StatusFailed Status = "failed"

	// StatusSkipped means the message was judged not actionable
	StatusSkipped Status = "skipped"
)

// Record is the outcome of an extraction run: one chat message turned into a
// task candidate, possibly filed with an issue tracker.
type Record struct {
	ID                 string    `json:"id"`
	Fingerprint        string    `json:"fingerprint"`
	ChannelID          string    `json:"channel_id"`
	ThreadID           string    `json:"thread_id,omitempty"`
	MessageID          string    `json:"message_id,omitempty"`
	Status             Status    `json:"status"`
	Message            string    `json:"message"`
	Username           string    `json:"username"`
	Title              string    `json:"title,omitempty"`
	Description        string    `json:"description,omitempty"`
	Priority           string    `json:"priority,omitempty"`
	Assignee           string    `json:"assignee,omitempty"`
	Labels             []string  `json:"labels,omitempty"`
	Confidence         string    `json:"confidence,omitempty"`
	AdjustedConfidence string    `json:"adjusted_confidence,omitempty"`
	AdjustReasons      []string  `json:"adjust_reasons,omitempty"`
	TrailID            string    `json:"trail_id,omitempty"`
	TrackerRef         string    `json:"tracker_ref,omitempty"`
	Failure            string    `json:"failure,omitempty"`
	Model              string    `json:"model,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	CompletedAt        time.Time `json:"completed_at,omitempty"`
	Duration           float64   `json:"duration_seconds,omitempty"`
	TokensIn           int       `json:"tokens_in,omitempty"`
	TokensOut          int       `json:"tokens_out,omitempty"`
}
