package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/scribe/internal/chat"
	"github.com/linnemanlabs/scribe/internal/convo"
	"github.com/linnemanlabs/scribe/internal/tracker"
)

// originWindow is how many trailing thread messages get attached to a
// task's origin record.
const originWindow = 5

// SubmitResult is the outcome of submitting a message for extraction.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Service is the business boundary for extraction operations: it owns the
// attention gate, dedup, lifecycle, and the post-extraction side effects
// (tracker filing, origin linking, notification, confidence trail).
type Service struct {
	store        Store
	engine       *Engine
	convo        *convo.Engine
	trackers     *tracker.Registry
	trackerName  string
	notifier     Notifier
	minAttention int
	logger       log.Logger
	metrics      *Metrics
}

// NewService creates a new extraction service. trackers and notifier may be
// nil; metrics may be nil in tests.
func NewService(store Store, engine *Engine, convoEngine *convo.Engine, trackers *tracker.Registry, trackerName string, notifier Notifier, minAttention int, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:        store,
		engine:       engine,
		convo:        convoEngine,
		trackers:     trackers,
		trackerName:  trackerName,
		notifier:     notifier,
		minAttention: minAttention,
		logger:       logger,
		metrics:      metrics,
	}
}

// Submit accepts a processed message for extraction, handling the attention
// gate, dedup, and lifecycle. The extraction itself runs asynchronously.
func (s *Service) Submit(ctx context.Context, msg *chat.Message, enriched *convo.Enriched) (*SubmitResult, error) {
	if enriched.Attention.Score < s.minAttention {
		s.countSubmit("below_threshold")
		return &SubmitResult{Skipped: true, Reason: "below attention threshold"}, nil
	}

	fp := msg.Fingerprint()
	if existing, ok, err := s.store.GetByFingerprint(ctx, fp); err != nil {
		return nil, err
	} else if ok && (existing.Status == StatusPending || existing.Status == StatusInProgress) {
		s.countSubmit("duplicate")
		return &SubmitResult{Skipped: true, Reason: "duplicate"}, nil
	}

	id := ulid.Make().String()
	record := &Record{
		ID:          id,
		Fingerprint: fp,
		ChannelID:   msg.ChannelID,
		ThreadID:    enriched.ThreadID,
		MessageID:   msg.MessageID,
		Status:      StatusPending,
		Message:     msg.Content,
		Username:    msg.Username,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Put(ctx, record); err != nil {
		return nil, err
	}
	s.countSubmit("accepted")

	// kick off async extraction - pass only the ID to avoid sharing the
	// Record pointer.
	m := *msg
	go s.runExtraction(context.WithoutCancel(ctx), id, &m)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves an extraction record by ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, bool, error) {
	return s.store.Get(ctx, id)
}

// Feedback records a human verdict on an extraction onto the confidence
// trail. Returns false when the record is unknown.
func (s *Service) Feedback(ctx context.Context, id, outcome, correction string) (bool, error) {
	switch outcome {
	case "accepted", "rejected", "corrected":
	default:
		return false, fmt.Errorf("invalid outcome %q", outcome)
	}

	record, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}

	if record.TrailID != "" {
		if !s.convo.RecordOutcome(record.TrailID, outcome, correction) {
			s.logger.Warn(ctx, "trail entry evicted before feedback", "extract_id", id, "trail_id", record.TrailID)
		}
	}
	if s.metrics != nil {
		s.metrics.FeedbackTotal.WithLabelValues(outcome).Inc()
	}
	return true, nil
}

func (s *Service) runExtraction(ctx context.Context, id string, msg *chat.Message) {
	L := s.logger.With("extract_id", id, "channel", msg.ChannelID)

	record, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch record for extraction")
		return
	}

	record.Status = StatusInProgress
	if err := s.store.Put(ctx, record); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	rr := s.engine.Run(ctx, id, msg)

	record.Status = rr.Status
	if rr.Status == StatusComplete && !rr.Actionable {
		record.Status = StatusSkipped
	}
	record.Title = rr.Title
	record.Description = rr.Description
	record.Priority = rr.Priority
	record.Assignee = rr.Assignee
	record.Labels = rr.Labels
	record.Confidence = rr.Confidence
	record.AdjustedConfidence = rr.AdjustedConfidence
	record.AdjustReasons = rr.AdjustReasons
	record.Failure = rr.Failure
	record.Model = rr.Model
	record.CompletedAt = rr.CompletedAt
	record.Duration = rr.Duration
	record.TokensIn = rr.TokensIn
	record.TokensOut = rr.TokensOut

	if rr.Status != StatusFailed {
		entry := s.convo.RecordConfidence(msg.Content, convo.ExtractionResult{
			Actionable: rr.Actionable,
			Title:      rr.Title,
			Confidence: rr.AdjustedConfidence,
		}, string(record.Status))
		record.TrailID = entry.ID
	}

	if record.Status == StatusComplete {
		s.fileIssue(ctx, L, record)
		s.linkOrigin(record)
	}

	if err := s.store.Put(ctx, record); err != nil {
		L.Error(ctx, err, "failed to persist extraction record")
	}

	if record.Status == StatusComplete && s.notifier != nil {
		if err := s.notifier.Send(ctx, record); err != nil {
			L.Error(ctx, err, "notification failed")
		}
	}

	L.Info(ctx, "extraction finished",
		"status", record.Status,
		"confidence", record.AdjustedConfidence,
		"tracker_ref", record.TrackerRef,
		"duration", record.Duration,
	)
}

// fileIssue creates a tracker issue for high-confidence extractions.
func (s *Service) fileIssue(ctx context.Context, L log.Logger, record *Record) {
	if s.trackers == nil || record.AdjustedConfidence != "high" {
		return
	}
	tr, ok := s.trackers.Get(s.trackerName)
	if !ok {
		return
	}

	ref, err := tr.CreateIssue(ctx, &tracker.Issue{
		Title:    record.Title,
		Body:     issueBody(record),
		Labels:   record.Labels,
		Assignee: record.Assignee,
	})
	if err != nil {
		L.Error(ctx, err, "tracker create failed", "tracker", tr.Name())
		if s.metrics != nil {
			s.metrics.TrackerCreatesTotal.WithLabelValues(tr.Name(), "error").Inc()
		}
		return
	}

	record.TrackerRef = ref
	if s.metrics != nil {
		s.metrics.TrackerCreatesTotal.WithLabelValues(tr.Name(), "success").Inc()
	}
}

// linkOrigin records the conversational provenance of the extracted task.
func (s *Service) linkOrigin(record *Record) {
	if record.ThreadID == "" {
		return
	}
	msgs := s.convo.ThreadWindow(record.ChannelID, record.ThreadID, originWindow)
	s.convo.LinkTaskToOrigin(record.ID, record.ChannelID, record.ThreadID, msgs)
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

func issueBody(record *Record) string {
	var b strings.Builder
	b.WriteString(record.Description)
	fmt.Fprintf(&b, "\n\n---\nExtracted from a message by %s in channel %s.\n", record.Username, record.ChannelID)
	fmt.Fprintf(&b, "Confidence: %s", record.AdjustedConfidence)
	if len(record.AdjustReasons) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(record.AdjustReasons, "; "))
	}
	return b.String()
}
