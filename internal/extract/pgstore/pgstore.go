// Package pgstore provides a PostgreSQL implementation of extract.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/scribe/internal/extract"
)

var tracer = otel.Tracer("github.com/linnemanlabs/scribe/internal/extract/pgstore")

//go:embed schema.sql
var schema string

// Store persists extraction records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store over the given pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const recordColumns = `id, fingerprint, channel_id, thread_id, message_id, status, message, username,
	title, description, priority, assignee, labels, confidence, adjusted_confidence, adjust_reasons,
	trail_id, tracker_ref, failure, model, created_at, completed_at, duration_s, tokens_in, tokens_out`

// Get retrieves an extraction record by ID.
//
//nolint:dupl // similar structure to GetByFingerprint is intentional
func (s *Store) Get(ctx context.Context, id string) (*extract.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + recordColumns + ` FROM extraction_records WHERE id = $1`
	r, err := scanRecordRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetByFingerprint retrieves the most recent extraction record for a message
// fingerprint.
//
//nolint:dupl // similar structure to Get is intentional
func (s *Store) GetByFingerprint(ctx context.Context, fingerprint string) (*extract.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetByFingerprint", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + recordColumns + ` FROM extraction_records WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := scanRecordRow(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates an extraction record (upsert on id).
func (s *Store) Put(ctx context.Context, r *extract.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	labelsJSON, err := json.Marshal(r.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	reasonsJSON, err := json.Marshal(r.AdjustReasons)
	if err != nil {
		return fmt.Errorf("marshal adjust reasons: %w", err)
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO extraction_records (
		id, fingerprint, channel_id, thread_id, message_id, status, message, username,
		title, description, priority, assignee, labels, confidence, adjusted_confidence, adjust_reasons,
		trail_id, tracker_ref, failure, model, created_at, completed_at, duration_s, tokens_in, tokens_out
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
	ON CONFLICT (id) DO UPDATE SET
		fingerprint         = EXCLUDED.fingerprint,
		channel_id          = EXCLUDED.channel_id,
		thread_id           = EXCLUDED.thread_id,
		message_id          = EXCLUDED.message_id,
		status              = EXCLUDED.status,
		message             = EXCLUDED.message,
		username            = EXCLUDED.username,
		title               = EXCLUDED.title,
		description         = EXCLUDED.description,
		priority            = EXCLUDED.priority,
		assignee            = EXCLUDED.assignee,
		labels              = EXCLUDED.labels,
		confidence          = EXCLUDED.confidence,
		adjusted_confidence = EXCLUDED.adjusted_confidence,
		adjust_reasons      = EXCLUDED.adjust_reasons,
		trail_id            = EXCLUDED.trail_id,
		tracker_ref         = EXCLUDED.tracker_ref,
		failure             = EXCLUDED.failure,
		model               = EXCLUDED.model,
		completed_at        = EXCLUDED.completed_at,
		duration_s          = EXCLUDED.duration_s,
		tokens_in           = EXCLUDED.tokens_in,
		tokens_out          = EXCLUDED.tokens_out`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Fingerprint, r.ChannelID, r.ThreadID, r.MessageID, string(r.Status), r.Message, r.Username,
		r.Title, r.Description, r.Priority, r.Assignee, labelsJSON, r.Confidence, r.AdjustedConfidence, reasonsJSON,
		r.TrailID, r.TrackerRef, r.Failure, r.Model, r.CreatedAt, completedAt, r.Duration, r.TokensIn, r.TokensOut,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// scanRecordRow scans a single row into an extract.Record.
// Returns (nil, nil) when no row is found.
func scanRecordRow(row pgx.Row) (*extract.Record, error) {
	var (
		r           extract.Record
		status      string
		labelsJSON  []byte
		reasonsJSON []byte
		completedAt *time.Time
	)

	err := row.Scan(
		&r.ID, &r.Fingerprint, &r.ChannelID, &r.ThreadID, &r.MessageID, &status, &r.Message, &r.Username,
		&r.Title, &r.Description, &r.Priority, &r.Assignee, &labelsJSON, &r.Confidence, &r.AdjustedConfidence, &reasonsJSON,
		&r.TrailID, &r.TrackerRef, &r.Failure, &r.Model, &r.CreatedAt, &completedAt, &r.Duration, &r.TokensIn, &r.TokensOut,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = extract.Status(status)

	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	if err := json.Unmarshal(labelsJSON, &r.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if err := json.Unmarshal(reasonsJSON, &r.AdjustReasons); err != nil {
		return nil, fmt.Errorf("unmarshal adjust reasons: %w", err)
	}

	return &r, nil
}
