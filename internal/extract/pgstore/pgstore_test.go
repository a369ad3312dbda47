package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/scribe/internal/extract"
	"github.com/linnemanlabs/scribe/internal/extract/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("SCRIBE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SCRIBE_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &extract.Record{
		ID:                 "test-put-get-001",
		Fingerprint:        "fp-put-get",
		ChannelID:          "ch-dev",
		ThreadID:           "th-1",
		MessageID:          "m-1",
		Status:             extract.StatusComplete,
		Message:            "we need to fix the importer",
		Username:           "alice",
		Title:              "Fix the importer",
		Description:        "Importer drops rows on malformed input",
		Priority:           "high",
		Assignee:           "bob",
		Labels:             []string{"bug", "importer"},
		Confidence:         "high",
		AdjustedConfidence: "high",
		AdjustReasons:      []string{"urgency messages land high confidence 80% of the time (10 samples)"},
		TrailID:            "trail-1",
		TrackerRef:         "owner/repo#12",
		Model:              "claude-sonnet-4-20250514",
		CreatedAt:          now,
		CompletedAt:        now.Add(2 * time.Second),
		Duration:           2.0,
		TokensIn:           120,
		TokensOut:          40,
	}

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	if got.Status != r.Status {
		t.Errorf("Status = %q, want %q", got.Status, r.Status)
	}
	if got.Title != r.Title || got.Description != r.Description {
		t.Errorf("payload mismatch: %+v", got)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "bug" {
		t.Errorf("Labels = %v", got.Labels)
	}
	if len(got.AdjustReasons) != 1 {
		t.Errorf("AdjustReasons = %v", got.AdjustReasons)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, r.CreatedAt)
	}
	if !got.CompletedAt.Equal(r.CompletedAt) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, r.CompletedAt)
	}
	if got.TokensIn != 120 || got.TokensOut != 40 {
		t.Errorf("tokens = %d/%d", got.TokensIn, got.TokensOut)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "no-such-record")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("ok = true for a missing record")
	}
}

func TestGetByFingerprintNewest(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Microsecond).UTC()
	old := &extract.Record{
		ID:          "test-fp-old",
		Fingerprint: "fp-newest",
		Status:      extract.StatusFailed,
		CreatedAt:   base.Add(-time.Hour),
	}
	newer := &extract.Record{
		ID:          "test-fp-new",
		Fingerprint: "fp-newest",
		Status:      extract.StatusComplete,
		CreatedAt:   base,
	}
	if err := s.Put(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, newer); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.GetByFingerprint(ctx, "fp-newest")
	if err != nil || !ok {
		t.Fatalf("GetByFingerprint: ok=%v err=%v", ok, err)
	}
	if got.ID != "test-fp-new" {
		t.Errorf("ID = %q, want the newest record", got.ID)
	}
}

func TestPutUpserts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	r := &extract.Record{
		ID:          "test-upsert-001",
		Fingerprint: "fp-upsert",
		Status:      extract.StatusPending,
		CreatedAt:   time.Now().Truncate(time.Microsecond).UTC(),
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r.Status = extract.StatusComplete
	r.TrackerRef = "owner/repo#3"
	r.CompletedAt = time.Now().Truncate(time.Microsecond).UTC()
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Status != extract.StatusComplete {
		t.Errorf("Status = %q, want %q", got.Status, extract.StatusComplete)
	}
	if got.TrackerRef != "owner/repo#3" {
		t.Errorf("TrackerRef = %q", got.TrackerRef)
	}
}
