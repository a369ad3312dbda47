package extract

import "context"

// Store is the persistence interface for extraction records.
type Store interface {
	Get(ctx context.Context, id string) (*Record, bool, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Record, bool, error)
	Put(ctx context.Context, r *Record) error
}

// Notifier delivers a completed extraction record to a human channel.
type Notifier interface {
	Send(ctx context.Context, r *Record) error
}
