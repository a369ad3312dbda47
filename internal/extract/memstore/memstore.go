// Package memstore provides an in-memory implementation of extract.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/scribe/internal/extract"
)

// Store holds extraction records in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	records map[string]*extract.Record // record ID -> record
	seen    map[string]string          // message fingerprint -> record ID (dedup)
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		records: make(map[string]*extract.Record),
		seen:    make(map[string]string),
	}
}

// Get retrieves an extraction record by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*extract.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	return copyRecord(r), true, nil
}

// GetByFingerprint retrieves an extraction record by message fingerprint,
// for deduplication. Returns a copy.
func (s *Store) GetByFingerprint(_ context.Context, fp string) (*extract.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	return copyRecord(s.records[id]), true, nil
}

// Put stores a copy of the extraction record.
func (s *Store) Put(_ context.Context, r *extract.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = copyRecord(r)
	s.seen[r.Fingerprint] = r.ID
	return nil
}

func copyRecord(r *extract.Record) *extract.Record {
	cp := *r
	if r.Labels != nil {
		cp.Labels = append([]string(nil), r.Labels...)
	}
	if r.AdjustReasons != nil {
		cp.AdjustReasons = append([]string(nil), r.AdjustReasons...)
	}
	return &cp
}
