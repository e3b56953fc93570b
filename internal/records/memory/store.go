// Package memory provides an in-memory venue.RecordStore for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// Store keeps record fields in a map.
type Store struct {
	mu      sync.RWMutex
	records map[string]map[string]string
	writes  int
	// FailWrites makes every write fail with venue.ErrStoreWrite.
	FailWrites bool
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]map[string]string)}
}

// Seed replaces the fields of a record.
func (s *Store) Seed(recordID string, fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordID] = maps.Clone(fields)
}

// WriteFields merges fields into the record, creating it when absent.
func (s *Store) WriteFields(_ context.Context, recordID string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return fmt.Errorf("record %s: %w", recordID, venue.ErrStoreWrite)
	}
	rec, ok := s.records[recordID]
	if !ok {
		rec = make(map[string]string, len(fields))
		s.records[recordID] = rec
	}
	maps.Copy(rec, fields)
	s.writes++
	return nil
}

// ReadFields returns a copy of the record fields.
func (s *Store) ReadFields(_ context.Context, recordID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", recordID, venue.ErrNotFound)
	}
	return maps.Clone(rec), nil
}

// Writes returns the number of successful writes.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
