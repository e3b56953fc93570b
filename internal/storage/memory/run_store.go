package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// RunStore keeps run metadata in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]venue.Run
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]venue.Run)}
}

// CreateRun stores a new run.
func (s *RunStore) CreateRun(_ context.Context, run venue.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return errors.New("run already exists")
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

// UpdateRun replaces a stored run.
func (s *RunStore) UpdateRun(_ context.Context, run venue.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("run %s: %w", run.ID, venue.ErrNotFound)
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (venue.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return venue.Run{}, fmt.Errorf("run %s: %w", runID, venue.ErrNotFound)
	}
	return cloneRun(run), nil
}

func cloneRun(run venue.Run) venue.Run {
	run.Sources = append([]string(nil), run.Sources...)
	run.Request.Listings = append([]venue.Listing(nil), run.Request.Listings...)
	if run.Finished != nil {
		ts := *run.Finished
		run.Finished = &ts
	}
	return run
}
