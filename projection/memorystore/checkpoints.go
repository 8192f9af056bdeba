package memorystore

import (
	"context"
	"sync"

	"github.com/probelab/assesscore/projection"
)

// CheckpointStore is an in-memory projection.CheckpointStore. An unknown
// projector name reads as position 0.
type CheckpointStore struct {
	mu        sync.RWMutex
	positions map[string]uint64
}

// NewCheckpointStore creates an empty in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		positions: make(map[string]uint64),
	}
}

// Checkpoint returns the saved position for the projector, 0 when none exists.
func (s *CheckpointStore) Checkpoint(_ context.Context, projectorName string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.positions[projectorName], nil
}

// SaveCheckpoint stores the position for the projector.
func (s *CheckpointStore) SaveCheckpoint(_ context.Context, projectorName string, sequence uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[projectorName] = sequence

	return nil
}

var _ projection.CheckpointStore = (*CheckpointStore)(nil)
