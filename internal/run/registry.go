// Package run tracks in-flight completion runs so a caller outside the
// stream loop (for example a user-triggered stop action) can cancel them.
package run

import (
	"errors"
	"fmt"
	"sync"

	"github.com/emberhq/streamline/internal/domain"
)

// Registry maps user/conversation pairs to the stop signals of their
// in-flight runs. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*domain.StopSignal
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:   sync.RWMutex{},
		runs: make(map[string]*domain.StopSignal),
	}
}

// runKey builds the unique key for a run.
func runKey(userID, conversationID string) string {
	return fmt.Sprintf("%s:%s", userID, conversationID)
}

// Register creates and tracks a fresh stop signal for the given run. A new
// run for the same key replaces the previous entry, so a stale signal from
// an earlier run can never cancel a later one.
func (r *Registry) Register(userID, conversationID string) (*domain.StopSignal, error) {
	if userID == "" || conversationID == "" {
		return nil, errors.New("user and conversation IDs cannot be empty")
	}

	signal := domain.NewStopSignal()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[runKey(userID, conversationID)] = signal
	return signal, nil
}

// Unregister removes the run once it finishes. Unknown keys are ignored.
func (r *Registry) Unregister(userID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.runs, runKey(userID, conversationID))
}

// Stop sets the stop signal of the given run. Reports false when no run is
// registered under the key.
func (r *Registry) Stop(userID, conversationID string) bool {
	r.mu.RLock()
	signal, exists := r.runs[runKey(userID, conversationID)]
	r.mu.RUnlock()

	if !exists {
		return false
	}

	signal.Set()
	return true
}

// Active returns the number of tracked runs.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.runs)
}
