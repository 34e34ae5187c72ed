// Package health runs connectivity probes against the upstream model service
// and keeps the last known result per model.
package health

import (
	"context"
	"time"
)

// Connectivity states stored per model.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
)

// Status is the recorded outcome of one connectivity probe.
type Status struct {
	Model     string    `json:"model"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// Available reports whether the probe succeeded.
func (s Status) Available() bool {
	return s.Status == StatusAvailable
}

// Store persists probe outcomes.
type Store interface {
	// Set records the latest status for a model.
	Set(ctx context.Context, status Status) error

	// Get returns the last recorded status for a model, or ErrStatusNotFound.
	Get(ctx context.Context, model string) (*Status, error)
}

// Prober issues a connectivity probe. Implemented by domain.Consumer.
type Prober interface {
	CheckConnectivity(ctx context.Context, model string, timeout time.Duration) bool
}
