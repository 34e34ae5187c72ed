package health

import (
	"context"
	"time"

	"github.com/emberhq/streamline/internal/observability"
)

// Service runs connectivity probes and records their outcomes. The store is
// optional: with a nil store, Check still probes but LastKnown always misses.
type Service struct {
	prober       Prober
	store        Store
	probeTimeout time.Duration
}

// NewService creates a health service (DI constructor).
func NewService(prober Prober, store Store, probeTimeout time.Duration) *Service {
	return &Service{
		prober:       prober,
		store:        store,
		probeTimeout: probeTimeout,
	}
}

// Check probes the model now, records the outcome and returns it. Probe
// failures surface as an unavailable status, never as an error.
func (s *Service) Check(ctx context.Context, model string) Status {
	logger := observability.FromContext(ctx)

	status := Status{
		Model:     model,
		Status:    StatusUnavailable,
		CheckedAt: time.Now(),
	}
	if s.prober.CheckConnectivity(ctx, model, s.probeTimeout) {
		status.Status = StatusAvailable
	}

	if s.store != nil {
		if err := s.store.Set(ctx, status); err != nil {
			// Recording is best-effort; the probe result still stands.
			logger.Warn("failed to record model status", observability.Error(err))
		}
	}

	logger.Info("model connectivity checked",
		observability.String("model", model),
		observability.String("status", status.Status),
	)

	return status
}

// LastKnown returns the most recently recorded status without probing.
// Reports ErrStatusNotFound when nothing is recorded or no store is
// configured.
func (s *Service) LastKnown(ctx context.Context, model string) (*Status, error) {
	if s.store == nil {
		return nil, ErrStatusNotFound
	}

	return s.store.Get(ctx, model)
}
