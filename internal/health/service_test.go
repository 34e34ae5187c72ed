package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberhq/streamline/internal/health"
)

// mockProber is a mock implementation of Prober for testing.
type mockProber struct {
	available bool
	calls     int
}

func (m *mockProber) CheckConnectivity(_ context.Context, _ string, _ time.Duration) bool {
	m.calls++
	return m.available
}

// mockStore is an in-memory Store for testing.
type mockStore struct {
	statuses map[string]health.Status
	setErr   error
}

func newMockStore() *mockStore {
	return &mockStore{statuses: make(map[string]health.Status)}
}

func (m *mockStore) Set(_ context.Context, status health.Status) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.statuses[status.Model] = status
	return nil
}

func (m *mockStore) Get(_ context.Context, model string) (*health.Status, error) {
	status, exists := m.statuses[model]
	if !exists {
		return nil, health.ErrStatusNotFound
	}
	return &status, nil
}

func TestService_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("should record an available model", func(t *testing.T) {
		store := newMockStore()
		service := health.NewService(&mockProber{available: true}, store, time.Second)

		status := service.Check(ctx, "gpt-4")

		require.True(t, status.Available())
		require.Equal(t, "gpt-4", status.Model)
		require.False(t, status.CheckedAt.IsZero())

		stored, err := store.Get(ctx, "gpt-4")
		require.NoError(t, err)
		require.Equal(t, health.StatusAvailable, stored.Status)
	})

	t.Run("should record an unavailable model without erroring", func(t *testing.T) {
		store := newMockStore()
		service := health.NewService(&mockProber{available: false}, store, time.Second)

		status := service.Check(ctx, "gpt-4")

		require.False(t, status.Available())
		stored, err := store.Get(ctx, "gpt-4")
		require.NoError(t, err)
		require.Equal(t, health.StatusUnavailable, stored.Status)
	})

	t.Run("should still report the probe result when recording fails", func(t *testing.T) {
		store := newMockStore()
		store.setErr = errors.New("redis down")
		service := health.NewService(&mockProber{available: true}, store, time.Second)

		status := service.Check(ctx, "gpt-4")

		require.True(t, status.Available())
	})

	t.Run("should work without a store", func(t *testing.T) {
		service := health.NewService(&mockProber{available: true}, nil, time.Second)

		require.True(t, service.Check(ctx, "gpt-4").Available())
	})
}

func TestService_LastKnown(t *testing.T) {
	ctx := context.Background()

	t.Run("should return the recorded status without probing", func(t *testing.T) {
		prober := &mockProber{available: true}
		store := newMockStore()
		service := health.NewService(prober, store, time.Second)

		service.Check(ctx, "gpt-4")
		probeCalls := prober.calls

		status, err := service.LastKnown(ctx, "gpt-4")

		require.NoError(t, err)
		require.True(t, status.Available())
		require.Equal(t, probeCalls, prober.calls)
	})

	t.Run("should miss for unknown models", func(t *testing.T) {
		service := health.NewService(&mockProber{}, newMockStore(), time.Second)

		_, err := service.LastKnown(ctx, "never-checked")

		require.ErrorIs(t, err, health.ErrStatusNotFound)
	})

	t.Run("should miss without a store", func(t *testing.T) {
		service := health.NewService(&mockProber{}, nil, time.Second)

		_, err := service.LastKnown(ctx, "gpt-4")

		require.ErrorIs(t, err, health.ErrStatusNotFound)
	})
}
