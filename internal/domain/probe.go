package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/emberhq/streamline/internal/observability"
)

const (
	// probeMaxTokens caps the probe completion so the round trip stays cheap.
	probeMaxTokens = 5

	// DefaultProbeTimeout bounds how long a probe waits for the upstream.
	DefaultProbeTimeout = 10 * time.Second
)

// CheckConnectivity verifies the transport can reach the upstream model
// service. It submits a minimal non-streaming request on its own goroutine so
// a slow or hanging upstream never stalls the caller beyond the timeout, and
// always reports a boolean: probe faults (including panics) are logged and
// converted to false, never propagated.
func (c *Consumer) CheckConnectivity(ctx context.Context, model string, timeout time.Duration) bool {
	logger := observability.FromContext(ctx)

	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := NewRequest(model).
		WithMessages(Message{Role: RoleUser, Content: "Hello"}).
		WithMaxTokens(probeMaxTokens).
		Build()
	if err != nil {
		logger.Error("connectivity probe request invalid", observability.Error(err))
		return false
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("transport panicked: %v", r)
			}
		}()
		done <- c.transport.Complete(probeCtx, req)
	}()

	select {
	case err = <-done:
	case <-probeCtx.Done():
		err = probeCtx.Err()
	}

	if err != nil {
		logger.Error("connectivity probe failed",
			observability.String("model", model),
			observability.Error(err),
		)
		return false
	}

	return true
}
