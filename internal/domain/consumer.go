package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberhq/streamline/internal/observability"
)

// Monitoring event names emitted during stream consumption.
const (
	EventCompletionStarted  = "completion_started"
	EventCompletionFinished = "completion_finished"
	EventModelStopped       = "model_stopped"
	EventErrorOccurred      = "error_occurred"
	EventFirstToken         = "first_token_received"
)

// stopReason is the attribute value attached to a model_stopped event.
const stopReason = "stop_event_set"

// RunOptions carries the optional per-invocation collaborators. Every field
// may be left nil.
type RunOptions struct {
	// Stop is polled once per received chunk; when set, the loop aborts with
	// ErrInterrupted. A nil signal makes the invocation non-cancellable.
	Stop *StopSignal

	// Observer receives deltas incrementally. Nil means discard.
	Observer StreamObserver

	// Metrics receives first-token latency, token counts and usage. Nil
	// means discard.
	Metrics MetricsRecorder
}

// Consumer drives one streaming chat completion against a transport,
// accumulating deltas into a final result. It holds no per-invocation state;
// a single Consumer may serve concurrent invocations, each of which owns its
// own accumulator exclusively.
type Consumer struct {
	transport CompletionTransport
	events    EventPublisher
}

// NewConsumer creates a consumer over the given transport (DI constructor).
func NewConsumer(transport CompletionTransport, events EventPublisher) *Consumer {
	return &Consumer{
		transport: transport,
		events:    events,
	}
}

// accumulator is the mutable per-invocation state. Owned exclusively by the
// consuming goroutine for the lifetime of one Run call, then handed to the
// finalizer read-only.
type accumulator struct {
	chunks     []StreamChunk
	tokens     []string
	role       string
	firstToken bool
	startTime  time.Time
}

// Run submits the request with streaming enabled and consumes the chunk
// stream until exhaustion, cancellation or a transport fault.
//
// On success it returns the aggregated result. On failure the partial output
// is discarded: callers wanting partial-result recovery must capture deltas
// through opts.Observer. Faults are recorded as monitoring events before
// being returned; the consumer never retries.
func (c *Consumer) Run(ctx context.Context, req *CompletionRequest, opts RunOptions) (*CompletionResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}

	logger := observability.FromContext(ctx)

	c.publish(ctx, EventCompletionStarted, map[string]interface{}{
		"model":         req.Model,
		"temperature":   req.Temperature,
		"top_p":         req.TopP,
		"message_count": len(req.Messages),
	})

	chunks, err := c.transport.Stream(ctx, req)
	if err != nil {
		c.publishError(ctx, err)
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	acc := &accumulator{startTime: time.Now()}

	// Prime the observer so reasoning output renders distinctly from the
	// final answer.
	observer.SetMode(ModeThinking)

	// A signal set before the first chunk must still abort.
	if opts.Stop != nil && opts.Stop.IsSet() {
		return nil, c.interrupted(ctx)
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			c.publishError(ctx, chunk.Err)
			return nil, ClassifyStreamError(chunk.Err)
		}

		if chunk.Reasoning != nil {
			observer.OnReasoning(*chunk.Reasoning)
			if !acc.firstToken && *chunk.Reasoning != "" {
				metrics.RecordFirstToken()
				acc.firstToken = true
			}
		}

		if chunk.Content != nil {
			if !acc.firstToken && *chunk.Content != "" {
				metrics.RecordFirstToken()
				acc.firstToken = true
			}
			metrics.RecordToken(*chunk.Content)
			observer.OnContent(*chunk.Content)
			acc.tokens = append(acc.tokens, *chunk.Content)
			if acc.role == "" && chunk.Role != "" {
				acc.role = chunk.Role
			}
		}

		// Full chunk history is kept to recover usage from the terminal
		// chunk during finalization.
		acc.chunks = append(acc.chunks, chunk)

		if opts.Stop != nil && opts.Stop.IsSet() {
			return nil, c.interrupted(ctx)
		}
	}

	// The transport may hold back trailing partial tokens; release them
	// before finalizing.
	observer.Flush()

	result := c.finalize(acc)
	metrics.RecordCompletion(result.InputTokens, result.OutputTokens)

	totalDuration := time.Since(acc.startTime)
	c.publish(ctx, EventCompletionFinished, map[string]interface{}{
		"total_duration": totalDuration.Seconds(),
		"output_length":  len(result.Content),
		"chunk_count":    len(acc.chunks),
	})

	logger.Debug("completion stream finished",
		observability.String("model", req.Model),
		observability.Duration("duration", totalDuration),
		observability.Int("chunk_count", len(acc.chunks)),
	)

	return result, nil
}

// finalize assembles the result from a completed accumulator.
func (c *Consumer) finalize(acc *accumulator) *CompletionResult {
	role := acc.role
	if role == "" {
		// No chunk carried an explicit role.
		role = RoleAssistant
	}

	result := &CompletionResult{
		Role:    role,
		Content: strings.Join(acc.tokens, ""),
		Chunks:  acc.chunks,
	}

	// Best-effort usage extraction off the terminal chunk. Absence of usage
	// data is not an error; both counts stay zero.
	if len(acc.chunks) > 0 {
		if usage := acc.chunks[len(acc.chunks)-1].Usage; usage != nil {
			result.InputTokens = usage.PromptTokens
			if usage.CompletionTokens != nil {
				result.OutputTokens = *usage.CompletionTokens
			} else {
				result.OutputTokens = usage.TotalTokens
			}
		}
	}

	return result
}

// interrupted reports the cooperative cancellation and returns the typed
// error. Never swallowed, never retried.
func (c *Consumer) interrupted(ctx context.Context) error {
	c.publish(ctx, EventModelStopped, map[string]interface{}{
		"reason": stopReason,
	})
	return ErrInterrupted
}

// publishError records a consumption fault as a monitoring event before the
// fault is surfaced to the caller.
func (c *Consumer) publishError(ctx context.Context, err error) {
	c.publish(ctx, EventErrorOccurred, map[string]interface{}{
		"error_type":    fmt.Sprintf("%T", err),
		"error_message": err.Error(),
	})
}

func (c *Consumer) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if c.events == nil {
		return
	}
	c.events.Publish(ctx, eventType, data)
}
