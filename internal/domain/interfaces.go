package domain

import "context"

// CompletionTransport is the lower-level client the consumer drives. It owns
// HTTP framing and wire decoding; the consumer only sees StreamChunk values.
type CompletionTransport interface {
	// Stream submits the request with streaming enabled and returns a channel
	// of chunks. The channel is closed on end-of-stream; transport faults are
	// delivered as a final chunk with Err set.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error)

	// Complete submits the request without streaming and discards the
	// response body. Used by the connectivity probe.
	Complete(ctx context.Context, req *CompletionRequest) error

	// Name returns the transport identifier.
	Name() string
}

// OutputMode tells an observer how the deltas it is about to receive should
// be rendered.
type OutputMode string

// Observer output modes.
const (
	ModeThinking OutputMode = "thinking"
	ModeAnswer   OutputMode = "answer"
)

// StreamObserver receives deltas as they arrive so a caller can render
// partial output incrementally. Callbacks are invoked from the consumer's
// goroutine, in arrival order. Flush is called once on normal exhaustion to
// release anything the observer buffered.
type StreamObserver interface {
	SetMode(mode OutputMode)
	OnReasoning(delta string)
	OnContent(delta string)
	Flush()
}

// NopObserver discards everything. Used when a caller does not care about
// incremental output.
type NopObserver struct{}

func (NopObserver) SetMode(OutputMode) {}
func (NopObserver) OnReasoning(string) {}
func (NopObserver) OnContent(string)   {}
func (NopObserver) Flush()             {}

// MetricsRecorder collects per-invocation streaming metrics. Passed
// explicitly at call time; recording never fails and never blocks the
// stream loop.
type MetricsRecorder interface {
	// RecordFirstToken marks time-to-first-token. Idempotent: only the first
	// call per invocation has an effect.
	RecordFirstToken()

	// RecordToken counts one generated content token.
	RecordToken(token string)

	// RecordCompletion records final token usage and closes out duration.
	RecordCompletion(inputTokens, outputTokens int)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordFirstToken()         {}
func (NopMetrics) RecordToken(string)        {}
func (NopMetrics) RecordCompletion(_, _ int) {}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
