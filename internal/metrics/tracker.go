// Package metrics tracks token-generation metrics for one streaming
// invocation: time-to-first-token, token count, usage and total duration.
package metrics

import (
	"context"
	"time"

	"github.com/emberhq/streamline/internal/domain"
	"github.com/emberhq/streamline/internal/observability"
)

// Tracker implements domain.MetricsRecorder for a single invocation. Create
// one per call; it is owned by the consuming goroutine and needs no locking.
// Fields are write-once: repeated RecordFirstToken calls are no-ops, and
// recording never returns an error.
type Tracker struct {
	ctx    context.Context // invocation-scoped, like a span
	model  string
	events domain.EventPublisher

	startTime    time.Time
	firstTokenAt time.Time
	tokenCount   int
	inputTokens  int
	outputTokens int
	duration     time.Duration
}

// NewTracker starts tracking for one invocation against the given model.
// The context is the invocation's own and carries its trace metadata.
func NewTracker(ctx context.Context, model string, events domain.EventPublisher) *Tracker {
	return &Tracker{
		ctx:       ctx,
		model:     model,
		events:    events,
		startTime: time.Now(),
	}
}

// RecordFirstToken marks the arrival of the first non-empty delta. Only the
// first call per invocation has an effect.
func (t *Tracker) RecordFirstToken() {
	if !t.firstTokenAt.IsZero() {
		return
	}

	t.firstTokenAt = time.Now()

	if t.events != nil {
		t.events.Publish(t.ctx, domain.EventFirstToken, map[string]interface{}{
			"model":        t.model,
			"ttft_seconds": t.firstTokenAt.Sub(t.startTime).Seconds(),
		})
	}
}

// RecordToken counts one generated content token. The first token also
// latches first-token latency in case the caller did not.
func (t *Tracker) RecordToken(_ string) {
	if t.firstTokenAt.IsZero() {
		t.RecordFirstToken()
	}
	t.tokenCount++
}

// RecordCompletion records final usage and closes out the invocation.
func (t *Tracker) RecordCompletion(inputTokens, outputTokens int) {
	t.inputTokens = inputTokens
	t.outputTokens = outputTokens
	t.duration = time.Since(t.startTime)

	generationRate := 0.0
	if t.duration > 0 && t.tokenCount > 0 {
		generationRate = float64(t.tokenCount) / t.duration.Seconds()
	}

	observability.FromContext(t.ctx).Debug("completion metrics",
		observability.String("model", t.model),
		observability.Int("input_tokens", inputTokens),
		observability.Int("output_tokens", outputTokens),
		observability.Int("token_count", t.tokenCount),
		observability.Float64("generation_rate", generationRate),
		observability.Duration("total_duration", t.duration),
	)
}

// TimeToFirstToken returns the recorded first-token latency, or zero when no
// token was observed.
func (t *Tracker) TimeToFirstToken() time.Duration {
	if t.firstTokenAt.IsZero() {
		return 0
	}
	return t.firstTokenAt.Sub(t.startTime)
}

// TokenCount returns the number of content tokens observed.
func (t *Tracker) TokenCount() int {
	return t.tokenCount
}

// Duration returns the total stream duration recorded at completion.
func (t *Tracker) Duration() time.Duration {
	return t.duration
}

// Usage returns the recorded input and output token counts.
func (t *Tracker) Usage() (inputTokens, outputTokens int) {
	return t.inputTokens, t.outputTokens
}
