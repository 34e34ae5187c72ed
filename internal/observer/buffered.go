// Package observer provides StreamObserver implementations for callers that
// want to render or capture partial model output while a stream is running.
package observer

import (
	"strings"
	"sync"

	"github.com/emberhq/streamline/internal/domain"
)

// Segment is a contiguous piece of observed output in one mode.
type Segment struct {
	Mode domain.OutputMode
	Text string
}

// Buffered accumulates reasoning and content deltas and releases them as
// segments on Flush. Safe for concurrent use: the consumer goroutine writes
// while a reader drains.
type Buffered struct {
	mu        sync.Mutex
	mode      domain.OutputMode
	reasoning strings.Builder
	content   strings.Builder
	segments  []Segment
}

// NewBuffered creates an empty buffered observer.
func NewBuffered() *Buffered {
	return &Buffered{mode: domain.ModeThinking}
}

// SetMode records how subsequent deltas should be rendered.
func (b *Buffered) SetMode(mode domain.OutputMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mode = mode
}

// OnReasoning appends a reasoning delta to the thinking buffer.
func (b *Buffered) OnReasoning(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reasoning.WriteString(delta)
}

// OnContent appends a content delta to the answer buffer. The first content
// delta flips the observer out of thinking mode.
func (b *Buffered) OnContent(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mode == domain.ModeThinking && delta != "" {
		b.mode = domain.ModeAnswer
	}
	b.content.WriteString(delta)
}

// Flush moves any buffered text into completed segments, reasoning first.
func (b *Buffered) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.reasoning.Len() > 0 {
		b.segments = append(b.segments, Segment{Mode: domain.ModeThinking, Text: b.reasoning.String()})
		b.reasoning.Reset()
	}
	if b.content.Len() > 0 {
		b.segments = append(b.segments, Segment{Mode: domain.ModeAnswer, Text: b.content.String()})
		b.content.Reset()
	}
}

// Segments drains and returns the completed segments.
func (b *Buffered) Segments() []Segment {
	b.mu.Lock()
	defer b.mu.Unlock()

	segments := b.segments
	b.segments = nil
	return segments
}

// Mode returns the current output mode.
func (b *Buffered) Mode() domain.OutputMode {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.mode
}
