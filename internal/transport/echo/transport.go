// Package echo provides a testing transport that streams back the input
// messages. It implements the domain.CompletionTransport interface without
// making external calls, producing deterministic chunks for tests and local
// development.
package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberhq/streamline/internal/domain"
	"github.com/emberhq/streamline/internal/observability"
)

const (
	transportName = "echo"
	chunkDelay    = 10 * time.Millisecond

	reasoningPreamble = "echoing the conversation back "
)

// Transport implements the domain.CompletionTransport interface for echo
// testing.
type Transport struct {
	name string

	// WithReasoning prepends reasoning-delta chunks before the content, the
	// way a reasoning model would.
	WithReasoning bool
}

// NewTransport creates a new echo transport.
// No configuration is required as this transport operates entirely in-memory.
func NewTransport() *Transport {
	return &Transport{name: transportName}
}

// Stream sends a completion request and returns a stream of echo chunks,
// terminated by a usage chunk.
func (t *Transport) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("streaming echo request")

	echoContent := buildEchoContent(req.Messages)
	words := splitWords(echoContent)

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)

		if t.WithReasoning {
			for _, word := range splitWords(reasoningPreamble) {
				reasoning := word
				if !send(ctx, chunks, domain.StreamChunk{Reasoning: &reasoning}) {
					return
				}
			}
		}

		for i, word := range words {
			content := word
			chunk := domain.StreamChunk{Content: &content}
			if i == 0 {
				chunk.Role = domain.RoleAssistant
			}
			if !send(ctx, chunks, chunk) {
				return
			}
			time.Sleep(chunkDelay)
		}

		// Terminal usage chunk, mirroring stream_options.include_usage.
		promptTokens := countTokens(echoContent)
		completionTokens := len(words)
		send(ctx, chunks, domain.StreamChunk{
			Usage: &domain.Usage{
				PromptTokens:     promptTokens,
				CompletionTokens: &completionTokens,
				TotalTokens:      promptTokens + completionTokens,
			},
		})
	}()

	return chunks, nil
}

// Complete sends a non-streaming completion request. Always reachable.
func (t *Transport) Complete(_ context.Context, req *domain.CompletionRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	return nil
}

// Name returns the transport identifier.
func (t *Transport) Name() string {
	return t.name
}

func send(ctx context.Context, chunks chan<- domain.StreamChunk, chunk domain.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildEchoContent constructs the echo response from request messages.
func buildEchoContent(messages []domain.Message) string {
	if len(messages) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, msg.Content))
	}
	return builder.String()
}

// splitWords breaks content into word deltas, keeping separators so the
// concatenation round-trips.
func splitWords(content string) []string {
	fields := strings.Fields(content)
	words := make([]string, 0, len(fields))
	for i, field := range fields {
		if i < len(fields)-1 {
			field += " "
		}
		words = append(words, field)
	}
	return words
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
