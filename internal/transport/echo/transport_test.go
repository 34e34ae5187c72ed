package echo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberhq/streamline/internal/domain"
	"github.com/emberhq/streamline/internal/transport/echo"
)

func collect(t *testing.T, chunks <-chan domain.StreamChunk) []domain.StreamChunk {
	t.Helper()

	var all []domain.StreamChunk
	for chunk := range chunks {
		all = append(all, chunk)
	}
	return all
}

func testEchoRequest(t *testing.T) *domain.CompletionRequest {
	t.Helper()

	req, err := domain.NewRequest("echo4").
		WithMessages(domain.Message{Role: domain.RoleUser, Content: "hello world"}).
		Build()
	require.NoError(t, err)
	return req
}

func TestTransport_Stream(t *testing.T) {
	ctx := context.Background()

	t.Run("should echo the conversation as content chunks", func(t *testing.T) {
		transport := echo.NewTransport()

		chunks, err := transport.Stream(ctx, testEchoRequest(t))
		require.NoError(t, err)

		all := collect(t, chunks)
		require.NotEmpty(t, all)

		var content string
		for _, chunk := range all {
			if chunk.Content != nil {
				content += *chunk.Content
			}
		}
		require.Contains(t, content, "hello world")
	})

	t.Run("should tag the first content chunk with the assistant role", func(t *testing.T) {
		transport := echo.NewTransport()

		chunks, err := transport.Stream(ctx, testEchoRequest(t))
		require.NoError(t, err)

		all := collect(t, chunks)
		require.Equal(t, domain.RoleAssistant, all[0].Role)
	})

	t.Run("should terminate with a usage chunk", func(t *testing.T) {
		transport := echo.NewTransport()

		chunks, err := transport.Stream(ctx, testEchoRequest(t))
		require.NoError(t, err)

		all := collect(t, chunks)
		last := all[len(all)-1]
		require.Nil(t, last.Content)
		require.NotNil(t, last.Usage)
		require.Positive(t, last.Usage.PromptTokens)
		require.NotNil(t, last.Usage.CompletionTokens)
	})

	t.Run("should emit reasoning chunks first when enabled", func(t *testing.T) {
		transport := echo.NewTransport()
		transport.WithReasoning = true

		chunks, err := transport.Stream(ctx, testEchoRequest(t))
		require.NoError(t, err)

		all := collect(t, chunks)
		require.NotNil(t, all[0].Reasoning)
		require.Nil(t, all[0].Content)
	})

	t.Run("should reject nil request", func(t *testing.T) {
		transport := echo.NewTransport()

		_, err := transport.Stream(ctx, nil)
		require.Error(t, err)
	})
}

func TestTransport_RoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("should produce a result the consumer can aggregate", func(t *testing.T) {
		transport := echo.NewTransport()
		consumer := domain.NewConsumer(transport, nil)

		result, err := consumer.Run(ctx, testEchoRequest(t), domain.RunOptions{})

		require.NoError(t, err)
		require.Contains(t, result.Content, "hello world")
		require.Equal(t, domain.RoleAssistant, result.Role)
		require.Positive(t, result.InputTokens)
		require.Positive(t, result.OutputTokens)
	})
}

func TestTransport_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("should always be reachable", func(t *testing.T) {
		transport := echo.NewTransport()

		require.NoError(t, transport.Complete(ctx, testEchoRequest(t)))
	})

	t.Run("should reject nil request", func(t *testing.T) {
		transport := echo.NewTransport()

		require.Error(t, transport.Complete(ctx, nil))
	})
}
