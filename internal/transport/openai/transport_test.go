package openai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberhq/streamline/internal/transport/openai"
)

func TestNewTransport_Success(t *testing.T) {
	config := openai.Config{
		APIKey:     "test-api-key",
		BaseURL:    "https://api.openai.com/v1",
		Timeout:    60,
		MaxRetries: 0,
	}

	transport, err := openai.NewTransport(config)

	require.NoError(t, err)
	require.NotNil(t, transport)
	require.Equal(t, "openai", transport.Name())
}

func TestNewTransport_MissingAPIKey(t *testing.T) {
	config := openai.Config{
		APIKey:  "",
		BaseURL: "https://api.openai.com/v1",
	}

	transport, err := openai.NewTransport(config)

	require.Error(t, err)
	require.Nil(t, transport)
	require.Contains(t, err.Error(), "OpenAI API key is required")
}

func TestTransport_Stream_NilRequest(t *testing.T) {
	transport, err := openai.NewTransport(openai.Config{APIKey: "test-key"})
	require.NoError(t, err)

	chunks, err := transport.Stream(context.Background(), nil)

	require.Error(t, err)
	require.Nil(t, chunks)
}

func TestTransport_Complete_NilRequest(t *testing.T) {
	transport, err := openai.NewTransport(openai.Config{APIKey: "test-key"})
	require.NoError(t, err)

	require.Error(t, transport.Complete(context.Background(), nil))
}
