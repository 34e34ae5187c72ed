package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberhq/streamline/internal/domain"
	"github.com/emberhq/streamline/internal/health"
	streamhttp "github.com/emberhq/streamline/internal/http"
	"github.com/emberhq/streamline/internal/run"
	"github.com/emberhq/streamline/internal/transport/echo"
)

// faultTransport delivers a single faulty chunk.
type faultTransport struct {
	err error
}

func (f *faultTransport) Stream(_ context.Context, _ *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	out := make(chan domain.StreamChunk, 1)
	out <- domain.StreamChunk{Err: f.err}
	close(out)
	return out, nil
}

func (f *faultTransport) Complete(_ context.Context, _ *domain.CompletionRequest) error {
	return f.err
}

func (f *faultTransport) Name() string {
	return "fault"
}

func newTestHandler(transport domain.CompletionTransport) *streamhttp.Handler {
	consumer := domain.NewConsumer(transport, nil)
	return streamhttp.NewHandler(
		consumer,
		nil,
		run.NewRegistry(),
		health.NewService(consumer, nil, time.Second),
	)
}

func chatBody(t *testing.T, body map[string]any) *bytes.Reader {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestHandleChat(t *testing.T) {
	t.Run("should return the aggregated result", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat", chatBody(t, map[string]any{
			"model":    "echo4",
			"messages": []map[string]string{{"role": "user", "content": "hello world"}},
		}))
		w := httptest.NewRecorder()

		handler.HandleChat(w, req)

		require.Equal(t, nethttp.StatusOK, w.Code)

		var result domain.CompletionResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
		require.Contains(t, result.Content, "hello world")
		require.Equal(t, domain.RoleAssistant, result.Role)
		require.Positive(t, result.OutputTokens)
	})

	t.Run("should stream server-sent events", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat", chatBody(t, map[string]any{
			"model":    "echo4",
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
			"stream":   true,
		}))
		w := httptest.NewRecorder()

		handler.HandleChat(w, req)

		require.Equal(t, nethttp.StatusOK, w.Code)
		require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		body := w.Body.String()
		require.True(t, strings.HasPrefix(body, "event: mode\ndata: thinking\n\n"))
		require.Contains(t, body, "event: content\n")
		require.Contains(t, body, "event: flush\n")
		require.Contains(t, body, "event: done\n")
	})

	t.Run("should reject non-POST requests", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodGet, "/v1/chat", nil)
		w := httptest.NewRecorder()

		handler.HandleChat(w, req)

		require.Equal(t, nethttp.StatusMethodNotAllowed, w.Code)
	})

	t.Run("should reject malformed bodies", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat", strings.NewReader("{not json"))
		w := httptest.NewRecorder()

		handler.HandleChat(w, req)

		require.Equal(t, nethttp.StatusBadRequest, w.Code)
	})

	t.Run("should reject empty histories", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat", chatBody(t, map[string]any{
			"model": "echo4",
		}))
		w := httptest.NewRecorder()

		handler.HandleChat(w, req)

		require.Equal(t, nethttp.StatusBadRequest, w.Code)
	})

	t.Run("should map token limit faults to 413", func(t *testing.T) {
		handler := newTestHandler(&faultTransport{
			err: errors.New("400: context_length_exceeded"),
		})

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat", chatBody(t, map[string]any{
			"model":    "gpt-4",
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		}))
		w := httptest.NewRecorder()

		handler.HandleChat(w, req)

		require.Equal(t, nethttp.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("should map other transport faults to 502", func(t *testing.T) {
		handler := newTestHandler(&faultTransport{
			err: errors.New("connection reset"),
		})

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat", chatBody(t, map[string]any{
			"model":    "gpt-4",
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		}))
		w := httptest.NewRecorder()

		handler.HandleChat(w, req)

		require.Equal(t, nethttp.StatusBadGateway, w.Code)
	})
}

func TestHandleStop(t *testing.T) {
	t.Run("should report 404 when no run is active", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat/stop", chatBody(t, map[string]any{
			"conversation_id": "conv-1",
			"user_id":         "user-1",
		}))
		w := httptest.NewRecorder()

		handler.HandleStop(w, req)

		require.Equal(t, nethttp.StatusNotFound, w.Code)
	})

	t.Run("should set the signal of a registered run", func(t *testing.T) {
		registry := run.NewRegistry()
		consumer := domain.NewConsumer(echo.NewTransport(), nil)
		handler := streamhttp.NewHandler(consumer, nil, registry, health.NewService(consumer, nil, time.Second))

		signal, err := registry.Register("user-1", "conv-1")
		require.NoError(t, err)

		req := httptest.NewRequest(nethttp.MethodPost, "/v1/chat/stop", chatBody(t, map[string]any{
			"conversation_id": "conv-1",
			"user_id":         "user-1",
		}))
		w := httptest.NewRecorder()

		handler.HandleStop(w, req)

		require.Equal(t, nethttp.StatusOK, w.Code)
		require.True(t, signal.IsSet())
	})
}

func TestHandleModelHealth(t *testing.T) {
	t.Run("should probe and report availability", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodGet, "/v1/models/health?model=echo4", nil)
		w := httptest.NewRecorder()

		handler.HandleModelHealth(w, req)

		require.Equal(t, nethttp.StatusOK, w.Code)

		var status health.Status
		require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
		require.True(t, status.Available())
	})

	t.Run("should report 503 for unreachable models", func(t *testing.T) {
		handler := newTestHandler(&faultTransport{err: errors.New("down")})

		req := httptest.NewRequest(nethttp.MethodGet, "/v1/models/health?model=gpt-4", nil)
		w := httptest.NewRecorder()

		handler.HandleModelHealth(w, req)

		require.Equal(t, nethttp.StatusServiceUnavailable, w.Code)
	})

	t.Run("should require a model parameter", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodGet, "/v1/models/health", nil)
		w := httptest.NewRecorder()

		handler.HandleModelHealth(w, req)

		require.Equal(t, nethttp.StatusBadRequest, w.Code)
	})

	t.Run("should miss on cached lookup without a store", func(t *testing.T) {
		handler := newTestHandler(echo.NewTransport())

		req := httptest.NewRequest(nethttp.MethodGet, "/v1/models/health?model=echo4&cached=true", nil)
		w := httptest.NewRecorder()

		handler.HandleModelHealth(w, req)

		require.Equal(t, nethttp.StatusNotFound, w.Code)
	})
}
