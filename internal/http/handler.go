package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/emberhq/streamline/internal/domain"
	"github.com/emberhq/streamline/internal/health"
	"github.com/emberhq/streamline/internal/metrics"
	"github.com/emberhq/streamline/internal/observability"
	"github.com/emberhq/streamline/internal/run"
)

// Handler handles HTTP requests.
type Handler struct {
	consumer *domain.Consumer
	events   domain.EventPublisher
	runs     *run.Registry
	health   *health.Service
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	consumer *domain.Consumer,
	events domain.EventPublisher,
	runs *run.Registry,
	healthService *health.Service,
) *Handler {
	return &Handler{
		consumer: consumer,
		events:   events,
		runs:     runs,
		health:   healthService,
	}
}

// chatRequest is the wire form of a chat call.
type chatRequest struct {
	Model          string                  `json:"model"`
	Messages       []domain.Message        `json:"messages"`
	Temperature    *float64                `json:"temperature,omitempty"`
	TopP           *float64                `json:"top_p,omitempty"`
	MaxTokens      int                     `json:"max_tokens,omitempty"`
	Stop           []string                `json:"stop,omitempty"`
	Tools          []domain.ToolDefinition `json:"tools,omitempty"`
	Stream         bool                    `json:"stream,omitempty"`
	ConversationID string                  `json:"conversation_id,omitempty"`
	UserID         string                  `json:"user_id,omitempty"`
}

// stopRequest identifies the run to cancel.
type stopRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// HandleChat processes chat completion requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Early validation.
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	builder := domain.NewRequest(body.Model).
		WithMessages(body.Messages...).
		WithMaxTokens(body.MaxTokens).
		WithStopSequences(body.Stop...).
		WithTools(body.Tools...)
	if body.Temperature != nil || body.TopP != nil {
		temperature, topP := domain.DefaultTemperature, domain.DefaultTopP
		if body.Temperature != nil {
			temperature = *body.Temperature
		}
		if body.TopP != nil {
			topP = *body.TopP
		}
		builder = builder.WithSampling(temperature, topP)
	}

	req, err := builder.Build()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Inject identifiers into context for downstream logging.
	ctx = observability.WithModel(ctx, req.Model)
	if body.ConversationID != "" {
		ctx = observability.WithConversationID(ctx, body.ConversationID)
	}
	if body.UserID != "" {
		ctx = observability.WithUserID(ctx, body.UserID)
	}

	logger := observability.FromContext(ctx)
	logger.Info("chat request received",
		observability.String("model", req.Model),
		observability.Int("message_count", len(req.Messages)),
		observability.Bool("stream", body.Stream),
	)

	// Track the run so a stop action can cancel it mid-stream.
	opts := domain.RunOptions{
		Metrics: metrics.NewTracker(ctx, req.Model, h.events),
	}
	if body.ConversationID != "" && body.UserID != "" {
		signal, regErr := h.runs.Register(body.UserID, body.ConversationID)
		if regErr != nil {
			http.Error(w, regErr.Error(), http.StatusBadRequest)
			return
		}
		defer h.runs.Unregister(body.UserID, body.ConversationID)
		opts.Stop = signal
	}

	if body.Stream {
		h.handleStream(ctx, w, req, opts)
		return
	}

	result, err := h.consumer.Run(ctx, req, opts)
	if err != nil {
		logger.Error("chat completion failed", observability.Error(err))
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	logger.Info("chat completion succeeded",
		observability.Int("input_tokens", result.InputTokens),
		observability.Int("output_tokens", result.OutputTokens),
	)

	w.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(w).Encode(result); encodeErr != nil {
		logger.Error("failed to encode response", observability.Error(encodeErr))
		http.Error(w, fmt.Sprintf("failed to encode response: %v", encodeErr), http.StatusInternalServerError)
	}
}

func (h *Handler) handleStream(
	ctx context.Context,
	w http.ResponseWriter,
	req *domain.CompletionRequest,
	opts domain.RunOptions,
) {
	logger := observability.FromContext(ctx)
	logger.Info("stream request started")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	opts.Observer = &sseObserver{w: w, flusher: flusher}

	result, err := h.consumer.Run(ctx, req, opts)
	if err != nil {
		logger.Error("stream failed", observability.Error(err))
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
		flusher.Flush()
		return
	}

	// Terminal event carrying the aggregated result.
	data, _ := json.Marshal(result)
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", string(data))
	flusher.Flush()

	logger.Info("stream completed")
}

// HandleStop cancels an in-flight run.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body stopRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	logger := observability.FromContext(r.Context())

	if !h.runs.Stop(body.UserID, body.ConversationID) {
		logger.Info("no active run to stop",
			observability.String("conversation_id", body.ConversationID),
		)
		http.Error(w, "no active run for conversation", http.StatusNotFound)
		return
	}

	logger.Info("run stop requested",
		observability.String("conversation_id", body.ConversationID),
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "stopping"})
}

// HandleModelHealth probes a model's connectivity, or returns the last known
// status when ?cached=true.
func (h *Handler) HandleModelHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	model := r.URL.Query().Get("model")
	if model == "" {
		http.Error(w, "model query parameter is required", http.StatusBadRequest)
		return
	}

	ctx = observability.WithModel(ctx, model)

	var status health.Status
	if r.URL.Query().Get("cached") == "true" {
		known, err := h.health.LastKnown(ctx, model)
		if err != nil {
			http.Error(w, "no recorded status for model", http.StatusNotFound)
			return
		}
		status = *known
	} else {
		status = h.health.Check(ctx, model)
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Available() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// HandleHealth handles service liveness requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

// statusForError maps consumer errors to HTTP status codes.
func statusForError(err error) int {
	var tokenLimit *domain.TokenLimitError

	switch {
	case errors.Is(err, domain.ErrInterrupted):
		return http.StatusConflict
	case errors.As(err, &tokenLimit):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}

// sseObserver streams deltas to the client as server-sent events.
type sseObserver struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (o *sseObserver) SetMode(mode domain.OutputMode) {
	fmt.Fprintf(o.w, "event: mode\ndata: %s\n\n", mode)
	o.flusher.Flush()
}

func (o *sseObserver) OnReasoning(delta string) {
	o.emit("reasoning", delta)
}

func (o *sseObserver) OnContent(delta string) {
	o.emit("content", delta)
}

func (o *sseObserver) Flush() {
	fmt.Fprint(o.w, "event: flush\ndata: {}\n\n")
	o.flusher.Flush()
}

func (o *sseObserver) emit(event, delta string) {
	data, _ := json.Marshal(map[string]string{"delta": delta})
	fmt.Fprintf(o.w, "event: %s\ndata: %s\n\n", event, string(data))
	o.flusher.Flush()
}
