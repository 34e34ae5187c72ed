package domain

import "errors"

// Default sampling parameters applied when the builder is not given any.
const (
	DefaultTemperature = 0.2
	DefaultTopP        = 0.95
)

// RequestBuilder assembles an immutable CompletionRequest from conversation
// history, sampling parameters and optional tool/stop directives. The builder
// copies every slice it is handed, so callers may reuse or mutate their own
// slices after Build. Sampling values are carried through unchanged; range
// validation is the upstream service's concern.
type RequestBuilder struct {
	req CompletionRequest
}

// NewRequest starts a builder for the given model with default sampling
// parameters.
func NewRequest(model string) *RequestBuilder {
	return &RequestBuilder{
		req: CompletionRequest{
			Model:       model,
			Temperature: DefaultTemperature,
			TopP:        DefaultTopP,
		},
	}
}

// WithMessages sets the ordered conversation history.
func (b *RequestBuilder) WithMessages(messages ...Message) *RequestBuilder {
	b.req.Messages = append([]Message(nil), messages...)
	return b
}

// WithSampling sets temperature and top-p.
func (b *RequestBuilder) WithSampling(temperature, topP float64) *RequestBuilder {
	b.req.Temperature = temperature
	b.req.TopP = topP
	return b
}

// WithMaxTokens caps the completion length.
func (b *RequestBuilder) WithMaxTokens(maxTokens int) *RequestBuilder {
	b.req.MaxTokens = maxTokens
	return b
}

// WithStopSequences sets sequences at which generation stops.
func (b *RequestBuilder) WithStopSequences(sequences ...string) *RequestBuilder {
	b.req.StopSequences = append([]string(nil), sequences...)
	return b
}

// WithTools sets the tool definitions the model may call.
func (b *RequestBuilder) WithTools(tools ...ToolDefinition) *RequestBuilder {
	b.req.Tools = append([]ToolDefinition(nil), tools...)
	return b
}

// Build finalizes the request. The returned value is independent of the
// builder and of any slices passed to the With methods.
func (b *RequestBuilder) Build() (*CompletionRequest, error) {
	if b.req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(b.req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	req := b.req
	return &req, nil
}
