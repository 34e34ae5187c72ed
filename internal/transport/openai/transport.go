// Package openai provides the completion transport backed by the official
// OpenAI SDK. It implements the domain.CompletionTransport interface and
// converts SDK stream chunks into domain chunks, including the non-standard
// reasoning_content delta emitted by reasoning models behind
// OpenAI-compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/emberhq/streamline/internal/domain"
	"github.com/emberhq/streamline/internal/observability"
)

// reasoningContentField is the extra delta field carrying reasoning tokens.
// Not part of the official API surface, so the SDK exposes it only as raw
// JSON.
const reasoningContentField = "reasoning_content"

// Transport implements the domain.CompletionTransport interface for
// OpenAI-compatible endpoints.
type Transport struct {
	client openai.Client
	name   string
}

// NewTransport creates a new OpenAI transport.
func NewTransport(config Config) (*Transport, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Transport{
		client: openai.NewClient(opts...),
		name:   "openai",
	}, nil
}

// Stream submits the request with streaming enabled and returns a channel of
// domain chunks. The channel is closed on end-of-stream; stream faults are
// delivered as a final chunk with Err set.
func (t *Transport) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI streaming API")

	params := t.toSDKParams(req)
	// Ask for usage on the terminal chunk so the finalizer can recover it.
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := t.client.Chat.Completions.NewStreaming(ctx, params)

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)
		defer logger.Debug("OpenAI stream completed")

		for stream.Next() {
			chunk := toDomainChunk(stream.Current())

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			select {
			case chunks <- domain.StreamChunk{Err: fmt.Errorf("OpenAI stream error: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}

// Complete submits the request without streaming and discards the response.
func (t *Transport) Complete(ctx context.Context, req *domain.CompletionRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	_, err := t.client.Chat.Completions.New(ctx, t.toSDKParams(req))
	if err != nil {
		return fmt.Errorf("OpenAI API call failed: %w", err)
	}
	return nil
}

// Name returns the transport identifier.
func (t *Transport) Name() string {
	return t.name
}

// toSDKParams converts a domain request to SDK ChatCompletionNewParams.
func (t *Transport) toSDKParams(req *domain.CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleUser:
			messages[i] = openai.UserMessage(msg.Content)
		case domain.RoleAssistant:
			messages[i] = openai.AssistantMessage(msg.Content)
		case domain.RoleSystem:
			messages[i] = openai.SystemMessage(msg.Content)
		default:
			// Fallback to user message if role is unknown
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	if len(req.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.StopSequences,
		}
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, tool := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  openai.FunctionParameters(tool.Parameters),
				},
			}
		}
		params.Tools = tools
	}

	return params
}

// toDomainChunk converts one SDK stream chunk to a domain chunk.
func toDomainChunk(chunk openai.ChatCompletionChunk) domain.StreamChunk {
	out := domain.StreamChunk{}

	if len(chunk.Choices) > 0 {
		delta := chunk.Choices[0].Delta

		if delta.JSON.Content.Valid() {
			content := delta.Content
			out.Content = &content
			out.Role = delta.Role
		}

		if field, ok := delta.JSON.ExtraFields[reasoningContentField]; ok && field.Valid() {
			reasoning := gjson.Parse(field.Raw()).String()
			out.Reasoning = &reasoning
		}
	}

	if chunk.JSON.Usage.Valid() {
		completionTokens := int(chunk.Usage.CompletionTokens)
		out.Usage = &domain.Usage{
			PromptTokens:     int(chunk.Usage.PromptTokens),
			CompletionTokens: &completionTokens,
			TotalTokens:      int(chunk.Usage.TotalTokens),
		}
	}

	return out
}
