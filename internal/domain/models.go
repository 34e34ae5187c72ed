package domain

// Message roles understood by OpenAI-compatible chat endpoints.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ToolDefinition describes a function the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON schema
}

// CompletionRequest represents one chat-completion call. Build it through
// RequestBuilder; it must not be mutated after submission.
type CompletionRequest struct {
	Model         string           `json:"model"`
	Messages      []Message        `json:"messages"`
	Temperature   float64          `json:"temperature,omitempty"`
	TopP          float64          `json:"top_p,omitempty"`
	MaxTokens     int              `json:"max_tokens,omitempty"`
	StopSequences []string         `json:"stop,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
}

// StreamChunk is one unit of an incoming completion stream. A chunk carries
// at most one of {Content, Reasoning}; nil means the delta was absent, which
// is distinct from an empty string. Role is only meaningful on the first
// chunk that carries content. Usage is only present on the terminal chunk,
// and only when the upstream reports it. A chunk with Err set is always the
// last one delivered.
type StreamChunk struct {
	Content   *string `json:"content,omitempty"`
	Reasoning *string `json:"reasoning,omitempty"`
	Role      string  `json:"role,omitempty"`
	Usage     *Usage  `json:"usage,omitempty"`
	Err       error   `json:"-"`
}

// Usage tracks token consumption as reported by the upstream service.
// CompletionTokens is a pointer because some OpenAI-compatible backends omit
// it and report only a total.
type Usage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      int  `json:"total_tokens"`
}

// CompletionResult is the aggregated outcome of one successful streaming
// invocation. Constructed exactly once by the finalizer; never mutated
// afterwards.
type CompletionResult struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Chunks       []StreamChunk `json:"-"` // raw stream history for downstream introspection
}
