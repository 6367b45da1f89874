package openai

import "encoding/json"

// ChatCompletionRequest represents a request payload for OpenAI-compatible
// chat completion endpoints.
type ChatCompletionRequest struct {
	Model           string      `json:"model"`
	Messages        []Message   `json:"messages"`
	MaxTokens       int         `json:"max_tokens,omitempty"`
	Temperature     *float64    `json:"temperature,omitempty"`
	Stream          bool        `json:"stream,omitempty"`
	ReasoningEffort string      `json:"reasoning_effort,omitempty"`
	Reasoning       *Reasoning  `json:"reasoning,omitempty"`
	Tools           []Tool      `json:"tools,omitempty"`
	ToolChoice      interface{} `json:"tool_choice,omitempty"`
}

// Reasoning is the nested form of the reasoning effort directive.
type Reasoning struct {
	Effort string `json:"effort,omitempty"`
}

// Effort resolves the reasoning effort, preferring the top-level field.
func (r *ChatCompletionRequest) Effort() string {
	if r.ReasoningEffort != "" {
		return r.ReasoningEffort
	}
	if r.Reasoning != nil {
		return r.Reasoning.Effort
	}
	return ""
}

// Message represents a message in the chat history, including tool calls,
// tool results and reasoning carry-over.
type Message struct {
	// Standard fields
	Content interface{} `json:"content"` // Can be a string or a slice of content parts
	Role    string      `json:"role"`

	// Tool calling (assistant -> tools). When present on an assistant message,
	// the assistant is requesting tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Tool result (tools -> assistant). When present on a tool message, this links
	// the tool output back to the originating assistant tool call.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Optional function name on tool messages (some clients include this)
	Name string `json:"name,omitempty"`

	// Reasoning carry-over. Three alias pairs are accepted; readers take the
	// first non-empty pair in declaration order, writers emit the first pair.
	Thinking        string `json:"thinking,omitempty"`
	Signature       string `json:"signature,omitempty"`
	CotSummary      string `json:"cot_summary,omitempty"`
	CotID           string `json:"cot_id,omitempty"`
	ReasoningText   string `json:"reasoning_text,omitempty"`
	ReasoningOpaque string `json:"reasoning_opaque,omitempty"`
}

// ReasoningFields resolves the message's reasoning aliases to the canonical
// (thought text, signature) pair.
func (m *Message) ReasoningFields() (text, signature string) {
	if m.Thinking != "" || m.Signature != "" {
		return m.Thinking, m.Signature
	}
	if m.CotSummary != "" || m.CotID != "" {
		return m.CotSummary, m.CotID
	}
	return m.ReasoningText, m.ReasoningOpaque
}

// ToolCall represents a tool call on an assistant message or in a delta.
type ToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents the function part of a tool call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool represents a tool the model can call.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function represents a function that can be called by the model.
type Function struct {
	Description string      `json:"description,omitempty"`
	Name        string      `json:"name"`
	Parameters  interface{} `json:"parameters"`
}

// ChatCompletionResponse is the non-streaming response payload.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
	// Notice carries the model-fallback notification, when one happened.
	Notice string `json:"notice,omitempty"`
}

// Choice represents a single choice in a chat completion response.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents the token usage for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse is the caller-dialect error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code,omitempty"`
}

const (
	// ChatCompletionObject is the object tag on non-streaming responses.
	ChatCompletionObject = "chat.completion"
	// ChatCompletionChunkObject is the object tag on streaming chunks.
	ChatCompletionChunkObject = "chat.completion.chunk"
)

// Delta is the incremental payload of one streaming chunk.
type Delta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
	// NullContent forces "content":null on the wire, used on a tool-call
	// first chunk where clients expect an explicit null.
	NullContent bool       `json:"-"`
	Thinking    string     `json:"thinking,omitempty"`
	Signature   string     `json:"signature,omitempty"`
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
}

// MarshalJSON emits content:null when NullContent is set and no content
// string is present; otherwise content is omitted when nil.
func (d Delta) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, 4)
	if d.Role != "" {
		m["role"] = d.Role
	}
	if d.Content != nil {
		m["content"] = *d.Content
	} else if d.NullContent {
		m["content"] = nil
	}
	if d.Thinking != "" {
		m["thinking"] = d.Thinking
	}
	if d.Signature != "" {
		m["signature"] = d.Signature
	}
	if len(d.ToolCalls) > 0 {
		m["tool_calls"] = d.ToolCalls
	}
	return json.Marshal(m)
}

// ChunkChoice is the single choice inside a streaming chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Chunk is one streaming response chunk in OpenAI format.
type Chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}
