package model

import (
	"context"
	"fmt"
)

// Role values used on Message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolResult carries the outcome of an executed tool call back to the model.
type ToolResult struct {
	ID      string `json:"id"`      // Matches the originating ToolCall.ID
	Content string `json:"content"` // Stringified tool output
}

// Message is one turn of the conversation sent to the model. Assistant
// messages may carry tool calls; tool messages carry the matching results.
type Message struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by agents and the
// crew manager.
type Request struct {
	Instructions string           `json:"instructions"` // System instructions for the model
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion returned by a model.
type Response struct {
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_use", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents and the crew manager to
// drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// UserMessage is a convenience constructor for a plain user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses can be canned per prompt (AddResponse) or queued in order
// (QueueResponse); queued responses take precedence.
type MockModel struct {
	info      Info
	responses map[string]string
	queue     []Response
	requests  []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// QueueResponse appends responses returned in FIFO order regardless of prompt.
func (m *MockModel) QueueResponse(responses ...Response) {
	m.queue = append(m.queue, responses...)
}

// QueueText is shorthand for queueing plain text completions.
func (m *MockModel) QueueText(texts ...string) {
	for _, t := range texts {
		m.queue = append(m.queue, Response{Text: t, FinishReason: "stop"})
	}
}

// Requests returns every request seen so far, in call order.
func (m *MockModel) Requests() []Request { return m.requests }

// Generate implements Model. It records the request and replies from the
// queue first, then the canned map, then a generic echo.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.requests = append(m.requests, req)

	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return &resp, nil
	}

	var inputText string
	if len(req.Messages) > 0 {
		inputText = req.Messages[len(req.Messages)-1].Text
	}

	if canned, ok := m.responses[inputText]; ok {
		return &Response{Text: canned, FinishReason: "stop"}, nil
	}

	return &Response{
		Text:         fmt.Sprintf("Mock response to: %s", inputText),
		FinishReason: "stop",
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
