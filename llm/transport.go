// Package llm provides the model transport contract, per-phase model
// selection and the fallback-chain retry wrapper around model invocations.
package llm

import (
	"context"

	"github.com/c360studio/semflow/agentic"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// TokenUsage represents token consumption for one model invocation.
type TokenUsage struct {
	InputTokens       int  `json:"input_tokens"`
	OutputTokens      int  `json:"output_tokens"`
	TotalTokens       int  `json:"total_tokens"`
	ContextWindowSize int  `json:"context_window_size,omitempty"`
	IsPremiumRequest  bool `json:"is_premium_request,omitempty"`
}

// InvokeRequest defines one model invocation.
type InvokeRequest struct {
	// SystemPrompt is the assembled system prompt for this invocation.
	SystemPrompt string

	// Messages is the chat history to send.
	Messages []Message

	// Model is the model to invoke.
	Model string

	// Tools are the tool definitions offered to the model.
	Tools []agentic.ToolDefinition

	// Temperature controls randomness. nil uses the provider default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the provider default.
	MaxTokens int
}

// InvokeResult contains the outcome of one model invocation.
type InvokeResult struct {
	// RequestID uniquely identifies this invocation.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the model that actually served the request.
	Model string

	// ToolCalls are the tool invocations the model requested this turn.
	ToolCalls []agentic.ToolCall

	// Usage contains token consumption metrics.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// IsIdle reports whether the model signalled it has nothing further to do:
// no tool calls were requested this turn.
func (r *InvokeResult) IsIdle() bool {
	return len(r.ToolCalls) == 0
}

// Transport is the narrow model-invocation capability the orchestration
// loop consumes. Implementations fail with classified errors: unavailable
// (walks the fallback chain), auth, timeout, or generic (all propagate).
type Transport interface {
	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error)
}
