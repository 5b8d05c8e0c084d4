// Package agentic defines the tool contract between the orchestration loop
// and tool implementations: definitions the model can see, calls the model
// makes, and results handed back into its context.
package agentic

import "context"

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	// Name is the unique tool identifier.
	Name string `json:"name"`

	// Description tells the model what the tool does and when to use it.
	Description string `json:"description"`

	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Phases lists the workflow phases in which this tool is offered.
	// Empty means all phases.
	Phases []string `json:"phases,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// ID correlates the call with its result.
	ID string `json:"id"`

	// Name is the tool to invoke.
	Name string `json:"name"`

	// Arguments is the parameters payload.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the outcome of one tool call, returned into the model's
// context. Error is a tool-level failure the model can self-correct from;
// it is not a process-level failure.
type ToolResult struct {
	// CallID matches the originating ToolCall.ID.
	CallID string `json:"call_id"`

	// Content is the result payload on success.
	Content string `json:"content,omitempty"`

	// Error describes a rejected or failed call.
	Error string `json:"error,omitempty"`
}

// ToolExecutor executes one or more named tools.
type ToolExecutor interface {
	// Execute runs a tool call. A non-nil error indicates the executor
	// itself failed; tool-level rejections go in ToolResult.Error.
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)

	// ListTools returns the definitions of the tools this executor handles.
	ListTools() []ToolDefinition
}
