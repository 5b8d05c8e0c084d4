package tools

import (
	"context"
	"testing"

	"github.com/c360studio/semflow/agentic"
)

// echoExecutor succeeds on every call.
type echoExecutor struct{}

func (echoExecutor) Execute(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	return agentic.ToolResult{CallID: call.ID, Content: "ok"}, nil
}

func (echoExecutor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{{Name: "read_file"}}
}

func TestCountingExecutorAccumulates(t *testing.T) {
	counting := NewCountingExecutor(echoExecutor{})
	ctx := context.Background()

	calls := []agentic.ToolCall{
		{ID: "1", Name: "read_file", Arguments: map[string]any{"path": "a.go"}},
		{ID: "2", Name: "read_file", Arguments: map[string]any{"path": "a.go"}},
		{ID: "3", Name: "read_file", Arguments: map[string]any{"path": "b.go"}},
		{ID: "4", Name: "run_command", Arguments: map[string]any{"command": "go test ./..."}},
		{ID: "5", Name: "run_command", Arguments: map[string]any{"command": "go test ./..."}},
		{ID: "6", Name: "run_command", Arguments: map[string]any{"command": "go test ./..."}},
		{ID: "7", Name: "write_file", Arguments: map[string]any{"path": "c.go", "content": "x"}},
	}
	for _, call := range calls {
		if _, err := counting.Execute(ctx, call); err != nil {
			t.Fatalf("Execute(%s) error = %v", call.Name, err)
		}
	}

	toolCalls, reads, retries := counting.Snapshot()
	if toolCalls != len(calls) {
		t.Errorf("toolCalls = %d, want %d", toolCalls, len(calls))
	}
	if reads["a.go"] != 2 || reads["b.go"] != 1 {
		t.Errorf("fileReads = %v, want a.go:2 b.go:1", reads)
	}
	// Three runs of the same command are two retries.
	if retries["go test ./..."] != 2 {
		t.Errorf("commandRetries = %v, want 2 for go test", retries)
	}
}

func TestCountingExecutorSnapshotIsCopy(t *testing.T) {
	counting := NewCountingExecutor(echoExecutor{})
	ctx := context.Background()

	if _, err := counting.Execute(ctx, agentic.ToolCall{ID: "1", Name: "read_file", Arguments: map[string]any{"path": "a.go"}}); err != nil {
		t.Fatal(err)
	}
	_, reads, _ := counting.Snapshot()

	if _, err := counting.Execute(ctx, agentic.ToolCall{ID: "2", Name: "read_file", Arguments: map[string]any{"path": "a.go"}}); err != nil {
		t.Fatal(err)
	}
	if reads["a.go"] != 1 {
		t.Error("snapshot must not reflect executions after it was taken")
	}
}

func TestGuardrailContext(t *testing.T) {
	counting := NewCountingExecutor(echoExecutor{})
	if _, err := counting.Execute(context.Background(), agentic.ToolCall{ID: "1", Name: "read_file", Arguments: map[string]any{"path": "a.go"}}); err != nil {
		t.Fatal(err)
	}

	gc := counting.GuardrailContext("auth", "t1", 4)
	if gc.Module != "auth" || gc.TaskID != "t1" || gc.Iteration != 4 {
		t.Errorf("context identity fields = %+v", gc)
	}
	if gc.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", gc.ToolCalls)
	}
}
