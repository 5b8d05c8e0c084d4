// Package command provides the shell command tool offered to the model.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/c360studio/semflow/agentic"
)

// maxOutputSize bounds the combined output returned to the model.
const maxOutputSize = 64 * 1024

// Executor implements the run_command tool, rooted at the repository under
// development. Commands are tokenized into argv directly — no shell is
// involved, which avoids shell-injection while still handling quoted
// arguments. Command failures come back as ToolResult errors the model can
// read, not Go errors.
type Executor struct {
	repoRoot string
}

// NewExecutor creates a command executor rooted at repoRoot.
func NewExecutor(repoRoot string) *Executor {
	return &Executor{repoRoot: repoRoot}
}

// Execute dispatches a command tool call.
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	if call.Name != "run_command" {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}

	cmdStr, ok := call.Arguments["command"].(string)
	if !ok || strings.TrimSpace(cmdStr) == "" {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "command argument is required",
		}, nil
	}

	args := splitCommand(cmdStr)
	if len(args) == 0 {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "empty command",
		}, nil
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = e.repoRoot

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	text := output.String()
	if len(text) > maxOutputSize {
		text = text[:maxOutputSize] + "\n[... output truncated ...]"
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  fmt.Sprintf("command exited with status %d:\n%s", exitErr.ExitCode(), text),
			}, nil
		}
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("command failed to run: %s", runErr.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: text,
	}, nil
}

// ListTools returns the command tool definition. Offered in every phase.
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "run_command",
			Description: "Run a command in the repository root and return its combined output",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "Command to run, e.g. 'go test ./...'. Quoted arguments are supported; shell operators are not.",
					},
				},
				"required": []string{"command"},
			},
		},
	}
}

// splitCommand tokenizes a command line into argv, honoring single and
// double quotes.
func splitCommand(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false

	for _, r := range cmd {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == ' ' && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
