// Package file provides file operation tools offered to the model.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semflow/agentic"
)

// Executor implements the file tools, rooted at the repository under
// development. Every path is validated against the root; tool misuse comes
// back as a ToolResult error the model can read, not a Go error.
type Executor struct {
	repoRoot string
}

// NewExecutor creates a file executor rooted at repoRoot.
func NewExecutor(repoRoot string) *Executor {
	return &Executor{repoRoot: repoRoot}
}

// Execute dispatches a file tool call.
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "read_file":
		return e.readFile(ctx, call)
	case "write_file":
		return e.writeFile(ctx, call)
	case "find_files":
		return e.findFiles(ctx, call)
	default:
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

// ListTools returns the file tool definitions. Offered in every phase.
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read the contents of a file",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to read (relative to repo root)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "write_file",
			Description: "Write content to a file (creates parent directories if needed)",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to write (relative to repo root)",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Content to write to the file",
					},
				},
				"required": []string{"path", "content"},
			},
		},
		{
			Name:        "find_files",
			Description: "Find files matching a glob pattern (supports ** for recursive matching)",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "Glob pattern relative to repo root, e.g. 'internal/**/*.go'",
					},
				},
				"required": []string{"pattern"},
			},
		},
	}
}

func (e *Executor) readFile(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "path argument is required",
		}, nil
	}

	fullPath, err := e.validatePath(path)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  fmt.Sprintf("file not found: %s", path),
			}, nil
		}
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to read file: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: string(content),
	}, nil
}

func (e *Executor) writeFile(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "path argument is required",
		}, nil
	}

	content, ok := call.Arguments["content"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "content argument is required",
		}, nil
	}

	fullPath, err := e.validatePath(path)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to create directory: %s", err.Error()),
		}, nil
	}

	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to write file: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path),
	}, nil
}

func (e *Executor) findFiles(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	pattern, ok := call.Arguments["pattern"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "pattern argument is required",
		}, nil
	}

	if !doublestar.ValidatePattern(pattern) {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("invalid pattern: %s", pattern),
		}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(e.repoRoot), pattern)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("glob failed: %s", err.Error()),
		}, nil
	}
	sort.Strings(matches)

	result, err := json.Marshal(matches)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to marshal result: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: string(result),
	}, nil
}

// validatePath resolves a path and ensures it stays within the repo root.
func (e *Executor) validatePath(path string) (string, error) {
	var fullPath string
	if filepath.IsAbs(path) {
		fullPath = filepath.Clean(path)
	} else {
		fullPath = filepath.Clean(filepath.Join(e.repoRoot, path))
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	absRoot, err := filepath.Abs(e.repoRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repo root: %w", err)
	}

	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) && absPath != absRoot {
		return "", fmt.Errorf("access denied: path is outside repository root")
	}

	return absPath, nil
}
