// Package workflow provides the verification and completion tools the model
// uses during the building phase. Completion tools consult the verification
// gate: a completion claim without a passing oracle verdict recorded in the
// current invocation is rejected with a message telling the model which
// verification tool to call first.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/semflow/agentic"
	"github.com/c360studio/semflow/metric"
	"github.com/c360studio/semflow/verify"
)

// Executor implements the verification and completion tools.
type Executor struct {
	oracle  verify.Oracle
	tracker *verify.Tracker
	gate    *verify.Gate
	metrics *metric.Metrics
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics reports oracle verdicts to prometheus.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates a workflow executor. The tracker must be the same
// instance the orchestration loop resets each invocation.
func NewExecutor(oracle verify.Oracle, tracker *verify.Tracker, opts ...Option) *Executor {
	e := &Executor{
		oracle:  oracle,
		tracker: tracker,
		gate:    verify.NewGate(tracker),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// scopeByTool maps tool names to the verification scope they operate on.
var scopeByTool = map[string]verify.Scope{
	"verify_task_completion":       verify.ScopeTask,
	"verify_component_integration": verify.ScopeComponent,
	"verify_module_completion":     verify.ScopeModule,
	"mark_task_complete":           verify.ScopeTask,
	"mark_component_complete":      verify.ScopeComponent,
	"mark_module_complete":         verify.ScopeModule,
}

// Execute dispatches a verification or completion tool call.
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	scope, ok := scopeByTool[call.Name]
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}

	switch call.Name {
	case "verify_task_completion", "verify_component_integration", "verify_module_completion":
		return e.runVerification(ctx, call, scope)
	default:
		return e.markComplete(call, scope)
	}
}

// ListTools returns the workflow tool definitions. Only offered during
// building.
func (e *Executor) ListTools() []agentic.ToolDefinition {
	idParam := func(desc string) map[string]any {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": desc,
				},
			},
			"required": []string{"id"},
		}
	}
	verifyParams := func(desc string) map[string]any {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": desc,
				},
				"criteria": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Acceptance criteria to judge against",
				},
				"artifacts": map[string]any{
					"type":        "string",
					"description": "Evidence of completion: test output, diffs, command results",
				},
			},
			"required": []string{"id"},
		}
	}

	building := []string{"building"}
	return []agentic.ToolDefinition{
		{
			Name:        "verify_task_completion",
			Description: "Run the verification oracle against a task's acceptance criteria",
			Parameters:  verifyParams("Task identifier"),
			Phases:      building,
		},
		{
			Name:        "verify_component_integration",
			Description: "Run the verification oracle against a component's integration criteria",
			Parameters:  verifyParams("Component identifier"),
			Phases:      building,
		},
		{
			Name:        "verify_module_completion",
			Description: "Run the verification oracle against the whole module's acceptance criteria",
			Parameters:  verifyParams("Module identifier"),
			Phases:      building,
		},
		{
			Name:        "mark_task_complete",
			Description: "Mark a task complete; requires a passing verification in this invocation",
			Parameters:  idParam("Task identifier"),
			Phases:      building,
		},
		{
			Name:        "mark_component_complete",
			Description: "Mark a component complete; requires a passing verification in this invocation",
			Parameters:  idParam("Component identifier"),
			Phases:      building,
		},
		{
			Name:        "mark_module_complete",
			Description: "Mark the module complete; requires a passing verification in this invocation",
			Parameters:  idParam("Module identifier"),
			Phases:      building,
		},
	}
}

func (e *Executor) runVerification(ctx context.Context, call agentic.ToolCall, scope verify.Scope) (agentic.ToolResult, error) {
	id, ok := call.Arguments["id"].(string)
	if !ok || id == "" {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "id argument is required",
		}, nil
	}

	ev := verify.Evidence{Scope: scope, Identifier: id}
	if raw, ok := call.Arguments["criteria"].([]any); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				ev.Criteria = append(ev.Criteria, s)
			}
		}
	}
	if artifacts, ok := call.Arguments["artifacts"].(string); ok {
		ev.Artifacts = artifacts
	}

	verdict, err := e.oracle.Judge(ctx, ev)
	if err != nil {
		// Oracle failure is not a verdict: nothing is recorded, and the
		// model sees the failure rather than a silent pass.
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("verification failed to run: %s", err.Error()),
		}, nil
	}

	if err := e.tracker.RecordVerification(scope, id, verdict.Passed); err != nil {
		return agentic.ToolResult{CallID: call.ID, Error: err.Error()}, nil
	}

	if e.metrics != nil {
		outcome := "fail"
		if verdict.Passed {
			outcome = "pass"
		}
		e.metrics.OracleVerdicts.WithLabelValues(string(scope), outcome).Inc()
	}

	e.logger.Info("verification recorded",
		"scope", scope,
		"id", id,
		"passed", verdict.Passed)

	content, err := json.Marshal(verdict)
	if err != nil {
		return agentic.ToolResult{CallID: call.ID, Error: err.Error()}, nil
	}
	return agentic.ToolResult{
		CallID:  call.ID,
		Content: string(content),
	}, nil
}

func (e *Executor) markComplete(call agentic.ToolCall, scope verify.Scope) (agentic.ToolResult, error) {
	id, ok := call.Arguments["id"].(string)
	if !ok || id == "" {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "id argument is required",
		}, nil
	}

	decision := e.gate.ValidateCompletion(scope, id)
	if !decision.Allowed {
		e.logger.Info("completion claim rejected",
			"scope", scope,
			"id", id,
			"reason", decision.Reason)
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  decision.Reason,
		}, nil
	}

	e.logger.Info("completion claim accepted", "scope", scope, "id", id)
	return agentic.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("%s %s marked complete", scope, id),
	}, nil
}
