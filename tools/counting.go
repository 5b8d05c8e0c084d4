// Package tools wires tool executors for the orchestration loop: the file
// and workflow executors, plus a counting wrapper that feeds the guardrail
// pipeline's usage snapshot.
package tools

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semflow/agentic"
	"github.com/c360studio/semflow/guardrail"
	"github.com/c360studio/semflow/metric"
)

// CountingExecutor wraps a ToolExecutor and accumulates the usage counters
// the guardrail pipeline evaluates: total tool calls, per-file read counts,
// and per-command retry counts. Counters cover one phase run; the loop
// creates a fresh wrapper per run.
type CountingExecutor struct {
	inner   agentic.ToolExecutor
	metrics *metric.Metrics
	logger  *slog.Logger

	mu          sync.Mutex
	toolCalls   int
	fileReads   map[string]int
	commandRuns map[string]int
}

// CountingOption configures a CountingExecutor.
type CountingOption func(*CountingExecutor)

// WithMetrics reports tool-call counts to prometheus.
func WithMetrics(m *metric.Metrics) CountingOption {
	return func(c *CountingExecutor) {
		c.metrics = m
	}
}

// WithCountingLogger sets the wrapper's logger.
func WithCountingLogger(logger *slog.Logger) CountingOption {
	return func(c *CountingExecutor) {
		c.logger = logger
	}
}

// NewCountingExecutor wraps an executor with usage counting.
func NewCountingExecutor(inner agentic.ToolExecutor, opts ...CountingOption) *CountingExecutor {
	c := &CountingExecutor{
		inner:       inner,
		logger:      slog.Default(),
		fileReads:   make(map[string]int),
		commandRuns: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs the underlying executor and updates the counters.
func (c *CountingExecutor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	startedAt := time.Now()
	result, err := c.inner.Execute(ctx, call)
	duration := time.Since(startedAt)

	c.mu.Lock()
	c.toolCalls++
	switch call.Name {
	case "read_file":
		if path, ok := call.Arguments["path"].(string); ok {
			c.fileReads[path]++
		}
	case "run_command":
		if cmd, ok := call.Arguments["command"].(string); ok {
			c.commandRuns[cmd]++
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ToolCalls.WithLabelValues(call.Name).Inc()
	}

	c.logger.Debug("tool call executed",
		"tool", call.Name,
		"call_id", call.ID,
		"duration_ms", duration.Milliseconds(),
		"errored", err != nil || result.Error != "")

	return result, err
}

// ListTools delegates to the inner executor.
func (c *CountingExecutor) ListTools() []agentic.ToolDefinition {
	return c.inner.ListTools()
}

// Snapshot copies the counters into a guardrail context. The returned maps
// are fresh copies; later executions do not mutate them.
func (c *CountingExecutor) Snapshot() (toolCalls int, fileReads, commandRetries map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reads := make(map[string]int, len(c.fileReads))
	for k, v := range c.fileReads {
		reads[k] = v
	}
	// The first run of a command is not a retry.
	retries := make(map[string]int, len(c.commandRuns))
	for k, v := range c.commandRuns {
		if v > 1 {
			retries[k] = v - 1
		}
	}
	return c.toolCalls, reads, retries
}

// GuardrailContext builds the usage snapshot for one pipeline evaluation.
func (c *CountingExecutor) GuardrailContext(module, taskID string, iteration int) guardrail.Context {
	calls, reads, retries := c.Snapshot()
	return guardrail.Context{
		Module:         module,
		TaskID:         taskID,
		Iteration:      iteration,
		ToolCalls:      calls,
		FileReads:      reads,
		CommandRetries: retries,
	}
}
