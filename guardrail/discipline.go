package guardrail

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ToolDisciplineOrder places tool-usage checks after correctness-oriented
// guardrails: its warnings are advisory, never blocking.
const ToolDisciplineOrder = 400

// ToolDiscipline surfaces inefficient tool usage: excessive total tool
// calls, repeated reads of the same file, and repeated retries of the same
// command. Usage exactly at a limit is compliant; only exceeding it is
// flagged. It never blocks.
type ToolDiscipline struct {
	// ToolCallThreshold is the warning threshold for total tool calls.
	ToolCallThreshold int

	// MaxFileReads is the per-file read limit.
	MaxFileReads int

	// MaxCommandRetries is the per-command retry limit.
	MaxCommandRetries int
}

// NewToolDiscipline creates a tool-discipline guardrail with the given
// limits.
func NewToolDiscipline(toolCallThreshold, maxFileReads, maxCommandRetries int) *ToolDiscipline {
	return &ToolDiscipline{
		ToolCallThreshold: toolCallThreshold,
		MaxFileReads:      maxFileReads,
		MaxCommandRetries: maxCommandRetries,
	}
}

// Name implements Guardrail.
func (d *ToolDiscipline) Name() string {
	return "tool_discipline"
}

// Order implements Guardrail.
func (d *ToolDiscipline) Order() int {
	return ToolDisciplineOrder
}

// ShortCircuitOnBlock implements Guardrail. Tool discipline never blocks.
func (d *ToolDiscipline) ShortCircuitOnBlock() bool {
	return false
}

// Evaluate implements Guardrail.
func (d *ToolDiscipline) Evaluate(_ context.Context, gc Context) Result {
	var violations []string

	switch {
	case d.ToolCallThreshold > 0 && gc.ToolCalls > 2*d.ToolCallThreshold:
		violations = append(violations,
			fmt.Sprintf("Excessive tool usage: %d calls (threshold %d)", gc.ToolCalls, d.ToolCallThreshold))
	case d.ToolCallThreshold > 0 && gc.ToolCalls > d.ToolCallThreshold:
		violations = append(violations,
			fmt.Sprintf("High tool usage: %d calls (threshold %d)", gc.ToolCalls, d.ToolCallThreshold))
	}

	if d.MaxFileReads > 0 {
		for _, path := range sortedKeys(gc.FileReads) {
			if count := gc.FileReads[path]; count > d.MaxFileReads {
				violations = append(violations,
					fmt.Sprintf("File %s read %d times (max %d)", path, count, d.MaxFileReads))
			}
		}
	}

	if d.MaxCommandRetries > 0 {
		for _, cmd := range sortedKeys(gc.CommandRetries) {
			if count := gc.CommandRetries[cmd]; count > d.MaxCommandRetries {
				violations = append(violations,
					fmt.Sprintf("Command %q retried %d times (max %d)", cmd, count, d.MaxCommandRetries))
			}
		}
	}

	if len(violations) == 0 {
		return Pass()
	}

	return Warnf("%s (total tool calls: %d)", strings.Join(violations, "; "), gc.ToolCalls)
}

// sortedKeys returns map keys in sorted order for deterministic messages.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
