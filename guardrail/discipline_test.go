package guardrail

import (
	"context"
	"strings"
	"testing"
)

func TestToolDisciplineToolCalls(t *testing.T) {
	d := NewToolDiscipline(50, 3, 2)

	tests := []struct {
		name       string
		toolCalls  int
		wantStatus Status
		wantSubstr string
	}{
		{name: "exactly at threshold is compliant", toolCalls: 50, wantStatus: StatusPass},
		{name: "one over threshold warns", toolCalls: 51, wantStatus: StatusWarn, wantSubstr: "High tool usage"},
		{name: "exactly double threshold warns normally", toolCalls: 100, wantStatus: StatusWarn, wantSubstr: "High tool usage"},
		{name: "over double threshold warns excessive", toolCalls: 101, wantStatus: StatusWarn, wantSubstr: "Excessive"},
		{name: "zero calls pass", toolCalls: 0, wantStatus: StatusPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Evaluate(context.Background(), Context{ToolCalls: tt.toolCalls})
			if result.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", result.Status, tt.wantStatus)
			}
			if tt.wantSubstr != "" && !strings.Contains(result.Message, tt.wantSubstr) {
				t.Errorf("message %q does not contain %q", result.Message, tt.wantSubstr)
			}
		})
	}
}

func TestToolDisciplineFileReads(t *testing.T) {
	d := NewToolDiscipline(50, 3, 2)

	// Exactly at max is compliant.
	result := d.Evaluate(context.Background(), Context{
		FileReads: map[string]int{"main.go": 3},
	})
	if result.Status != StatusPass {
		t.Errorf("at-max read count should pass, got %s: %q", result.Status, result.Message)
	}

	// One over max warns, naming file and count.
	result = d.Evaluate(context.Background(), Context{
		ToolCalls: 12,
		FileReads: map[string]int{"main.go": 4},
	})
	if result.Status != StatusWarn {
		t.Fatalf("status = %s, want warn", result.Status)
	}
	for _, want := range []string{"main.go", "4", "total tool calls: 12"} {
		if !strings.Contains(result.Message, want) {
			t.Errorf("message %q does not contain %q", result.Message, want)
		}
	}
}

func TestToolDisciplineCommandRetries(t *testing.T) {
	d := NewToolDiscipline(50, 3, 2)

	result := d.Evaluate(context.Background(), Context{
		CommandRetries: map[string]int{"go test ./...": 3},
	})
	if result.Status != StatusWarn {
		t.Fatalf("status = %s, want warn", result.Status)
	}
	if !strings.Contains(result.Message, "go test ./...") || !strings.Contains(result.Message, "3") {
		t.Errorf("message %q does not name command and count", result.Message)
	}
}

func TestToolDisciplineCombinesViolations(t *testing.T) {
	d := NewToolDiscipline(10, 2, 1)

	result := d.Evaluate(context.Background(), Context{
		ToolCalls:      25,
		FileReads:      map[string]int{"a.go": 5, "b.go": 3},
		CommandRetries: map[string]int{"make build": 2},
	})
	if result.Status != StatusWarn {
		t.Fatalf("status = %s, want warn", result.Status)
	}
	for _, want := range []string{"Excessive", "a.go", "b.go", "make build", "total tool calls: 25"} {
		if !strings.Contains(result.Message, want) {
			t.Errorf("message %q does not contain %q", result.Message, want)
		}
	}
}

func TestToolDisciplineNeverBlocks(t *testing.T) {
	d := NewToolDiscipline(1, 1, 1)
	result := d.Evaluate(context.Background(), Context{
		ToolCalls: 10000,
		FileReads: map[string]int{"a.go": 500},
	})
	if result.Status == StatusBlock {
		t.Error("tool discipline must never block")
	}
	if d.ShortCircuitOnBlock() {
		t.Error("ShortCircuitOnBlock should be false")
	}
	if d.Order() != 400 {
		t.Errorf("Order = %d, want 400", d.Order())
	}
}
