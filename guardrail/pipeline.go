package guardrail

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// Pipeline evaluates an ordered set of guardrails and combines their results.
// Any Block wins over any Warn, which wins over Pass; messages of non-Pass
// results are concatenated in evaluation order.
type Pipeline struct {
	guardrails []Guardrail
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a pipeline over the given guardrails, sorted by Order
// ascending. The sort is stable so guardrails with equal order keep their
// registration order.
func NewPipeline(guardrails []Guardrail, opts ...PipelineOption) *Pipeline {
	sorted := make([]Guardrail, len(guardrails))
	copy(sorted, guardrails)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order() < sorted[j].Order()
	})

	p := &Pipeline{
		guardrails: sorted,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate runs every guardrail sequentially against the snapshot and merges
// the results. A Block from a guardrail with ShortCircuitOnBlock stops
// further evaluation; otherwise later guardrails still run and their
// messages are merged.
func (p *Pipeline) Evaluate(ctx context.Context, gc Context) Result {
	status := StatusPass
	var messages []string

	for _, g := range p.guardrails {
		result := g.Evaluate(ctx, gc)

		if result.Status != StatusPass {
			p.logger.Debug("Guardrail flagged usage",
				"guardrail", g.Name(),
				"status", result.Status.String(),
				"module", gc.Module,
				"iteration", gc.Iteration)

			if result.Message != "" {
				messages = append(messages, result.Message)
			}
			if result.Status > status {
				status = result.Status
			}
		}

		if result.Status == StatusBlock && g.ShortCircuitOnBlock() {
			break
		}
	}

	return Result{
		Status:  status,
		Message: strings.Join(messages, "\n"),
	}
}

// Guardrails returns the guardrails in evaluation order.
func (p *Pipeline) Guardrails() []Guardrail {
	out := make([]Guardrail, len(p.guardrails))
	copy(out, p.guardrails)
	return out
}
