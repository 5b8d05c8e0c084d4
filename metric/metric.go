// Package metric exposes prometheus instrumentation for orchestration runs.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the orchestration loop reports into.
type Metrics struct {
	Iterations         *prometheus.CounterVec
	ToolCalls          *prometheus.CounterVec
	TokensUsed         *prometheus.CounterVec
	GuardrailVerdicts  *prometheus.CounterVec
	InvocationFailures *prometheus.CounterVec
	OracleVerdicts     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Pass
// prometheus.DefaultRegisterer outside tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semflow",
			Name:      "iterations_total",
			Help:      "Orchestration loop iterations by phase.",
		}, []string{"phase"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semflow",
			Name:      "tool_calls_total",
			Help:      "Tool calls dispatched by tool name.",
		}, []string{"tool"}),
		TokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semflow",
			Name:      "tokens_total",
			Help:      "Tokens consumed by model and direction (input or output).",
		}, []string{"model", "direction"}),
		GuardrailVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semflow",
			Name:      "guardrail_verdicts_total",
			Help:      "Guardrail pipeline verdicts by status.",
		}, []string{"status"}),
		InvocationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semflow",
			Name:      "invocation_failures_total",
			Help:      "Model invocation failures by classified kind.",
		}, []string{"kind"}),
		OracleVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semflow",
			Name:      "oracle_verdicts_total",
			Help:      "Verification oracle verdicts by scope and outcome.",
		}, []string{"scope", "outcome"}),
	}

	reg.MustRegister(
		m.Iterations,
		m.ToolCalls,
		m.TokensUsed,
		m.GuardrailVerdicts,
		m.InvocationFailures,
		m.OracleVerdicts,
	)
	return m
}

// NewUnregistered creates the collectors without registering them. Handy for
// tests that only need the loop's dependencies satisfied.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
