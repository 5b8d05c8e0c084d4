package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/semflow/llm"
)

// Evidence is what the oracle judges: the acceptance criteria for a scope and
// the artifacts claimed to satisfy them.
type Evidence struct {
	Scope      Scope
	Identifier string
	Criteria   []string
	Artifacts  string
}

// Oracle judges evidence against acceptance criteria.
type Oracle interface {
	Judge(ctx context.Context, ev Evidence) (*Verdict, error)
}

// AutoPassOracle accepts every claim. Used when no oracle model is
// configured, keeping the gate mechanics in place without an extra model
// call.
type AutoPassOracle struct {
	logger *slog.Logger
}

// NewAutoPassOracle returns an oracle that passes everything.
func NewAutoPassOracle(logger *slog.Logger) *AutoPassOracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoPassOracle{logger: logger}
}

// Judge returns a passing verdict unconditionally.
func (o *AutoPassOracle) Judge(_ context.Context, ev Evidence) (*Verdict, error) {
	o.logger.Debug("oracle auto-pass", "scope", ev.Scope, "id", ev.Identifier)
	return &Verdict{Passed: true, Scope: ev.Scope}, nil
}

// invoker is the slice of llm.Transport the oracle needs.
type invoker interface {
	Invoke(ctx context.Context, req llm.InvokeRequest) (*llm.InvokeResult, error)
}

// LLMOracle asks a model to judge evidence and parses its JSON verdict.
// Oracle calls typically run on a cheaper model than the working model.
type LLMOracle struct {
	transport invoker
	model     string
	logger    *slog.Logger
}

// NewLLMOracle returns an oracle that dispatches judgments to the given
// model over the transport.
func NewLLMOracle(transport llm.Transport, model string, logger *slog.Logger) *LLMOracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMOracle{transport: transport, model: model, logger: logger}
}

const oracleSystemPrompt = `You are a verification oracle. Judge whether the provided artifacts satisfy every acceptance criterion.

Respond with JSON only:
{"passed": true|false, "gaps": ["unmet criterion", ...]}

List a gap for each criterion the artifacts do not demonstrably satisfy. An empty gaps list with passed=true means full satisfaction.`

// Judge sends the evidence to the model and parses its verdict. A response
// that cannot be parsed is an error, not a pass.
func (o *LLMOracle) Judge(ctx context.Context, ev Evidence) (*Verdict, error) {
	if !ev.Scope.IsValid() {
		return nil, fmt.Errorf("judge: %w: %q", ErrInvalidScope, ev.Scope)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scope: %s\nIdentifier: %s\n\nAcceptance criteria:\n", ev.Scope, ev.Identifier)
	for i, c := range ev.Criteria {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\nArtifacts:\n")
	b.WriteString(ev.Artifacts)

	resp, err := o.transport.Invoke(ctx, llm.InvokeRequest{
		SystemPrompt: oracleSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: b.String()}},
		Model:        o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("oracle invocation: %w", err)
	}

	raw := llm.ExtractJSON(resp.Content)
	var verdict Verdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		o.logger.Warn("oracle returned unparseable verdict",
			"scope", ev.Scope,
			"id", ev.Identifier,
			"model", resp.Model)
		return nil, fmt.Errorf("parse oracle verdict: %w", err)
	}
	verdict.Scope = ev.Scope

	o.logger.Info("oracle verdict",
		"scope", ev.Scope,
		"id", ev.Identifier,
		"passed", verdict.Passed,
		"gaps", len(verdict.Gaps))
	return &verdict, nil
}
