// Package loop drives the orchestration cycle: build a prompt, invoke the
// model through the fallback transport, dispatch its tool calls, evaluate
// guardrails, and repeat until the model goes idle or a guardrail blocks.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semflow/agentic"
	"github.com/c360studio/semflow/guardrail"
	"github.com/c360studio/semflow/llm"
	"github.com/c360studio/semflow/metric"
	"github.com/c360studio/semflow/prompt"
	"github.com/c360studio/semflow/session"
	"github.com/c360studio/semflow/tools"
	"github.com/c360studio/semflow/verify"
	"github.com/c360studio/semflow/workflow"
)

// BlockedError reports a guardrail interruption. The run is not resumable
// without external intervention; the checkpoint written before the error
// carries the resume position.
type BlockedError struct {
	Message   string
	Iteration int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("run blocked at iteration %d: %s", e.Iteration, e.Message)
}

// Deps are the collaborators a Runner composes. All fields are required
// except Metrics and Store, which degrade to no-ops when nil.
type Deps struct {
	Engine    *workflow.Engine
	Selector  *llm.Selector
	Transport llm.Transport
	Registry  *agentic.Registry
	Tracker   *verify.Tracker
	Pipeline  *guardrail.Pipeline
	Store     session.Store
	Metrics   *metric.Metrics

	// Budget is the token allowance for context sections per prompt.
	Budget int

	// Temperature overrides the provider default when non-nil.
	Temperature *float64

	// MaxTokens caps response length. 0 uses the provider default.
	MaxTokens int

	// InvokeTimeout bounds each model invocation. 0 leaves invocations
	// bounded only by the caller's context.
	InvokeTimeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Runner executes phase runs against the workflow engine.
type Runner struct {
	deps   Deps
	logger *slog.Logger
}

// NewRunner validates the dependency set and builds a runner.
func NewRunner(deps Deps, opts ...Option) (*Runner, error) {
	switch {
	case deps.Engine == nil:
		return nil, errors.New("runner: engine required")
	case deps.Selector == nil:
		return nil, errors.New("runner: selector required")
	case deps.Transport == nil:
		return nil, errors.New("runner: transport required")
	case deps.Registry == nil:
		return nil, errors.New("runner: tool registry required")
	case deps.Tracker == nil:
		return nil, errors.New("runner: verification tracker required")
	case deps.Pipeline == nil:
		return nil, errors.New("runner: guardrail pipeline required")
	case deps.Budget <= 0:
		return nil, errors.New("runner: positive token budget required")
	}

	r := &Runner{deps: deps, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunInput describes one phase run.
type RunInput struct {
	// TaskID identifies the active task, if any.
	TaskID string

	// Component names the component the task belongs to, if any. Recorded
	// on checkpoints so resumption knows where work stopped.
	Component string

	// CommitRef is the last known commit for this run's work, if any.
	CommitRef string

	// Instruction is the opening user message for the run.
	Instruction string

	// Sections is budget-managed context, most important first.
	Sections []prompt.Section

	// CompletionTrigger is fired on the engine when the model goes idle.
	CompletionTrigger workflow.Trigger
}

// RunResult summarizes a completed phase run.
type RunResult struct {
	// Iterations is how many invocations the run took.
	Iterations int

	// FinalContent is the model's last response text.
	FinalContent string

	// Fired is true when the completion trigger advanced the engine.
	Fired bool

	// Step is the engine's step after the run.
	Step workflow.Step
}

// RunPhase iterates model invocations until the model goes idle, then fires
// the completion trigger. Guardrail warnings are injected into the next
// prompt; a block interrupts the run with a BlockedError after
// checkpointing. Invocation failures also checkpoint before surfacing.
func (r *Runner) RunPhase(ctx context.Context, in RunInput) (*RunResult, error) {
	phase := r.deps.Engine.CurrentPhase()
	module := r.deps.Engine.Module()

	counting := tools.NewCountingExecutor(r.deps.Registry,
		tools.WithMetrics(r.deps.Metrics),
		tools.WithCountingLogger(r.logger))

	messages := []llm.Message{{Role: "user", Content: in.Instruction}}
	feedback := ""

	var lastContent string
	for iteration := 1; ; iteration++ {
		if r.deps.Metrics != nil {
			r.deps.Metrics.Iterations.WithLabelValues(string(phase)).Inc()
		}

		toolDefs := r.deps.Registry.ToolsForPhase(string(phase))
		systemPrompt, err := prompt.BuildSystemPrompt(prompt.BuildInput{
			Module:            module,
			Step:              r.deps.Engine.CurrentStep(),
			Phase:             phase,
			Tools:             toolDefs,
			Sections:          in.Sections,
			Budget:            r.deps.Budget,
			GuardrailFeedback: feedback,
		})
		if err != nil {
			return nil, fmt.Errorf("run phase %s: %w", phase, err)
		}
		feedback = ""

		selection := r.deps.Selector.SelectModel(phase)
		if selection.WasFallback {
			r.logger.Warn("phase has no configured model, using global fallback",
				"phase", phase,
				"model", selection.SelectedModel)
		}

		// Verdicts never carry over between invocations.
		r.deps.Tracker.ResetForInvocation()

		resp, err := r.invoke(ctx, llm.InvokeRequest{
			SystemPrompt: systemPrompt,
			Messages:     messages,
			Model:        selection.SelectedModel,
			Tools:        toolDefs,
			Temperature:  r.deps.Temperature,
			MaxTokens:    r.deps.MaxTokens,
		})
		if err != nil {
			r.recordInvocationFailure(err)
			r.checkpoint(ctx, session.EventRunInterrupted, in.TaskID, in.Component, in.CommitRef)
			return nil, fmt.Errorf("invoke model for phase %s: %w", phase, err)
		}
		r.recordTokenUsage(resp)
		lastContent = resp.Content

		if resp.IsIdle() {
			r.logger.Info("model idle, ending phase run",
				"phase", phase,
				"iterations", iteration)
			return r.finish(ctx, in, iteration, lastContent)
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content})
		for _, toolCall := range resp.ToolCalls {
			result, execErr := counting.Execute(ctx, toolCall)
			if execErr != nil {
				r.logger.Warn("tool dispatch failed",
					"tool", toolCall.Name,
					"call_id", toolCall.ID,
					"error", execErr)
			}
			messages = append(messages, toolResultMessage(toolCall, result))
		}

		verdict := r.deps.Pipeline.Evaluate(ctx, counting.GuardrailContext(module, in.TaskID, iteration))
		if r.deps.Metrics != nil {
			r.deps.Metrics.GuardrailVerdicts.WithLabelValues(verdict.Status.String()).Inc()
		}

		switch verdict.Status {
		case guardrail.StatusWarn:
			feedback = verdict.FormatFeedback()
			r.logger.Info("guardrail warning",
				"phase", phase,
				"iteration", iteration,
				"message", verdict.Message)
		case guardrail.StatusBlock:
			r.checkpoint(ctx, session.EventRunInterrupted, in.TaskID, in.Component, in.CommitRef)
			return nil, &BlockedError{Message: verdict.Message, Iteration: iteration}
		}
	}
}

// invoke dispatches one model invocation, bounded by the configured timeout.
func (r *Runner) invoke(ctx context.Context, req llm.InvokeRequest) (*llm.InvokeResult, error) {
	if r.deps.InvokeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.deps.InvokeTimeout)
		defer cancel()
	}
	return r.deps.Transport.Invoke(ctx, req)
}

// finish fires the completion trigger and checkpoints the transition.
func (r *Runner) finish(ctx context.Context, in RunInput, iterations int, content string) (*RunResult, error) {
	phaseBefore := r.deps.Engine.CurrentPhase()

	fired := false
	if in.CompletionTrigger != "" {
		fired = r.deps.Engine.Fire(in.CompletionTrigger)
		if !fired {
			r.logger.Warn("completion trigger not permitted",
				"trigger", in.CompletionTrigger,
				"step", r.deps.Engine.CurrentStep())
		}
	}

	if fired {
		event := session.EventStepCompleted
		if r.deps.Engine.CurrentPhase() != phaseBefore {
			event = session.EventPhaseTransition
		}
		r.checkpoint(ctx, event, in.TaskID, in.Component, in.CommitRef)
	}

	return &RunResult{
		Iterations:   iterations,
		FinalContent: content,
		Fired:        fired,
		Step:         r.deps.Engine.CurrentStep(),
	}, nil
}

// checkpoint saves the engine's position. Store failures are logged, never
// allowed to mask the condition that triggered the checkpoint.
func (r *Runner) checkpoint(ctx context.Context, event session.Event, taskID, component, commitRef string) {
	if r.deps.Store == nil {
		return
	}

	cp := session.Checkpoint{
		Module:    r.deps.Engine.Module(),
		Step:      string(r.deps.Engine.CurrentStep()),
		Phase:     string(r.deps.Engine.CurrentPhase()),
		TaskID:    taskID,
		Component: component,
		CommitRef: commitRef,
		Event:     event,
		At:        time.Now(),
	}
	if err := r.deps.Store.Save(ctx, cp); err != nil {
		r.logger.Warn("checkpoint save failed",
			"module", cp.Module,
			"event", event,
			"error", err)
	}
}

// TaskOutcome describes a task boundary for checkpointing.
type TaskOutcome struct {
	TaskID    string
	Component string
	CommitRef string
	Completed bool
}

// RecordTaskOutcome checkpoints a task completion or failure boundary.
func (r *Runner) RecordTaskOutcome(ctx context.Context, out TaskOutcome) {
	event := session.EventTaskCompleted
	if !out.Completed {
		event = session.EventTaskFailed
	}
	r.checkpoint(ctx, event, out.TaskID, out.Component, out.CommitRef)
}

func (r *Runner) recordInvocationFailure(err error) {
	if r.deps.Metrics == nil {
		return
	}

	kind := "error"
	var exhausted *llm.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		kind = "exhausted"
	case llm.IsUnavailable(err):
		kind = "unavailable"
	case llm.IsAuth(err):
		kind = "auth"
	case llm.IsTransient(err):
		kind = "transient"
	}
	r.deps.Metrics.InvocationFailures.WithLabelValues(kind).Inc()
}

func (r *Runner) recordTokenUsage(resp *llm.InvokeResult) {
	if r.deps.Metrics == nil || resp.Usage.TotalTokens == 0 {
		return
	}
	r.deps.Metrics.TokensUsed.WithLabelValues(resp.Model, "input").Add(float64(resp.Usage.InputTokens))
	r.deps.Metrics.TokensUsed.WithLabelValues(resp.Model, "output").Add(float64(resp.Usage.OutputTokens))
}

// toolResultMessage folds a tool result into the conversation. Errors are
// surfaced as readable text so the model can self-correct.
func toolResultMessage(call agentic.ToolCall, result agentic.ToolResult) llm.Message {
	content := result.Content
	if result.Error != "" {
		content = fmt.Sprintf("Tool %s failed: %s", call.Name, result.Error)
	}
	return llm.Message{Role: "tool", Content: content}
}
