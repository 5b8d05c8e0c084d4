package loop

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semflow/agentic"
	"github.com/c360studio/semflow/guardrail"
	"github.com/c360studio/semflow/llm"
	"github.com/c360studio/semflow/metric"
	"github.com/c360studio/semflow/prompt"
	"github.com/c360studio/semflow/session"
	workflowtools "github.com/c360studio/semflow/tools/workflow"
	"github.com/c360studio/semflow/verify"
	"github.com/c360studio/semflow/workflow"
)

// scriptedTransport replays a fixed sequence of model turns and records
// every request it receives.
type scriptedTransport struct {
	turns    []*llm.InvokeResult
	requests []llm.InvokeRequest
}

func (s *scriptedTransport) Invoke(_ context.Context, req llm.InvokeRequest) (*llm.InvokeResult, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.turns) {
		return &llm.InvokeResult{Model: req.Model}, nil // idle
	}
	turn := s.turns[len(s.requests)-1]
	turn.Model = req.Model
	return turn, nil
}

// scriptedOracle passes identifiers after a configurable number of attempts.
type scriptedOracle struct {
	passAfter map[string]int
	attempts  map[string]int
}

func (o *scriptedOracle) Judge(_ context.Context, ev verify.Evidence) (*verify.Verdict, error) {
	if o.attempts == nil {
		o.attempts = make(map[string]int)
	}
	o.attempts[ev.Identifier]++
	if o.attempts[ev.Identifier] >= o.passAfter[ev.Identifier] {
		return &verify.Verdict{Passed: true, Scope: ev.Scope}, nil
	}
	return &verify.Verdict{Passed: false, Gaps: []string{"tests missing"}, Scope: ev.Scope}, nil
}

func buildingEngine(t *testing.T) *workflow.Engine {
	t.Helper()
	engine := workflow.NewEngine(workflow.DefaultGraph())
	require.NoError(t, engine.Restore("auth", workflow.StepIterateThroughTasks))
	require.Equal(t, workflow.PhaseBuilding, engine.CurrentPhase())
	return engine
}

func newDeps(t *testing.T, transport llm.Transport, oracle verify.Oracle, guardrails []guardrail.Guardrail) (Deps, *scriptedTransport) {
	t.Helper()

	tracker := verify.NewTracker()
	registry := agentic.NewRegistry()
	require.NoError(t, registry.Register(workflowtools.NewExecutor(oracle, tracker)))

	st, _ := transport.(*scriptedTransport)
	return Deps{
		Engine:    buildingEngine(t),
		Selector:  llm.NewSelector(map[workflow.Phase]llm.PhaseModels{workflow.PhaseBuilding: {Model: "claude-sonnet"}}, "claude-haiku"),
		Transport: transport,
		Registry:  registry,
		Tracker:   tracker,
		Pipeline:  guardrail.NewPipeline(guardrails),
		Store:     session.NewMemoryStore(),
		Metrics:   metric.NewUnregistered(),
		Budget:    4000,
	}, st
}

func toolCall(id, name, target string) agentic.ToolCall {
	return agentic.ToolCall{ID: id, Name: name, Arguments: map[string]any{"id": target}}
}

func TestRunPhaseVerifyThenComplete(t *testing.T) {
	// Turn 1: premature completion claim plus a failing verification.
	// Turn 2: verification passes, completion accepted.
	// Turn 3: idle.
	transport := &scriptedTransport{turns: []*llm.InvokeResult{
		{ToolCalls: []agentic.ToolCall{
			toolCall("c1", "mark_task_complete", "t1"),
			toolCall("c2", "verify_task_completion", "t1"),
		}},
		{ToolCalls: []agentic.ToolCall{
			toolCall("c3", "verify_task_completion", "t1"),
			toolCall("c4", "mark_task_complete", "t1"),
		}},
		{Content: "Task t1 done."},
	}}
	oracle := &scriptedOracle{passAfter: map[string]int{"t1": 2}}
	deps, st := newDeps(t, transport, oracle, nil)

	runner, err := NewRunner(deps)
	require.NoError(t, err)

	result, err := runner.RunPhase(context.Background(), RunInput{
		TaskID:            "t1",
		Instruction:       "Work on task t1",
		Sections:          []prompt.Section{{Title: "Current task", Content: "t1: add token refresh"}},
		CompletionTrigger: workflow.TriggerRepeat,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Iterations)
	assert.True(t, result.Fired)

	// The premature claim on turn 1 came back as a readable rejection naming
	// the verification tool, visible in turn 2's conversation.
	require.Len(t, st.requests, 3)
	var rejection string
	for _, msg := range st.requests[1].Messages {
		if strings.Contains(msg.Content, "verify_task_completion") && strings.Contains(msg.Content, "failed") {
			rejection = msg.Content
		}
	}
	assert.NotEmpty(t, rejection, "premature completion should surface a rejection to the model")
}

func TestRunPhaseResetsTrackerEachInvocation(t *testing.T) {
	// Verification passes on turn 1, but the completion claim only arrives on
	// turn 2 — after the per-invocation reset, so it must be rejected.
	transport := &scriptedTransport{turns: []*llm.InvokeResult{
		{ToolCalls: []agentic.ToolCall{toolCall("c1", "verify_task_completion", "t1")}},
		{ToolCalls: []agentic.ToolCall{toolCall("c2", "mark_task_complete", "t1")}},
		{Content: "done"},
	}}
	oracle := &scriptedOracle{passAfter: map[string]int{"t1": 1}}
	deps, st := newDeps(t, transport, oracle, nil)

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	_, err = runner.RunPhase(context.Background(), RunInput{TaskID: "t1", Instruction: "go"})
	require.NoError(t, err)

	require.Len(t, st.requests, 3)
	var rejected bool
	for _, msg := range st.requests[2].Messages {
		if strings.Contains(msg.Content, "has not been verified in this invocation") {
			rejected = true
		}
	}
	assert.True(t, rejected, "stale verdict from the previous invocation must not permit completion")
}

// alwaysWarn is a fixed-message advisory guardrail for exercising prompt
// injection.
type alwaysWarn struct{}

func (alwaysWarn) Name() string              { return "always_warn" }
func (alwaysWarn) Order() int                { return 10 }
func (alwaysWarn) ShortCircuitOnBlock() bool { return false }
func (alwaysWarn) Evaluate(_ context.Context, _ guardrail.Context) guardrail.Result {
	return guardrail.Warnf("High tool usage: slow down")
}

func TestRunPhaseInjectsWarningIntoNextPrompt(t *testing.T) {
	transport := &scriptedTransport{turns: []*llm.InvokeResult{
		{ToolCalls: []agentic.ToolCall{toolCall("c1", "verify_task_completion", "t1")}},
		{Content: "done"},
	}}
	oracle := &scriptedOracle{passAfter: map[string]int{"t1": 1}}
	deps, st := newDeps(t, transport, oracle, []guardrail.Guardrail{alwaysWarn{}})

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	_, err = runner.RunPhase(context.Background(), RunInput{TaskID: "t1", Instruction: "go"})
	require.NoError(t, err)

	require.Len(t, st.requests, 2)
	assert.NotContains(t, st.requests[0].SystemPrompt, "Guardrail feedback")
	assert.Contains(t, st.requests[1].SystemPrompt, "## Guardrail feedback")
	assert.Contains(t, st.requests[1].SystemPrompt, "tool usage")
}

func TestRunPhaseBlockInterruptsAndCheckpoints(t *testing.T) {
	transport := &scriptedTransport{turns: []*llm.InvokeResult{
		{ToolCalls: []agentic.ToolCall{toolCall("c1", "verify_task_completion", "t1")}},
		{ToolCalls: []agentic.ToolCall{toolCall("c2", "verify_task_completion", "t1")}},
	}}
	oracle := &scriptedOracle{passAfter: map[string]int{"t1": 1}}
	blockRail := guardrail.NewIterationLimit(1)
	deps, _ := newDeps(t, transport, oracle, []guardrail.Guardrail{blockRail})

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	_, err = runner.RunPhase(context.Background(), RunInput{TaskID: "t1", Instruction: "go"})

	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 2, blocked.Iteration)

	cp, err := deps.Store.Load(context.Background(), "auth")
	require.NoError(t, err)
	assert.Equal(t, session.EventRunInterrupted, cp.Event)
	assert.Equal(t, string(workflow.StepIterateThroughTasks), cp.Step)
}

func TestRunPhaseCheckpointsOnInvocationFailure(t *testing.T) {
	failing := llm.NewFallbackTransport(
		&unavailableTransport{},
		llm.NewSelector(nil, "claude-haiku"),
		nil,
	)
	oracle := &scriptedOracle{}
	deps, _ := newDeps(t, failing, oracle, nil)

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	_, err = runner.RunPhase(context.Background(), RunInput{TaskID: "t1", Instruction: "go"})
	require.Error(t, err)

	var exhausted *llm.ExhaustedError
	assert.ErrorAs(t, err, &exhausted)

	cp, loadErr := deps.Store.Load(context.Background(), "auth")
	require.NoError(t, loadErr)
	assert.Equal(t, session.EventRunInterrupted, cp.Event)
}

type unavailableTransport struct{}

func (unavailableTransport) Invoke(_ context.Context, req llm.InvokeRequest) (*llm.InvokeResult, error) {
	return nil, llm.NewUnavailableError(req.Model, nil)
}

func TestRunPhaseCompletionCheckpoint(t *testing.T) {
	transport := &scriptedTransport{turns: []*llm.InvokeResult{{Content: "nothing to do"}}}
	deps, _ := newDeps(t, transport, &scriptedOracle{}, nil)

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	result, err := runner.RunPhase(context.Background(), RunInput{
		Instruction:       "wrap up",
		CompletionTrigger: workflow.TriggerComplete,
	})
	require.NoError(t, err)
	assert.True(t, result.Fired)
	assert.Equal(t, workflow.StepComplete, result.Step)
	assert.True(t, deps.Engine.IsComplete())

	cp, err := deps.Store.Load(context.Background(), "auth")
	require.NoError(t, err)
	assert.Equal(t, session.EventStepCompleted, cp.Event)
}

func TestRunPhasePhaseTransitionCheckpoint(t *testing.T) {
	transport := &scriptedTransport{turns: []*llm.InvokeResult{{Content: "components identified"}}}
	deps, _ := newDeps(t, transport, &scriptedOracle{}, nil)
	require.NoError(t, deps.Engine.Restore("auth", workflow.StepIdentifyComponents))

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	result, err := runner.RunPhase(context.Background(), RunInput{
		Instruction:       "plan the work",
		CompletionTrigger: workflow.TriggerAssess,
	})
	require.NoError(t, err)
	assert.True(t, result.Fired)
	assert.Equal(t, workflow.StepIterateThroughTasks, result.Step)

	// Planning to building crosses a phase boundary.
	cp, err := deps.Store.Load(context.Background(), "auth")
	require.NoError(t, err)
	assert.Equal(t, session.EventPhaseTransition, cp.Event)
}

func TestRecordTaskOutcome(t *testing.T) {
	deps, _ := newDeps(t, &scriptedTransport{}, &scriptedOracle{}, nil)
	runner, err := NewRunner(deps)
	require.NoError(t, err)

	runner.RecordTaskOutcome(context.Background(), TaskOutcome{
		TaskID:    "t1",
		Component: "token-service",
		CommitRef: "abc1234",
		Completed: true,
	})
	cp, err := deps.Store.Load(context.Background(), "auth")
	require.NoError(t, err)
	assert.Equal(t, session.EventTaskCompleted, cp.Event)
	assert.Equal(t, "t1", cp.TaskID)
	assert.Equal(t, "token-service", cp.Component)
	assert.Equal(t, "abc1234", cp.CommitRef)

	runner.RecordTaskOutcome(context.Background(), TaskOutcome{TaskID: "t2"})
	cp, err = deps.Store.Load(context.Background(), "auth")
	require.NoError(t, err)
	assert.Equal(t, session.EventTaskFailed, cp.Event)
}

// settingsTransport records the request and whether the invocation context
// carried a deadline.
type settingsTransport struct {
	req         llm.InvokeRequest
	hadDeadline bool
}

func (s *settingsTransport) Invoke(ctx context.Context, req llm.InvokeRequest) (*llm.InvokeResult, error) {
	s.req = req
	_, s.hadDeadline = ctx.Deadline()
	return &llm.InvokeResult{Content: "done", Model: req.Model}, nil
}

func TestRunPhaseAppliesModelSettings(t *testing.T) {
	transport := &settingsTransport{}
	deps, _ := newDeps(t, transport, &scriptedOracle{}, nil)

	temperature := 0.2
	deps.Temperature = &temperature
	deps.MaxTokens = 1024
	deps.InvokeTimeout = time.Minute

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	_, err = runner.RunPhase(context.Background(), RunInput{Instruction: "go"})
	require.NoError(t, err)

	require.NotNil(t, transport.req.Temperature)
	assert.Equal(t, temperature, *transport.req.Temperature)
	assert.Equal(t, 1024, transport.req.MaxTokens)
	assert.True(t, transport.hadDeadline, "invocation context should carry the configured timeout")
}

func TestRunPhaseCheckpointsCarryTaskPosition(t *testing.T) {
	transport := &scriptedTransport{turns: []*llm.InvokeResult{
		{ToolCalls: []agentic.ToolCall{toolCall("c1", "verify_task_completion", "t1")}},
		{ToolCalls: []agentic.ToolCall{toolCall("c2", "verify_task_completion", "t1")}},
	}}
	oracle := &scriptedOracle{passAfter: map[string]int{"t1": 1}}
	deps, _ := newDeps(t, transport, oracle, []guardrail.Guardrail{guardrail.NewIterationLimit(1)})

	runner, err := NewRunner(deps)
	require.NoError(t, err)
	_, err = runner.RunPhase(context.Background(), RunInput{
		TaskID:      "t1",
		Component:   "token-service",
		CommitRef:   "abc1234",
		Instruction: "go",
	})
	require.Error(t, err)

	cp, loadErr := deps.Store.Load(context.Background(), "auth")
	require.NoError(t, loadErr)
	assert.Equal(t, "token-service", cp.Component)
	assert.Equal(t, "abc1234", cp.CommitRef)
}

func TestNewRunnerValidatesDeps(t *testing.T) {
	_, err := NewRunner(Deps{})
	require.Error(t, err)
}
