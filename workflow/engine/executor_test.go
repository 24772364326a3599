package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/builtins"
	"github.com/Azure/go-workflow-engine/workflow/events"
	"github.com/Azure/go-workflow-engine/workflow/registry"
	"github.com/Azure/go-workflow-engine/workflow/storage/memstore"
)

type recordingSink struct {
	events []events.Event
}

func (s *recordingSink) Emit(ev events.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) types() []events.Type {
	out := make([]events.Type, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func newTestExecutor(t *testing.T, sink events.Sink, breakerCfg *BreakerConfig) (*Executor, *StateManager, *registry.Registry) {
	t.Helper()
	store := memstore.New()
	states := NewStateManager(store)
	reg := registry.New()
	builtins.Register(reg)
	if sink == nil {
		sink = events.Noop{}
	}
	return NewExecutor(states, reg, sink, breakerCfg, nil), states, reg
}

// Scenario: happy sequential path — two log steps, no branching.
func TestExecutor_HappySequentialPath(t *testing.T) {
	def, err := workflow.NewDefinition("onboarding", "1.0",
		[]string{"welcome", "notify"},
		map[string]workflow.Step{
			"welcome": workflow.NewStep("welcome", "log"),
			"notify":  workflow.NewStep("notify", "log"),
		},
		[]workflow.Transition{workflow.NewTransition("welcome", "notify", "")},
		nil,
	)
	require.NoError(t, err)

	sink := &recordingSink{}
	exec, states, _ := newTestExecutor(t, sink, nil)

	inst := workflow.NewInstance("inst-1", def, map[string]interface{}{"user": "ada"})
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	err = exec.Run(context.Background(), &inst)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, inst.State)
	assert.ElementsMatch(t, []string{"welcome", "notify"}, inst.CompletedSteps)
	assert.Contains(t, sink.types(), events.TypeWorkflowCompleted)

	// Idempotence: re-running a terminal instance changes nothing.
	before := inst
	require.NoError(t, exec.Run(context.Background(), &inst))
	assert.Equal(t, before, inst)
}

// Scenario: conditional fan-out skips the branch whose transition guard
// is false; that step is never attempted and never marked completed.
func TestExecutor_ConditionalSkip(t *testing.T) {
	def, err := workflow.NewDefinition("tiering", "1.0",
		[]string{"classify", "premium_path", "basic_path"},
		map[string]workflow.Step{
			"classify":     workflow.NewStep("classify", "log"),
			"premium_path": workflow.NewStep("premium_path", "log"),
			"basic_path":   workflow.NewStep("basic_path", "log"),
		},
		[]workflow.Transition{
			workflow.NewTransition("classify", "premium_path", "tier === premium"),
			workflow.NewTransition("classify", "basic_path", "tier !== premium"),
		},
		nil,
	)
	require.NoError(t, err)

	exec, states, _ := newTestExecutor(t, nil, nil)
	inst := workflow.NewInstance("inst-2", def, map[string]interface{}{"tier": "basic"})
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	require.NoError(t, exec.Run(context.Background(), &inst))
	assert.Equal(t, workflow.StateCompleted, inst.State)
	assert.Contains(t, inst.CompletedSteps, "basic_path")
	assert.NotContains(t, inst.CompletedSteps, "premium_path")
}

// Scenario: a successful step's data merges into Instance.Data and is
// visible to a later step's condition.
func TestExecutor_DataMergeFeedsLaterCondition(t *testing.T) {
	reg := registry.New()
	builtins.Register(reg)
	reg.RegisterFunc("mark_eligible", func(ctx workflow.Context) workflow.ActionResult {
		return workflow.Success(map[string]interface{}{"eligible": true}, nil)
	})

	def, err := workflow.NewDefinition("eligibility", "1.0",
		[]string{"mark", "grant"},
		map[string]workflow.Step{
			"mark":  workflow.NewStep("mark", "mark_eligible"),
			"grant": workflow.NewStep("grant", "log", workflow.WithConditions("eligible === true")),
		},
		[]workflow.Transition{workflow.NewTransition("mark", "grant", "")},
		nil,
	)
	require.NoError(t, err)

	store := memstore.New()
	states := NewStateManager(store)
	exec := NewExecutor(states, reg, events.Noop{}, nil, nil)

	inst := workflow.NewInstance("inst-3", def, nil)
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	require.NoError(t, exec.Run(context.Background(), &inst))
	assert.Equal(t, workflow.StateCompleted, inst.State)
	assert.Equal(t, true, inst.Data["eligible"])
	assert.Contains(t, inst.CompletedSteps, "grant")
}

// Scenario: retry-then-success — a flaky action fails twice then
// succeeds on its third attempt; two StepFailed events with increasing
// attempt numbers precede a single StepCompleted.
func TestExecutor_RetryThenSuccess(t *testing.T) {
	attempt := 0
	reg := registry.New()
	builtins.Register(reg)
	reg.RegisterFunc("flaky", func(ctx workflow.Context) workflow.ActionResult {
		attempt++
		if attempt < 3 {
			return workflow.Failure("transient error", nil)
		}
		return workflow.Success(nil, nil)
	})

	def, err := workflow.NewDefinition("flaky_wf", "1.0",
		[]string{"call"},
		map[string]workflow.Step{"call": workflow.NewStep("call", "flaky", workflow.WithRetryAttempts(3))},
		nil, nil,
	)
	require.NoError(t, err)

	sink := &recordingSink{}
	store := memstore.New()
	states := NewStateManager(store)
	exec := NewExecutor(states, reg, sink, nil, nil)

	inst := workflow.NewInstance("inst-4", def, nil)
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	start := time.Now()
	require.NoError(t, exec.Run(context.Background(), &inst))
	elapsed := time.Since(start)

	assert.Equal(t, workflow.StateCompleted, inst.State)
	assert.Equal(t, 3, attempt)
	assert.GreaterOrEqual(t, elapsed, time.Second) // at least one ~1s backoff sleep elapsed

	failedCount := 0
	for _, ev := range sink.events {
		if ev.Type == events.TypeStepFailed {
			failedCount++
		}
	}
	assert.Equal(t, 2, failedCount)
	assert.Equal(t, events.TypeWorkflowCompleted, sink.events[len(sink.events)-1].Type)
}

// Scenario: a step declares a linear backoff override via its config
// (retry_attempts=3, backoff linear, delay_ms=10) instead of taking the
// exponential default; the override must actually change the sleep
// between attempts, not just be parsed and ignored.
func TestExecutor_BackoffOverrideFromStepConfig(t *testing.T) {
	attempt := 0
	reg := registry.New()
	builtins.Register(reg)
	reg.RegisterFunc("flaky", func(ctx workflow.Context) workflow.ActionResult {
		attempt++
		if attempt < 4 {
			return workflow.Failure("transient error", nil)
		}
		return workflow.Success(nil, nil)
	})

	def, err := workflow.NewDefinition("flaky_linear_wf", "1.0",
		[]string{"call"},
		map[string]workflow.Step{
			"call": workflow.NewStep("call", "flaky",
				workflow.WithRetryAttempts(3),
				workflow.WithConfig(map[string]interface{}{
					"backoff":  "linear",
					"delay_ms": 10,
				}),
			),
		},
		nil, nil,
	)
	require.NoError(t, err)

	store := memstore.New()
	states := NewStateManager(store)
	exec := NewExecutor(states, reg, events.Noop{}, nil, nil)

	inst := workflow.NewInstance("inst-linear", def, nil)
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	start := time.Now()
	require.NoError(t, exec.Run(context.Background(), &inst))
	elapsed := time.Since(start)

	assert.Equal(t, workflow.StateCompleted, inst.State)
	assert.Equal(t, 4, attempt)
	// Linear 10ms/20ms/30ms sleeps total ~60ms, nowhere near the
	// ~1s+1.5s+2.25s the exponential default would need for three failed
	// attempts.
	assert.Less(t, elapsed, 500*time.Millisecond)
}

// Scenario: exhausted retries trigger compensation in reverse
// completion order, then the workflow transitions to FAILED and the
// caller receives a StepExecutionFailed error.
func TestExecutor_ExhaustedRetriesRunsCompensationInReverseOrder(t *testing.T) {
	var compensated []string

	reg := registry.New()
	builtins.Register(reg)
	reg.RegisterFunc("reserve", func(ctx workflow.Context) workflow.ActionResult {
		return workflow.Success(nil, nil)
	})
	reg.RegisterFunc("undo_reserve", func(ctx workflow.Context) workflow.ActionResult {
		compensated = append(compensated, "reserve")
		return workflow.Success(nil, nil)
	})
	reg.RegisterFunc("charge", func(ctx workflow.Context) workflow.ActionResult {
		return workflow.Success(nil, nil)
	})
	reg.RegisterFunc("undo_charge", func(ctx workflow.Context) workflow.ActionResult {
		compensated = append(compensated, "charge")
		return workflow.Success(nil, nil)
	})
	reg.RegisterFunc("ship", func(ctx workflow.Context) workflow.ActionResult {
		return workflow.Failure("carrier unavailable", nil)
	})

	def, err := workflow.NewDefinition("order", "1.0",
		[]string{"reserve", "charge", "ship"},
		map[string]workflow.Step{
			"reserve": workflow.NewStep("reserve", "reserve", workflow.WithCompensation("undo_reserve")),
			"charge":  workflow.NewStep("charge", "charge", workflow.WithCompensation("undo_charge")),
			"ship":    workflow.NewStep("ship", "ship", workflow.WithRetryAttempts(0)),
		},
		[]workflow.Transition{
			workflow.NewTransition("reserve", "charge", ""),
			workflow.NewTransition("charge", "ship", ""),
		},
		nil,
	)
	require.NoError(t, err)

	sink := &recordingSink{}
	store := memstore.New()
	states := NewStateManager(store)
	exec := NewExecutor(states, reg, sink, nil, nil)

	inst := workflow.NewInstance("inst-5", def, nil)
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	runErr := exec.Run(context.Background(), &inst)
	require.Error(t, runErr)
	assert.True(t, workflow.IsKind(runErr, workflow.KindStepExecutionFailed))
	assert.Equal(t, workflow.StateFailed, inst.State)
	assert.Equal(t, []string{"charge", "reserve"}, compensated)
	assert.Contains(t, sink.types(), events.TypeWorkflowFailed)
}

// Scenario: resume picks up where a previously-persisted, non-terminal
// instance left off without re-running already-completed steps.
func TestExecutor_ResumeAcrossRestart(t *testing.T) {
	runCount := map[string]int{}
	reg := registry.New()
	builtins.Register(reg)
	reg.RegisterFunc("step_a", func(ctx workflow.Context) workflow.ActionResult {
		runCount["a"]++
		return workflow.Success(nil, nil)
	})
	reg.RegisterFunc("step_b", func(ctx workflow.Context) workflow.ActionResult {
		runCount["b"]++
		return workflow.Success(nil, nil)
	})

	def, err := workflow.NewDefinition("resumable", "1.0",
		[]string{"a", "b"},
		map[string]workflow.Step{
			"a": workflow.NewStep("a", "step_a"),
			"b": workflow.NewStep("b", "step_b"),
		},
		[]workflow.Transition{workflow.NewTransition("a", "b", "")},
		nil,
	)
	require.NoError(t, err)

	store := memstore.New()
	states := NewStateManager(store)
	exec := NewExecutor(states, reg, events.Noop{}, nil, nil)

	inst := workflow.NewInstance("inst-6", def, nil)
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))
	inst.MarkCompleted("a")
	inst.CurrentStepID = "a"
	require.NoError(t, states.Save(context.Background(), &inst))

	// Simulate a fresh process: reload from storage and resume.
	reloaded, err := states.Load(context.Background(), "inst-6")
	require.NoError(t, err)

	require.NoError(t, exec.Run(context.Background(), &reloaded))
	assert.Equal(t, workflow.StateCompleted, reloaded.State)
	assert.Equal(t, 0, runCount["a"])
	assert.Equal(t, 1, runCount["b"])
}

// Diamond fan-out: A -> B, A -> C, B -> D (C terminal, D reachable only
// through B). A single pass over the batch [B, C] must not cause the
// next pass to derive its candidates from whichever of B/C ran last —
// D has to be scheduled via B's completion regardless of C's position
// in that batch, or COMPLETED would be reached with D neither
// completed nor legitimately unreachable.
func TestExecutor_FanOutSchedulesEveryBranchsSuccessors(t *testing.T) {
	reg := registry.New()
	builtins.Register(reg)

	def, err := workflow.NewDefinition("diamond", "1.0",
		[]string{"a", "b", "c", "d"},
		map[string]workflow.Step{
			"a": workflow.NewStep("a", "log"),
			"b": workflow.NewStep("b", "log"),
			"c": workflow.NewStep("c", "log"),
			"d": workflow.NewStep("d", "log"),
		},
		[]workflow.Transition{
			workflow.NewTransition("a", "b", ""),
			workflow.NewTransition("a", "c", ""),
			workflow.NewTransition("b", "d", ""),
		},
		nil,
	)
	require.NoError(t, err)

	exec, states, _ := newTestExecutor(t, nil, nil)
	inst := workflow.NewInstance("inst-diamond", def, nil)
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	require.NoError(t, exec.Run(context.Background(), &inst))
	assert.Equal(t, workflow.StateCompleted, inst.State)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, inst.CompletedSteps)
}

func TestExecutor_PrerequisitesDeferStepUntilMet(t *testing.T) {
	reg := registry.New()
	builtins.Register(reg)

	def, err := workflow.NewDefinition("fanin", "1.0",
		[]string{"only"},
		map[string]workflow.Step{
			"only": workflow.NewStep("only", "log", workflow.WithPrerequisites("never_runs")),
		},
		nil, nil,
	)
	require.NoError(t, err)

	store := memstore.New()
	states := NewStateManager(store)
	exec := NewExecutor(states, reg, events.Noop{}, nil, nil)

	inst := workflow.NewInstance("inst-7", def, nil)
	require.NoError(t, states.Save(context.Background(), &inst))
	require.NoError(t, states.TransitionState(context.Background(), &inst, workflow.StateRunning))

	require.NoError(t, exec.Run(context.Background(), &inst))
	assert.Equal(t, workflow.StateRunning, inst.State)
	assert.Empty(t, inst.CompletedSteps)
}
