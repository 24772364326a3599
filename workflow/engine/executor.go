package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/condition"
	"github.com/Azure/go-workflow-engine/workflow/events"
	"github.com/Azure/go-workflow-engine/workflow/registry"
)

// Executor drives the state machine for a single Instance: it selects
// next steps, resolves and invokes actions, handles retry/timeout/
// compensation, and persists through a StateManager. Per-Instance
// execution is strictly sequential; different Instances may run
// concurrently across separate Executor.Run calls.
type Executor struct {
	states   *StateManager
	registry *registry.Registry
	sink     events.Sink
	breakers *breakerRegistry
	logger   *slog.Logger
}

// NewExecutor builds an Executor. sink may be events.Noop{} and
// breakers may be nil (circuit breaker disabled).
func NewExecutor(states *StateManager, reg *registry.Registry, sink events.Sink, breakerCfg *BreakerConfig, logger *slog.Logger) *Executor {
	if sink == nil {
		sink = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	var breakers *breakerRegistry
	if breakerCfg != nil {
		breakers = newBreakerRegistry(*breakerCfg)
	}
	return &Executor{states: states, registry: reg, sink: sink, breakers: breakers, logger: logger}
}

func (e *Executor) emit(ev events.Event) {
	if err := e.sink.Emit(ev); err != nil {
		e.logger.Warn("event sink failed", "event", ev.Type, "error", err)
	}
}

// Run executes inst from its current position until it reaches a
// terminal state or a fatal step failure. Re-invoking Run on an already
// terminal Instance is a no-op: no state change, no events, per the
// idempotence requirement.
func (e *Executor) Run(ctx context.Context, inst *workflow.Instance) error {
	if inst.State.IsTerminal() {
		return nil
	}

	if inst.State == workflow.StatePending {
		if err := e.states.TransitionState(ctx, inst, workflow.StateRunning); err != nil {
			return err
		}
	}

	// The executor's natural shape is recursive (step -> recurse to
	// select the next batch); this loop converts that into iteration so
	// the call stack stays bounded on long workflows. The frontier is
	// recomputed from scratch every pass (see computeFrontier) rather
	// than walked from a single "current" step, so a branching graph's
	// other arms are never dropped just because one pass only advanced
	// one of several concurrent successors.
	for {
		if inst.State.IsTerminal() {
			return nil
		}

		frontier := computeFrontier(inst)
		if len(frontier) == 0 {
			if err := e.states.TransitionState(ctx, inst, workflow.StateCompleted); err != nil {
				return err
			}
			e.emit(events.Event{Type: events.TypeWorkflowCompleted, InstanceID: inst.ID, WorkflowName: inst.DefinitionRef.Name, At: time.Now().UTC()})
			return nil
		}

		progressed, err := e.processCandidates(ctx, inst, frontier)
		if err != nil {
			return err
		}
		if !progressed {
			// Every candidate this pass was deferred (unmet
			// prerequisite or can_execute()==false). Nothing more can
			// happen without an external signal; leave the instance
			// where it is rather than spin.
			return nil
		}
	}
}

// computeFrontier derives the set of not-yet-completed steps currently
// reachable: the union, over every already-completed step, of its
// Definition.NextSteps, minus anything already completed. Before any
// step has completed this is just [FirstStep()]. Recomputing the full
// union on every pass (and identically after a Resume, since it is a
// pure function of CompletedSteps and Data, not separately persisted
// state) means a fan-out step's several successors are all considered
// every pass, not just the successors of whichever single step the
// previous pass happened to finish last.
func computeFrontier(inst *workflow.Instance) []workflow.Step {
	if len(inst.CompletedSteps) == 0 {
		return []workflow.Step{inst.Definition.FirstStep()}
	}
	seen := map[string]bool{}
	var frontier []workflow.Step
	for _, completedID := range inst.CompletedSteps {
		for _, s := range inst.Definition.NextSteps(completedID, inst.Data) {
			if inst.HasCompleted(s.ID()) || seen[s.ID()] {
				continue
			}
			seen[s.ID()] = true
			frontier = append(frontier, s)
		}
	}
	return frontier
}

// processCandidates attempts every step in the current frontier, in
// the order computeFrontier produced them, per step 4 of the executor
// algorithm. It returns progressed=true if at least one candidate was
// completed or skipped (i.e. the instance's position meaningfully
// advanced), so Run knows whether to recompute the frontier and loop
// again or stop and wait for an external signal. A step failure
// returns immediately via handleFailure rather than finishing the rest
// of the frontier.
func (e *Executor) processCandidates(ctx context.Context, inst *workflow.Instance, candidates []workflow.Step) (progressed bool, err error) {
	for _, step := range candidates {
		if inst.HasCompleted(step.ID()) {
			continue
		}

		if !prerequisitesMet(step, inst.CompletedSteps) {
			continue
		}

		if !condition.EvaluateAll(step.Conditions(), inst.Data) {
			// Legitimately skipped: mark completed without running the
			// action so COMPLETED's invariant (every step completed or
			// legitimately unreachable) is witnessed via CompletedSteps
			// for condition-gated steps that do run their guard.
			if err := e.states.CompleteStep(ctx, inst, step.ID(), nil); err != nil {
				return false, err
			}
			progressed = true
			continue
		}

		if err := e.states.SetCurrentStep(ctx, inst, step.ID()); err != nil {
			return false, err
		}

		stepCtx := workflow.NewContext(inst.ID, step.ID(), inst.Data, step.Config())

		action, err := e.registry.Resolve(step.ActionRef(), step.Config())
		if err != nil {
			return false, err
		}

		if !action.CanExecute(stepCtx) {
			// Deferred: may become executable on a future pass driven
			// by an external signal. Do not mark failed or completed.
			continue
		}

		result := e.invoke(ctx, inst, step, action)
		if result.IsSuccess() {
			if err := e.states.CompleteStep(ctx, inst, step.ID(), result.Data()); err != nil {
				return false, err
			}
			e.emit(events.Event{Type: events.TypeStepCompleted, InstanceID: inst.ID, WorkflowName: inst.DefinitionRef.Name, StepID: step.ID(), At: time.Now().UTC(), Data: result.Data()})
			progressed = true
			continue
		}

		// handleFailure always returns a non-nil error: either the
		// StepExecutionFailed re-raise the spec requires, or a storage
		// error if persisting the FAILED state itself failed.
		return false, e.handleFailure(ctx, inst, step, result.Error())
	}
	return progressed, nil
}

func prerequisitesMet(step workflow.Step, completed []string) bool {
	done := map[string]bool{}
	for _, id := range completed {
		done[id] = true
	}
	for _, p := range step.Prerequisites() {
		if !done[p] {
			return false
		}
	}
	return true
}

// invoke runs the step's middleware chain: the optional circuit breaker
// (when configured) wraps retry, which wraps the per-attempt timeout,
// which wraps the raw action invocation.
func (e *Executor) invoke(ctx context.Context, inst *workflow.Instance, step workflow.Step, action workflow.Action) workflow.ActionResult {
	policy := PolicyFromConfig(step.RetryAttempts(), step.Config())

	onAttempt := func(o RetryOutcome) {
		if o.Result.IsFailure() {
			_ = e.states.FailStep(ctx, inst, step.ID(), o.Result.Error())
			e.emit(events.Event{
				Type: events.TypeStepFailed, InstanceID: inst.ID, WorkflowName: inst.DefinitionRef.Name,
				StepID: step.ID(), Error: o.Result.Error(), Attempt: o.Attempt, At: time.Now().UTC(),
			})
		}
	}

	var mws []StepMiddleware
	if e.breakers != nil {
		mws = append(mws, circuitBreakerMiddleware(e.breakers))
	}
	mws = append(mws, retryMiddleware(policy, onAttempt), timeoutMiddleware(step.Timeout()))

	handler := Chain(invokeAction, mws...)
	return handler(ctx, Invocation{
		WorkflowName: inst.DefinitionRef.Name,
		InstanceID:   inst.ID,
		Step:         step,
		Action:       action,
		Context:      workflow.NewContext(inst.ID, step.ID(), inst.Data, step.Config()),
	})
}

// handleFailure implements §4.6: log the failure (already logged per
// attempt by onAttempt above), run compensations in reverse completion
// order, then transition to FAILED.
func (e *Executor) handleFailure(ctx context.Context, inst *workflow.Instance, step workflow.Step, errMsg string) error {
	e.runCompensations(ctx, inst)

	if err := e.states.FailWorkflow(ctx, inst, errMsg); err != nil {
		return err
	}
	e.emit(events.Event{Type: events.TypeWorkflowFailed, InstanceID: inst.ID, WorkflowName: inst.DefinitionRef.Name, StepID: step.ID(), Error: errMsg, At: time.Now().UTC()})

	return &workflow.Error{Kind: workflow.KindStepExecutionFailed, Message: errMsg, Step: step.ID(), Context: inst.Data}
}

// runCompensations walks inst.CompletedSteps in reverse order and runs
// the compensation action of every completed step that declared one.
// Best-effort: a compensation failure is logged into FailedSteps but
// does not itself trigger further compensation.
func (e *Executor) runCompensations(ctx context.Context, inst *workflow.Instance) {
	for i := len(inst.CompletedSteps) - 1; i >= 0; i-- {
		stepID := inst.CompletedSteps[i]
		step, ok := inst.Definition.Step(stepID)
		if !ok || step.CompensationRef() == "" {
			continue
		}
		action, err := e.registry.Resolve(step.CompensationRef(), step.Config())
		if err != nil {
			_ = e.states.FailStep(ctx, inst, stepID, "compensation resolve failed: "+err.Error())
			continue
		}
		compCtx := workflow.NewContext(inst.ID, stepID, inst.Data, step.Config())
		result := action.Execute(compCtx)
		if result.IsFailure() {
			_ = e.states.FailStep(ctx, inst, stepID, "compensation failed: "+result.Error())
		}
	}
}
