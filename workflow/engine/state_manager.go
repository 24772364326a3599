// Package engine implements the StateManager, Executor, and Engine
// facade (C7-C9): the mediator that funnels every Instance mutation
// through Storage, the iterative step-selection/retry/timeout/
// compensation loop, and the public start/resume/cancel/get/list/status
// API surface.
package engine

import (
	"context"
	"time"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/storage"
)

// StateManager mediates every Instance mutation through Storage,
// enforcing the save-after-every-state-affecting-operation discipline
// the storage contract requires. It is the sole writer of Instance
// state; the Executor never calls Storage directly.
type StateManager struct {
	store storage.Store
}

func NewStateManager(store storage.Store) *StateManager {
	return &StateManager{store: store}
}

func (m *StateManager) Load(ctx context.Context, id string) (workflow.Instance, error) {
	return m.store.Load(ctx, id)
}

func (m *StateManager) Exists(ctx context.Context, id string) (bool, error) {
	return m.store.Exists(ctx, id)
}

func (m *StateManager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

func (m *StateManager) Find(ctx context.Context, criteria storage.Criteria) ([]workflow.Instance, error) {
	return m.store.FindInstances(ctx, criteria)
}

// touch bumps UpdatedAt strictly forward of the previous value so the
// monotonic-updated_at invariant holds even when the underlying clock
// has low resolution.
func touch(inst *workflow.Instance) {
	now := time.Now().UTC()
	if !now.After(inst.UpdatedAt) {
		now = inst.UpdatedAt.Add(time.Nanosecond)
	}
	inst.UpdatedAt = now
}

// Save persists inst after bumping UpdatedAt, the single choke point
// every state-affecting operation below routes through. On success it
// mirrors the store's Version increment onto inst so the next Save
// from the same owner passes the optimistic concurrency check.
func (m *StateManager) Save(ctx context.Context, inst *workflow.Instance) error {
	touch(inst)
	if err := m.store.Save(ctx, *inst); err != nil {
		return err
	}
	inst.Version++
	return nil
}

// TransitionState moves inst.State -> to and persists, failing with
// InvalidStateTransition (via Instance.Transition) without persisting
// if the move is illegal.
func (m *StateManager) TransitionState(ctx context.Context, inst *workflow.Instance, to workflow.State) error {
	if err := inst.Transition(to); err != nil {
		return err
	}
	return m.Save(ctx, inst)
}

// SetCurrentStep persists the instance with a new CurrentStepID.
func (m *StateManager) SetCurrentStep(ctx context.Context, inst *workflow.Instance, stepID string) error {
	inst.CurrentStepID = stepID
	return m.Save(ctx, inst)
}

// CompleteStep merges result data, marks the step completed, and
// persists — the single atomic-from-the-caller's-perspective operation
// step (4.4.i) in the executor algorithm performs.
func (m *StateManager) CompleteStep(ctx context.Context, inst *workflow.Instance, stepID string, resultData map[string]interface{}) error {
	inst.MergeData(resultData)
	inst.MarkCompleted(stepID)
	return m.Save(ctx, inst)
}

// FailStep appends a failed-step record and persists.
func (m *StateManager) FailStep(ctx context.Context, inst *workflow.Instance, stepID, errMsg string) error {
	inst.MarkFailed(stepID, errMsg, time.Now().UTC())
	return m.Save(ctx, inst)
}

// FailWorkflow transitions the instance to FAILED with the given error
// message and persists.
func (m *StateManager) FailWorkflow(ctx context.Context, inst *workflow.Instance, errMsg string) error {
	inst.ErrorMessage = errMsg
	return m.TransitionState(ctx, inst, workflow.StateFailed)
}
