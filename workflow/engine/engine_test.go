package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/builtins"
	"github.com/Azure/go-workflow-engine/workflow/registry"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	reg := registry.New()
	builtins.Register(reg)
	e := New(reg)
	t.Cleanup(e.Close)
	return e
}

func simpleDef(t *testing.T) workflow.Definition {
	t.Helper()
	def, err := workflow.NewDefinition("greet", "1.0",
		[]string{"say_hello"},
		map[string]workflow.Step{"say_hello": workflow.NewStep("say_hello", "log")},
		nil, nil,
	)
	require.NoError(t, err)
	return def
}

func TestEngine_StartRunsToCompletion(t *testing.T) {
	e := newTestEngine(t)
	inst, err := e.Start(context.Background(), "wf-1", simpleDef(t), map[string]interface{}{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, inst.State)

	got, err := e.Get(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, got.State)
}

func TestEngine_StartRejectsDuplicateID(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Start(context.Background(), "wf-dup", simpleDef(t), nil)
	require.NoError(t, err)

	_, err = e.Start(context.Background(), "wf-dup", simpleDef(t), nil)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindDuplicateInstance))
}

func TestEngine_ResumeRejectsTerminalInstance(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Start(context.Background(), "wf-term", simpleDef(t), nil)
	require.NoError(t, err)

	_, err = e.Resume(context.Background(), "wf-term")
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindCannotResumeTerminal))
}

func TestEngine_CancelRejectsTerminalInstance(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Start(context.Background(), "wf-cancel-term", simpleDef(t), nil)
	require.NoError(t, err)

	_, err = e.Cancel(context.Background(), "wf-cancel-term", "changed my mind")
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindCannotCancelTerminal))
}

func TestEngine_CancelPendingInstance(t *testing.T) {
	reg := registry.New()
	builtins.Register(reg)
	e := New(reg)
	defer e.Close()

	// Build a PENDING instance directly against the state manager so it
	// never reaches a terminal state via Start.
	def, err := workflow.NewDefinition("never_runs", "1.0",
		[]string{"step_one"},
		map[string]workflow.Step{"step_one": workflow.NewStep("step_one", "log", workflow.WithPrerequisites("missing"))},
		nil, nil,
	)
	require.NoError(t, err)
	inst := workflow.NewInstance("wf-pending", def, nil)
	require.NoError(t, e.states.Save(context.Background(), &inst))

	got, err := e.Cancel(context.Background(), "wf-pending", "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCancelled, got.State)
}

func TestEngine_ListAndStatus(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Start(context.Background(), "wf-list-1", simpleDef(t), nil)
	require.NoError(t, err)
	_, err = e.Start(context.Background(), "wf-list-2", simpleDef(t), nil)
	require.NoError(t, err)

	summaries, err := e.List(context.Background(), ListFilter{State: workflow.StateCompleted})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	status, err := e.Status(context.Background(), "wf-list-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, status.State)
	assert.Equal(t, float64(100), status.Progress)
}

func TestEngine_PassThroughHelpersMatchFacade(t *testing.T) {
	e := newTestEngine(t)
	inst, err := StartWorkflow(context.Background(), e, "wf-helper", simpleDef(t), nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, inst.State)

	got, err := GetWorkflow(context.Background(), e, "wf-helper")
	require.NoError(t, err)
	assert.Equal(t, inst.State, got.State)

	list, err := ListWorkflows(context.Background(), e, ListFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}
