package workflow_test

import (
	"testing"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance_MarkCompletedIsIdempotent(t *testing.T) {
	def := simpleLinearDef(t)
	inst := workflow.NewInstance("inst-1", def, nil)
	inst.MarkCompleted("a")
	inst.MarkCompleted("a")
	assert.Equal(t, []string{"a"}, inst.CompletedSteps)
}

func TestInstance_StateMachine(t *testing.T) {
	def := simpleLinearDef(t)
	inst := workflow.NewInstance("inst-1", def, nil)

	require.NoError(t, inst.Transition(workflow.StateRunning))
	require.NoError(t, inst.Transition(workflow.StateCompleted))

	err := inst.Transition(workflow.StateRunning)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindInvalidStateTransition))
}

func TestInstance_TerminalStatesAdmitNoFurtherTransitions(t *testing.T) {
	for _, terminal := range []workflow.State{workflow.StateCompleted, workflow.StateFailed, workflow.StateCancelled} {
		assert.True(t, terminal.IsTerminal())
		assert.False(t, workflow.CanTransition(terminal, workflow.StateRunning))
	}
}

func TestInstance_Progress(t *testing.T) {
	def := simpleLinearDef(t)
	inst := workflow.NewInstance("inst-1", def, nil)
	assert.Equal(t, 0.0, inst.Progress())
	inst.MarkCompleted("a")
	inst.MarkCompleted("b")
	inst.MarkCompleted("c")
	assert.Equal(t, 100.0, inst.Progress())
}

func TestInstance_UpdatedAtMonotonic(t *testing.T) {
	def := simpleLinearDef(t)
	inst := workflow.NewInstance("inst-1", def, nil)
	first := inst.UpdatedAt
	inst.UpdatedAt = first.Add(1)
	assert.True(t, inst.UpdatedAt.After(first) || inst.UpdatedAt.Equal(first))
}
