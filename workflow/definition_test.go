package workflow_test

import (
	"testing"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleLinearDef(t *testing.T) workflow.Definition {
	t.Helper()
	steps := map[string]workflow.Step{
		"a": workflow.NewStep("a", "log"),
		"b": workflow.NewStep("b", "log"),
		"c": workflow.NewStep("c", "log"),
	}
	transitions := []workflow.Transition{
		workflow.NewTransition("a", "b", ""),
		workflow.NewTransition("b", "c", ""),
	}
	def, err := workflow.NewDefinition("t1", "1.0", []string{"a", "b", "c"}, steps, transitions, nil)
	require.NoError(t, err)
	return def
}

func TestDefinition_NamePattern(t *testing.T) {
	assert.True(t, workflow.ValidName("a"))
	assert.False(t, workflow.ValidName(""))
	assert.False(t, workflow.ValidName("1x"))
	assert.False(t, workflow.ValidName("a b"))
}

func TestDefinition_FirstStep(t *testing.T) {
	def := simpleLinearDef(t)
	assert.Equal(t, "a", def.FirstStep().ID())
}

func TestDefinition_NextSteps_NilCurrentReturnsFirst(t *testing.T) {
	def := simpleLinearDef(t)
	next := def.NextSteps("", nil)
	require.Len(t, next, 1)
	assert.Equal(t, "a", next[0].ID())
}

func TestDefinition_NextSteps_Sequential(t *testing.T) {
	def := simpleLinearDef(t)
	next := def.NextSteps("a", nil)
	require.Len(t, next, 1)
	assert.Equal(t, "b", next[0].ID())
}

func TestDefinition_IsTerminal(t *testing.T) {
	def := simpleLinearDef(t)
	assert.False(t, def.IsTerminal("a"))
	assert.True(t, def.IsTerminal("c"))
}

func TestDefinition_NextSteps_ConditionalFanOut(t *testing.T) {
	steps := map[string]workflow.Step{
		"validate": workflow.NewStep("validate", "log"),
		"premium":  workflow.NewStep("premium", "log"),
		"finalize": workflow.NewStep("finalize", "log"),
	}
	transitions := []workflow.Transition{
		workflow.NewTransition("validate", "premium", `user.plan === "premium"`),
		workflow.NewTransition("validate", "finalize", `user.plan !== "premium"`),
		workflow.NewTransition("premium", "finalize", ""),
	}
	def, err := workflow.NewDefinition("t2", "1.0", []string{"validate", "premium", "finalize"}, steps, transitions, nil)
	require.NoError(t, err)

	data := map[string]interface{}{"user": map[string]interface{}{"plan": "basic"}}
	next := def.NextSteps("validate", data)
	require.Len(t, next, 1)
	assert.Equal(t, "finalize", next[0].ID())
}

func TestDefinition_InvalidName(t *testing.T) {
	_, err := workflow.NewDefinition("", "1.0", []string{"a"}, map[string]workflow.Step{"a": workflow.NewStep("a", "log")}, nil, nil)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindInvalidName))
}

func TestDefinition_EmptyWorkflowRejected(t *testing.T) {
	_, err := workflow.NewDefinition("valid", "1.0", nil, map[string]workflow.Step{}, nil, nil)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindEmptyWorkflow))
}

func TestDefinition_InvalidTransitionRejected(t *testing.T) {
	steps := map[string]workflow.Step{"a": workflow.NewStep("a", "log")}
	_, err := workflow.NewDefinition("valid", "1.0", []string{"a"}, steps,
		[]workflow.Transition{workflow.NewTransition("a", "missing", "")}, nil)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindInvalidTransition))
}
