package registry_test

import (
	"testing"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveOrder(t *testing.T) {
	r := registry.New()
	r.RegisterBuiltin("log", func(map[string]interface{}) (workflow.Action, error) {
		return workflow.ActionFunc{FuncName: "builtin-log"}, nil
	})
	r.Register("log", func(map[string]interface{}) (workflow.Action, error) {
		return workflow.ActionFunc{FuncName: "user-log"}, nil
	})

	action, err := r.Resolve("log", nil)
	require.NoError(t, err)
	assert.Equal(t, "builtin-log", action.Name(), "builtin tier must win over user tier")
}

func TestRegistry_QualifiedWinsOverBuiltin(t *testing.T) {
	r := registry.New()
	r.RegisterQualified("acme.SendEmail", func(map[string]interface{}) (workflow.Action, error) {
		return workflow.ActionFunc{FuncName: "qualified"}, nil
	})
	r.RegisterBuiltin("acme.SendEmail", func(map[string]interface{}) (workflow.Action, error) {
		return workflow.ActionFunc{FuncName: "builtin"}, nil
	})

	action, err := r.Resolve("acme.SendEmail", nil)
	require.NoError(t, err)
	assert.Equal(t, "qualified", action.Name())
}

func TestRegistry_ActionNotFound(t *testing.T) {
	r := registry.New()
	_, err := r.Resolve("nonexistent", nil)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindActionNotFound))
}

func TestRegistry_InvalidActionClass(t *testing.T) {
	r := registry.New()
	r.Register("broken", func(map[string]interface{}) (workflow.Action, error) {
		return nil, assertErr{}
	})
	_, err := r.Resolve("broken", nil)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindInvalidActionClass))
}

type assertErr struct{}

func (assertErr) Error() string { return "constructor exploded" }

func TestRegistry_RegisterFunc(t *testing.T) {
	r := registry.New()
	r.RegisterFunc("double", func(ctx workflow.Context) workflow.ActionResult {
		v, _ := ctx.Get("n")
		n, _ := v.(float64)
		return workflow.Success(map[string]interface{}{"n": n * 2}, nil)
	})
	action, err := r.Resolve("double", nil)
	require.NoError(t, err)
	ctx := workflow.NewContext("wf", "s", map[string]interface{}{"n": 3.0}, nil)
	result := action.Execute(ctx)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, map[string]interface{}{"n": 6.0}, result.Data())
}
