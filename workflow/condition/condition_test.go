package condition_test

import (
	"testing"

	"github.com/Azure/go-workflow-engine/workflow/condition"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_Operators(t *testing.T) {
	data := map[string]interface{}{
		"user": map[string]interface{}{"plan": "premium", "age": 42.0},
	}

	cases := []struct {
		predicate string
		want      bool
	}{
		{`user.plan === "premium"`, true},
		{`user.plan !== "premium"`, false},
		{`user.plan == "basic"`, false},
		{`user.plan != "basic"`, true},
		{`user.age > 18`, true},
		{`user.age < 18`, false},
		{`user.age >= 42`, true},
		{`user.age <= 41`, false},
	}
	for _, tc := range cases {
		got, ok := condition.Evaluate(tc.predicate, data)
		assert.True(t, ok, tc.predicate)
		assert.Equal(t, tc.want, got, tc.predicate)
	}
}

func TestEvaluate_DotPathMiss(t *testing.T) {
	data := map[string]interface{}{}
	got, ok := condition.Evaluate(`missing.path === "x"`, data)
	assert.True(t, ok)
	assert.False(t, got)

	got, ok = condition.Evaluate(`missing.path === null`, data)
	assert.True(t, ok)
	assert.True(t, got)
}

func TestEvaluateTransition_UnparseableDefaultsFalse(t *testing.T) {
	assert.False(t, condition.EvaluateTransition("not a predicate", nil))
}

func TestEvaluateStepCondition_UnparseableDefaultsTrue(t *testing.T) {
	assert.True(t, condition.EvaluateStepCondition("not a predicate", nil))
}

func TestEvaluateAll_ANDJoined(t *testing.T) {
	data := map[string]interface{}{"a": 1.0, "b": 2.0}
	assert.True(t, condition.EvaluateAll([]string{"a == 1", "b == 2"}, data))
	assert.False(t, condition.EvaluateAll([]string{"a == 1", "b == 3"}, data))
}
