package parser_test

import (
	"testing"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ListFormImplicitSequential(t *testing.T) {
	doc := map[string]interface{}{
		"name": "t1",
		"steps": []interface{}{
			map[string]interface{}{"id": "a", "action": "log"},
			map[string]interface{}{"id": "b", "action": "log"},
			map[string]interface{}{"id": "c", "action": "log"},
		},
	}
	def, err := parser.Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "a", def.FirstStep().ID())
	next := def.NextSteps("a", nil)
	require.Len(t, next, 1)
	assert.Equal(t, "b", next[0].ID())
}

func TestParse_ExplicitTransitionsWithCondition(t *testing.T) {
	doc := map[string]interface{}{
		"name": "t2",
		"steps": []interface{}{
			map[string]interface{}{"id": "validate", "action": "log"},
			map[string]interface{}{"id": "premium", "action": "log"},
			map[string]interface{}{"id": "finalize", "action": "log"},
		},
		"transitions": []interface{}{
			map[string]interface{}{"from": "validate", "to": "premium", "condition": `user.plan === "premium"`},
			map[string]interface{}{"from": "validate", "to": "finalize", "condition": `user.plan !== "premium"`},
			map[string]interface{}{"from": "premium", "to": "finalize"},
		},
	}
	def, err := parser.Parse(doc)
	require.NoError(t, err)
	next := def.NextSteps("validate", map[string]interface{}{"user": map[string]interface{}{"plan": "basic"}})
	require.Len(t, next, 1)
	assert.Equal(t, "finalize", next[0].ID())
}

func TestParse_TimeoutFormats(t *testing.T) {
	for _, tc := range []struct {
		raw     interface{}
		wantErr bool
	}{
		{"30s", false},
		{"5m", false},
		{"2h", false},
		{"1d", false},
		{30, false},
		{"30", true},
		{0, true},
	} {
		doc := map[string]interface{}{
			"name": "t3",
			"steps": []interface{}{
				map[string]interface{}{"id": "a", "action": "log", "timeout": tc.raw},
			},
		}
		_, err := parser.Parse(doc)
		if tc.wantErr {
			assert.Error(t, err, "%v", tc.raw)
		} else {
			assert.NoError(t, err, "%v", tc.raw)
		}
	}
}

func TestParse_RetryAttemptsBounds(t *testing.T) {
	mk := func(n int) map[string]interface{} {
		return map[string]interface{}{
			"name": "t4",
			"steps": []interface{}{
				map[string]interface{}{"id": "a", "action": "log", "retry_attempts": n},
			},
		}
	}
	_, err := parser.Parse(mk(-1))
	assert.Error(t, err)
	_, err = parser.Parse(mk(11))
	assert.Error(t, err)
	_, err = parser.Parse(mk(0))
	assert.NoError(t, err)
	_, err = parser.Parse(mk(10))
	assert.NoError(t, err)
}

func TestParse_InvalidTransitionUnknownStep(t *testing.T) {
	doc := map[string]interface{}{
		"name": "t5",
		"steps": []interface{}{
			map[string]interface{}{"id": "a", "action": "log"},
		},
		"transitions": []interface{}{
			map[string]interface{}{"from": "a", "to": "ghost"},
		},
	}
	_, err := parser.Parse(doc)
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindInvalidTransition))
}

func TestParseYAML_RoundTripsWithBuilder(t *testing.T) {
	raw := []byte(`
name: t6
steps:
  - id: a
    action: log
  - id: b
    action: log
`)
	def, err := parser.ParseYAML(raw)
	require.NoError(t, err)
	assert.Equal(t, "t6", def.Name())
	assert.Equal(t, 2, def.StepCount())
}

func TestParseJSON(t *testing.T) {
	raw := []byte(`{"name":"t7","steps":[{"id":"a","action":"log"}]}`)
	def, err := parser.ParseJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "t7", def.Name())
}

func TestParse_WithSchema_RejectsMissingName(t *testing.T) {
	doc := map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{"id": "a", "action": "log"},
		},
	}
	_, err := parser.Parse(doc, parser.WithSchema())
	require.Error(t, err)
}
