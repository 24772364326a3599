package builtins

import (
	"fmt"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/condition"
)

// conditionAction evaluates a predicate and succeeds or fails based on
// the result, for workflows that want an explicit branching step rather
// than transition-level conditions.
type conditionAction struct {
	predicate string
}

func newConditionAction(config map[string]interface{}) (workflow.Action, error) {
	predicate, _ := config["predicate"].(string)
	if predicate == "" {
		return nil, fmt.Errorf("condition action requires a %q config string", "predicate")
	}
	return conditionAction{predicate: predicate}, nil
}

func (a conditionAction) Execute(ctx workflow.Context) workflow.ActionResult {
	result, wellFormed := condition.Evaluate(a.predicate, ctx.Data())
	if !wellFormed || !result {
		return workflow.Failure(fmt.Sprintf("predicate %q did not hold", a.predicate), nil)
	}
	return workflow.Success(map[string]interface{}{"predicate_matched": true}, nil)
}

func (a conditionAction) CanExecute(workflow.Context) bool { return true }
func (a conditionAction) Name() string                     { return "condition" }
func (a conditionAction) Description() string {
	return "evaluates a predicate and succeeds or fails based on the result"
}
