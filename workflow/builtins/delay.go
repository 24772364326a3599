package builtins

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/go-workflow-engine/workflow"
)

// delayAction sleeps for a configured duration, honoring cancellation of
// the context it is invoked under. Since workflow.Context itself carries
// no cancellation signal (it is a plain data bundle), the action
// implements workflow.ContextAwareAction so the executor can hand it the
// step's real context.Context; the bare Execute path waits under
// context.Background() and so cannot be cancelled.
type delayAction struct {
	duration time.Duration
}

func newDelayAction(config map[string]interface{}) (workflow.Action, error) {
	raw, _ := config["duration"].(string)
	if raw == "" {
		return nil, fmt.Errorf("delay action requires a %q config string", "duration")
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("delay action: invalid duration %q: %w", raw, err)
	}
	return delayAction{duration: d}, nil
}

// ExecuteContext is the context-aware execution path the executor calls
// directly when it has a cancellable context available, bypassing the
// bare Action.Execute(ctx) interface method (which has no cancellation
// channel of its own).
func (a delayAction) ExecuteContext(ctx context.Context, wctx workflow.Context) workflow.ActionResult {
	select {
	case <-time.After(a.duration):
		return workflow.Success(nil, nil)
	case <-ctx.Done():
		return workflow.Failure("timeout", nil)
	}
}

func (a delayAction) Execute(wctx workflow.Context) workflow.ActionResult {
	return a.ExecuteContext(context.Background(), wctx)
}

func (a delayAction) CanExecute(workflow.Context) bool { return true }
func (a delayAction) Name() string                     { return "delay" }
func (a delayAction) Description() string              { return "sleeps for a configured duration" }
