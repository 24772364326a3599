package engine

import (
	"context"

	"github.com/Azure/go-workflow-engine/workflow"
)

// Invocation carries everything a StepHandler needs to invoke a single
// step attempt.
type Invocation struct {
	WorkflowName string
	InstanceID   string
	Step         workflow.Step
	Attempt      int
	Action       workflow.Action
	Context      workflow.Context
}

// StepHandler invokes one step attempt and returns its result.
type StepHandler func(ctx context.Context, inv Invocation) workflow.ActionResult

// StepMiddleware wraps a StepHandler with cross-cutting behavior
// (tracing, metrics, retry/timeout) without the wrapped handler needing
// to know about it.
type StepMiddleware func(next StepHandler) StepHandler

// Chain composes middlewares around a base handler in the given order:
// the first middleware listed is outermost (runs first on the way in,
// last on the way out), matching how a logging/tracing layer should
// wrap everything beneath it including retries.
func Chain(base StepHandler, mws ...StepMiddleware) StepHandler {
	h := base
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// invokeAction is the innermost StepHandler: it calls the action
// directly, preferring the context-aware path when the action
// implements it.
func invokeAction(ctx context.Context, inv Invocation) workflow.ActionResult {
	if aware, ok := inv.Action.(workflow.ContextAwareAction); ok {
		return aware.ExecuteContext(ctx, inv.Context)
	}
	return inv.Action.Execute(inv.Context)
}
