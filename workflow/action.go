package workflow

import "context"

// ContextAwareAction is an optional extension an Action may implement
// to observe the executor's real, cancellable context.Context (for
// timeout enforcement and cooperative cancellation) in addition to the
// plain data-only workflow.Context. The executor prefers this path when
// present; Execute(Context) remains the interface every action must
// implement for the simple case.
type ContextAwareAction interface {
	ExecuteContext(ctx context.Context, wctx Context) ActionResult
}

// Action is the capability every workflow step ultimately invokes.
// Actions are modeled as a narrow interface, not an inheritance
// hierarchy, so that registry resolution only ever has to check
// interface conformance.
type Action interface {
	// Execute performs the step's work.
	Execute(ctx Context) ActionResult
	// CanExecute is a pre-flight predicate checked by the executor
	// before Execute. Returning false defers the step: it is left
	// unprocessed this pass rather than failed.
	CanExecute(ctx Context) bool
	Name() string
	Description() string
}

// ActionFunc adapts a plain function to the Action interface, mirroring
// how the bulk of real step implementations are just
// "func(ctx, data) (result, error)" wrapped in a small shim. Desc and
// CanFn are optional; a nil CanFn lets every invocation run.
type ActionFunc struct {
	FuncName string
	Desc     string
	Fn       func(ctx Context) ActionResult
	CanFn    func(ctx Context) bool
}

func (f ActionFunc) Execute(ctx Context) ActionResult { return f.Fn(ctx) }

func (f ActionFunc) CanExecute(ctx Context) bool {
	if f.CanFn == nil {
		return true
	}
	return f.CanFn(ctx)
}

func (f ActionFunc) Name() string        { return f.FuncName }
func (f ActionFunc) Description() string { return f.Desc }
