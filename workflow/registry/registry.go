// Package registry resolves an action reference string to a callable
// workflow.Action, in the three-tier order the specification mandates:
// a known fully-qualified implementation id, then a built-in short
// name, then a user-registered short name. Source-side auto-discovery
// by naming convention is deliberately not offered — actions must be
// registered explicitly at program start.
package registry

import (
	"fmt"
	"sync"

	"github.com/Azure/go-workflow-engine/workflow"
)

// Constructor builds an Action, optionally inspecting the step's raw
// config for reflective per-action configuration (§4.2).
type Constructor func(config map[string]interface{}) (workflow.Action, error)

// Registry is a concurrency-safe, three-tier action resolver.
type Registry struct {
	mu         sync.RWMutex
	qualified  map[string]Constructor // tier 1: fully-qualified implementation ids
	builtins   map[string]Constructor // tier 2: bundled short names
	userNamed  map[string]Constructor // tier 3: application-registered short names
}

// New returns an empty Registry. Callers normally obtain one pre-seeded
// with the bundled actions via workflow/builtins.Register(reg).
func New() *Registry {
	return &Registry{
		qualified: map[string]Constructor{},
		builtins:  map[string]Constructor{},
		userNamed: map[string]Constructor{},
	}
}

// RegisterQualified registers a tier-1 fully-qualified implementation
// id, e.g. "github.com/acme/actions.SendInvoice".
func (r *Registry) RegisterQualified(id string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qualified[id] = ctor
}

// RegisterBuiltin registers a tier-2 bundled short name. Intended for
// use by workflow/builtins only.
func (r *Registry) RegisterBuiltin(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[name] = ctor
}

// Register registers a tier-3 user short name.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userNamed[name] = ctor
}

// RegisterFunc is sugar for Register that wraps a plain function as an
// Action, for the common case of a step with no pre-flight condition.
func (r *Registry) RegisterFunc(name string, fn func(ctx workflow.Context) workflow.ActionResult) {
	r.Register(name, func(map[string]interface{}) (workflow.Action, error) {
		return workflow.ActionFunc{FuncName: name, Fn: fn}, nil
	})
}

// Resolve implements the three-tier lookup. It raises ActionNotFound if
// ref matches no tier, and never invokes the constructor's side effects
// before resolution succeeds (resolution and construction are the same
// step here, so a constructor error is reported without a partially
// constructed Action ever being used by the caller).
func (r *Registry) Resolve(ref string, config map[string]interface{}) (workflow.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ctor, ok := r.qualified[ref]; ok {
		return r.build(ref, ctor, config)
	}
	if ctor, ok := r.builtins[ref]; ok {
		return r.build(ref, ctor, config)
	}
	if ctor, ok := r.userNamed[ref]; ok {
		return r.build(ref, ctor, config)
	}
	return nil, workflow.NewError(workflow.KindActionNotFound, fmt.Sprintf("no action registered for reference %q", ref))
}

func (r *Registry) build(ref string, ctor Constructor, config map[string]interface{}) (workflow.Action, error) {
	action, err := ctor(config)
	if err != nil {
		return nil, workflow.NewError(workflow.KindInvalidActionClass, "action constructor failed").WithCause(err)
	}
	if action == nil {
		return nil, workflow.NewError(workflow.KindInvalidActionClass, fmt.Sprintf("constructor for %q returned no action", ref))
	}
	return action, nil
}
