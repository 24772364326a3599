// Package builder provides a fluent constructor for workflow.Definition,
// modeled on the same accumulate-then-finalize DAG-builder pattern: add
// steps (optionally scoped under When), then Build() to validate and
// freeze.
package builder

import (
	"time"

	"github.com/Azure/go-workflow-engine/workflow"
)

// Builder accumulates steps and transitions for a single Definition.
type Builder struct {
	name        string
	version     string
	metadata    map[string]interface{}
	stepOrder   []string
	steps       map[string]workflow.Step
	transitions []workflow.Transition
	conditionStack []string
	err         error
}

// New starts a Builder for a workflow named name. Build() later
// reports InvalidName if name is empty or malformed.
func New(name string) *Builder {
	b := &Builder{
		name:    name,
		version: "1.0",
		steps:   map[string]workflow.Step{},
	}
	if !workflow.ValidName(name) {
		b.err = workflow.NewError(workflow.KindInvalidName, "definition name must match ^[A-Za-z][A-Za-z0-9_-]*$").
			WithContext(map[string]interface{}{"name": name})
	}
	return b
}

// Version overrides the default version ("1.0").
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Metadata attaches opaque metadata to the resulting Definition.
func (b *Builder) Metadata(md map[string]interface{}) *Builder {
	b.metadata = md
	return b
}

// StepOptions collects the optional per-step fields accepted by
// AddStep, mirroring the declarative parser's step record fields.
type StepOptions struct {
	Config          map[string]interface{}
	Timeout         time.Duration
	RetryAttempts   int
	CompensationRef string
	Conditions      []string
	Prerequisites   []string
}

// AddStep appends a step to the workflow, implicitly chaining it after
// the previously added step (sequential transition) unless the caller
// later overrides transitions via Transition. Any condition currently
// in scope from an enclosing When is AND-joined onto the step.
func (b *Builder) AddStep(id, actionRef string, opts StepOptions) *Builder {
	if b.err != nil {
		return b
	}
	if _, exists := b.steps[id]; exists {
		b.err = workflow.NewError(workflow.KindDuplicateStepID, "step id already added").WithStep(id)
		return b
	}
	if opts.RetryAttempts < 0 || opts.RetryAttempts > 10 {
		b.err = workflow.NewError(workflow.KindInvalidRetryAttempts, "retry_attempts must be between 0 and 10").WithStep(id)
		return b
	}
	if opts.Timeout < 0 {
		b.err = workflow.NewError(workflow.KindInvalidTimeout, "timeout must be positive").WithStep(id)
		return b
	}

	conditions := append([]string{}, opts.Conditions...)
	conditions = append(conditions, b.conditionStack...)

	step := workflow.NewStep(id, actionRef,
		workflow.WithConfig(opts.Config),
		workflow.WithTimeout(opts.Timeout),
		workflow.WithRetryAttempts(opts.RetryAttempts),
		workflow.WithCompensation(opts.CompensationRef),
		workflow.WithConditions(conditions...),
		workflow.WithPrerequisites(opts.Prerequisites...),
	)

	if len(b.stepOrder) > 0 {
		prev := b.stepOrder[len(b.stepOrder)-1]
		b.transitions = append(b.transitions, workflow.NewTransition(prev, id, ""))
	}
	b.steps[id] = step
	b.stepOrder = append(b.stepOrder, id)
	return b
}

// Transition adds an explicit, possibly-conditional edge, overriding
// the implicit sequential chaining for that pair.
func (b *Builder) Transition(from, to, condition string) *Builder {
	if b.err != nil {
		return b
	}
	kept := b.transitions[:0]
	for _, t := range b.transitions {
		if t.FromStepID == from && t.ToStepID == to && !t.HasCondition() {
			continue
		}
		kept = append(kept, t)
	}
	b.transitions = append(kept, workflow.NewTransition(from, to, condition))
	return b
}

// When scopes body so every AddStep call inside it inherits cond,
// AND-joined with any condition already in scope or step-local.
func (b *Builder) When(cond string, body func(b *Builder)) *Builder {
	if b.err != nil {
		return b
	}
	b.conditionStack = append(b.conditionStack, cond)
	body(b)
	b.conditionStack = b.conditionStack[:len(b.conditionStack)-1]
	return b
}

// Email is sugar for AddStep with the bundled "email" action reference.
func (b *Builder) Email(id, to, subject, body string, opts StepOptions) *Builder {
	if opts.Config == nil {
		opts.Config = map[string]interface{}{}
	}
	opts.Config["to"] = to
	opts.Config["subject"] = subject
	opts.Config["body"] = body
	return b.AddStep(id, "email", opts)
}

// HTTP is sugar for AddStep with the bundled "http" action reference.
func (b *Builder) HTTP(id, method, url string, opts StepOptions) *Builder {
	if opts.Config == nil {
		opts.Config = map[string]interface{}{}
	}
	opts.Config["method"] = method
	opts.Config["url"] = url
	return b.AddStep(id, "http", opts)
}

// Delay is sugar for AddStep with the bundled "delay" action reference.
func (b *Builder) Delay(id string, duration time.Duration, opts StepOptions) *Builder {
	if opts.Config == nil {
		opts.Config = map[string]interface{}{}
	}
	opts.Config["duration"] = duration.String()
	return b.AddStep(id, "delay", opts)
}

// Condition is sugar for AddStep with the bundled "condition" action
// reference, for workflows that want an explicit branching step rather
// than a transition-level guard.
func (b *Builder) Condition(id, predicate string, opts StepOptions) *Builder {
	if opts.Config == nil {
		opts.Config = map[string]interface{}{}
	}
	opts.Config["predicate"] = predicate
	return b.AddStep(id, "condition", opts)
}

// Build finalizes the Definition, failing with EmptyWorkflow if no
// steps were added, or surfacing the first validation error
// encountered during construction.
func (b *Builder) Build() (workflow.Definition, error) {
	if b.err != nil {
		return workflow.Definition{}, b.err
	}
	if len(b.stepOrder) == 0 {
		return workflow.Definition{}, workflow.NewError(workflow.KindEmptyWorkflow, "workflow must declare at least one step")
	}
	return workflow.NewDefinition(b.name, b.version, b.stepOrder, b.steps, b.transitions, b.metadata)
}
