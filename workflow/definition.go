package workflow

import (
	"regexp"

	"github.com/Azure/go-workflow-engine/workflow/condition"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ValidName reports whether name matches the identifier pattern
// required of a Definition's name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Definition is the immutable workflow blueprint: steps, transitions,
// and metadata. Once built (by Builder or Parser) it is never mutated;
// every Instance of it is persisted alongside a snapshot of the
// Definition it was created from so later code changes to step ids
// never desynchronize in-flight instances.
type Definition struct {
	name        string
	version     string
	stepOrder   []string
	steps       map[string]Step
	transitions []Transition
	metadata    map[string]interface{}
}

// NewDefinition constructs a Definition directly from already-validated
// parts. Builder and Parser are the normal entry points; this
// constructor exists for tests and for the two of them to share.
// stepOrder fixes insertion order for FirstStep's declaration-order
// fallback and for serialization.
func NewDefinition(name, version string, stepOrder []string, steps map[string]Step, transitions []Transition, metadata map[string]interface{}) (Definition, error) {
	if !ValidName(name) {
		return Definition{}, NewError(KindInvalidName, "definition name must match ^[A-Za-z][A-Za-z0-9_-]*$").WithContext(map[string]interface{}{"name": name})
	}
	if len(stepOrder) == 0 {
		return Definition{}, NewError(KindEmptyWorkflow, "definition must declare at least one step")
	}
	seen := map[string]bool{}
	for _, id := range stepOrder {
		if seen[id] {
			return Definition{}, NewError(KindDuplicateStepID, "duplicate step id").WithStep(id)
		}
		seen[id] = true
		if _, ok := steps[id]; !ok {
			return Definition{}, NewError(KindInvalidStepID, "step order references unknown step id").WithStep(id)
		}
	}
	for _, t := range transitions {
		if _, ok := steps[t.FromStepID]; !ok {
			return Definition{}, NewError(KindInvalidTransition, "transition references unknown from-step").WithStep(t.FromStepID)
		}
		if _, ok := steps[t.ToStepID]; !ok {
			return Definition{}, NewError(KindInvalidTransition, "transition references unknown to-step").WithStep(t.ToStepID)
		}
	}
	if version == "" {
		version = "1.0"
	}
	stepsCopy := make(map[string]Step, len(steps))
	for k, v := range steps {
		stepsCopy[k] = v
	}
	return Definition{
		name:        name,
		version:     version,
		stepOrder:   append([]string{}, stepOrder...),
		steps:       stepsCopy,
		transitions: append([]Transition{}, transitions...),
		metadata:    deepCopyMap(metadata),
	}, nil
}

func (d Definition) Name() string    { return d.name }
func (d Definition) Version() string { return d.version }

func (d Definition) Metadata() map[string]interface{} { return deepCopyMap(d.metadata) }

func (d Definition) Step(id string) (Step, bool) {
	s, ok := d.steps[id]
	return s, ok
}

// Steps returns the definition's steps in declaration order.
func (d Definition) Steps() []Step {
	out := make([]Step, 0, len(d.stepOrder))
	for _, id := range d.stepOrder {
		out = append(out, d.steps[id])
	}
	return out
}

func (d Definition) StepCount() int { return len(d.stepOrder) }

// Transitions returns the definition's transitions in declaration order.
func (d Definition) Transitions() []Transition {
	return append([]Transition{}, d.transitions...)
}

// FirstStep returns the unique step with no incoming transition. If
// none qualifies (every step has an incoming transition, or there are
// ties), it falls back to the first step by declaration order.
func (d Definition) FirstStep() Step {
	hasIncoming := map[string]bool{}
	for _, t := range d.transitions {
		hasIncoming[t.ToStepID] = true
	}
	var candidates []string
	for _, id := range d.stepOrder {
		if !hasIncoming[id] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 1 {
		return d.steps[candidates[0]]
	}
	return d.steps[d.stepOrder[0]]
}

// IsTerminal reports whether stepID has no outgoing transitions.
func (d Definition) IsTerminal(stepID string) bool {
	for _, t := range d.transitions {
		if t.FromStepID == stepID {
			return false
		}
	}
	return true
}

// NextSteps implements the sole fan-out mechanism of the graph. When
// currentID is empty it returns [FirstStep()]. Otherwise it walks
// outgoing transitions from currentID in declaration order, evaluating
// each transition's condition (if any) against data, and collects every
// step whose guard holds (or which is unconditional).
func (d Definition) NextSteps(currentID string, data map[string]interface{}) []Step {
	if currentID == "" {
		return []Step{d.FirstStep()}
	}
	var out []Step
	for _, t := range d.transitions {
		if t.FromStepID != currentID {
			continue
		}
		if t.HasCondition() {
			if !condition.EvaluateTransition(t.Condition, data) {
				continue
			}
		}
		if s, ok := d.steps[t.ToStepID]; ok {
			out = append(out, s)
		}
	}
	return out
}
