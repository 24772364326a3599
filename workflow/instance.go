package workflow

import "time"

// State is one of the Instance lifecycle states.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateWaiting   State = "WAITING"
	StatePaused    State = "PAUSED"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// allowedTransitions is the table-driven state machine. Any attempted
// transition not listed here fails with InvalidStateTransition.
var allowedTransitions = map[State]map[State]bool{
	StatePending: {StateRunning: true, StateCancelled: true},
	StateRunning: {StateWaiting: true, StatePaused: true, StateCompleted: true, StateFailed: true, StateCancelled: true},
	StateWaiting: {StateRunning: true, StateFailed: true, StateCancelled: true},
	StatePaused:  {StateRunning: true, StateCancelled: true},
}

// IsTerminal reports whether s admits no further transitions.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether from -> to is a legal state transition.
func CanTransition(from, to State) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// FailedStep records one failed attempt against an Instance.
type FailedStep struct {
	StepID   string
	Error    string
	FailedAt time.Time
}

// DefinitionRef pins an Instance to the name+version of the Definition
// it was created from, alongside a full snapshot so later code changes
// to step ids never desynchronize an in-flight Instance.
type DefinitionRef struct {
	Name    string
	Version string
}

// Instance is the mutable, persisted execution of a Definition. It is
// the sole mutable aggregate in this model; every mutation is expected
// to funnel through a StateManager (package workflow/engine) which
// enforces the atomic-save-per-mutation discipline described in the
// storage contract.
type Instance struct {
	ID             string
	DefinitionRef  DefinitionRef
	Definition     Definition // snapshot, for recovery independent of code changes
	State          State
	Data           map[string]interface{}
	CurrentStepID  string // empty means "not yet started"
	CompletedSteps []string
	FailedSteps    []FailedStep
	ErrorMessage   string
	Version        int64 // optimistic concurrency token, bumped by storage on every Save
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewInstance creates a PENDING Instance for def with the given id and
// initial data. CreatedAt/UpdatedAt are equal at construction.
func NewInstance(id string, def Definition, initialData map[string]interface{}) Instance {
	now := time.Now().UTC()
	return Instance{
		ID:             id,
		DefinitionRef:  DefinitionRef{Name: def.Name(), Version: def.Version()},
		Definition:     def,
		State:          StatePending,
		Data:           deepCopyMap(initialData),
		CompletedSteps: []string{},
		FailedSteps:    []FailedStep{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy of inst so callers (storage implementations
// in particular) can hand out copies that can't alias the original.
func (inst Instance) Clone() Instance {
	out := inst
	out.Data = deepCopyMap(inst.Data)
	out.CompletedSteps = append([]string{}, inst.CompletedSteps...)
	out.FailedSteps = append([]FailedStep{}, inst.FailedSteps...)
	return out
}

// HasCompleted reports whether stepID is already in CompletedSteps.
func (inst Instance) HasCompleted(stepID string) bool {
	for _, id := range inst.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// MarkCompleted appends stepID to CompletedSteps if not already
// present; re-marking a completed step is a no-op, preserving the set
// invariant.
func (inst *Instance) MarkCompleted(stepID string) {
	if inst.HasCompleted(stepID) {
		return
	}
	inst.CompletedSteps = append(inst.CompletedSteps, stepID)
}

// MarkFailed appends a FailedStep record. This log is append-only: the
// same step id may appear multiple times across retries.
func (inst *Instance) MarkFailed(stepID, errMsg string, at time.Time) {
	inst.FailedSteps = append(inst.FailedSteps, FailedStep{StepID: stepID, Error: errMsg, FailedAt: at})
}

// MergeData folds patch into inst.Data (patch wins on collision).
func (inst *Instance) MergeData(patch map[string]interface{}) {
	inst.Data = MergeData(inst.Data, patch)
}

// Transition attempts inst.State -> to, returning InvalidStateTransition
// if the move is not permitted by the state table.
func (inst *Instance) Transition(to State) error {
	if !CanTransition(inst.State, to) {
		return NewError(KindInvalidStateTransition, "illegal state transition").
			WithContext(map[string]interface{}{"from": string(inst.State), "to": string(to)})
	}
	inst.State = to
	return nil
}

// Progress returns the percentage of definition steps completed.
func (inst Instance) Progress() float64 {
	total := inst.Definition.StepCount()
	if total == 0 {
		return 0
	}
	return float64(len(inst.CompletedSteps)) / float64(total) * 100.0
}

// Summary is the lightweight projection returned by list operations.
type Summary struct {
	ID            string
	Name          string
	State         State
	CurrentStepID string
	Progress      float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (inst Instance) Summary() Summary {
	return Summary{
		ID:            inst.ID,
		Name:          inst.DefinitionRef.Name,
		State:         inst.State,
		CurrentStepID: inst.CurrentStepID,
		Progress:      inst.Progress(),
		CreatedAt:     inst.CreatedAt,
		UpdatedAt:     inst.UpdatedAt,
	}
}

// Status is the projection returned by Engine.Status.
type Status struct {
	ID            string
	Name          string
	State         State
	CurrentStepID string
	Progress      float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (inst Instance) Status() Status {
	return Status{
		ID:            inst.ID,
		Name:          inst.DefinitionRef.Name,
		State:         inst.State,
		CurrentStepID: inst.CurrentStepID,
		Progress:      inst.Progress(),
		CreatedAt:     inst.CreatedAt,
		UpdatedAt:     inst.UpdatedAt,
	}
}
