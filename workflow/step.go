package workflow

import "time"

// Step is one immutable node in a Definition's graph. All slices/maps
// are copied on construction and accessed only through accessors so a
// Step can be shared freely across instances of the same Definition.
type Step struct {
	id               string
	actionRef        string
	config           map[string]interface{}
	timeout          time.Duration // zero means "no timeout"
	retryAttempts    int
	compensationRef  string
	conditions       []string
	prerequisites    []string
}

// StepOption configures a Step at construction time via NewStep.
type StepOption func(*Step)

// NewStep builds a Step. id and actionRef are required by callers
// (Builder/Parser validate them); NewStep itself performs no
// validation so it can also be used by tests to construct fixtures
// directly.
func NewStep(id, actionRef string, opts ...StepOption) Step {
	s := Step{
		id:        id,
		actionRef: actionRef,
		config:    map[string]interface{}{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func WithConfig(config map[string]interface{}) StepOption {
	return func(s *Step) { s.config = deepCopyMap(config) }
}

func WithTimeout(d time.Duration) StepOption {
	return func(s *Step) { s.timeout = d }
}

func WithRetryAttempts(n int) StepOption {
	return func(s *Step) { s.retryAttempts = n }
}

func WithCompensation(ref string) StepOption {
	return func(s *Step) { s.compensationRef = ref }
}

func WithConditions(conds ...string) StepOption {
	return func(s *Step) { s.conditions = append([]string{}, conds...) }
}

func WithPrerequisites(ids ...string) StepOption {
	return func(s *Step) { s.prerequisites = append([]string{}, ids...) }
}

func (s Step) ID() string              { return s.id }
func (s Step) ActionRef() string       { return s.actionRef }
func (s Step) Timeout() time.Duration  { return s.timeout }
func (s Step) HasTimeout() bool        { return s.timeout > 0 }
func (s Step) RetryAttempts() int      { return s.retryAttempts }
func (s Step) CompensationRef() string { return s.compensationRef }

func (s Step) Config() map[string]interface{} { return deepCopyMap(s.config) }

func (s Step) Conditions() []string {
	out := make([]string, len(s.conditions))
	copy(out, s.conditions)
	return out
}

func (s Step) Prerequisites() []string {
	out := make([]string, len(s.prerequisites))
	copy(out, s.prerequisites)
	return out
}

// WithAddedCondition returns a copy of s with cond appended to its
// conditions list (AND-joined with any already present), leaving s
// itself unchanged.
func (s Step) WithAddedCondition(cond string) Step {
	next := s
	next.conditions = append(append([]string{}, s.conditions...), cond)
	return next
}

// Transition is a directed, optionally-guarded edge between two steps.
// A step with no outgoing Transition is terminal.
type Transition struct {
	FromStepID string
	ToStepID   string
	Condition  string // empty means unconditional
}

func NewTransition(from, to, condition string) Transition {
	return Transition{FromStepID: from, ToStepID: to, Condition: condition}
}

func (t Transition) HasCondition() bool { return t.Condition != "" }
