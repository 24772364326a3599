package workflow

import (
	"errors"
	"fmt"
)

// Error kinds. Names match the stable identifiers in the external
// specification so callers can switch on Kind without depending on
// error wrapping chains.
const (
	KindInvalidDefinition       = "InvalidDefinition"
	KindInvalidName            = "InvalidName"
	KindDuplicateStepID         = "DuplicateStepId"
	KindInvalidStepID           = "InvalidStepId"
	KindInvalidRetryAttempts    = "InvalidRetryAttempts"
	KindInvalidTimeout          = "InvalidTimeout"
	KindInvalidCondition        = "InvalidCondition"
	KindInvalidDelay            = "InvalidDelay"
	KindEmptyWorkflow           = "EmptyWorkflow"
	KindInvalidTransition       = "InvalidTransition"
	KindActionNotFound          = "ActionNotFound"
	KindInvalidActionClass      = "InvalidActionClass"
	KindWorkflowInstanceNotFound = "WorkflowInstanceNotFound"
	KindDuplicateInstance       = "DuplicateInstance"
	KindInvalidStateTransition  = "InvalidStateTransition"
	KindCannotResumeTerminal    = "CannotResumeTerminal"
	KindCannotCancelTerminal    = "CannotCancelTerminal"
	KindAlreadyRunning          = "AlreadyRunning"
	KindStepExecutionFailed     = "StepExecutionFailed"
	KindStorage                 = "StorageError"
	KindConflict                = "Conflict"
	KindCircuitOpen             = "CircuitOpen"
)

// Error is the single error type carried by this module. It groups a
// stable Kind with an optional step id, a free-form context snapshot,
// and an optional wrapped cause, modeled after a trimmed down version
// of a rich-error builder: one closed set of kinds rather than an open
// taxonomy.
type Error struct {
	Kind    string
	Message string
	Step    string
	Context map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Step != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s (step=%s): %v", e.Kind, e.Message, e.Step, e.Cause)
		}
		return fmt.Sprintf("%s: %s (step=%s)", e.Kind, e.Message, e.Step)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether this error (or any error it wraps) carries the
// given Kind.
func (e *Error) Is(kind string) bool {
	var cur error = e
	for cur != nil {
		if we, ok := cur.(*Error); ok {
			if we.Kind == kind {
				return true
			}
		}
		cur = errors.Unwrap(cur)
	}
	return false
}

// NewError builds an *Error with the given kind and message.
func NewError(kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithStep attaches a step id and returns the same error for chaining.
func (e *Error) WithStep(stepID string) *Error {
	e.Step = stepID
	return e
}

// WithContext attaches a context snapshot and returns the same error.
func (e *Error) WithContext(ctx map[string]interface{}) *Error {
	e.Context = ctx
	return e
}

// WithCause attaches a wrapped cause and returns the same error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// IsKind reports whether err is a *Error (possibly wrapped) with the
// given Kind.
func IsKind(err error, kind string) bool {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Is(kind)
	}
	return false
}
