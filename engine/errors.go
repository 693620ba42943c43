package engine

import "fmt"

// ErrorCode enumerates the diagnostic categories spec.md sections 4.4 and
// 7 define. Adapted from the teacher's pkg/utils.ErrorCode enum, re-scoped
// to this engine's return-code taxonomy instead of the teacher's
// hierarchical-state error set.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeNoInitState
	ErrCodeTargetNotFound
	ErrCodeMissingEntryExit
	ErrCodeEvalFailed
	ErrCodeSubscriptionFailed
	ErrCodeInvalidTimerID
)

// DispatchResult is the outcome of one call to HandleEvent, used only for
// diagnostics per spec.md section 4.4's closing paragraph ("Return codes
// from handle... used only for diagnostics").
type DispatchResult int

const (
	// ResultOK: a transition fired.
	ResultOK DispatchResult = iota
	// ResultEventNotInGuard: no transition's guard referenced this event.
	ResultEventNotInGuard
	// ResultGuardFalse: a guard referenced the event but evaluated false.
	ResultGuardFalse
	// ResultTargetMissing: a guard fired but its target state does not exist.
	ResultTargetMissing
	// ResultInvalid: the dispatch could not be processed at all (e.g. no
	// current state).
	ResultInvalid
)

func (r DispatchResult) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultEventNotInGuard:
		return "event-not-in-guard"
	case ResultGuardFalse:
		return "guard-false"
	case ResultTargetMissing:
		return "target-missing"
	default:
		return "invalid"
	}
}

// MachineError is a typed error carrying the ErrorCode that produced it,
// adapted from the teacher's *StateError.
type MachineError struct {
	Code    ErrorCode
	StateID string
	Message string
}

func (e *MachineError) Error() string {
	if e.StateID != "" {
		return fmt.Sprintf("statemachine: %s (state %q)", e.Message, e.StateID)
	}
	return fmt.Sprintf("statemachine: %s", e.Message)
}

// ErrNoInitState is returned by Start when the compiled machine has no
// state named "init" (spec.md section 7, "fatal: the runtime does not
// enter the loop").
var ErrNoInitState = &MachineError{Code: ErrCodeNoInitState, Message: "cannot find init state"}

// NewTargetNotFoundError reports a transition whose target state name did
// not resolve at enter time (spec.md section 3's invariant, section 7's
// "logged; the current state is not changed").
func NewTargetNotFoundError(target string) *MachineError {
	return &MachineError{Code: ErrCodeTargetNotFound, StateID: target, Message: "cannot find state"}
}
