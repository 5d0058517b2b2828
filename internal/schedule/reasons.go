package schedule

import "fmt"

// ReasonCode is the closed set of rejection reasons surfaced to callers.
// Infrastructure failures (repository I/O) are never mapped onto these; they
// propagate as plain wrapped errors so UIs can tell "pick another time" apart
// from "system unavailable".
type ReasonCode string

const (
	ReasonNotAWorkingDay         ReasonCode = "NOT_A_WORKING_DAY"
	ReasonOutsideBusinessHours   ReasonCode = "OUTSIDE_BUSINESS_HOURS"
	ReasonInvalidSlotAlignment   ReasonCode = "INVALID_SLOT_ALIGNMENT"
	ReasonInvalidDuration        ReasonCode = "INVALID_DURATION"
	ReasonInsufficientLeadTime   ReasonCode = "INSUFFICIENT_LEAD_TIME"
	ReasonBookingTooFarAhead     ReasonCode = "BOOKING_TOO_FAR_AHEAD"
	ReasonNoActiveContract       ReasonCode = "NO_ACTIVE_CONTRACT"
	ReasonSlotAlreadyBooked      ReasonCode = "SLOT_ALREADY_BOOKED"
	ReasonInvalidStateTransition ReasonCode = "INVALID_STATE_TRANSITION"
	ReasonAlreadyTerminal        ReasonCode = "ALREADY_TERMINAL"
	ReasonActorNotPermitted      ReasonCode = "ACTOR_NOT_PERMITTED"
)

// ValidationError rejects a proposed appointment draft. Always recoverable:
// the caller re-prompts with the specific reason.
type ValidationError struct {
	Code    ReasonCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Code, e.Message)
}

func validationErr(code ReasonCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// TransitionError rejects an illegal status transition request.
type TransitionError struct {
	Code ReasonCode
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s rejected: %s", e.From, e.To, e.Code)
}
