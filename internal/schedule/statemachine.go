package schedule

// transitions is the single source of truth for legal status moves. Direct
// status writes bypassing this table are invalid everywhere in the engine.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusConfirmed:   true,
		StatusCancelled:   true,
		StatusRescheduled: true,
	},
	StatusConfirmed: {
		StatusInProgress:  true,
		StatusCancelled:   true,
		StatusNoShow:      true,
		StatusRescheduled: true,
	},
	StatusInProgress: {
		StatusCompleted: true,
	},
	// Completed, Cancelled, NoShow and Rescheduled are terminal.
}

// IsTerminal reports whether no transition may leave the status.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// CheckTransition returns nil when from -> to is legal. Attempts to leave a
// terminal state fail with ALREADY_TERMINAL; every other illegal move fails
// with INVALID_STATE_TRANSITION.
func CheckTransition(from, to Status) error {
	if IsTerminal(from) {
		return &TransitionError{Code: ReasonAlreadyTerminal, From: from, To: to}
	}
	if !transitions[from][to] {
		return &TransitionError{Code: ReasonInvalidStateTransition, From: from, To: to}
	}
	return nil
}

// Capability names a single transition an actor is allowed to request. The
// mapping from roles to capabilities lives outside the engine; callers hand
// in the already-resolved set.
type Capability string

const (
	CapConfirm    Capability = "appointment:confirm"
	CapStart      Capability = "appointment:start"
	CapComplete   Capability = "appointment:complete"
	CapCancel     Capability = "appointment:cancel"
	CapMarkNoShow Capability = "appointment:no_show"
	CapReschedule Capability = "appointment:reschedule"
)

type Actor struct {
	ID           string
	Capabilities map[Capability]bool
}

func (a Actor) Can(c Capability) bool {
	return a.Capabilities[c]
}

func capabilityFor(target Status) (Capability, bool) {
	switch target {
	case StatusConfirmed:
		return CapConfirm, true
	case StatusInProgress:
		return CapStart, true
	case StatusCompleted:
		return CapComplete, true
	case StatusCancelled:
		return CapCancel, true
	case StatusNoShow:
		return CapMarkNoShow, true
	case StatusRescheduled:
		return CapReschedule, true
	}
	return "", false
}
