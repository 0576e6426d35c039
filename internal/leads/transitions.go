package leads

import "fmt"

// ErrIllegalTransition is returned when a status change violates the
// lifecycle table below. Callers must not mutate Status directly.
var ErrIllegalTransition = fmt.Errorf("leads: illegal status transition")

// transitions is the single source of truth for the lead lifecycle.
//
//	pending -> calling                  (scheduler reservation)
//	calling -> no_answer | scheduled |
//	           not_interested | error   (outcome recording)
//	calling -> pending                  (soft-failure requeue policy)
//	no_answer, error -> pending         (operator re-queue)
//	scheduled, not_interested -> (none) (terminal for automation)
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusCalling: true,
	},
	StatusCalling: {
		StatusNoAnswer:      true,
		StatusScheduled:     true,
		StatusNotInterested: true,
		StatusError:         true,
		StatusPending:       true,
	},
	StatusNoAnswer: {
		StatusPending: true,
	},
	StatusError: {
		StatusPending: true,
	},
	StatusScheduled:     {},
	StatusNotInterested: {},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Transition validates a status change, returning ErrIllegalTransition
// (wrapped with both states for diagnostics) when the table rejects it.
func Transition(from, to Status) error {
	if !ValidStatus(from) || !ValidStatus(to) {
		return fmt.Errorf("%w: %q -> %q (unknown status)", ErrIllegalTransition, from, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %q -> %q", ErrIllegalTransition, from, to)
	}
	return nil
}
