package booking

import "errors"

// Domain error sentinels. Callers classify with errors.Is; anything else
// coming out of the service is an infrastructure failure (store round-trip,
// transaction abort) and is safe to retry as a whole operation.
var (
	// ErrValidation marks malformed input: bad date, inverted slot, missing
	// ids. Caller-fixable, never retried internally.
	ErrValidation = errors.New("invalid booking request")

	// ErrNotFound marks a missing or soft-deleted actor or appointment.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a slot taken by a concurrent transaction between
	// check and commit, or a sibling approved first. Surfaced as "slot no
	// longer available"; retrying is the caller's decision since a blind
	// retry could book an unintended alternate slot.
	ErrConflict = errors.New("slot already booked")

	// ErrAlreadyTerminal marks a transition attempted on a rejected
	// appointment.
	ErrAlreadyTerminal = errors.New("appointment already finalized")
)
