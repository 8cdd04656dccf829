package scheduler

import "errors"

// Sentinel errors for the scheduling-invariant and element-error
// categories from spec §7. Construction/validation errors belong to
// kdag and surface before a Scheduler is ever built.
var (
	// ErrElementFailed wraps any error returned from a user hook
	// (pull, internal, new). Always fatal to the run, per spec §7.
	ErrElementFailed = errors.New("element hook failed")
	// ErrInvariantViolated wraps a scheduling-invariant failure: a
	// non-empty sink slot at write time, or new() called again after
	// EOS on a source pad.
	ErrInvariantViolated = errors.New("scheduling invariant violated")
)
