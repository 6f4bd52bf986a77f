package arbiter

import "errors"

var (
	// ErrNoReviewers rejects a cycle start with zero reviewers. A review
	// cannot proceed without at least one reviewer.
	ErrNoReviewers = errors.New("review requires at least one reviewer")

	// ErrTooManyReviewers rejects a cycle start exceeding the configured cap.
	ErrTooManyReviewers = errors.New("too many reviewers")

	// ErrInvalidEscalationConfig rejects an escalation target of "judge",
	// which would recurse indefinitely. Surfaced before any invocation.
	ErrInvalidEscalationConfig = errors.New("invalid escalation config: escalation target cannot be the judge")

	// ErrDisputeResolved is the state error for resolving an already-terminal
	// dispute; resolutions are never silently recomputed.
	ErrDisputeResolved = errors.New("dispute already resolved")

	// ErrInvalidState rejects a cycle operation out of order.
	ErrInvalidState = errors.New("invalid cycle state")

	// ErrUnresolvedDisputes blocks iteration advance while a dispute of the
	// current iteration is still pending.
	ErrUnresolvedDisputes = errors.New("unresolved disputes in current iteration")

	// ErrNoHumanDecider is returned when a dispute routes to a human but no
	// decider was configured.
	ErrNoHumanDecider = errors.New("no human decider configured")
)
