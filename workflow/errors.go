package workflow

import "errors"

// Validation failures returned by the engine and store. Handlers translate
// these into HTTP status codes with errors.Is.
var (
	// ErrInvalidTemplate means the requested workflow template or renewal kind is unknown
	ErrInvalidTemplate = errors.New("unknown workflow template")

	// ErrAlreadyInitiated means a workflow step set already exists for the contract
	ErrAlreadyInitiated = errors.New("workflow already initiated for contract")

	// ErrNotPending means the step has already reached a terminal state
	ErrNotPending = errors.New("workflow step is not pending")

	// ErrUnauthorized means the actor is neither an admin nor the step's assignee
	ErrUnauthorized = errors.New("actor is not allowed to act on this step")

	// ErrTenantMismatch means the target user belongs to a different tenant than the contract
	ErrTenantMismatch = errors.New("user belongs to a different tenant")

	// ErrNotFound means the referenced contract, step or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflictingUpdate means a write lost a race against a concurrent terminal-state write
	ErrConflictingUpdate = errors.New("conflicting update on workflow step")

	// ErrRenewalPartiallyApplied means the renewal step was persisted but the
	// contract pointer update was not rolled back with it; an operator must reconcile
	ErrRenewalPartiallyApplied = errors.New("renewal partially applied, manual reconciliation required")
)
