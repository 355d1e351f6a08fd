package domain

import (
	"errors"
	"fmt"
)

// Error families. Every specific error below wraps exactly one of them, so
// callers can branch with errors.Is on the family alone.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Domain-specific errors for business logic validation.
var (
	// Not found errors
	ErrTaskNotFound       = fmt.Errorf("task %w", ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("assignment %w", ErrNotFound)
	ErrLedgerNotFound     = fmt.Errorf("ledger %w", ErrNotFound)

	// Conflict errors
	ErrInvalidTransition    = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrScheduleConflict     = fmt.Errorf("%w: another assignment for this task is already committed", ErrConflict)
	ErrFeedbackAlreadyGiven = fmt.Errorf("%w: feedback already submitted", ErrConflict)
	ErrConcurrentUpdate     = fmt.Errorf("%w: record was modified concurrently", ErrConflict)
	ErrAwardSettled         = fmt.Errorf("%w: award already applied", ErrConflict)

	// Validation errors
	ErrNoCandidates        = fmt.Errorf("%w: at least one candidate is required", ErrValidation)
	ErrTooManyCandidates   = fmt.Errorf("%w: too many candidates", ErrValidation)
	ErrDuplicateCandidate  = fmt.Errorf("%w: duplicate candidate", ErrValidation)
	ErrMissingField        = fmt.Errorf("%w: required field missing", ErrValidation)
	ErrInvalidTaskKind     = fmt.Errorf("%w: invalid task kind", ErrValidation)
	ErrInvalidPriority     = fmt.Errorf("%w: invalid task priority", ErrValidation)
	ErrInvalidAction       = fmt.Errorf("%w: invalid response action", ErrValidation)
	ErrInvalidSchedule     = fmt.Errorf("%w: invalid schedule details", ErrValidation)
	ErrInvalidRating       = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrInvalidEntityKind   = fmt.Errorf("%w: invalid entity kind", ErrValidation)
	ErrInvalidPeriod       = fmt.Errorf("%w: invalid ranking period", ErrValidation)
	ErrInvalidActivity     = fmt.Errorf("%w: activity label is required", ErrValidation)
	ErrInvalidStatusFilter = fmt.Errorf("%w: invalid assignment status", ErrValidation)
)
