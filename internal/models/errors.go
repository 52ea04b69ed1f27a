// Package models defines the data structures for the Bel Energy engine.
package models

import (
	"errors"
)

// Common errors
var (
	// Not-found conditions. These must propagate to the caller as distinct
	// conditions, never silently defaulting to a zero score.
	ErrUserNotFound    = errors.New("user not found")
	ErrAllyNotFound    = errors.New("ally not found")
	ErrProjectNotFound = errors.New("project not found")

	// Invalid-input conditions, signalled before any computation runs.
	ErrInvalidPrincipal      = errors.New("principal must be greater than zero")
	ErrInvalidGrade          = errors.New("unknown financing grade")
	ErrEmptySpecialization   = errors.New("specialization cannot be empty")
	ErrInvalidSpecialization = errors.New("invalid specialization")
	ErrEmptyServiceArea      = errors.New("service area cannot be empty")
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrInvalidAcademyLevel   = errors.New("invalid academy level")
	ErrInvalidInstallments   = errors.New("installments must be greater than zero")
	ErrInvalidScore          = errors.New("bel score must be between 0 and 1000")
	ErrOptionUnavailable     = errors.New("financing option not available for this profile")

	// Concurrency conflicts at the atomic-update boundary.
	ErrAllyUnavailable    = errors.New("ally is no longer available for assignment")
	ErrAssignmentConflict = errors.New("all suitable allies were claimed concurrently")
	ErrProjectNotAssigned = errors.New("project is not assigned to this ally")
)
