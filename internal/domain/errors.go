package domain

import (
	"errors"
)

// Sentinel errors shared across layers. Callers classify with errors.Is;
// every layer boundary wraps with fmt.Errorf("...: %w", err).
var (
	// Input errors, rejected before any store access.
	ErrEmptyUsername = errors.New("username must not be empty")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
	ErrInvalidRole   = errors.New("role must be 'admin' or 'user'")

	// Authentication errors.
	ErrAccountNotFound = errors.New("no such account")
	ErrWrongPassword   = errors.New("wrong password")

	// Authorization errors.
	ErrRoleMismatch = errors.New("account role does not match")
	ErrNotOwner     = errors.New("container is owned by another user")

	// Conflict: a claim lost to a concurrent process. Distinct from
	// ErrNotOwner so callers can tell a race from a standing denial.
	ErrClaimConflict = errors.New("claim lost to concurrent owner")

	// Store errors.
	ErrDuplicateAccount = errors.New("account already exists")
	ErrLastAdmin        = errors.New("refusing to delete the last admin")
	ErrAdminExists      = errors.New("admin already exists")

	// ErrStoreBusy means the datastore lock could not be acquired within
	// the bounded wait. Transient; callers may retry. Never conflate with
	// an ownership conflict.
	ErrStoreBusy = errors.New("datastore busy, try again")

	// Runtime errors.
	ErrContainerNotFound    = errors.New("container not found")
	ErrContainerNotRunning  = errors.New("container not running")
	ErrNoWorkingShell       = errors.New("no working shell found in container")
	ErrInvalidContainerName = errors.New("container name contains invalid characters")
)
