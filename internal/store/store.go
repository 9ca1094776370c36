// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/gatekeeper/internal/domain"
)

// Repository defines the shared datastore consumed by every gatekeeper
// process on the host. All cross-process coordination happens inside its
// transactions; nothing is coordinated in process memory.
type Repository interface {
	// GetAccount retrieves an account by username. Returns (nil, nil)
	// when no such account exists.
	GetAccount(ctx context.Context, username string) (*domain.Account, error)

	// CreateAccount persists a new account. Returns
	// domain.ErrDuplicateAccount if the username is taken.
	CreateAccount(ctx context.Context, acc *domain.Account) error

	// DeleteAccount removes an account. With a non-empty roleFilter the
	// delete is refused with domain.ErrRoleMismatch when the stored role
	// differs. Deleting the last remaining admin fails with
	// domain.ErrLastAdmin; the guard runs inside the delete transaction
	// so concurrent deletes cannot race past it.
	DeleteAccount(ctx context.Context, username string, roleFilter domain.Role) error

	// ListAccounts returns (username, role) pairs. Unfiltered listings
	// place admins before regular users, then sort by username; filtered
	// listings order by username.
	ListAccounts(ctx context.Context, roleFilter domain.Role) ([]domain.AccountInfo, error)

	// CountAccounts counts accounts, optionally filtered by role.
	CountAccounts(ctx context.Context, roleFilter domain.Role) (int, error)

	// Owner returns the ownership row for a container, or nil when no
	// row exists. An existing row may still be unclaimed (empty owner).
	Owner(ctx context.Context, containerName string) (*domain.Ownership, error)

	// ClaimOrVerify atomically claims an unclaimed container for
	// username, or verifies an existing claim. Returns claimed=true when
	// the row was inserted, the empty owner was filled in, or username
	// already owns the container; claimed=false with the current owner
	// otherwise. The check-then-act sequence runs under an immediate
	// write lock; a bounded lock wait that expires yields
	// domain.ErrStoreBusy.
	ClaimOrVerify(ctx context.Context, containerName, username string) (claimed bool, owner string, err error)

	// OpenAccessLog inserts an audit record with ts_start set to now and
	// returns its id.
	OpenAccessLog(ctx context.Context, username, containerName, transcriptPath string) (int64, error)

	// CloseAccessLog sets ts_end on an open audit record. Setting it a
	// second time is a no-op.
	CloseAccessLog(ctx context.Context, id int64) error

	// GetAccessLog retrieves an audit record by id. Returns (nil, nil)
	// when absent.
	GetAccessLog(ctx context.Context, id int64) (*domain.AccessLogEntry, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
