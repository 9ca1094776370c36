// Package auth implements credential verification and account policy on top
// of the shared repository.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the account password policy minimum.
const MinPasswordLength = 8

// dummyHash is compared against when the username does not exist, so a
// lookup miss costs the same as a wrong password.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Credentials provides password verification and account lifecycle
// operations against the repository.
type Credentials struct {
	repo store.Repository
}

// NewCredentials creates a credential store backed by repo.
func NewCredentials(repo store.Repository) *Credentials {
	return &Credentials{repo: repo}
}

// HashPassword produces a salted bcrypt digest. Each call generates a fresh
// random salt.
func HashPassword(plain string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Verify checks that username exists and the password matches its stored
// digest. The comparison is constant-time with respect to the digest.
func (c *Credentials) Verify(ctx context.Context, username, plain string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrEmptyUsername
	}

	acc, err := c.repo.GetAccount(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}
	if acc == nil {
		// Burn a comparison anyway so unknown usernames are not
		// distinguishable from wrong passwords by timing.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, username)
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(plain)); err != nil {
		return nil, domain.ErrWrongPassword
	}
	return acc, nil
}

// VerifyRole verifies a password and additionally requires the account to
// hold requiredRole. The role check uses the stored value, never anything
// caller-supplied, to avoid privilege confusion.
func (c *Credentials) VerifyRole(ctx context.Context, username, plain string, requiredRole domain.Role) (*domain.Account, error) {
	if !requiredRole.Valid() {
		return nil, domain.ErrInvalidRole
	}

	acc, err := c.Verify(ctx, username, plain)
	if err != nil {
		return nil, err
	}
	if acc.Role != requiredRole {
		return nil, fmt.Errorf("%w: %s does not hold role %s", domain.ErrRoleMismatch, acc.Username, requiredRole)
	}
	return acc, nil
}

// Create validates inputs and persists a new account. Validation runs before
// any storage is touched.
func (c *Credentials) Create(ctx context.Context, username, plain string, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.ErrEmptyUsername
	}
	if len(plain) < MinPasswordLength {
		return domain.ErrWeakPassword
	}

	hash, err := HashPassword(plain)
	if err != nil {
		return err
	}

	// created_at is assigned by the datastore.
	return c.repo.CreateAccount(ctx, &domain.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
}

// Delete removes an account, optionally restricted to a role.
func (c *Credentials) Delete(ctx context.Context, username string, roleFilter domain.Role) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.ErrEmptyUsername
	}
	if roleFilter != domain.RoleAny && !roleFilter.Valid() {
		return domain.ErrInvalidRole
	}
	return c.repo.DeleteAccount(ctx, username, roleFilter)
}

// List returns account summaries, optionally filtered by role.
func (c *Credentials) List(ctx context.Context, roleFilter domain.Role) ([]domain.AccountInfo, error) {
	if roleFilter != domain.RoleAny && !roleFilter.Valid() {
		return nil, domain.ErrInvalidRole
	}
	return c.repo.ListAccounts(ctx, roleFilter)
}

// Count returns the number of accounts, optionally filtered by role.
func (c *Credentials) Count(ctx context.Context, roleFilter domain.Role) (int, error) {
	if roleFilter != domain.RoleAny && !roleFilter.Valid() {
		return 0, domain.ErrInvalidRole
	}
	return c.repo.CountAccounts(ctx, roleFilter)
}
