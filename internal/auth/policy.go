package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/gatekeeper/internal/domain"
)

// Policy layers admin-management rules above the credential primitives:
// bootstrap only while no admin exists, self-authorized admin removal with a
// last-admin guard, and admin-authenticated regular-user deletion.
type Policy struct {
	creds  *Credentials
	logger *slog.Logger
}

// NewPolicy creates the admin policy layer.
func NewPolicy(creds *Credentials, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{creds: creds, logger: logger}
}

// BootstrapAdmin creates the very first admin. Permitted only while the
// admin count is exactly zero; once any admin exists, new admins are added
// through the authenticated AddAdmin path instead.
func (p *Policy) BootstrapAdmin(ctx context.Context, username, password string) error {
	admins, err := p.creds.Count(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return domain.ErrAdminExists
	}

	if err := p.creds.Create(ctx, username, password, domain.RoleAdmin); err != nil {
		return err
	}
	p.logger.Info("bootstrap admin created", "username", username)
	return nil
}

// AddAdmin creates an additional admin account. The caller must
// authenticate as an existing admin first.
func (p *Policy) AddAdmin(ctx context.Context, callerUsername, callerPassword, username, password string) error {
	if _, err := p.creds.VerifyRole(ctx, callerUsername, callerPassword, domain.RoleAdmin); err != nil {
		return fmt.Errorf("authorize caller: %w", err)
	}

	if err := p.creds.Create(ctx, username, password, domain.RoleAdmin); err != nil {
		return err
	}
	p.logger.Info("admin created", "username", username, "created_by", callerUsername)
	return nil
}

// RemoveAdmin deletes an admin account. Deleting an admin requires that
// admin's own password. The last remaining admin cannot be removed; the
// store enforces the same guard atomically inside the delete transaction,
// this pre-check only exists for a friendlier refusal.
func (p *Policy) RemoveAdmin(ctx context.Context, username, password string) error {
	admins, err := p.creds.Count(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins == 0 {
		return fmt.Errorf("%w: no admins exist", domain.ErrAccountNotFound)
	}
	if admins == 1 {
		return domain.ErrLastAdmin
	}

	if _, err := p.creds.Verify(ctx, username, password); err != nil {
		return err
	}

	if err := p.creds.Delete(ctx, username, domain.RoleAdmin); err != nil {
		return err
	}

	// There is no rollback if the count somehow still reached zero; the
	// best that can be done is to be loud about it.
	remaining, err := p.creds.Count(ctx, domain.RoleAdmin)
	if err == nil && remaining == 0 {
		p.logger.Error("system left without admins, recreate one immediately", "deleted", username)
	}

	p.logger.Info("admin removed", "username", username)
	return nil
}

// DeleteUser deletes a regular user. Any admin may delete any regular user
// without that user's password, but the caller must authenticate as an
// admin first.
func (p *Policy) DeleteUser(ctx context.Context, adminUsername, adminPassword, username string) error {
	if _, err := p.creds.VerifyRole(ctx, adminUsername, adminPassword, domain.RoleAdmin); err != nil {
		return fmt.Errorf("authorize caller: %w", err)
	}

	if err := p.creds.Delete(ctx, username, domain.RoleUser); err != nil {
		return err
	}
	p.logger.Info("user deleted", "username", username, "deleted_by", adminUsername)
	return nil
}
