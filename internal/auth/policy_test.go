package auth

import (
	"context"
	"testing"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) (*Policy, *Credentials) {
	t.Helper()
	creds := newTestCreds(t)
	return NewPolicy(creds, nil), creds
}

func TestBootstrapAdmin(t *testing.T) {
	policy, creds := newTestPolicy(t)
	ctx := context.Background()

	require.NoError(t, policy.BootstrapAdmin(ctx, "root-admin", "correcthorse"))

	admins, err := creds.Count(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 1, admins)

	// A second bootstrap attempt with any input is refused.
	err = policy.BootstrapAdmin(ctx, "other-admin", "alsoverylong")
	require.ErrorIs(t, err, domain.ErrAdminExists)
}

func TestBootstrapAdmin_AllowedWithExistingRegularUsers(t *testing.T) {
	policy, creds := newTestPolicy(t)
	ctx := context.Background()

	// Regular users do not block bootstrap; only an existing admin does.
	require.NoError(t, creds.Create(ctx, "alice", "hunter2hunter2", domain.RoleUser))
	require.NoError(t, policy.BootstrapAdmin(ctx, "root-admin", "correcthorse"))
}

func TestAddAdmin_RequiresAdminCaller(t *testing.T) {
	policy, creds := newTestPolicy(t)
	ctx := context.Background()

	require.NoError(t, policy.BootstrapAdmin(ctx, "root-admin", "correcthorse"))
	require.NoError(t, creds.Create(ctx, "alice", "hunter2hunter2", domain.RoleUser))

	err := policy.AddAdmin(ctx, "alice", "hunter2hunter2", "second-admin", "longenough1")
	require.ErrorIs(t, err, domain.ErrRoleMismatch)

	err = policy.AddAdmin(ctx, "root-admin", "wrong", "second-admin", "longenough1")
	require.ErrorIs(t, err, domain.ErrWrongPassword)

	require.NoError(t, policy.AddAdmin(ctx, "root-admin", "correcthorse", "second-admin", "longenough1"))

	admins, err := creds.Count(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 2, admins)
}

func TestRemoveAdmin_LastAdminRefused(t *testing.T) {
	policy, creds := newTestPolicy(t)
	ctx := context.Background()

	require.NoError(t, policy.BootstrapAdmin(ctx, "root-admin", "correcthorse"))

	err := policy.RemoveAdmin(ctx, "root-admin", "correcthorse")
	require.ErrorIs(t, err, domain.ErrLastAdmin)

	// The refused delete left the admin count unchanged and still >= 1.
	admins, err := creds.Count(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 1, admins)
}

func TestRemoveAdmin_RequiresOwnPassword(t *testing.T) {
	policy, creds := newTestPolicy(t)
	ctx := context.Background()

	require.NoError(t, policy.BootstrapAdmin(ctx, "root-admin", "correcthorse"))
	require.NoError(t, policy.AddAdmin(ctx, "root-admin", "correcthorse", "second-admin", "longenough1"))

	// The target admin's own password is required, not the caller's.
	err := policy.RemoveAdmin(ctx, "second-admin", "correcthorse")
	require.ErrorIs(t, err, domain.ErrWrongPassword)

	require.NoError(t, policy.RemoveAdmin(ctx, "second-admin", "longenough1"))

	admins, err := creds.Count(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 1, admins)
}

func TestDeleteUser(t *testing.T) {
	policy, creds := newTestPolicy(t)
	ctx := context.Background()

	require.NoError(t, policy.BootstrapAdmin(ctx, "root-admin", "correcthorse"))
	require.NoError(t, creds.Create(ctx, "alice", "hunter2hunter2", domain.RoleUser))

	// The caller must authenticate as an admin; alice's own password is
	// never involved.
	err := policy.DeleteUser(ctx, "alice", "hunter2hunter2", "alice")
	require.ErrorIs(t, err, domain.ErrRoleMismatch)

	require.NoError(t, policy.DeleteUser(ctx, "root-admin", "correcthorse", "alice"))

	users, err := creds.Count(ctx, domain.RoleUser)
	require.NoError(t, err)
	require.Zero(t, users)

	// Admins are not deletable through the regular-user path.
	require.NoError(t, policy.AddAdmin(ctx, "root-admin", "correcthorse", "second-admin", "longenough1"))
	err = policy.DeleteUser(ctx, "root-admin", "correcthorse", "second-admin")
	require.ErrorIs(t, err, domain.ErrRoleMismatch)
}
