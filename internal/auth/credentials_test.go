package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestCreds(t *testing.T) *Credentials {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "gatekeeper.db")
	repo, err := store.NewSQLite(dbPath, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close())
	})
	return NewCredentials(repo)
}

func TestVerify(t *testing.T) {
	creds := newTestCreds(t)
	ctx := context.Background()

	require.NoError(t, creds.Create(ctx, "alice", "hunter2hunter2", domain.RoleUser))

	acc, err := creds.Verify(ctx, "alice", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "alice", acc.Username)
	require.Equal(t, domain.RoleUser, acc.Role)

	_, err = creds.Verify(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, domain.ErrWrongPassword)

	_, err = creds.Verify(ctx, "ghost", "whatever")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = creds.Verify(ctx, "  ", "whatever")
	require.ErrorIs(t, err, domain.ErrEmptyUsername)
}

func TestVerify_TrimsUsername(t *testing.T) {
	creds := newTestCreds(t)
	ctx := context.Background()

	require.NoError(t, creds.Create(ctx, " alice ", "hunter2hunter2", domain.RoleUser))

	acc, err := creds.Verify(ctx, "alice", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "alice", acc.Username)
}

func TestVerifyRole(t *testing.T) {
	creds := newTestCreds(t)
	ctx := context.Background()

	require.NoError(t, creds.Create(ctx, "root-admin", "correcthorse", domain.RoleAdmin))
	require.NoError(t, creds.Create(ctx, "alice", "hunter2hunter2", domain.RoleUser))

	_, err := creds.VerifyRole(ctx, "root-admin", "correcthorse", domain.RoleAdmin)
	require.NoError(t, err)

	// A regular user never passes the admin role gate, even with the
	// right password.
	_, err = creds.VerifyRole(ctx, "alice", "hunter2hunter2", domain.RoleAdmin)
	require.ErrorIs(t, err, domain.ErrRoleMismatch)

	_, err = creds.VerifyRole(ctx, "root-admin", "wrong", domain.RoleAdmin)
	require.ErrorIs(t, err, domain.ErrWrongPassword)

	_, err = creds.VerifyRole(ctx, "root-admin", "correcthorse", domain.Role("superuser"))
	require.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestCreate_Validation(t *testing.T) {
	creds := newTestCreds(t)
	ctx := context.Background()

	require.ErrorIs(t, creds.Create(ctx, "", "longenough", domain.RoleUser), domain.ErrEmptyUsername)
	require.ErrorIs(t, creds.Create(ctx, "alice", "short", domain.RoleUser), domain.ErrWeakPassword)
	require.ErrorIs(t, creds.Create(ctx, "alice", "longenough", domain.Role("root")), domain.ErrInvalidRole)

	// Validation failures touch no storage.
	n, err := creds.Count(ctx, domain.RoleAny)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCreate_FreshSaltPerAccount(t *testing.T) {
	creds := newTestCreds(t)
	ctx := context.Background()

	require.NoError(t, creds.Create(ctx, "alice", "samepassword", domain.RoleUser))
	require.NoError(t, creds.Create(ctx, "bob", "samepassword", domain.RoleUser))

	a, err := creds.repo.GetAccount(ctx, "alice")
	require.NoError(t, err)
	b, err := creds.repo.GetAccount(ctx, "bob")
	require.NoError(t, err)
	require.NotEqual(t, a.PasswordHash, b.PasswordHash)
}

func TestDelete_RoleFilter(t *testing.T) {
	creds := newTestCreds(t)
	ctx := context.Background()

	require.NoError(t, creds.Create(ctx, "alice", "hunter2hunter2", domain.RoleUser))

	require.ErrorIs(t, creds.Delete(ctx, "alice", domain.RoleAdmin), domain.ErrRoleMismatch)
	require.NoError(t, creds.Delete(ctx, "alice", domain.RoleUser))
	require.ErrorIs(t, creds.Delete(ctx, "alice", domain.RoleUser), domain.ErrAccountNotFound)
}
