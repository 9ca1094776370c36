package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/gatekeeper/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. The database file is the
// single coordination point between independently-launched gatekeeper
// processes; claim and delete transactions take an immediate write lock so
// check-then-act sequences are serialized across processes.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository. busyTimeout bounds how
// long any statement waits for a lock held by another process before the
// operation fails with domain.ErrStoreBusy.
func NewSQLite(dbPath string, busyTimeout time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := fmt.Sprintf("%s?_journal=WAL&_sync=NORMAL&_busy_timeout=%d", dbPath, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(busyTimeout); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema(busyTimeout time.Duration) error {
	query := fmt.Sprintf(`
	PRAGMA busy_timeout = %d;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash BLOB NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('admin','user')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS containers (
		id INTEGER PRIMARY KEY,
		container_name TEXT UNIQUE NOT NULL,
		owner_username TEXT,
		FOREIGN KEY(owner_username) REFERENCES users(username)
	);
	CREATE TABLE IF NOT EXISTS access_logs (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		container_name TEXT NOT NULL,
		ts_start TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		ts_end TIMESTAMP,
		transcript_path TEXT NOT NULL
	);
	`, busyTimeout.Milliseconds())
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapBusy translates SQLite lock contention into the transient sentinel so
// callers never mistake "could not even check" for a real conflict.
func mapBusy(err error) error {
	if IsSQLiteConflictError(err) {
		return fmt.Errorf("%w: %v", domain.ErrStoreBusy, err)
	}
	return err
}

// GetAccount retrieves an account by username.
func (s *SQLiteStore) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT username, password_hash, role, created_at FROM users WHERE username = ?`
	row := s.db.QueryRowContext(ctx, query, username)

	// The driver decodes TIMESTAMP columns into time.Time values, so the
	// scan targets are time.Time, never intermediate strings.
	var acc domain.Account
	err := row.Scan(&acc.Username, &acc.PasswordHash, &acc.Role, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan account row: %w", mapBusy(err))
	}
	return &acc, nil
}

// CreateAccount persists a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, acc *domain.Account) error {
	query := `INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, acc.Username, acc.PasswordHash, string(acc.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateAccount, acc.Username)
		}
		return fmt.Errorf("insert account: %w", mapBusy(err))
	}
	return nil
}

// DeleteAccount removes an account. The last-admin guard runs inside the
// same immediate transaction as the delete, closing the window where two
// concurrent deletes could each see a count of two and together leave zero.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, username string, roleFilter domain.Role) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Warn("failed to release delete connection", "error", closeErr)
		}
	}()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin delete transaction: %w", mapBusy(err))
	}
	committed := false
	defer func() {
		if !committed {
			if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
				slog.Warn("rollback delete transaction failed", "error", rbErr)
			}
		}
	}()

	var role domain.Role
	err = conn.QueryRowContext(ctx, `SELECT role FROM users WHERE username = ?`, username).Scan(&role)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, username)
	}
	if err != nil {
		return fmt.Errorf("look up account role: %w", err)
	}

	if roleFilter != domain.RoleAny && role != roleFilter {
		return fmt.Errorf("%w: %s is role %q, not %q", domain.ErrRoleMismatch, username, role, roleFilter)
	}

	if role == domain.RoleAdmin {
		var admins int
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&admins); err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return domain.ErrLastAdmin
		}
	}

	if _, err := conn.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit delete transaction: %w", mapBusy(err))
	}
	committed = true
	return nil
}

// ListAccounts returns (username, role) pairs. Admins list first when
// unfiltered.
func (s *SQLiteStore) ListAccounts(ctx context.Context, roleFilter domain.Role) ([]domain.AccountInfo, error) {
	var rows *sql.Rows
	var err error
	if roleFilter == domain.RoleAny {
		rows, err = s.db.QueryContext(ctx, `SELECT username, role FROM users ORDER BY (role = 'admin') DESC, username`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT username, role FROM users WHERE role = ? ORDER BY username`, string(roleFilter))
	}
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", mapBusy(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close account rows", "error", closeErr)
		}
	}()

	var infos []domain.AccountInfo
	for rows.Next() {
		var info domain.AccountInfo
		if err := rows.Scan(&info.Username, &info.Role); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return infos, nil
}

// CountAccounts counts accounts, optionally filtered by role.
func (s *SQLiteStore) CountAccounts(ctx context.Context, roleFilter domain.Role) (int, error) {
	var row *sql.Row
	if roleFilter == domain.RoleAny {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, string(roleFilter))
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", mapBusy(err))
	}
	return n, nil
}

// Owner returns the ownership row for a container, or nil when absent.
func (s *SQLiteStore) Owner(ctx context.Context, containerName string) (*domain.Ownership, error) {
	var owner sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_username FROM containers WHERE container_name = ?`, containerName,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query container owner: %w", mapBusy(err))
	}
	return &domain.Ownership{ContainerName: containerName, Owner: owner.String}, nil
}

// ClaimOrVerify atomically claims an unclaimed container or verifies an
// existing claim. The write lock is acquired on entry, not lazily on first
// write, so two racing processes are strictly serialized: the loser observes
// the winner's committed owner, never a partial state.
func (s *SQLiteStore) ClaimOrVerify(ctx context.Context, containerName, username string) (bool, string, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, "", fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Warn("failed to release claim connection", "error", closeErr)
		}
	}()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return false, "", fmt.Errorf("begin claim transaction: %w", mapBusy(err))
	}
	committed := false
	defer func() {
		if !committed {
			if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
				slog.Warn("rollback claim transaction failed", "error", rbErr)
			}
		}
	}()

	var owner sql.NullString
	err = conn.QueryRowContext(ctx,
		`SELECT owner_username FROM containers WHERE container_name = ?`, containerName,
	).Scan(&owner)

	switch {
	case err == sql.ErrNoRows:
		// No row yet: insert a claimed one.
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO containers (container_name, owner_username) VALUES (?, ?)`,
			containerName, username,
		); err != nil {
			return false, "", fmt.Errorf("insert claim: %w", mapBusy(err))
		}
	case err != nil:
		return false, "", fmt.Errorf("query claim: %w", mapBusy(err))
	case !owner.Valid || owner.String == "":
		// Row exists but unclaimed: fill in the owner.
		if _, err := conn.ExecContext(ctx,
			`UPDATE containers SET owner_username = ? WHERE container_name = ?`,
			username, containerName,
		); err != nil {
			return false, "", fmt.Errorf("update claim: %w", mapBusy(err))
		}
	case owner.String == username:
		// Idempotent re-entry by the current owner.
	default:
		// Someone else owns it.
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return false, "", fmt.Errorf("commit claim check: %w", mapBusy(err))
		}
		committed = true
		return false, owner.String, nil
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return false, "", fmt.Errorf("commit claim: %w", mapBusy(err))
	}
	committed = true
	return true, username, nil
}

// OpenAccessLog inserts an audit record with ts_start defaulting to now.
func (s *SQLiteStore) OpenAccessLog(ctx context.Context, username, containerName, transcriptPath string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO access_logs (username, container_name, transcript_path) VALUES (?, ?, ?)`,
		username, containerName, transcriptPath,
	)
	if err != nil {
		return 0, fmt.Errorf("insert access log: %w", mapBusy(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("access log id: %w", err)
	}
	return id, nil
}

// CloseAccessLog sets ts_end on an open audit record exactly once.
func (s *SQLiteStore) CloseAccessLog(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE access_logs SET ts_end = CURRENT_TIMESTAMP WHERE id = ? AND ts_end IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("finalize access log: %w", mapBusy(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("CloseAccessLog affected 0 rows", "log_id", id)
	}
	return nil
}

// GetAccessLog retrieves an audit record by id.
func (s *SQLiteStore) GetAccessLog(ctx context.Context, id int64) (*domain.AccessLogEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, container_name, ts_start, ts_end, transcript_path FROM access_logs WHERE id = ?`, id,
	)

	var entry domain.AccessLogEntry
	var tsEnd sql.NullTime
	err := row.Scan(&entry.ID, &entry.Username, &entry.ContainerName, &entry.TsStart, &tsEnd, &entry.TranscriptPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan access log row: %w", mapBusy(err))
	}

	if tsEnd.Valid {
		end := tsEnd.Time
		entry.TsEnd = &end
	}
	return &entry, nil
}
