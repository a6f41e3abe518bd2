// Package sqliterepo persists user records in SQLite.
package sqliterepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var _ users.UserRepo = (*Store)(nil)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the database at dbPath (":memory:" for a private in-memory database)
// and creates the schema if needed.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if err := initTable(ctx, db, "users", `
		CREATE TABLE IF NOT EXISTS users (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			email               TEXT NOT NULL UNIQUE,
			password_hash       TEXT NOT NULL DEFAULT '',
			full_name           TEXT NOT NULL DEFAULT '',
			picture_url         TEXT NOT NULL DEFAULT '',
			roles               TEXT NOT NULL DEFAULT '[]',
			provider            TEXT NOT NULL DEFAULT 'LOCAL',
			provider_id         TEXT,
			email_verified      INTEGER NOT NULL DEFAULT 0,
			is_active           INTEGER NOT NULL DEFAULT 1,
			verification_code   TEXT,
			verification_expiry INTEGER NOT NULL DEFAULT 0,
			reset_code          TEXT,
			reset_expiry        INTEGER NOT NULL DEFAULT 0,
			created_at          INTEGER NOT NULL,
			updated_at          INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	// Databases created before password reset support lack these columns
	for column, ddl := range map[string]string{
		"reset_code":   `ALTER TABLE users ADD COLUMN reset_code TEXT;`,
		"reset_expiry": `ALTER TABLE users ADD COLUMN reset_expiry INTEGER NOT NULL DEFAULT 0;`,
	} {
		if err := ensureColumn(ctx, db, "users", column, ddl); err != nil {
			return err
		}
	}

	if err := initTable(ctx, db, "users_verification_code", `
		CREATE INDEX IF NOT EXISTS users_verification_code
		ON users (verification_code);`,
	); err != nil {
		return err
	}

	return initTable(ctx, db, "users_reset_code", `
		CREATE INDEX IF NOT EXISTS users_reset_code
		ON users (reset_code);`,
	)
}

func initTable(ctx context.Context, db *sql.DB, name, stmt string) error {
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to init '%s' schema: %w", name, err)
	}
	return nil
}

func ensureColumn(ctx context.Context, db *sql.DB, table, column, ddl string) error {
	var count int
	row := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pragma_table_info(?1) WHERE name=?2;`, table, column)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("failed to inspect '%s' schema: %w", table, err)
	}
	if count > 0 {
		return nil
	}
	return initTable(ctx, db, table+"."+column, ddl)
}

const selectUser = `
	SELECT id, email, password_hash, full_name, picture_url, roles, provider, provider_id,
	       email_verified, is_active, verification_code, verification_expiry, reset_code, reset_expiry,
	       created_at, updated_at
	FROM users`

func (s *Store) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.queryOne(ctx, selectUser+` WHERE email=?1;`, email)
}

func (s *Store) FindByID(ctx context.Context, id int64) (*users.User, error) {
	return s.queryOne(ctx, selectUser+` WHERE id=?1;`, id)
}

func (s *Store) FindByVerificationCode(ctx context.Context, code string) (*users.User, error) {
	if code == "" {
		return nil, autherrors.ErrUserNotFound
	}
	return s.queryOne(ctx, selectUser+` WHERE verification_code=?1;`, code)
}

func (s *Store) FindByResetCode(ctx context.Context, code string) (*users.User, error) {
	if code == "" {
		return nil, autherrors.ErrUserNotFound
	}
	return s.queryOne(ctx, selectUser+` WHERE reset_code=?1;`, code)
}

func (s *Store) List(ctx context.Context) ([]*users.User, error) {
	rows, err := s.db.QueryContext(ctx, selectUser+` ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("couldn't list users: %w", err)
	}
	defer rows.Close()

	var all []*users.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't list users: %w", err)
	}
	return all, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email=?1;`, email)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("couldn't count users: %w", err)
	}
	return count > 0, nil
}

func (s *Store) Save(ctx context.Context, user *users.User) (*users.User, error) {
	if user == nil || user.Email == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidRequest, "save user: email is required")
	}

	stored := user.Clone()
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	if stored.Provider == "" {
		stored.Provider = users.ProviderLocal
	}

	roles, err := json.Marshal(stored.Roles)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode roles: %w", err)
	}

	args := []any{
		stored.Email,
		stored.PasswordHash,
		stored.FullName,
		stored.PictureURL,
		string(roles),
		string(stored.Provider),
		nullString(stored.ProviderID),
		stored.EmailVerified,
		stored.IsActive,
		nullString(utils.NonEmptyPtr(stored.VerificationCode)),
		unixNano(stored.VerificationExpiry),
		nullString(utils.NonEmptyPtr(stored.ResetCode)),
		unixNano(stored.ResetExpiry),
		unixNano(stored.CreatedAt),
		unixNano(stored.UpdatedAt),
	}

	if stored.ID == 0 {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO users (email, password_hash, full_name, picture_url, roles, provider, provider_id,
			                   email_verified, is_active, verification_code, verification_expiry, reset_code, reset_expiry,
			                   created_at, updated_at)
			VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15);`,
			args...,
		)
		if err != nil {
			return nil, mapWriteErr(err, stored.Email)
		}
		if stored.ID, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("couldn't read user id: %w", err)
		}
		return stored, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email=?1, password_hash=?2, full_name=?3, picture_url=?4, roles=?5, provider=?6,
		                 provider_id=?7, email_verified=?8, is_active=?9, verification_code=?10,
		                 verification_expiry=?11, reset_code=?12, reset_expiry=?13, created_at=?14, updated_at=?15
		WHERE id=?16;`,
		append(args, stored.ID)...,
	)
	if err != nil {
		return nil, mapWriteErr(err, stored.Email)
	}
	if resultsEmpty(result) {
		return nil, autherrors.Wrapf(autherrors.ErrUserNotFound, "update user %d", stored.ID)
	}
	return stored, nil
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (*users.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autherrors.ErrUserNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	var (
		u                           users.User
		roles, provider             string
		providerID, code, resetCode sql.NullString
		expiry, resetExpiry         int64
		created, updated            int64
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.PictureURL,
		&roles,
		&provider,
		&providerID,
		&u.EmailVerified,
		&u.IsActive,
		&code,
		&expiry,
		&resetCode,
		&resetExpiry,
		&created,
		&updated,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan user: %w", err)
	}

	if err := json.Unmarshal([]byte(roles), &u.Roles); err != nil {
		return nil, fmt.Errorf("couldn't decode roles for user %d: %w", u.ID, err)
	}
	u.Provider = users.ProviderKind(provider)
	if providerID.Valid {
		u.ProviderID = &providerID.String
	}
	u.VerificationCode = code.String
	u.VerificationExpiry = fromUnixNano(expiry)
	u.ResetCode = resetCode.String
	u.ResetExpiry = fromUnixNano(resetExpiry)
	u.CreatedAt = fromUnixNano(created)
	u.UpdatedAt = fromUnixNano(updated)
	return &u, nil
}

func mapWriteErr(err error, email string) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE {
		return autherrors.Wrapf(autherrors.ErrEmailInUse, "save user %s", email)
	}
	return fmt.Errorf("couldn't save user: %w", err)
}

func resultsEmpty(result sql.Result) bool {
	count, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return count == 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
