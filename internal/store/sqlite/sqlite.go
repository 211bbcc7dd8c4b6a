package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/rapidchat-server/internal/store"
)

// Schema creates the tables used by SQLiteStore. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id            TEXT PRIMARY KEY,
	contact       TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	secret_hash   TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
	token_id    TEXT PRIMARY KEY,
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires ON revoked_tokens(expires_at);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== CredentialStore implementation ====

// CreateCredential inserts a new credential.
func (s *SQLiteStore) CreateCredential(ctx context.Context, cred *store.Credential) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO credentials (id, contact, display_name, secret_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, cred.ID, cred.Contact, cred.DisplayName, cred.SecretHash, cred.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateContact
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredentialByContact retrieves a credential by contact.
func (s *SQLiteStore) GetCredentialByContact(ctx context.Context, contact string) (*store.Credential, error) {
	query := `
		SELECT id, contact, display_name, secret_hash, created_at
		FROM credentials
		WHERE contact = ?
	`
	var cred store.Credential
	err := s.db.QueryRowContext(ctx, query, contact).Scan(
		&cred.ID,
		&cred.Contact,
		&cred.DisplayName,
		&cred.SecretHash,
		&cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}

	return &cred, nil
}

// UpdateDisplayName changes the stored display name for a contact.
func (s *SQLiteStore) UpdateDisplayName(ctx context.Context, contact, displayName string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE credentials SET display_name = ? WHERE contact = ?`, displayName, contact)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==== RevocationStore implementation ====

// RevokeToken marks a token id as revoked until expiresAt and prunes expired rows.
func (s *SQLiteStore) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= ?`, now); err != nil {
		return fmt.Errorf("prune revoked tokens: %w", err)
	}

	if expiresAt.After(now) {
		query := `
			INSERT INTO revoked_tokens (token_id, expires_at)
			VALUES (?, ?)
			ON CONFLICT(token_id) DO UPDATE SET expires_at = excluded.expires_at
		`
		if _, err := tx.ExecContext(ctx, query, tokenID, expiresAt.UTC()); err != nil {
			return fmt.Errorf("insert revoked token: %w", err)
		}
	}

	return tx.Commit()
}

// IsTokenRevoked reports whether a token id is revoked and unexpired.
func (s *SQLiteStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT expires_at FROM revoked_tokens WHERE token_id = ?`, tokenID).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query revoked token: %w", err)
	}
	return expiresAt.After(time.Now()), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
