package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/maestro/internal/shared"
)

// IdentityKey is the fixed key the single supported user's credential is stored under.
const IdentityKey = "default"

// Credentials is the persisted credential record for one Spotify identity.
type Credentials struct {
	IdentityKey   string
	SpotifyUserID string
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	Scope         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Valid reports whether the access token is usable at least margin into the future.
func (c *Credentials) Valid(now time.Time, margin time.Duration) bool {
	return c.AccessToken != "" && c.ExpiresAt.After(now.Add(margin))
}

// Store defines read/write access to the credential record.
//
// Get returns [shared.ErrNotAuthenticated] when no record exists for the key;
// absence is an expected state, not a storage failure.
type Store interface {
	Get(ctx context.Context, identityKey string) (*Credentials, error)
	Upsert(ctx context.Context, creds *Credentials) error
}

// SQLiteStore implements [Store] on a sqlite credentials table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new [SQLiteStore] with the given database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the credential record for the given identity key.
func (s *SQLiteStore) Get(ctx context.Context, identityKey string) (*Credentials, error) {
	query := `
		SELECT identity_key, spotify_user_id, access_token, refresh_token, expires_at, scope, created_at, updated_at
		FROM credentials
		WHERE identity_key = ?
	`

	var (
		creds     Credentials
		expiresAt int64
	)

	err := s.db.QueryRowContext(ctx, query, identityKey).Scan(
		&creds.IdentityKey, &creds.SpotifyUserID, &creds.AccessToken, &creds.RefreshToken,
		&expiresAt, &creds.Scope, &creds.CreatedAt, &creds.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no credential stored for %q", shared.ErrNotAuthenticated, identityKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	creds.ExpiresAt = time.Unix(expiresAt, 0)
	return &creds, nil
}

// Upsert inserts or replaces the credential record keyed on identity_key.
func (s *SQLiteStore) Upsert(ctx context.Context, creds *Credentials) error {
	if creds.IdentityKey == "" {
		return fmt.Errorf("%w: identity key is required", shared.ErrInvalidArgument)
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return fmt.Errorf("%w: access and refresh tokens are required", shared.ErrMissingCredentials)
	}

	query := `
		INSERT INTO credentials (identity_key, spotify_user_id, access_token, refresh_token, expires_at, scope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET
			spotify_user_id = excluded.spotify_user_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = now
	}
	creds.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		creds.IdentityKey, creds.SpotifyUserID, creds.AccessToken, creds.RefreshToken,
		creds.ExpiresAt.Unix(), creds.Scope, creds.CreatedAt, creds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credentials: %w", err)
	}

	return nil
}
