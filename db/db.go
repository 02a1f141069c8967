// Package db provides database connection helpers, schema migration, and small data access helpers
// for users, sessions, and stored OAuth tokens.
package db

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/clipdeck/crypto"
)

// ErrSessionNotFound is returned when a bearer token does not resolve to a
// live session.
var ErrSessionNotFound = errors.New("db: session not found or expired")

var (
	encryptor     crypto.Encryptor
	encryptorOnce sync.Once
	encryptorErr  error
)

// initEncryptor initializes the token encryptor from ENCRYPTION_KEY.
// Unset key means tokens are stored in plaintext (encryption_version = 0).
func initEncryptor() {
	encryptorOnce.Do(func() {
		key := os.Getenv("ENCRYPTION_KEY")
		if key == "" {
			slog.Warn("ENCRYPTION_KEY not set, OAuth tokens will be stored in plaintext (not recommended for production)", slog.String("component", "db_encryption"))
			return
		}
		enc, err := crypto.NewAESEncryptor(key)
		if err != nil {
			encryptorErr = fmt.Errorf("failed to initialize encryption: %w", err)
			slog.Error("encryption initialization failed", slog.Any("error", encryptorErr), slog.String("component", "db_encryption"))
			return
		}
		encryptor = enc
		slog.Info("OAuth token encryption enabled (AES-256-GCM)", slog.String("component", "db_encryption"))
	})
}

func getEncryptor() (crypto.Encryptor, error) {
	initEncryptor()
	if encryptorErr != nil {
		return nil, encryptorErr
	}
	return encryptor, nil
}

// Connect opens a Postgres connection with the given DSN. The DSN default
// lives in config.Load so there is a single source of truth for it.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and indices.
// Fallback path for deployments without the versioned migration files.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			google_sub TEXT UNIQUE NOT NULL,
			email TEXT,
			display_name TEXT,
			avatar_url TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS oauth_tokens (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider TEXT NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			expires_at TIMESTAMPTZ,
			scope TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			encryption_version INTEGER DEFAULT 0,
			PRIMARY KEY (user_id, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS segments (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			video_id TEXT NOT NULL,
			platform TEXT DEFAULT 'youtube',
			title TEXT,
			start_seconds INTEGER DEFAULT 0,
			end_seconds INTEGER DEFAULT 0,
			duration_seconds INTEGER DEFAULT 0,
			thumbnail_url TEXT,
			position INTEGER DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS queue_items (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			video_id TEXT NOT NULL,
			title TEXT,
			thumbnail_url TEXT,
			duration_seconds INTEGER DEFAULT 0,
			note TEXT,
			position INTEGER DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_segments_project_pos ON segments(project_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_segments_missing_meta ON segments(duration_seconds) WHERE duration_seconds = 0`,
		`CREATE INDEX IF NOT EXISTS idx_queue_user_pos ON queue_items(user_id, position)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// NewID returns a fresh uuid string for entity primary keys.
func NewID() string { return uuid.New().String() }

// UpsertUser inserts or updates a user keyed by their Google subject and
// returns the user id.
func UpsertUser(ctx context.Context, dbx *sql.DB, googleSub, email, displayName, avatarURL string) (string, error) {
	id := NewID()
	var userID string
	err := dbx.QueryRowContext(ctx, `
		INSERT INTO users (id, google_sub, email, display_name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (google_sub) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
		RETURNING id
	`, id, googleSub, email, displayName, avatarURL).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return userID, nil
}

// GetUser loads basic profile fields for a user id.
func GetUser(ctx context.Context, dbx *sql.DB, userID string) (email, displayName, avatarURL string, err error) {
	err = dbx.QueryRowContext(ctx, `
		SELECT COALESCE(email,''), COALESCE(display_name,''), COALESCE(avatar_url,'')
		FROM users WHERE id = $1
	`, userID).Scan(&email, &displayName, &avatarURL)
	return
}

// hashToken is the stored form of a session token. Only the hash ever
// touches the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateSession mints a session for a user and returns the raw bearer token.
func CreateSession(ctx context.Context, dbx *sql.DB, userID string, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(b)
	_, err := dbx.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
	`, hashToken(token), userID, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// SessionUser resolves a bearer token to a user id. Expired or unknown
// tokens yield ErrSessionNotFound.
func SessionUser(ctx context.Context, dbx *sql.DB, token string) (string, error) {
	var userID string
	err := dbx.QueryRowContext(ctx, `
		SELECT user_id FROM sessions WHERE token_hash = $1 AND expires_at > NOW()
	`, hashToken(token)).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup session: %w", err)
	}
	return userID, nil
}

// DeleteSession revokes a single session by raw token. Unknown tokens are a no-op.
func DeleteSession(ctx context.Context, dbx *sql.DB, token string) error {
	_, err := dbx.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(token))
	return err
}

// DeleteExpiredSessions removes sessions past their expiry and returns the count.
func DeleteExpiredSessions(ctx context.Context, dbx *sql.DB) (int64, error) {
	res, err := dbx.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpsertOAuthToken stores or updates a user's OAuth token for a provider.
// If encryption is enabled (ENCRYPTION_KEY set), tokens are encrypted before
// storage; encryption_version=1 marks encrypted rows.
func UpsertOAuthToken(ctx context.Context, dbx *sql.DB, userID, provider, access, refresh string, expiry time.Time, scope string) error {
	enc, err := getEncryptor()
	if err != nil {
		return fmt.Errorf("get encryptor: %w", err)
	}

	encVersion := 0
	accessToStore := access
	refreshToStore := refresh
	if enc != nil {
		encVersion = 1
		if access != "" {
			if accessToStore, err = crypto.EncryptString(enc, access); err != nil {
				return fmt.Errorf("encrypt access token: %w", err)
			}
		}
		if refresh != "" {
			if refreshToStore, err = crypto.EncryptString(enc, refresh); err != nil {
				return fmt.Errorf("encrypt refresh token: %w", err)
			}
		}
	}

	_, err = dbx.ExecContext(ctx, `
		INSERT INTO oauth_tokens (user_id, provider, access_token, refresh_token, expires_at, scope, encryption_version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			encryption_version = EXCLUDED.encryption_version,
			updated_at = NOW()
	`, userID, provider, accessToStore, refreshToStore, expiry, scope, encVersion)
	return err
}

// GetOAuthToken retrieves a user's stored token row; returns zero values if
// not found. Rows with encryption_version=1 are decrypted transparently;
// plaintext rows (version=0) pass through for backward compatibility.
func GetOAuthToken(ctx context.Context, dbx *sql.DB, userID, provider string) (access, refresh string, expiry time.Time, scope string, err error) {
	var encVersion int
	row := dbx.QueryRowContext(ctx, `
		SELECT COALESCE(access_token,''), COALESCE(refresh_token,''), COALESCE(expires_at, to_timestamp(0)), COALESCE(scope,''), COALESCE(encryption_version, 0)
		FROM oauth_tokens WHERE user_id = $1 AND provider = $2
	`, userID, provider)
	err = row.Scan(&access, &refresh, &expiry, &scope, &encVersion)
	if err == sql.ErrNoRows {
		return "", "", time.Time{}, "", nil
	}
	if err != nil {
		return "", "", time.Time{}, "", err
	}

	if encVersion == 1 {
		if access, refresh, err = decryptPair(access, refresh); err != nil {
			return "", "", time.Time{}, "", err
		}
	}
	return access, refresh, expiry, scope, nil
}

func decryptPair(access, refresh string) (string, string, error) {
	enc, err := getEncryptor()
	if err != nil {
		return "", "", fmt.Errorf("get encryptor for decryption: %w", err)
	}
	if enc == nil {
		return "", "", fmt.Errorf("token is encrypted but ENCRYPTION_KEY not configured")
	}
	if access != "" {
		if access, err = crypto.DecryptString(enc, access); err != nil {
			return "", "", fmt.Errorf("decrypt access token: %w", err)
		}
	}
	if refresh != "" {
		if refresh, err = crypto.DecryptString(enc, refresh); err != nil {
			return "", "", fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return access, refresh, nil
}

// OAuthTokenRow is a decrypted token row returned by ListExpiringOAuthTokens.
type OAuthTokenRow struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scope        string
}

// ListExpiringOAuthTokens returns decrypted token rows for a provider whose
// expiry falls within the given window (or has already passed) and that carry
// a refresh token. Rows that fail to decrypt are skipped with a warning.
func ListExpiringOAuthTokens(ctx context.Context, dbx *sql.DB, provider string, window time.Duration) ([]OAuthTokenRow, error) {
	rows, err := dbx.QueryContext(ctx, `
		SELECT user_id, COALESCE(access_token,''), COALESCE(refresh_token,''), COALESCE(expires_at, to_timestamp(0)), COALESCE(scope,''), COALESCE(encryption_version, 0)
		FROM oauth_tokens
		WHERE provider = $1 AND refresh_token IS NOT NULL AND refresh_token <> ''
		  AND expires_at <= NOW() + $2::interval
	`, provider, fmt.Sprintf("%d seconds", int(window.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("list expiring tokens: %w", err)
	}
	defer rows.Close()

	var out []OAuthTokenRow
	for rows.Next() {
		var r OAuthTokenRow
		var encVersion int
		if err := rows.Scan(&r.UserID, &r.AccessToken, &r.RefreshToken, &r.Expiry, &r.Scope, &encVersion); err != nil {
			return nil, err
		}
		if encVersion == 1 {
			a, rt, derr := decryptPair(r.AccessToken, r.RefreshToken)
			if derr != nil {
				slog.Warn("skipping undecryptable token row", slog.String("user_id", r.UserID), slog.Any("err", derr))
				continue
			}
			r.AccessToken, r.RefreshToken = a, rt
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
