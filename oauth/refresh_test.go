package oauth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/clipdeck/testutil"
)

func insertUser(t *testing.T, dbx *sql.DB, id string) {
	t.Helper()
	_, err := dbx.Exec(`INSERT INTO users (id, google_sub, email) VALUES ($1, $2, $3)
		ON CONFLICT (google_sub) DO NOTHING`, id, "sub-"+id, id+"@example.com")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func insertToken(t *testing.T, dbx *sql.DB, userID, provider, access, refresh string, expiry time.Time, scope string) {
	t.Helper()
	_, err := dbx.Exec(`INSERT INTO oauth_tokens (user_id, provider, access_token, refresh_token, expires_at, scope, encryption_version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token=EXCLUDED.access_token, refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at, scope=EXCLUDED.scope, encryption_version=0`,
		userID, provider, access, refresh, expiry, scope)
	if err != nil {
		t.Fatalf("insert token: %v", err)
	}
}

func TestRefresherSkipsTokenOutsideWindow(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	insertUser(t, dbx, "refresh-u1")
	insertToken(t, dbx, "refresh-u1", "test-provider", "access123", "refresh456", time.Now().Add(time.Hour), "scope1")

	refreshCalled := false
	refreshFunc := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		refreshCalled = true
		return "new-access", "new-refresh", time.Now().Add(2 * time.Hour), "scope1", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	StartRefresher(ctx, dbx, "test-provider", 50*time.Millisecond, 30*time.Minute, refreshFunc)
	<-ctx.Done()

	if refreshCalled {
		t.Error("refresh should not run for a token that expires in 1 hour with a 30 min window")
	}
}

func TestRefresherWithinWindow(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	insertUser(t, dbx, "refresh-u2")
	insertToken(t, dbx, "refresh-u2", "test-provider-w", "old-access", "old-refresh", time.Now().Add(5*time.Minute), "scope1")

	refreshCalled := false
	newExpiry := time.Now().Add(2 * time.Hour)
	refreshFunc := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		if refreshToken != "old-refresh" {
			t.Errorf("refresh called with wrong token: got %s, want old-refresh", refreshToken)
		}
		refreshCalled = true
		return "new-access", "new-refresh", newExpiry, "scope2", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartRefresher(ctx, dbx, "test-provider-w", 100*time.Millisecond, 15*time.Minute, refreshFunc)
	time.Sleep(500 * time.Millisecond)
	cancel()

	if !refreshCalled {
		t.Fatal("refresh should run for a token expiring within the window")
	}

	var access, refresh, scope string
	err := dbx.QueryRow(`SELECT access_token, refresh_token, scope FROM oauth_tokens WHERE user_id='refresh-u2' AND provider='test-provider-w'`).
		Scan(&access, &refresh, &scope)
	if err != nil {
		t.Fatalf("query updated token: %v", err)
	}
	// ENCRYPTION_KEY may be set in the environment; in that case the stored
	// values are ciphertext. Only assert the plaintext was replaced.
	if access == "old-access" {
		t.Error("access token not updated")
	}
	if refresh == "old-refresh" {
		t.Error("refresh token not updated")
	}
}

func TestRefresherRefreshError(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	insertUser(t, dbx, "refresh-u3")
	insertToken(t, dbx, "refresh-u3", "test-provider-e", "old-access", "old-refresh", time.Now().Add(5*time.Minute), "scope1")

	refreshFunc := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		return "", "", time.Time{}, "", errors.New("refresh failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartRefresher(ctx, dbx, "test-provider-e", 50*time.Millisecond, 15*time.Minute, refreshFunc)
	time.Sleep(300 * time.Millisecond)
	cancel()

	var access string
	if err := dbx.QueryRow(`SELECT access_token FROM oauth_tokens WHERE user_id='refresh-u3' AND provider='test-provider-e'`).Scan(&access); err != nil {
		t.Fatalf("query token: %v", err)
	}
	if access != "old-access" {
		t.Errorf("token should not change on refresh error, got %s", access)
	}
}

func TestRefresherSkipsRowsWithoutRefreshToken(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	insertUser(t, dbx, "refresh-u4")
	insertToken(t, dbx, "refresh-u4", "test-provider-n", "access123", "", time.Now().Add(5*time.Minute), "scope1")

	refreshCalled := false
	refreshFunc := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		refreshCalled = true
		return "new-access", "new-refresh", time.Now().Add(2 * time.Hour), "scope1", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	StartRefresher(ctx, dbx, "test-provider-n", 50*time.Millisecond, 15*time.Minute, refreshFunc)
	time.Sleep(150 * time.Millisecond)
	cancel()

	if refreshCalled {
		t.Error("refresh should not run when refresh_token is empty")
	}
}

func TestRefresherCancellation(t *testing.T) {
	dbx := testutil.SetupTestDB(t)

	refreshFunc := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		return "access", "refresh", time.Now().Add(time.Hour), "scope", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	StartRefresher(ctx, dbx, "test-provider-c", time.Second, 15*time.Minute, refreshFunc)
	cancel()
	time.Sleep(50 * time.Millisecond)
	// Reaching here without a hang means the goroutine observed cancellation.
}

func TestRefresherRefreshesMultipleUsers(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	insertUser(t, dbx, "refresh-m1")
	insertUser(t, dbx, "refresh-m2")
	soon := time.Now().Add(5 * time.Minute)
	insertToken(t, dbx, "refresh-m1", "test-provider-m", "a1", "r1", soon, "s")
	insertToken(t, dbx, "refresh-m2", "test-provider-m", "a2", "r2", soon, "s")

	seen := make(chan string, 4)
	refreshFunc := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		seen <- refreshToken
		return "new-" + refreshToken, "", time.Now().Add(2 * time.Hour), "", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartRefresher(ctx, dbx, "test-provider-m", 100*time.Millisecond, 15*time.Minute, refreshFunc)

	got := map[string]bool{}
	timeout := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case tok := <-seen:
			got[tok] = true
		case <-timeout:
			t.Fatalf("timed out; refreshed tokens = %v", got)
		}
	}
	cancel()

	if !got["r1"] || !got["r2"] {
		t.Errorf("expected both users refreshed, got %v", got)
	}
}
