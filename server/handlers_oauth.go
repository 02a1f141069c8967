package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	dbpkg "github.com/onnwee/clipdeck/db"
	"github.com/onnwee/clipdeck/telemetry"
)

// googleUserinfoURL is the OIDC userinfo endpoint; overridable in tests.
var googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// googleEndpoint is the OAuth2 endpoint pair; overridable in tests.
var googleEndpoint = google.Endpoint

// oauthConfig builds the oauth2 client config from service config.
func (h *Handlers) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		Endpoint:     googleEndpoint,
		RedirectURL:  h.cfg.GoogleRedirectURI,
		Scopes:       strings.Fields(h.cfg.GoogleScopes),
	}
}

// googleUser is the subset of the userinfo claims we persist.
type googleUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// HandleGoogleOAuthStart initiates the sign-in flow by redirecting to Google.
func (h *Handlers) HandleGoogleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.ValidateOAuthReady(); err != nil {
		respondErr(w, http.StatusBadRequest, "oauth not configured", err.Error())
		return
	}
	// generate state
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		respondErr(w, http.StatusInternalServerError, "state gen error", "")
		return
	}
	st := hex.EncodeToString(b)
	h.addOAuthState(st, time.Now().Add(10*time.Minute))
	authURL := h.oauthConfig().AuthCodeURL(st, oauth2.AccessTypeOffline)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleGoogleOAuthCallback finishes the sign-in flow: exchanges the code,
// loads the Google profile, upserts the user, stores provider tokens, and
// mints a session.
func (h *Handlers) HandleGoogleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		respondErr(w, http.StatusBadRequest, "missing code/state", "")
		return
	}
	if !h.consumeOAuthState(st) {
		respondErr(w, http.StatusBadRequest, "invalid state", "")
		return
	}
	ctx := r.Context()
	oc := h.oauthConfig()
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "code exchange failed", err.Error())
		return
	}

	gu, err := fetchGoogleUser(oc.Client(ctx, tok))
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "userinfo fetch failed", err.Error())
		return
	}
	if gu.Sub == "" {
		respondErr(w, http.StatusInternalServerError, "userinfo missing subject", "")
		return
	}

	userID, err := dbpkg.UpsertUser(ctx, h.db, gu.Sub, gu.Email, gu.Name, gu.Picture)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "user upsert failed", err.Error())
		return
	}
	if err := dbpkg.UpsertOAuthToken(ctx, h.db, userID, "google", tok.AccessToken, tok.RefreshToken, tok.Expiry, h.cfg.GoogleScopes); err != nil {
		slog.Warn("token persist failed", slog.String("user_id", userID), slog.Any("err", err))
	}

	session, err := dbpkg.CreateSession(ctx, h.db, userID, h.cfg.SessionTTL)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "session create failed", err.Error())
		return
	}
	if telemetry.SessionsCreated != nil {
		telemetry.SessionsCreated.Inc()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.cfg.SessionTTL),
	})
	respondOK(w, map[string]any{
		"token": session,
		"user": map[string]string{
			"id":     userID,
			"email":  gu.Email,
			"name":   gu.Name,
			"avatar": gu.Picture,
		},
	})
}

func fetchGoogleUser(client *http.Client) (*googleUser, error) {
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var gu googleUser
	if err := json.Unmarshal(body, &gu); err != nil {
		return nil, err
	}
	return &gu, nil
}

// HandleLogout revokes the caller's session and clears the cookie.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	token := bearerToken(r)
	if token != "" {
		if err := dbpkg.DeleteSession(r.Context(), h.db, token); err != nil {
			slog.Warn("session delete failed", slog.Any("err", err))
		} else if telemetry.SessionsRevoked != nil {
			telemetry.SessionsRevoked.Inc()
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	respondOK(w, nil)
}

// HandleMe returns the authenticated user's profile.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	email, name, avatar, err := dbpkg.GetUser(r.Context(), h.db, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "user lookup failed", err.Error())
		return
	}
	respondOK(w, map[string]any{
		"user": map[string]string{
			"id":     userID,
			"email":  email,
			"name":   name,
			"avatar": avatar,
		},
	})
}
