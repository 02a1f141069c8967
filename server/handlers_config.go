package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/onnwee/clipdeck/telemetry"
)

// HandleConfig handles GET and PUT requests for safe configuration keys.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Only allow GET/PUT for known keys; secrets must not be exposed here.
	safeKeys := map[string]bool{
		"LOG_LEVEL":                 true,
		"LOG_FORMAT":                true,
		"FRONTEND_URL":              true,
		"SESSION_TTL":               true,
		"CATALOG_BACKFILL_INTERVAL": true,
		"CATALOG_BACKFILL_BATCH":    true,
		"RATE_LIMIT_ENABLED":        true,
		"RATE_LIMIT_REQUESTS_PER_IP": true,
		"RATE_LIMIT_WINDOW_SECONDS": true,
	}
	switch r.Method {
	case http.MethodGet:
		// Return safe keys with values from kv override if present, else env
		out := map[string]string{}
		for k := range safeKeys {
			var v string
			_ = h.db.QueryRowContext(r.Context(), `SELECT value FROM kv WHERE key=$1`, "cfg:"+k).Scan(&v)
			if v == "" {
				v = os.Getenv(k)
			}
			if v != "" {
				out[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPut:
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", 400)
			return
		}
		for k, v := range body {
			if !safeKeys[k] {
				continue
			}
			if _, err := h.db.ExecContext(
				r.Context(),
				`INSERT INTO kv (key,value,updated_at) VALUES ($1,$2,NOW()) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
				"cfg:"+k,
				strings.TrimSpace(v),
			); err != nil {
				slog.Error("failed to update config", slog.String("key", k), slog.Any("err", err))
				http.Error(w, "failed to update config", http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStatus returns a lightweight status summary: entity counts, session
// count, degraded flag, and last backfill run.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{}

	var users, projects, segments, queued int
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&projects)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&segments)
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_items`).Scan(&queued)
	resp["users"] = users
	resp["projects"] = projects
	resp["segments"] = segments
	resp["queue_items"] = queued

	var sessions int
	_ = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE expires_at > NOW()`).Scan(&sessions)
	resp["active_sessions"] = sessions
	telemetry.SetActiveSessions(sessions)

	resp["youtube_degraded"] = h.yt != nil && h.yt.Degraded()
	resp["oauth_configured"] = h.cfg.ValidateOAuthReady() == nil

	// Backfill job settings and last run
	resp["backfill_batch"] = getEnvInt("CATALOG_BACKFILL_BATCH", 25)
	var last string
	_ = h.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key='job_backfill_last'`).Scan(&last)
	if last != "" {
		resp["last_backfill_run"] = last
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
