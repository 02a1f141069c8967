package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// respondJSON writes a payload with the given status. Every API response goes
// through here so the {"success": ...} envelope stays uniform.
func respondJSON(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// respondOK writes a 200 success envelope merged with extra fields.
func respondOK(w http.ResponseWriter, fields map[string]any) {
	payload := map[string]any{"success": true}
	for k, v := range fields {
		payload[k] = v
	}
	respondJSON(w, http.StatusOK, payload)
}

// respondErr writes a failure envelope. details may be empty.
func respondErr(w http.ResponseWriter, status int, msg, details string) {
	payload := map[string]any{"success": false, "error": msg}
	if details != "" {
		payload["details"] = details
	}
	respondJSON(w, status, payload)
}
