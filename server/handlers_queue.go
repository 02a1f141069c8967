package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	dbpkg "github.com/onnwee/clipdeck/db"
)

type queueItemOut struct {
	ID              string     `json:"id"`
	VideoID         string     `json:"videoId"`
	Title           string     `json:"title"`
	ThumbnailURL    string     `json:"thumbnailUrl"`
	DurationSeconds int        `json:"durationSeconds"`
	Note            string     `json:"note"`
	Position        int        `json:"position"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

type queueItemIn struct {
	URL      string `json:"url"`
	VideoID  string `json:"videoId"`
	Title    string `json:"title"`
	Note     string `json:"note"`
	Position int    `json:"position"`
}

// HandleQueue handles GET (list) and POST (create) on /api/queue.
func (h *Handlers) HandleQueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.listQueue(w, r, userID)
	case http.MethodPost:
		h.createQueueItem(w, r, userID)
	default:
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (h *Handlers) listQueue(w http.ResponseWriter, r *http.Request, userID string) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, video_id, COALESCE(title,''), COALESCE(thumbnail_url,''),
			COALESCE(duration_seconds,0), COALESCE(note,''), COALESCE(position,0),
			created_at, updated_at
		FROM queue_items WHERE user_id=$1 ORDER BY position, created_at`, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	defer rows.Close()
	out := []queueItemOut{}
	for rows.Next() {
		var q queueItemOut
		var updated sql.NullTime
		if err := rows.Scan(&q.ID, &q.VideoID, &q.Title, &q.ThumbnailURL,
			&q.DurationSeconds, &q.Note, &q.Position, &q.CreatedAt, &updated); err != nil {
			respondErr(w, http.StatusInternalServerError, "scan failed", err.Error())
			return
		}
		if updated.Valid {
			q.UpdatedAt = &updated.Time
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"queue": out})
}

func (h *Handlers) createQueueItem(w http.ResponseWriter, r *http.Request, userID string) {
	var in queueItemIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	videoID, _, thumbnail, problem := resolveVideoRef(in.URL, in.VideoID)
	if problem != "" {
		respondErr(w, http.StatusBadRequest, "invalid video reference", problem)
		return
	}
	id := dbpkg.NewID()
	var created time.Time
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO queue_items (id, user_id, video_id, title, thumbnail_url, note, position, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING created_at`,
		id, userID, videoID, strings.TrimSpace(in.Title), thumbnail, in.Note, in.Position).Scan(&created)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "insert failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"item": queueItemOut{
		ID: id, VideoID: videoID, Title: strings.TrimSpace(in.Title),
		ThumbnailURL: thumbnail, Note: in.Note, Position: in.Position, CreatedAt: created,
	}})
}

// HandleQueueDispatcher routes /api/queue/{id} to PUT/DELETE.
func (h *Handlers) HandleQueueDispatcher(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	if id == "" || strings.Contains(id, "/") {
		respondErr(w, http.StatusNotFound, "not found", "")
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.updateQueueItem(w, r, userID, id)
	case http.MethodDelete:
		h.deleteQueueItem(w, r, userID, id)
	default:
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

type queueUpdateIn struct {
	Title    *string `json:"title"`
	Note     *string `json:"note"`
	Position *int    `json:"position"`
}

func (h *Handlers) updateQueueItem(w http.ResponseWriter, r *http.Request, userID, id string) {
	var in queueUpdateIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	var q queueItemOut
	var updated sql.NullTime
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, video_id, COALESCE(title,''), COALESCE(thumbnail_url,''),
			COALESCE(duration_seconds,0), COALESCE(note,''), COALESCE(position,0),
			created_at, updated_at
		FROM queue_items WHERE id=$1 AND user_id=$2`, id, userID).
		Scan(&q.ID, &q.VideoID, &q.Title, &q.ThumbnailURL, &q.DurationSeconds,
			&q.Note, &q.Position, &q.CreatedAt, &updated)
	if err == sql.ErrNoRows {
		respondErr(w, http.StatusNotFound, "queue item not found", "")
		return
	}
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if in.Title != nil {
		q.Title = strings.TrimSpace(*in.Title)
	}
	if in.Note != nil {
		q.Note = *in.Note
	}
	if in.Position != nil {
		q.Position = *in.Position
	}
	_, err = h.db.ExecContext(r.Context(), `
		UPDATE queue_items SET title=$1, note=$2, position=$3, updated_at=NOW()
		WHERE id=$4 AND user_id=$5`, q.Title, q.Note, q.Position, id, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "update failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"item": q})
}

func (h *Handlers) deleteQueueItem(w http.ResponseWriter, r *http.Request, userID, id string) {
	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM queue_items WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "delete failed", err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondErr(w, http.StatusNotFound, "queue item not found", "")
		return
	}
	respondOK(w, nil)
}
