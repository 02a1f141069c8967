package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	dbpkg "github.com/onnwee/clipdeck/db"
	"github.com/onnwee/clipdeck/validate"
	"github.com/onnwee/clipdeck/videourl"
)

type segmentOut struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"projectId"`
	VideoID         string     `json:"videoId"`
	Platform        string     `json:"platform"`
	Title           string     `json:"title"`
	StartSeconds    int        `json:"startSeconds"`
	EndSeconds      int        `json:"endSeconds"`
	DurationSeconds int        `json:"durationSeconds"`
	ThumbnailURL    string     `json:"thumbnailUrl"`
	Position        int        `json:"position"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

type segmentIn struct {
	ProjectID    string `json:"projectId"`
	URL          string `json:"url"`
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	StartSeconds int    `json:"startSeconds"`
	EndSeconds   int    `json:"endSeconds"`
	Position     int    `json:"position"`
}

// ownsProject reports whether the project exists and belongs to the user.
func (h *Handlers) ownsProject(r *http.Request, userID, projectID string) (bool, error) {
	var owner string
	err := h.db.QueryRowContext(r.Context(), `SELECT user_id FROM projects WHERE id=$1`, projectID).Scan(&owner)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}

// resolveVideoRef turns a url or raw video id into (videoID, platform,
// thumbnail). A url must parse as a supported platform.
func resolveVideoRef(url, videoID string) (string, string, string, string) {
	if url != "" {
		if res := validate.Validate(url, []validate.Rule{validate.VideoURL()}); !res.OK {
			return "", "", "", res.Message
		}
		v, err := videourl.Parse(url)
		if err != nil {
			return "", "", "", "unsupported video url"
		}
		return v.ID, string(v.Platform), v.Thumbnail, ""
	}
	if videoID == "" {
		return "", "", "", "url or videoId required"
	}
	return videoID, string(videourl.PlatformYouTube), "", ""
}

// HandleSegments handles GET (list by project) and POST (create) on /api/segments.
func (h *Handlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.listSegments(w, r, userID)
	case http.MethodPost:
		h.createSegment(w, r, userID)
	default:
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (h *Handlers) listSegments(w http.ResponseWriter, r *http.Request, userID string) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		respondErr(w, http.StatusBadRequest, "missing project_id", "")
		return
	}
	owns, err := h.ownsProject(r, userID, projectID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if !owns {
		respondErr(w, http.StatusNotFound, "project not found", "")
		return
	}
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, project_id, video_id, COALESCE(platform,'youtube'), COALESCE(title,''),
			COALESCE(start_seconds,0), COALESCE(end_seconds,0), COALESCE(duration_seconds,0),
			COALESCE(thumbnail_url,''), COALESCE(position,0), created_at, updated_at
		FROM segments WHERE project_id=$1 ORDER BY position, created_at`, projectID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	defer rows.Close()
	out := []segmentOut{}
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			respondErr(w, http.StatusInternalServerError, "scan failed", err.Error())
			return
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"segments": out})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (segmentOut, error) {
	var s segmentOut
	var updated sql.NullTime
	err := row.Scan(&s.ID, &s.ProjectID, &s.VideoID, &s.Platform, &s.Title,
		&s.StartSeconds, &s.EndSeconds, &s.DurationSeconds,
		&s.ThumbnailURL, &s.Position, &s.CreatedAt, &updated)
	if updated.Valid {
		s.UpdatedAt = &updated.Time
	}
	return s, err
}

func (h *Handlers) createSegment(w http.ResponseWriter, r *http.Request, userID string) {
	var in segmentIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	if in.ProjectID == "" {
		respondErr(w, http.StatusBadRequest, "missing projectId", "")
		return
	}
	owns, err := h.ownsProject(r, userID, in.ProjectID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if !owns {
		respondErr(w, http.StatusNotFound, "project not found", "")
		return
	}
	videoID, platform, thumbnail, problem := resolveVideoRef(in.URL, in.VideoID)
	if problem != "" {
		respondErr(w, http.StatusBadRequest, "invalid video reference", problem)
		return
	}
	if in.StartSeconds < 0 || in.EndSeconds < 0 {
		respondErr(w, http.StatusBadRequest, "invalid time range", "start/end must be >= 0")
		return
	}
	if in.EndSeconds > 0 && in.EndSeconds <= in.StartSeconds {
		respondErr(w, http.StatusBadRequest, "invalid time range", "end must be after start")
		return
	}
	duration := 0
	if in.EndSeconds > in.StartSeconds {
		duration = in.EndSeconds - in.StartSeconds
	}
	id := dbpkg.NewID()
	var created time.Time
	err = h.db.QueryRowContext(r.Context(), `
		INSERT INTO segments (id, project_id, user_id, video_id, platform, title,
			start_seconds, end_seconds, duration_seconds, thumbnail_url, position, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW()) RETURNING created_at`,
		id, in.ProjectID, userID, videoID, platform, strings.TrimSpace(in.Title),
		in.StartSeconds, in.EndSeconds, duration, thumbnail, in.Position).Scan(&created)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "insert failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"segment": segmentOut{
		ID: id, ProjectID: in.ProjectID, VideoID: videoID, Platform: platform,
		Title: strings.TrimSpace(in.Title), StartSeconds: in.StartSeconds,
		EndSeconds: in.EndSeconds, DurationSeconds: duration,
		ThumbnailURL: thumbnail, Position: in.Position, CreatedAt: created,
	}})
}

// HandleSegmentsDispatcher routes /api/segments/{id} to GET/PUT/DELETE.
func (h *Handlers) HandleSegmentsDispatcher(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/segments/")
	if id == "" || strings.Contains(id, "/") {
		respondErr(w, http.StatusNotFound, "not found", "")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.getSegment(w, r, userID, id)
	case http.MethodPut:
		h.updateSegment(w, r, userID, id)
	case http.MethodDelete:
		h.deleteSegment(w, r, userID, id)
	default:
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (h *Handlers) getSegment(w http.ResponseWriter, r *http.Request, userID, id string) {
	row := h.db.QueryRowContext(r.Context(), `
		SELECT id, project_id, video_id, COALESCE(platform,'youtube'), COALESCE(title,''),
			COALESCE(start_seconds,0), COALESCE(end_seconds,0), COALESCE(duration_seconds,0),
			COALESCE(thumbnail_url,''), COALESCE(position,0), created_at, updated_at
		FROM segments WHERE id=$1 AND user_id=$2`, id, userID)
	s, err := scanSegment(row)
	if err == sql.ErrNoRows {
		respondErr(w, http.StatusNotFound, "segment not found", "")
		return
	}
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"segment": s})
}

type segmentUpdateIn struct {
	Title        *string `json:"title"`
	StartSeconds *int    `json:"startSeconds"`
	EndSeconds   *int    `json:"endSeconds"`
	Position     *int    `json:"position"`
}

func (h *Handlers) updateSegment(w http.ResponseWriter, r *http.Request, userID, id string) {
	var in segmentUpdateIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	// Load current values so partial updates keep the time-range invariant.
	row := h.db.QueryRowContext(r.Context(), `
		SELECT id, project_id, video_id, COALESCE(platform,'youtube'), COALESCE(title,''),
			COALESCE(start_seconds,0), COALESCE(end_seconds,0), COALESCE(duration_seconds,0),
			COALESCE(thumbnail_url,''), COALESCE(position,0), created_at, updated_at
		FROM segments WHERE id=$1 AND user_id=$2`, id, userID)
	s, err := scanSegment(row)
	if err == sql.ErrNoRows {
		respondErr(w, http.StatusNotFound, "segment not found", "")
		return
	}
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if in.Title != nil {
		s.Title = strings.TrimSpace(*in.Title)
	}
	if in.StartSeconds != nil {
		s.StartSeconds = *in.StartSeconds
	}
	if in.EndSeconds != nil {
		s.EndSeconds = *in.EndSeconds
	}
	if in.Position != nil {
		s.Position = *in.Position
	}
	if s.StartSeconds < 0 || s.EndSeconds < 0 {
		respondErr(w, http.StatusBadRequest, "invalid time range", "start/end must be >= 0")
		return
	}
	if s.EndSeconds > 0 && s.EndSeconds <= s.StartSeconds {
		respondErr(w, http.StatusBadRequest, "invalid time range", "end must be after start")
		return
	}
	// End cleared back to open-ended resets duration so the backfill job can
	// fill it from the video's own length.
	s.DurationSeconds = 0
	if s.EndSeconds > s.StartSeconds {
		s.DurationSeconds = s.EndSeconds - s.StartSeconds
	}
	_, err = h.db.ExecContext(r.Context(), `
		UPDATE segments SET title=$1, start_seconds=$2, end_seconds=$3,
			duration_seconds=$4, position=$5, updated_at=NOW()
		WHERE id=$6 AND user_id=$7`,
		s.Title, s.StartSeconds, s.EndSeconds, s.DurationSeconds, s.Position, id, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "update failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"segment": s})
}

func (h *Handlers) deleteSegment(w http.ResponseWriter, r *http.Request, userID, id string) {
	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM segments WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "delete failed", err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondErr(w, http.StatusNotFound, "segment not found", "")
		return
	}
	respondOK(w, nil)
}
