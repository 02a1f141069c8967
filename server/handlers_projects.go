package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	dbpkg "github.com/onnwee/clipdeck/db"
	"github.com/onnwee/clipdeck/validate"
)

type projectOut struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type projectIn struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var projectTitleRules = []validate.Rule{
	validate.Required(),
	validate.MaxLength(200),
}

// HandleProjects handles GET (list) and POST (create) on /api/projects.
func (h *Handlers) HandleProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.listProjects(w, r, userID)
	case http.MethodPost:
		h.createProject(w, r, userID)
	default:
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (h *Handlers) listProjects(w http.ResponseWriter, r *http.Request, userID string) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, title, COALESCE(description,''), created_at, updated_at
		FROM projects WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	defer rows.Close()
	out := []projectOut{}
	for rows.Next() {
		var p projectOut
		var updated sql.NullTime
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.CreatedAt, &updated); err != nil {
			respondErr(w, http.StatusInternalServerError, "scan failed", err.Error())
			return
		}
		if updated.Valid {
			p.UpdatedAt = &updated.Time
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"projects": out})
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request, userID string) {
	var in projectIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if res := validate.Validate(in.Title, projectTitleRules); !res.OK {
		respondErr(w, http.StatusBadRequest, "invalid title", res.Message)
		return
	}
	id := dbpkg.NewID()
	var created time.Time
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO projects (id, user_id, title, description, created_at)
		VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
		id, userID, in.Title, in.Description).Scan(&created)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "insert failed", err.Error())
		return
	}
	respondOK(w, map[string]any{"project": projectOut{
		ID: id, Title: in.Title, Description: in.Description, CreatedAt: created,
	}})
}

// HandleProjectsDispatcher routes /api/projects/{id} to GET/PUT/DELETE.
func (h *Handlers) HandleProjectsDispatcher(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	if id == "" || strings.Contains(id, "/") {
		respondErr(w, http.StatusNotFound, "not found", "")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.getProject(w, r, userID, id)
	case http.MethodPut:
		h.updateProject(w, r, userID, id)
	case http.MethodDelete:
		h.deleteProject(w, r, userID, id)
	default:
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request, userID, id string) {
	var p projectOut
	var updated sql.NullTime
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, title, COALESCE(description,''), created_at, updated_at
		FROM projects WHERE id=$1 AND user_id=$2`, id, userID).
		Scan(&p.ID, &p.Title, &p.Description, &p.CreatedAt, &updated)
	if err == sql.ErrNoRows {
		respondErr(w, http.StatusNotFound, "project not found", "")
		return
	}
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if updated.Valid {
		p.UpdatedAt = &updated.Time
	}
	respondOK(w, map[string]any{"project": p})
}

func (h *Handlers) updateProject(w http.ResponseWriter, r *http.Request, userID, id string) {
	var in projectIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if res := validate.Validate(in.Title, projectTitleRules); !res.OK {
		respondErr(w, http.StatusBadRequest, "invalid title", res.Message)
		return
	}
	res, err := h.db.ExecContext(r.Context(), `
		UPDATE projects SET title=$1, description=$2, updated_at=NOW()
		WHERE id=$3 AND user_id=$4`, in.Title, in.Description, id, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "update failed", err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondErr(w, http.StatusNotFound, "project not found", "")
		return
	}
	respondOK(w, nil)
}

func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request, userID, id string) {
	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM projects WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "delete failed", err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondErr(w, http.StatusNotFound, "project not found", "")
		return
	}
	respondOK(w, nil)
}
