package server

import (
	"net/http"

	"github.com/onnwee/clipdeck/telemetry"
	"github.com/onnwee/clipdeck/youtubeapi"
)

// The proxy endpoints never surface upstream failures as errors: a degraded
// payload goes out as 200 with "fallback": true so the frontend can show
// substitute data and a banner.
//
// A fallback only counts as a failure when the client is configured with a
// key and the upstream call still fell back; a keyless client is degraded by
// configuration, not by an upstream error.

// HandleYouTubeSearch handles GET /api/youtube/search?q=
func (h *Handlers) HandleYouTubeSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		respondErr(w, http.StatusBadRequest, "missing q", "")
		return
	}
	max := int64(parseIntQuery(r, "limit", 10))
	var results []youtubeapi.SearchResult
	var fallback bool
	telemetry.TimeFunc(telemetry.ProxyCallDuration, func() {
		results, fallback = h.yt.Search(r.Context(), q, max)
	})
	telemetry.CountProxy(youtubeapi.OpSearch, fallback && !h.yt.Degraded(), fallback)
	respondOK(w, map[string]any{"results": results, "fallback": fallback})
}

// HandleYouTubeVideo handles GET /api/youtube/video?id=
func (h *Handlers) HandleYouTubeVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		respondErr(w, http.StatusBadRequest, "missing id", "")
		return
	}
	var info *youtubeapi.VideoInfo
	var fallback bool
	telemetry.TimeFunc(telemetry.ProxyCallDuration, func() {
		info, fallback = h.yt.Video(r.Context(), id)
	})
	telemetry.CountProxy(youtubeapi.OpVideo, fallback && !h.yt.Degraded(), fallback)
	respondOK(w, map[string]any{"video": info, "fallback": fallback})
}

// HandleYouTubePlaylist handles GET /api/youtube/playlist?id=
func (h *Handlers) HandleYouTubePlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		respondErr(w, http.StatusBadRequest, "missing id", "")
		return
	}
	var items []youtubeapi.PlaylistItem
	var fallback bool
	telemetry.TimeFunc(telemetry.ProxyCallDuration, func() {
		items, fallback = h.yt.Playlist(r.Context(), id)
	})
	telemetry.CountProxy(youtubeapi.OpPlaylist, fallback && !h.yt.Degraded(), fallback)
	respondOK(w, map[string]any{"items": items, "fallback": fallback})
}

// HandleYouTubeSuggest handles GET /api/youtube/suggest?q=
func (h *Handlers) HandleYouTubeSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		respondErr(w, http.StatusBadRequest, "missing q", "")
		return
	}
	var suggestions []string
	var fallback bool
	telemetry.TimeFunc(telemetry.ProxyCallDuration, func() {
		suggestions, fallback = h.yt.Suggest(r.Context(), q)
	})
	telemetry.CountProxy(youtubeapi.OpSuggest, fallback && !h.yt.Degraded(), fallback)
	respondOK(w, map[string]any{"suggestions": suggestions, "fallback": fallback})
}
