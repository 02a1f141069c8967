package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockYouTubeServer is a test server that mimics YouTube Data API responses.
// Register handlers per path; unregistered paths return 404.
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockYouTubeServer creates a new mock Data API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockSearchResponse registers a handler for the search endpoint.
func (m *MockYouTubeServer) MockSearchResponse(items []map[string]any) {
	m.Handlers["/search"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{"items": items}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockVideosResponse registers a handler for the videos endpoint.
func (m *MockYouTubeServer) MockVideosResponse(items []map[string]any) {
	m.Handlers["/videos"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{"items": items}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockPlaylistItemsResponse registers a handler for the playlistItems
// endpoint with an optional next page token.
func (m *MockYouTubeServer) MockPlaylistItemsResponse(items []map[string]any, nextPageToken string) {
	m.Handlers["/playlistItems"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{"items": items}
		if nextPageToken != "" {
			response["nextPageToken"] = nextPageToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// SearchItem builds one Data API search result in wire shape.
func SearchItem(videoID, title string) map[string]any {
	return map[string]any{
		"id": map[string]any{"videoId": videoID},
		"snippet": map[string]any{
			"title":        title,
			"channelTitle": "mock channel",
			"publishedAt":  "2024-01-01T00:00:00Z",
			"thumbnails":   map[string]any{"medium": map[string]any{"url": "http://t/" + videoID + ".jpg"}},
		},
	}
}

// VideoItem builds one Data API video resource in wire shape.
func VideoItem(videoID, title, isoDuration string) map[string]any {
	return map[string]any{
		"id": videoID,
		"snippet": map[string]any{
			"title":        title,
			"channelTitle": "mock channel",
			"thumbnails":   map[string]any{"medium": map[string]any{"url": "http://t/" + videoID + ".jpg"}},
		},
		"contentDetails": map[string]any{"duration": isoDuration},
	}
}
