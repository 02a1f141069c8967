package youtubeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "test-key",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, srv
}

func TestNewWithoutKeyIsDegraded(t *testing.T) {
	c, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !c.Degraded() {
		t.Error("client without key should be degraded")
	}

	results, degraded := c.Search(context.Background(), "cats", 5)
	if !degraded {
		t.Error("degraded client search should report degraded")
	}
	if len(results) == 0 {
		t.Error("degraded search should return substitute results")
	}
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "gophers" {
			t.Errorf("q = %q, want gophers", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": {"videoId": "abc123def45"},
					"snippet": {
						"title": "Gopher video",
						"description": "about gophers",
						"channelTitle": "chan",
						"publishedAt": "2024-05-01T00:00:00Z",
						"thumbnails": {"medium": {"url": "http://t/m.jpg"}}
					}
				}
			]
		}`))
	}))

	results, degraded := c.Search(context.Background(), "gophers", 5)
	if degraded {
		t.Fatal("search unexpectedly degraded")
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	r := results[0]
	if r.VideoID != "abc123def45" || r.Title != "Gopher video" || r.Thumbnail != "http://t/m.jpg" {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestSearchUpstreamErrorFallsBack(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 500}}`, http.StatusInternalServerError)
	}))

	results, degraded := c.Search(context.Background(), "anything", 5)
	if !degraded {
		t.Error("upstream failure should degrade")
	}
	if len(results) == 0 {
		t.Error("degraded search should still return substitute results")
	}
}

func TestVideo(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": "vid00000001",
					"snippet": {
						"title": "Clip",
						"channelTitle": "chan",
						"thumbnails": {"high": {"url": "http://t/h.jpg"}}
					},
					"contentDetails": {"duration": "PT1H2M3S"}
				}
			]
		}`))
	}))

	info, degraded := c.Video(context.Background(), "vid00000001")
	if degraded {
		t.Fatal("video unexpectedly degraded")
	}
	if info.DurationSeconds != 3723 {
		t.Errorf("DurationSeconds = %d, want 3723", info.DurationSeconds)
	}
	if info.Thumbnail != "http://t/h.jpg" {
		t.Errorf("Thumbnail = %q", info.Thumbnail)
	}
}

func TestVideoNotFoundFallsBack(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": []}`))
	}))

	info, degraded := c.Video(context.Background(), "missing00id")
	if !degraded {
		t.Error("empty item list should degrade")
	}
	if info.ID != "missing00id" {
		t.Errorf("fallback id = %q", info.ID)
	}
}

func TestPlaylistPagination(t *testing.T) {
	page := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		page++
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{
				"nextPageToken": "page2",
				"items": [
					{"snippet": {"title": "first", "position": 0, "resourceId": {"videoId": "aaaaaaaaaaa"}}}
				]
			}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"items": [
				{"snippet": {"title": "second", "position": 1, "resourceId": {"videoId": "bbbbbbbbbbb"}}}
			]
		}`))
	}))

	items, degraded := c.Playlist(context.Background(), "PLxyz")
	if degraded {
		t.Fatal("playlist unexpectedly degraded")
	}
	if page != 2 {
		t.Errorf("pages fetched = %d, want 2", page)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].VideoID != "aaaaaaaaaaa" || items[1].VideoID != "bbbbbbbbbbb" {
		t.Errorf("unexpected items: %+v", items)
	}
	if items[1].Position != 1 {
		t.Errorf("Position = %d, want 1", items[1].Position)
	}
}

func TestSuggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "go tut" {
			t.Errorf("q = %q, want 'go tut'", got)
		}
		_, _ = w.Write([]byte(`["go tut", ["go tutorial", "go tutorial for beginners"], []]`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.SuggestBase = srv.URL

	suggestions, degraded := c.Suggest(context.Background(), "go tut")
	if degraded {
		t.Fatal("suggest unexpectedly degraded")
	}
	want := []string{"go tutorial", "go tutorial for beginners"}
	if len(suggestions) != len(want) {
		t.Fatalf("suggestions = %v, want %v", suggestions, want)
	}
	for i := range want {
		if suggestions[i] != want[i] {
			t.Errorf("suggestions[%d] = %q, want %q", i, suggestions[i], want[i])
		}
	}
}

func TestSuggestBadPayloadFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.SuggestBase = srv.URL

	suggestions, degraded := c.Suggest(context.Background(), "cats")
	if !degraded {
		t.Error("unparseable payload should degrade")
	}
	if len(suggestions) == 0 {
		t.Error("fallback suggestions empty")
	}
}

func TestFallbackSuggestEmptyQuery(t *testing.T) {
	if got := FallbackSuggest(""); len(got) != 0 {
		t.Errorf("FallbackSuggest(\"\") = %v, want empty", got)
	}
}
