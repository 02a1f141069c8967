package youtubeapi

import "fmt"

// Fixed substitute payloads served while degraded. Stable, obviously
// synthetic data so the frontend stays usable without upstream access.

func FallbackSearch(query string) []SearchResult {
	return []SearchResult{
		{
			VideoID:      "dQw4w9WgXcQ",
			Title:        fmt.Sprintf("Sample result for %q", query),
			Description:  "Placeholder result served while the YouTube API is unavailable.",
			Thumbnail:    "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg",
			ChannelTitle: "clipdeck",
			PublishedAt:  "2024-01-01T00:00:00Z",
		},
		{
			VideoID:      "jNQXAC9IVRw",
			Title:        fmt.Sprintf("Another sample for %q", query),
			Description:  "Placeholder result served while the YouTube API is unavailable.",
			Thumbnail:    "https://i.ytimg.com/vi/jNQXAC9IVRw/mqdefault.jpg",
			ChannelTitle: "clipdeck",
			PublishedAt:  "2024-01-01T00:00:00Z",
		},
	}
}

func FallbackVideo(id string) *VideoInfo {
	return &VideoInfo{
		ID:              id,
		Title:           "Video " + id,
		Description:     "Metadata unavailable; YouTube API is unreachable.",
		Thumbnail:       fmt.Sprintf("https://i.ytimg.com/vi/%s/mqdefault.jpg", id),
		ChannelTitle:    "unknown",
		DurationSeconds: 0,
		PublishedAt:     "",
	}
}

func FallbackPlaylist(id string) []PlaylistItem {
	return []PlaylistItem{
		{VideoID: "dQw4w9WgXcQ", Title: "Playlist " + id + " item 1", Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg", Position: 0},
	}
}

func FallbackSuggest(query string) []string {
	if query == "" {
		return []string{}
	}
	return []string{query, query + " tutorial", query + " highlights"}
}
