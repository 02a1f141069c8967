// Package youtubeapi wraps the YouTube Data API v3 behind a small read-only
// client used by the proxy endpoints and the metadata backfill job. The client
// authenticates with an API key; when no key is configured or an upstream call
// fails, each operation returns a fixed substitute payload flagged as degraded
// instead of an error.
package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	yt "google.golang.org/api/youtube/v3"
	"google.golang.org/api/option"

	"github.com/onnwee/clipdeck/timefmt"
)

// Operation labels used for metrics.
const (
	OpSearch   = "search"
	OpVideo    = "video"
	OpPlaylist = "playlist"
	OpSuggest  = "suggest"
)

const (
	defaultSearchMax    = 10
	maxPlaylistItems    = 200
	playlistPageSize    = 50
	defaultSuggestBase  = "https://suggestqueries.google.com/complete/search"
)

// SearchResult is one hit from keyword search.
type SearchResult struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}

// VideoInfo is snippet + contentDetails for a single video.
type VideoInfo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Thumbnail       string `json:"thumbnail"`
	ChannelTitle    string `json:"channelTitle"`
	DurationSeconds int    `json:"durationSeconds"`
	PublishedAt     string `json:"publishedAt"`
}

// PlaylistItem is one entry of a playlist, in playlist order.
type PlaylistItem struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Position  int64  `json:"position"`
}

// Client is safe for concurrent use.
type Client struct {
	svc        *yt.Service
	httpClient *http.Client

	// SuggestBase is the suggestion endpoint; overridable in tests.
	SuggestBase string

	degraded bool
}

// New builds a client from an API key. An empty key yields a permanently
// degraded client rather than an error so the service can start without
// upstream credentials. Extra options are forwarded to the Data API client
// (tests pass option.WithEndpoint).
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	c := &Client{
		httpClient:  &http.Client{},
		SuggestBase: defaultSuggestBase,
	}
	if apiKey == "" {
		slog.Warn("youtube api key not set; proxy running in degraded mode")
		c.degraded = true
		return c, nil
	}
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// Degraded reports whether the client was built without credentials.
func (c *Client) Degraded() bool { return c.degraded }

// Search performs keyword search. The second return value reports whether the
// payload is a degraded substitute.
func (c *Client) Search(ctx context.Context, query string, max int64) ([]SearchResult, bool) {
	if max <= 0 || max > playlistPageSize {
		max = defaultSearchMax
	}
	if c.degraded {
		return FallbackSearch(query), true
	}
	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).Type("video").MaxResults(max).Context(ctx).Do()
	if err != nil {
		slog.Warn("youtube search failed", slog.String("q", query), slog.Any("err", err))
		return FallbackSearch(query), true
	}
	out := make([]SearchResult, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Id == nil || it.Snippet == nil {
			continue
		}
		out = append(out, SearchResult{
			VideoID:      it.Id.VideoId,
			Title:        it.Snippet.Title,
			Description:  it.Snippet.Description,
			Thumbnail:    thumbURL(it.Snippet.Thumbnails),
			ChannelTitle: it.Snippet.ChannelTitle,
			PublishedAt:  it.Snippet.PublishedAt,
		})
	}
	return out, false
}

// Video fetches snippet + contentDetails for one video id.
func (c *Client) Video(ctx context.Context, id string) (*VideoInfo, bool) {
	if c.degraded {
		return FallbackVideo(id), true
	}
	resp, err := c.svc.Videos.List([]string{"snippet", "contentDetails"}).
		Id(id).Context(ctx).Do()
	if err != nil || len(resp.Items) == 0 {
		if err != nil {
			slog.Warn("youtube video lookup failed", slog.String("id", id), slog.Any("err", err))
		}
		return FallbackVideo(id), true
	}
	it := resp.Items[0]
	info := &VideoInfo{ID: it.Id}
	if it.Snippet != nil {
		info.Title = it.Snippet.Title
		info.Description = it.Snippet.Description
		info.Thumbnail = thumbURL(it.Snippet.Thumbnails)
		info.ChannelTitle = it.Snippet.ChannelTitle
		info.PublishedAt = it.Snippet.PublishedAt
	}
	if it.ContentDetails != nil {
		secs, perr := timefmt.ParseISODuration(it.ContentDetails.Duration)
		if perr == nil {
			info.DurationSeconds = secs
		}
	}
	return info, false
}

// Playlist fetches items in playlist order, paging until exhausted or the
// item cap is reached.
func (c *Client) Playlist(ctx context.Context, id string) ([]PlaylistItem, bool) {
	if c.degraded {
		return FallbackPlaylist(id), true
	}
	var out []PlaylistItem
	pageToken := ""
	for {
		call := c.svc.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(id).MaxResults(playlistPageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			slog.Warn("youtube playlist fetch failed", slog.String("id", id), slog.Any("err", err))
			return FallbackPlaylist(id), true
		}
		for _, it := range resp.Items {
			if it.Snippet == nil || it.Snippet.ResourceId == nil {
				continue
			}
			out = append(out, PlaylistItem{
				VideoID:   it.Snippet.ResourceId.VideoId,
				Title:     it.Snippet.Title,
				Thumbnail: thumbURL(it.Snippet.Thumbnails),
				Position:  it.Snippet.Position,
			})
			if len(out) >= maxPlaylistItems {
				return out, false
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return out, false
		}
	}
}

func thumbURL(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	switch {
	case t.Medium != nil:
		return t.Medium.Url
	case t.High != nil:
		return t.High.Url
	case t.Default != nil:
		return t.Default.Url
	}
	return ""
}
