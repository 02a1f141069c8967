package youtubeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Suggest returns search suggestions for a partial query. The suggestqueries
// endpoint is not part of the Data API and needs no key, so it works even
// when the rest of the client is degraded; only a transport failure falls
// back to the substitute payload.
func (c *Client) Suggest(ctx context.Context, query string) ([]string, bool) {
	u := fmt.Sprintf("%s?client=firefox&ds=yt&q=%s", c.SuggestBase, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return FallbackSuggest(query), true
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("youtube suggest failed", slog.String("q", query), slog.Any("err", err))
		return FallbackSuggest(query), true
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("youtube suggest bad status", slog.Int("status", resp.StatusCode))
		return FallbackSuggest(query), true
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return FallbackSuggest(query), true
	}
	suggestions, err := parseSuggestBody(body)
	if err != nil {
		slog.Warn("youtube suggest parse failed", slog.Any("err", err))
		return FallbackSuggest(query), true
	}
	return suggestions, false
}

// parseSuggestBody decodes the firefox-client response shape:
// ["query", ["suggestion", ...], ...].
func parseSuggestBody(body []byte) ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("unexpected suggest payload shape")
	}
	var suggestions []string
	if err := json.Unmarshal(raw[1], &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}
