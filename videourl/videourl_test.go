package videourl

import (
	"errors"
	"testing"
)

func TestParseKnownPlatforms(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform Platform
		id       string
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", PlatformYouTube, "dQw4w9WgXcQ"},
		{"youtube watch extra params", "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ&t=10", PlatformYouTube, "dQw4w9WgXcQ"},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", PlatformYouTube, "dQw4w9WgXcQ"},
		{"youtube shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", PlatformYouTube, "dQw4w9WgXcQ"},
		{"youtube embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", PlatformYouTube, "dQw4w9WgXcQ"},
		{"youtube mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", PlatformYouTube, "dQw4w9WgXcQ"},
		{"vimeo", "https://vimeo.com/76979871", PlatformVimeo, "76979871"},
		{"vimeo video path", "https://vimeo.com/video/76979871", PlatformVimeo, "76979871"},
		{"twitch vod", "https://www.twitch.tv/videos/1234567890", PlatformTwitch, "1234567890"},
		{"dailymotion", "https://www.dailymotion.com/video/x8abcde", PlatformDailymotion, "x8abcde"},
		{"dailymotion short", "https://dai.ly/x8abcde", PlatformDailymotion, "x8abcde"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.url, err)
			}
			if v.Platform != tt.platform {
				t.Errorf("platform = %s, want %s", v.Platform, tt.platform)
			}
			if v.ID != tt.id {
				t.Errorf("id = %s, want %s", v.ID, tt.id)
			}
			if v.EmbedURL == "" {
				t.Error("embed URL not derived")
			}
		})
	}
}

func TestParseDerivedURLs(t *testing.T) {
	v, err := Parse("https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if v.EmbedURL != "https://www.youtube.com/embed/dQw4w9WgXcQ" {
		t.Errorf("embed = %s", v.EmbedURL)
	}
	if v.Thumbnail != "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Errorf("thumbnail = %s", v.Thumbnail)
	}
}

func TestParseUnsupported(t *testing.T) {
	for _, u := range []string{
		"",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"not a url at all",
		"https://www.youtube.com/watch?v=tooshort",
	} {
		if _, err := Parse(u); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Parse(%q) error = %v, want ErrUnsupported", u, err)
		}
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("https://vimeo.com/76979871") {
		t.Error("vimeo URL should be supported")
	}
	if IsSupported("https://example.com/clip") {
		t.Error("unknown host should not be supported")
	}
}
