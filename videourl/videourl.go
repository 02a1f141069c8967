// Package videourl classifies video URLs by platform and derives canonical
// embed and thumbnail URLs from the extracted video id. Matching is pure
// pattern work over known hostname/path shapes; no network access.
package videourl

import (
	"errors"
	"fmt"
	"regexp"
)

// Platform names a supported video host.
type Platform string

const (
	PlatformYouTube     Platform = "youtube"
	PlatformVimeo       Platform = "vimeo"
	PlatformTwitch      Platform = "twitch"
	PlatformDailymotion Platform = "dailymotion"
)

// ErrUnsupported is returned when no platform pattern matches the URL.
var ErrUnsupported = errors.New("videourl: unsupported or unrecognized video URL")

// Video is the result of a successful parse.
type Video struct {
	Platform  Platform
	ID        string
	EmbedURL  string
	Thumbnail string
}

type pattern struct {
	platform Platform
	re       *regexp.Regexp
}

// Patterns are tried in order; the first submatch wins. YouTube shapes cover
// watch URLs, short links, shorts, and bare embed paths.
var patterns = []pattern{
	{PlatformYouTube, regexp.MustCompile(`(?:www\.|m\.)?youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]{11})`)},
	{PlatformYouTube, regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`)},
	{PlatformYouTube, regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`)},
	{PlatformYouTube, regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`)},
	{PlatformVimeo, regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)},
	{PlatformTwitch, regexp.MustCompile(`twitch\.tv/videos/(\d+)`)},
	{PlatformDailymotion, regexp.MustCompile(`dailymotion\.com/video/([a-zA-Z0-9]+)`)},
	{PlatformDailymotion, regexp.MustCompile(`dai\.ly/([a-zA-Z0-9]+)`)},
}

// Parse attempts each platform pattern in order and returns the first match
// with derived embed and thumbnail URLs. Returns ErrUnsupported when nothing
// matches.
func Parse(raw string) (*Video, error) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(raw)
		if len(m) < 2 {
			continue
		}
		id := m[1]
		v := &Video{Platform: p.platform, ID: id}
		switch p.platform {
		case PlatformYouTube:
			v.EmbedURL = "https://www.youtube.com/embed/" + id
			v.Thumbnail = fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
		case PlatformVimeo:
			v.EmbedURL = "https://player.vimeo.com/video/" + id
			v.Thumbnail = "https://vumbnail.com/" + id + ".jpg"
		case PlatformTwitch:
			v.EmbedURL = "https://player.twitch.tv/?video=v" + id
		case PlatformDailymotion:
			v.EmbedURL = "https://www.dailymotion.com/embed/video/" + id
			v.Thumbnail = "https://www.dailymotion.com/thumbnail/video/" + id
		}
		return v, nil
	}
	return nil, ErrUnsupported
}

// IsSupported reports whether the URL matches any known platform shape.
func IsSupported(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}
