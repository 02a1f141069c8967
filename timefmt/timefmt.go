// Package timefmt converts between the duration representations used by the
// YouTube Data API (ISO-8601 PT#H#M#S) and the UI (seconds, "H:MM:SS").
package timefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO-8601 duration like "PT1H23M45S" to total
// seconds. "PT0S" and component-less forms parse to 0; anything outside the
// PT grammar is an error.
func ParseISODuration(s string) (int, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("timefmt: invalid ISO-8601 duration %q", s)
	}
	var h, min, sec int
	if m[1] != "" {
		h, _ = strconv.Atoi(m[1])
	}
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	return h*3600 + min*60 + sec, nil
}

// FormatSeconds renders seconds as "M:SS" or "H:MM:SS". Negative values
// clamp to zero.
func FormatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseClock converts "SS", "M:SS", or "H:MM:SS" to total seconds.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("timefmt: invalid clock value %q", s)
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("timefmt: invalid clock value %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}
