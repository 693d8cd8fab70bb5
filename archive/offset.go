package archive

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	// 1d7m52s, 7h2m, 10s, 10
	unitOffset = regexp.MustCompile(`^\s*(?:(\d*)\s*d)?\s*(?:(\d*)\s*h)?\s*(?:(\d*)\s*m)?\s*(?:(\d*)\s*s?)?\s*$`)
	// 1:00:07:52, 7:02:00, 5:03
	clockOffset = regexp.MustCompile(`^\s*(?:(?:(?:(\d*)\s*:)?\s*(\d*)\s*:)?\s*(\d*)\s*:)?\s*(\d*)\s*$`)
)

// ParseOffset parses a playback position such as "1h2m3s", "90" or "1:02:03".
func ParseOffset(s string) (time.Duration, error) {
	m := unitOffset.FindStringSubmatch(s)
	if m == nil {
		m = clockOffset.FindStringSubmatch(s)
	}
	if m == nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	empty := true
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q: %w", s, err)
		}
		d += time.Duration(n) * unit
		empty = false
	}
	if empty {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return d, nil
}

// FormatOffset renders seconds relative to the broadcast start as [-]h:mm:ss.
func FormatOffset(sec int64) string {
	sign := ""
	if sec < 0 {
		sign = "-"
		sec = -sec
	}
	return fmt.Sprintf("%s%d:%02d:%02d", sign, sec/3600, sec/60%60, sec%60)
}
