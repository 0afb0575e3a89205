package timeparsing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseWindow converts a recovery-window expression into whole seconds.
//
// Accepted forms, in order of precedence:
//   - a bare non-negative integer, taken as seconds ("86400", "0")
//   - compact duration ("1d", "2w", "3m" = three calendar months from now)
//   - Go duration ("90m", "1h30m", "45s")
//   - anything ParseRelativeTime accepts, measured from now ("in 2 weeks",
//     "2026-12-01")
//
// Negative windows are rejected. Fractions of a second are truncated.
func ParseWindow(s string, now time.Time) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty recovery window")
	}

	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("recovery window must not be negative: %q", s)
	}

	if IsCompactDuration(s) {
		// UTC keeps "1d" at exactly 86400 across DST changes.
		t, err := ParseCompactDuration(s, now.UTC())
		if err != nil {
			return 0, err
		}
		return secondsUntil(s, now, t)
	}
	if d, err := time.ParseDuration(s); err == nil {
		return uint64(d / time.Second), nil
	}

	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return 0, fmt.Errorf("invalid recovery window %q (want seconds, 1d, 36h or a date)", s)
	}
	return secondsUntil(s, now, t)
}

func secondsUntil(expr string, now, t time.Time) (uint64, error) {
	d := t.Sub(now)
	if d < 0 {
		return 0, fmt.Errorf("recovery window %q ends in the past", expr)
	}
	return uint64(d / time.Second), nil
}

// FormatWindow renders seconds the way ParseWindow reads them back:
// the largest of w, d, h whose unit divides evenly, else Go duration text,
// else plain seconds.
func FormatWindow(seconds uint64) string {
	switch {
	case seconds == 0:
		return "0s"
	case seconds%(7*86400) == 0:
		return fmt.Sprintf("%dw", seconds/(7*86400))
	case seconds%86400 == 0:
		return fmt.Sprintf("%dd", seconds/86400)
	case seconds%3600 == 0:
		return fmt.Sprintf("%dh", seconds/3600)
	}
	if seconds > uint64(math.MaxInt64/int64(time.Second)) {
		return strconv.FormatUint(seconds, 10)
	}
	return (time.Duration(seconds) * time.Second).String()
}
