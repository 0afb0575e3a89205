// Package timeparsing turns human time expressions into instants and
// recovery-window lengths.
//
// Expressions are tried in layers:
//  1. Compact duration (+6h, -1d, +2w, 90s)
//  2. Natural language (tomorrow, in 2 weeks, next monday)
//  3. Absolute timestamp (RFC3339, date-only)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// compactDurationRe matches compact duration patterns: [+-]?(\d+)([shdwmy])
// Examples: +6h, -1d, +2w, 3m, 1y, 30s
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([shdwmy])$`)

// ParseCompactDuration parses compact duration syntax and returns the resulting time.
//
// Units:
//   - s = seconds
//   - h = hours
//   - d = days
//   - w = weeks
//   - m = months (calendar, not minutes)
//   - y = years
//
// No sign means positive. Returns an error if s doesn't match the pattern.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	matches := compactDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}

	amount, err := strconv.Atoi(matches[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount: %q", matches[2])
	}
	if matches[1] == "-" {
		amount = -amount
	}
	return applyDuration(now, amount, matches[3]), nil
}

// applyDuration applies the given amount and unit to the base time.
func applyDuration(base time.Time, amount int, unit string) time.Time {
	switch unit {
	case "s":
		return base.Add(time.Duration(amount) * time.Second)
	case "h":
		return base.Add(time.Duration(amount) * time.Hour)
	case "d":
		return base.AddDate(0, 0, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "m":
		return base.AddDate(0, amount, 0)
	case "y":
		return base.AddDate(amount, 0, 0)
	default:
		return base
	}
}

// IsCompactDuration returns true if the string matches compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}
