// Package timeutil provides utility functions and types for working with
// time-related operations, including the race-time codec.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const secondsInAMinute = 60

// Round2 rounds a seconds value to two decimal places so that parsing,
// display, and storage all agree on the same number.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseRaceTime converts a free-form race time entry into elapsed seconds.
// Three shapes are accepted: plain seconds ("45.55"), minute:second
// ("7:45.55"), and minute.second.hundredths ("7.45.55"). Any component that
// does not parse invalidates the whole entry and yields 0, which callers
// must treat as invalid input rather than a zero duration. Degrading a bad
// component to 0 on its own would silently record a typo as a round time.
func ParseRaceTime(s string) float64 {
	s = strings.TrimSpace(s)

	var (
		minutes, seconds float64
		okMin, okSec     bool
	)

	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		minutes, okMin = parseComponent(parts[0])
		seconds, okSec = parseComponent(parts[1])
	case strings.Count(s, ".") == 2:
		parts := strings.Split(s, ".")
		minutes, okMin = parseComponent(parts[0])
		seconds, okSec = parseComponent(parts[1] + "." + parts[2])
	default:
		okMin = true
		seconds, okSec = parseComponent(s)
	}

	if !okMin || !okSec {
		return 0
	}

	total := minutes*secondsInAMinute + seconds
	if total <= 0 {
		return 0
	}

	return Round2(total)
}

// FormatRaceTime renders elapsed seconds as "M:SS.ss" with the seconds
// component zero-padded to width 5. It round-trips through ParseRaceTime
// to within 0.01.
func FormatRaceTime(elapsed float64) string {
	elapsed = Round2(elapsed)

	minutes := int(elapsed) / secondsInAMinute
	seconds := elapsed - float64(minutes*secondsInAMinute)

	// Rounding the remainder for display can tip it over a full minute.
	if seconds >= secondsInAMinute {
		minutes++
		seconds -= secondsInAMinute
	}

	return fmt.Sprintf("%d:%05.2f", minutes, seconds)
}

func parseComponent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0, false
	}

	return v, true
}

// ToKey converts a time value to a database key for Bolt.
func ToKey(t time.Time) []byte {
	return []byte(t.Format(time.RFC3339Nano))
}
