package timeslot

import (
	"fmt"
	"regexp"
)

// clockRegex matches 24-hour HH:MM strings, 00:00 through 23:59
var clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// MinutesPerDay is the number of addressable minutes in a day; FormatClock
// clamps to the last representable minute, 23:59.
const MinutesPerDay = 24 * 60

// ParseClock converts an HH:MM string to minutes since midnight.
func ParseClock(text string) (int, error) {
	if !clockRegex.MatchString(text) {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", text)
	}
	hours := int(text[0]-'0')*10 + int(text[1]-'0')
	minutes := int(text[3]-'0')*10 + int(text[4]-'0')
	return hours*60 + minutes, nil
}

// FormatClock converts minutes since midnight to an HH:MM string.
// Out-of-range values are clamped to [0, 1439].
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > MinutesPerDay-1 {
		minutes = MinutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// IsRange reports whether start and end are both valid HH:MM strings
// and end is strictly after start.
func IsRange(start, end string) bool {
	s, err := ParseClock(start)
	if err != nil {
		return false
	}
	e, err := ParseClock(end)
	if err != nil {
		return false
	}
	return e > s
}
