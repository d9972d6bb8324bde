// Package notify renders verified extractions for people: chat digests,
// calendar invites, and the emails that carry them.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// FormatTime12h renders "HH:MM" as "H:MM AM/PM". Anything that is not a
// clock time is returned unchanged.
func FormatTime12h(hhmm string) string {
	if hhmm == "" {
		return ""
	}
	hourPart, minutes, ok := strings.Cut(hhmm, ":")
	if !ok {
		return hhmm
	}
	hours, err := strconv.Atoi(hourPart)
	if err != nil {
		return hhmm
	}

	ampm := "AM"
	if hours >= 12 {
		ampm = "PM"
	}
	hours %= 12
	if hours == 0 {
		hours = 12
	}
	return fmt.Sprintf("%d:%s %s", hours, minutes, ampm)
}

// ReadableDate renders an ISO date as "Friday, Feb 20, 2026"
func ReadableDate(date string) (string, error) {
	d, err := time.Parse(isoDate, date)
	if err != nil {
		return "", fmt.Errorf("parse event date %q: %w", date, err)
	}
	return d.Format("Monday, Jan 2, 2006"), nil
}

// TimeDisplay renders an event's time span for people: "All Day",
// "8:30 AM" or "8:30 AM - 2:45 PM"
func TimeDisplay(start, end string) string {
	if start == "" {
		return "All Day"
	}
	if end == "" {
		return FormatTime12h(start)
	}
	return FormatTime12h(start) + " - " + FormatTime12h(end)
}

// truncateRunes keeps the first n characters of s
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
