// Package timeparse resolves informal date and time phrases captured by the
// voice agent ("tomorrow", "friday", "3:30pm") into concrete timestamps.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockPattern = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Resolve maps a free-text date phrase and time phrase onto ref.
//
// Matching is case-insensitive substring, first match wins: "today" keeps the
// reference date, "tomorrow" adds a day, a weekday name picks the next
// occurrence strictly after the reference date (the same weekday rolls a full
// week). An unmatched phrase leaves that part of ref unchanged rather than
// erroring; a plausible guess beats rejecting a booking.
//
// The second return value is false only when both phrases are empty, so a
// caller can distinguish "no preference" from a resolved midnight and apply
// its own default.
func Resolve(datePhrase, timePhrase string, ref time.Time) (time.Time, bool) {
	if strings.TrimSpace(datePhrase) == "" && strings.TrimSpace(timePhrase) == "" {
		return time.Time{}, false
	}

	target := ref
	if phrase := strings.ToLower(datePhrase); phrase != "" {
		switch {
		case strings.Contains(phrase, "today"):
			// keep the reference date
		case strings.Contains(phrase, "tomorrow"):
			target = target.AddDate(0, 0, 1)
		default:
			if day, ok := matchWeekday(phrase); ok {
				target = nextWeekday(target, day)
			}
		}
	}

	if hour, minute, ok := parseClock(timePhrase); ok {
		target = time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, target.Location())
	}

	return target, true
}

func matchWeekday(phrase string) (time.Weekday, bool) {
	for name, day := range weekdays {
		if strings.Contains(phrase, name) {
			return day, true
		}
	}
	return 0, false
}

// nextWeekday returns the next occurrence of day strictly after t. When t
// already falls on day, the result is a full week out: a caller saying
// "wednesday" on a Wednesday means next week, not right now.
func nextWeekday(t time.Time, day time.Weekday) time.Time {
	delta := int(day-t.Weekday()+7) % 7
	if delta == 0 {
		delta = 7
	}
	return t.AddDate(0, 0, delta)
}

// parseClock parses H[:MM][am|pm]. A missing meridiem is taken literally,
// missing minutes are zero. 12am maps to hour 0.
func parseClock(phrase string) (hour, minute int, ok bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return 0, 0, false
	}
	m := clockPattern.FindStringSubmatch(phrase)
	if m == nil {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute, true
}
