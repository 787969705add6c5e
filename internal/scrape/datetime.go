package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// germanMonths maps the portal's German month abbreviations to months.
var germanMonths = map[string]time.Month{
	"Jan.": time.January,
	"Feb.": time.February,
	"Mär.": time.March,
	"Apr.": time.April,
	"Mai":  time.May,
	"Jun.": time.June,
	"Jul.": time.July,
	"Aug.": time.August,
	"Sep.": time.September,
	"Okt.": time.October,
	"Nov.": time.November,
	"Dez.": time.December,
}

// eventTimePattern matches schedule strings of the form
// "Mo, 3. Apr. 2023 10:00-12:00", optionally with a trailing "*" marking an
// irregular event. The weekday is decorative and ignored.
var eventTimePattern = regexp.MustCompile(
	`^[A-Za-zäöü]{2},\s*(\d{1,2})\.\s+(\S+)\s+(\d{4})\s+(\d{2}):(\d{2})-(\d{2}):(\d{2})\s*(\*)?$`,
)

// EventTime is one parsed schedule interval. Starred events are irregular
// one-off dates; callers currently discard them (a deliberate policy carried
// over from the portal's own calendar export, not an oversight).
type EventTime struct {
	Start   time.Time
	End     time.Time
	Starred bool
}

// ParseEventTime parses a localized schedule string. An end time of 24:00 is
// normalized to 23:59 on the same day.
func ParseEventTime(s string) (EventTime, error) {
	m := eventTimePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return EventTime{}, fmt.Errorf("unrecognized schedule string %q", s)
	}

	day, _ := strconv.Atoi(m[1])
	month, ok := germanMonths[m[2]]
	if !ok {
		return EventTime{}, fmt.Errorf("unknown month %q in %q", m[2], s)
	}
	year, _ := strconv.Atoi(m[3])

	start, err := clockTime(year, month, day, m[4], m[5])
	if err != nil {
		return EventTime{}, fmt.Errorf("bad start time in %q: %w", s, err)
	}
	end, err := clockTime(year, month, day, m[6], m[7])
	if err != nil {
		return EventTime{}, fmt.Errorf("bad end time in %q: %w", s, err)
	}

	return EventTime{Start: start, End: end, Starred: m[8] == "*"}, nil
}

// clockTime builds a timestamp from date parts and HH:MM strings, mapping
// the portal's "24:00" to 23:59.
func clockTime(year int, month time.Month, day int, hh, mm string) (time.Time, error) {
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	if hour == 24 {
		if minute != 0 {
			return time.Time{}, fmt.Errorf("invalid time %s:%s", hh, mm)
		}
		hour, minute = 23, 59
	}
	if hour > 24 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time %s:%s", hh, mm)
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), nil
}

// germanDatePattern matches single timestamps like "3. Apr. 2023 10:00",
// used by exam schedules and registration windows.
var germanDatePattern = regexp.MustCompile(
	`^(\d{1,2})\.\s+(\S+)\s+(\d{4})\s+(\d{2}):(\d{2})$`,
)

// ParseGermanDateTime parses a single localized timestamp.
func ParseGermanDateTime(s string) (time.Time, error) {
	m := germanDatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	day, _ := strconv.Atoi(m[1])
	month, ok := germanMonths[m[2]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q in %q", m[2], s)
	}
	year, _ := strconv.Atoi(m[3])
	return clockTime(year, month, day, m[4], m[5])
}

// ParseWindow parses a "start - end" pair of localized timestamps, as used
// for exam registration and unregistration periods.
func ParseWindow(s string) (time.Time, time.Time, error) {
	parts := strings.SplitN(s, " - ", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("unrecognized window %q", s)
	}
	from, err := ParseGermanDateTime(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseGermanDateTime(parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
