// Package dateparse turns human-entered due-date phrases into absolute
// timestamps. It is a pure function of the input text and a caller-supplied
// reference clock, so behaviour is fully deterministic in tests.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports input that matched none of the recognised forms, or an
// internally inconsistent date such as Feb 30.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dateparse: cannot parse %q: %s", e.Input, e.Reason)
}

func errParse(input, reason string) error {
	return &ParseError{Input: input, Reason: reason}
}

// clockDefault says what time of day a date form resolves to when the
// phrase carries no explicit time.
type clockDefault int

const (
	clockKeepReference clockDefault = iota // Nd / Nw offsets
	clockEndOfDay                          // today / tomorrow
	clockStartOfDay                        // weekday and explicit date forms
	clockExplicit                          // the form itself included a time
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Parse resolves text against referenceNow (normalised to UTC). Recognised
// forms, in priority order: relative offsets ("3d", "2w"), "today",
// "tomorrow", "[next] <weekday>", "2006-01-02", "2006-01-02 15:04" and
// "March 5". A trailing "at 3:04pm" component combines with any date form.
func Parse(text string, referenceNow time.Time) (time.Time, error) {
	input := text
	now := referenceNow.UTC()

	phrase := strings.ToLower(strings.TrimSpace(text))
	if phrase == "" {
		return time.Time{}, errParse(input, "empty input")
	}

	datePart, hour, minute, hasClock, err := splitTrailingClock(input, phrase)
	if err != nil {
		return time.Time{}, err
	}

	day, def, err := resolveDate(input, datePart, now)
	if err != nil {
		return time.Time{}, err
	}

	if hasClock {
		return withClock(day, hour, minute), nil
	}
	switch def {
	case clockKeepReference:
		return withClock(day, now.Hour(), now.Minute()), nil
	case clockEndOfDay:
		return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC), nil
	case clockExplicit:
		return day, nil
	default:
		return withClock(day, 0, 0), nil
	}
}

// splitTrailingClock peels an "at H:MMam/pm" suffix off the phrase.
func splitTrailingClock(input, phrase string) (datePart string, hour, minute int, ok bool, err error) {
	idx := strings.LastIndex(phrase, " at ")
	if idx < 0 {
		return phrase, 0, 0, false, nil
	}
	clockText := strings.TrimSpace(phrase[idx+len(" at "):])
	parsed, perr := time.Parse("3:04pm", clockText)
	if perr != nil {
		return "", 0, 0, false, errParse(input, fmt.Sprintf("invalid time %q, expected H:MMam/pm", clockText))
	}
	return strings.TrimSpace(phrase[:idx]), parsed.Hour(), parsed.Minute(), true, nil
}

func resolveDate(input, datePart string, now time.Time) (time.Time, clockDefault, error) {
	if d, ok, err := parseRelativeOffset(input, datePart, now); ok || err != nil {
		return d, clockKeepReference, err
	}

	switch datePart {
	case "today":
		return now, clockEndOfDay, nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), clockEndOfDay, nil
	}

	if wd, ok := strings.CutPrefix(datePart, "next "); ok {
		return resolveWeekday(input, wd, now)
	}
	if _, ok := weekdays[datePart]; ok {
		return resolveWeekday(input, datePart, now)
	}

	if parsed, err := time.Parse("2006-01-02 15:04", datePart); err == nil {
		return parsed.UTC(), clockExplicit, nil
	}
	if parsed, err := time.Parse("2006-01-02", datePart); err == nil {
		return parsed.UTC(), clockStartOfDay, nil
	}
	if looksLikeISODate(datePart) {
		return time.Time{}, 0, errParse(input, "invalid calendar date")
	}

	if d, ok, err := parseMonthDay(input, datePart, now); ok || err != nil {
		return d, clockStartOfDay, err
	}

	return time.Time{}, 0, errParse(input, "unrecognised due date")
}

// parseRelativeOffset handles "Nd" and "Nw" with integer N >= 1.
func parseRelativeOffset(input, datePart string, now time.Time) (time.Time, bool, error) {
	if len(datePart) < 2 {
		return time.Time{}, false, nil
	}
	unit := datePart[len(datePart)-1]
	if unit != 'd' && unit != 'w' {
		return time.Time{}, false, nil
	}
	n, err := strconv.Atoi(datePart[:len(datePart)-1])
	if err != nil {
		return time.Time{}, false, nil
	}
	if n < 1 {
		return time.Time{}, false, errParse(input, "offset must be at least 1")
	}
	days := n
	if unit == 'w' {
		days = n * 7
	}
	return now.AddDate(0, 0, days), true, nil
}

// resolveWeekday finds the closest occurrence of the named weekday strictly
// after the reference day; the same weekday always means one week out, never
// today.
func resolveWeekday(input, name string, now time.Time) (time.Time, clockDefault, error) {
	target, ok := weekdays[name]
	if !ok {
		return time.Time{}, 0, errParse(input, fmt.Sprintf("unknown weekday %q", name))
	}
	delta := (int(target) - int(now.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return now.AddDate(0, 0, delta), clockStartOfDay, nil
}

// parseMonthDay handles the "March 5" free-text form. The year defaults to
// the reference year, rolling forward when the date has already passed.
func parseMonthDay(input, datePart string, now time.Time) (time.Time, bool, error) {
	fields := strings.Fields(datePart)
	if len(fields) != 2 {
		return time.Time{}, false, nil
	}
	parsed, err := time.Parse("January 2", titleCase(fields[0])+" "+fields[1])
	if err != nil {
		return time.Time{}, false, nil
	}

	day := parsed.Day()
	candidate := time.Date(now.Year(), parsed.Month(), day, 0, 0, 0, 0, time.UTC)
	if candidate.Before(withClock(now, 0, 0)) {
		candidate = time.Date(now.Year()+1, parsed.Month(), day, 0, 0, 0, 0, time.UTC)
	}
	// time.Date normalises Feb 29 to Mar 1 in common years.
	if candidate.Day() != day || candidate.Month() != parsed.Month() {
		return time.Time{}, true, errParse(input, "no such date in that year")
	}
	return candidate, true, nil
}

func looksLikeISODate(s string) bool {
	parts := strings.SplitN(s, " ", 2)
	fields := strings.Split(parts[0], "-")
	if len(fields) != 3 {
		return false
	}
	for _, f := range fields {
		if f == "" {
			return false
		}
		for _, r := range f {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func withClock(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}
