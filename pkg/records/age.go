// CLAUDE:SUMMARY Derived ages: process age from the filing date, client age from split birth fields, clock injected.
package records

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// daysPerYear converts day counts to fractional years.
const daysPerYear = 365.25

// maxClientAge bounds plausible client ages; anything outside [0,120] is dropped.
const maxClientAge = 120

var filingDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseFilingDate parses the process date field. Offsets are discarded and
// the wall-clock value is kept.
func ParseFilingDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range filingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), true
		}
	}
	return time.Time{}, false
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ProcessAge returns the whole days elapsed since the filing date and the
// same span in years.
func ProcessAge(r Record, now time.Time) (days int, years float64, ok bool) {
	filed, ok := ParseFilingDate(r[FieldFilingDate])
	if !ok {
		return 0, 0, false
	}
	d := int(math.Floor(naive(now).Sub(filed).Hours() / 24))
	return d, float64(d) / daysPerYear, true
}

// ClientAge returns the client age in years from the birth day, month and
// year fields, or false when they are absent, out of range, or describe an
// impossible date.
func ClientAge(r Record, now time.Time) (float64, bool) {
	year, ok1 := toInt(r[FieldBirthYear])
	month, ok2 := toInt(r[FieldBirthMonth])
	day, ok3 := toInt(r[FieldBirthDay])
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	now = naive(now)
	if year <= 1900 || year > now.Year() || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, false
	}
	born := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if born.Day() != day || int(born.Month()) != month {
		return 0, false
	}
	days := math.Floor(now.Sub(born).Hours() / 24)
	age := days / daysPerYear
	if age < 0 || age > maxClientAge {
		return 0, false
	}
	return age, true
}

// AddAges sets the derived age fields on every record that supports them.
// Records are modified in place.
func AddAges(recs []Record, now time.Time) {
	for _, r := range recs {
		if days, years, ok := ProcessAge(r, now); ok {
			r[FieldProcessAgeDays] = days
			r[FieldProcessAgeYears] = years
		}
		if age, ok := ClientAge(r, now); ok {
			r[FieldClientAgeYears] = age
		}
	}
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}
