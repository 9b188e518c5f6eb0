// backend/scraper/filename_dates.go
package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Schedule workbooks are named by hand, e.g. "JADWAL 14-15 MAR 2025.xlsx" or "Jadwal 16 March 2025.xlsx".
var (
	dayRangeRegex  = regexp.MustCompile(`(\d{1,2})-(\d{1,2})\s+([A-Z]+)\s+(\d{4})`)
	singleDayRegex = regexp.MustCompile(`(\d{1,2})\s+([A-Z]+)\s+(\d{4})`)
)

var monthAbbr = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March, "APR": time.April,
	"MAY": time.May, "JUN": time.June, "JUL": time.July, "AUG": time.August,
	"SEP": time.September, "OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ExtractDatesFromFilename returns the calendar day(s) a schedule file covers.
// "D1-D2 MONTH YEAR" yields two dates, "D MONTH YEAR" yields one. Anything else, an unknown
// month or an impossible date yields nil.
func ExtractDatesFromFilename(name string) []time.Time {
	name = strings.ToUpper(name)

	if m := dayRangeRegex.FindStringSubmatch(name); m != nil {
		d1, ok1 := buildDate(m[4], m[3], m[1])
		d2, ok2 := buildDate(m[4], m[3], m[2])
		if !ok1 || !ok2 {
			return nil
		}
		return []time.Time{d1, d2}
	}
	if m := singleDayRegex.FindStringSubmatch(name); m != nil {
		d, ok := buildDate(m[3], m[2], m[1])
		if !ok {
			return nil
		}
		return []time.Time{d}
	}
	return nil
}

// ContainsDate reports whether dates holds day (compared as calendar days).
func ContainsDate(dates []time.Time, day time.Time) bool {
	for _, d := range dates {
		if sameDay(d, day) {
			return true
		}
	}
	return false
}

// MaxDate returns the latest of dates. dates must not be empty.
func MaxDate(dates []time.Time) time.Time {
	max := dates[0]
	for _, d := range dates[1:] {
		if d.After(max) {
			max = d
		}
	}
	return max
}

func buildDate(yearStr, monthName, dayStr string) (time.Time, bool) {
	if len(monthName) < 3 {
		return time.Time{}, false
	}
	month, ok := monthAbbr[monthName[:3]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31 APR -> 1 MAY); reject it instead.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
