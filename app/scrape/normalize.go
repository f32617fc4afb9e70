package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonDigitRe    = regexp.MustCompile(`[^\d]`)
	postalCityRe  = regexp.MustCompile(`^\s*(\d{4,5})\s+(.+)$`)
	postedTodayRe = regexp.MustCompile(`(?i)Heute,\s*(\d{1,2}):(\d{2})`)
	postedYdayRe  = regexp.MustCompile(`(?i)Gestern,\s*(\d{1,2}):(\d{2})`)
	postedDateRe  = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})?`)
)

// NormInt strips every non-digit rune (thousands separators, currency
// symbols, non-breaking spaces) and parses the rest. Nil on parse failure,
// never zero.
func NormInt(text string) *int {
	digits := nonDigitRe.ReplaceAllString(text, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// SplitPostalCity splits "<4-5 digit code> <free text>" into postal code and
// city. Anything else is treated as city-only with no postal code.
func SplitPostalCity(location string) (postalCode *string, city *string) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, nil
	}
	if m := postalCityRe.FindStringSubmatch(location); m != nil {
		code := m[1]
		name := strings.TrimSpace(m[2])
		return &code, &name
	}
	return nil, &location
}

// ParsePostedAt resolves the German posting-time vocabulary ("Heute, HH:MM",
// "Gestern, HH:MM", "DD.MM[.YYYY]") against now. Unmatched text is returned
// verbatim so unexpected but valid formats are not silently dropped.
func ParsePostedAt(text string, now time.Time) *string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if m := postedTodayRe.FindStringSubmatch(text); m != nil {
		return atClock(now, m[1], m[2])
	}
	if m := postedYdayRe.FindStringSubmatch(text); m != nil {
		return atClock(now.AddDate(0, 0, -1), m[1], m[2])
	}
	if m := postedDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) {
			return &text
		}
		s := fmt.Sprintf("%04d-%02d-%02d 00:00", year, month, day)
		return &s
	}

	return &text
}

func atClock(day time.Time, hourStr, minuteStr string) *string {
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minuteStr)
	s := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()).Format("2006-01-02 15:04")
	return &s
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
