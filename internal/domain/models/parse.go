package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DayLayout formats calendar dates (daily-limit values).
	DayLayout = "2006-01-02"
	// TimestampLayout formats log timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

// MaxIssueWords is the word ceiling of an issue description.
const MaxIssueWords = 100

// ErrEmptyValue is returned by the parsers for blank input.
var ErrEmptyValue = errors.New("empty value")

// dateLayouts lists the accepted maintenance date formats. Day-first layouts
// win over month-first ones for ambiguous slash dates.
var dateLayouts = []string{
	DayLayout,
	TimestampLayout,
	time.RFC3339,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2-1-2006",
	"2/1/2006",
	"02.01.2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
}

// ParseStock converts the raw dataset stock value. Callers decide the fallback.
func ParseStock(raw string) (float64, error) {
	str := strings.TrimSpace(raw)
	if str == "" {
		return 0, ErrEmptyValue
	}
	str = strings.ReplaceAll(str, ",", "")

	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stock %q: %w", raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("parse stock %q: not a finite number", raw)
	}
	return value, nil
}

// ParseDate converts a dataset date string into a calendar day in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	str := strings.TrimSpace(raw)
	if str == "" || strings.EqualFold(str, NotAvailable) {
		return time.Time{}, ErrEmptyValue
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, str, loc); err == nil {
			return CalendarDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unsupported format", raw)
}

// CalendarDay strips the time of day, keeping the date as seen in t's location.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a DayLayout value into a calendar day.
func ParseDay(raw string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return CalendarDay(t), nil
}

// FormatStock renders a stock level without trailing zeros.
func FormatStock(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CountWords counts whitespace-delimited tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
