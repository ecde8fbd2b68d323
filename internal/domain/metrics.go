package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used throughout.
const DateLayout = "2006-01-02"

// Date constructs a normalized calendar date (midnight UTC).
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar date, read in t's own location. The
// time of day and offset are discarded.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// WeekStart returns the Monday of the week containing d.
func WeekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// KilometersFromMeters converts a raw meter reading to kilometers rounded
// to two decimal places, ties away from zero.
func KilometersFromMeters(meters float64) decimal.Decimal {
	return decimal.NewFromFloat(meters).Div(decimal.NewFromInt(1000)).Round(2)
}

// PaceMinPerKm derives minutes-per-kilometer from a duration in seconds,
// rounded to two decimal places. Nil when the distance is zero.
func PaceMinPerKm(durationSeconds int, km decimal.Decimal) *decimal.Decimal {
	if km.IsZero() {
		return nil
	}
	p := decimal.NewFromInt(int64(durationSeconds)).
		Div(decimal.NewFromInt(60)).
		Div(km).
		Round(2)
	return &p
}

// FormatDuration renders whole seconds as "MM:SS", or "H:MM:SS" from one
// hour up.
func FormatDuration(seconds int) string {
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPace renders a min/km pace as "M:SS".
func FormatPace(pace decimal.Decimal) string {
	mins := pace.IntPart()
	secs := pace.Sub(decimal.NewFromInt(mins)).Mul(decimal.NewFromInt(60)).IntPart()
	return fmt.Sprintf("%d:%02d", mins, secs)
}
