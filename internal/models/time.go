package models

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// DefaultMarketTimezone anchors every timestamp the pipeline handles.
const DefaultMarketTimezone = "America/New_York"

// LoadMarketLocation resolves the market timezone, defaulting to New York.
func LoadMarketLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultMarketTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", name, err)
	}
	return loc, nil
}

// CalendarDay truncates t to midnight of its calendar date in loc.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekEnding returns the Sunday that closes the calendar week containing t
// (t itself when t falls on a Sunday), at midnight in loc.
func WeekEnding(t time.Time, loc *time.Location) time.Time {
	day := CalendarDay(t, loc)
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}
