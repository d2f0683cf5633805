package booking

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidDateTime is returned when a timestamp is not ISO-8601.
var ErrInvalidDateTime = errors.New("booking: invalid ISO-8601 date/time")

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// Layouts without an offset are read as business-local wall time.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime parses an ISO-8601 timestamp into an instant. Values with an
// offset or Z are absolute; values without one are interpreted in loc.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDateTime
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDateTime
}
