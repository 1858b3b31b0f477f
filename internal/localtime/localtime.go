package localtime

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTime is returned for input that does not parse as a civil time.
var ErrInvalidTime = errors.New("invalid time")

// ToInstant resolves a civil date + "HH:MM" (or "HH:MM:SS") clock reading in
// zone to an absolute instant. DST transitions are handled by the zone rules:
// the returned instant is what a wall clock in that zone would show.
func ToInstant(date time.Time, clock string, zone *time.Location) (time.Time, error) {
	if zone == nil {
		return time.Time{}, fmt.Errorf("%w: nil zone", ErrInvalidTime)
	}
	if len(clock) == 5 {
		clock += ":00"
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", date.Format("2006-01-02")+" "+clock, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}
	return t, nil
}

// ToLocal converts an absolute instant to the wall-clock reading in zone.
func ToLocal(instant time.Time, zone *time.Location) time.Time {
	return instant.In(zone)
}

// ParseZone wraps time.LoadLocation with the package error taxonomy.
func ParseZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown zone %q", ErrInvalidTime, name)
	}
	return loc, nil
}
