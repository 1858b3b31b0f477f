package booking

import (
	"math/rand"
	"time"

	"github.com/example/teetime-sniper/internal/localtime"
)

// Window is a schedule's resolved per-run state: the absolute acceptance
// range, the facility drawn for this run, and the date being targeted.
// Jitter and facility are drawn once per run and reused for every poll, so
// the window is stable for the run's whole lifetime.
type Window struct {
	Start    time.Time
	End      time.Time
	Jitter   time.Duration
	Facility int
	Date     time.Time
}

// ResolveWindow computes the run window for a schedule. The target date is
// the explicit schedule date or now + lookahead; the start instant is the
// schedule's civil start in the authority zone plus a uniform random jitter
// in [0, BufferMax] minutes.
func ResolveWindow(s Schedule, now time.Time, zone *time.Location, lookahead time.Duration, rng *rand.Rand) (Window, error) {
	date := s.Date
	if date.IsZero() {
		date = localtime.ToLocal(now.Add(lookahead), zone)
	}

	start, err := localtime.ToInstant(date, s.Start, zone)
	if err != nil {
		return Window{}, err
	}

	var jitter time.Duration
	if s.BufferMax > 0 {
		jitter = time.Duration(rng.Intn(s.BufferMax+1)) * time.Minute
	}
	start = start.Add(jitter)

	return Window{
		Start:    start,
		End:      start.Add(s.Duration),
		Jitter:   jitter,
		Facility: s.FacilityIDs[rng.Intn(len(s.FacilityIDs))],
		Date:     date,
	}, nil
}

// Weekday is the window's weekday as the booking authority sees it.
func (w Window) Weekday(zone *time.Location) time.Weekday {
	return localtime.ToLocal(w.Start, zone).Weekday()
}

// Contains reports window eligibility for a slot instant, inclusive on both
// ends.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
