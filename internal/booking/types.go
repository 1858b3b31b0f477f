package booking

import (
	"fmt"
	"time"
)

// Schedule is one configured unit of work: a date/time window on a set of
// interchangeable facilities. Descriptors are immutable once a run starts;
// resolved window state lives in Window, owned by the loop running the schedule.
type Schedule struct {
	ID string

	// FacilityIDs are interchangeable venues; one is chosen uniformly at
	// random per run to spread load, not as a preference ranking.
	FacilityIDs []int

	// Start is the civil "HH:MM" start of the target window in the booking
	// authority's zone. Duration extends the window; BufferMax bounds the
	// random jitter (minutes) added once per run to the start.
	Start     string
	Duration  time.Duration
	BufferMax int

	Weekdays []time.Weekday
	Quantity int

	// Date is optional; when zero the run targets today + the process-wide
	// lookahead.
	Date time.Time

	Players int
	Holes   int
}

func (s Schedule) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("schedule id required")
	}
	if len(s.FacilityIDs) == 0 {
		return fmt.Errorf("schedule %s: at least one facility required", s.ID)
	}
	if s.Start == "" {
		return fmt.Errorf("schedule %s: start time required", s.ID)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("schedule %s: duration must be positive", s.ID)
	}
	if s.BufferMax < 0 {
		return fmt.Errorf("schedule %s: buffer_max must be >= 0", s.ID)
	}
	if s.Quantity < 1 {
		return fmt.Errorf("schedule %s: quantity must be >= 1", s.ID)
	}
	if s.Players < 1 {
		return fmt.Errorf("schedule %s: players must be >= 1", s.ID)
	}
	return nil
}

// WeekdayEligible reports whether d's weekday is in the schedule's set.
// An empty set means every weekday is eligible.
func (s Schedule) WeekdayEligible(d time.Weekday) bool {
	if len(s.Weekdays) == 0 {
		return true
	}
	for _, w := range s.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// Slot is one bookable tee time as returned by the source adapter. Candidacy
// (unbooked, party size fits) is decided by the adapter; the engine only
// decides window eligibility and claiming.
type Slot struct {
	FacilityID int
	TeeTime    time.Time // absolute instant
	RateID     int64
	RateSetID  int64
	Price      float64
	MaxPlayers int
}

// Identity is the claim key: rate bucket plus the tee time normalized to
// second precision in UTC. Two raw records that normalize to the same
// identity are the same bookable unit, no matter which poll produced them.
// The UTC canonicalization is deliberate: workers may run with different
// configured zones, and claim keys must converge on the same absolute
// instant across all of them. Do not switch this to a civil-time rendering.
func (s Slot) Identity() string {
	return fmt.Sprintf("%d:%s", s.RateID, s.TeeTime.UTC().Truncate(time.Second).Format(time.RFC3339))
}
