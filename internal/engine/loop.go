package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/teetime-sniper/internal/booking"
	"github.com/example/teetime-sniper/internal/claim"
	"github.com/example/teetime-sniper/internal/session"
)

// State of an acquisition loop. INIT -> SKIPPED | POLLING -> SATISFIED | EXHAUSTED.
type State string

const (
	StateSkipped   State = "skipped"
	StateSatisfied State = "satisfied"
	StateExhausted State = "exhausted"
)

// Config carries the process-wide acquisition constants.
type Config struct {
	AuthorityZone *time.Location
	Lookahead     time.Duration
	MaxAttempts   int
	ClaimTTL      time.Duration
	EmptyBackoff  time.Duration // after a fetch that returned zero slots
	BusyBackoff   time.Duration // after a fetch with slots but nothing claimable
}

func (c Config) withDefaults() Config {
	if c.AuthorityZone == nil {
		c.AuthorityZone = time.UTC
	}
	if c.Lookahead == 0 {
		c.Lookahead = 7 * 24 * time.Hour
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 60
	}
	if c.ClaimTTL == 0 {
		c.ClaimTTL = 300 * time.Second
	}
	if c.EmptyBackoff == 0 {
		c.EmptyBackoff = 250 * time.Millisecond
	}
	if c.BusyBackoff == 0 {
		c.BusyBackoff = 750 * time.Millisecond
	}
	return c
}

// ClaimedSlot pairs a claimed slot with its commit outcomes. The outcomes are
// recorded regardless of success; a failed commit does not undo the claim.
type ClaimedSlot struct {
	Slot booking.Slot
	Hold booking.Outcome
	Cart booking.Outcome
}

// Result is one schedule's run outcome. An empty Claimed list is an ordinary
// result (weekday skip, or the slot never appeared), not an error.
type Result struct {
	ScheduleID string
	State      State
	Window     booking.Window
	Claimed    []ClaimedSlot
	Attempts   int
}

// Loop runs the acquisition state machine for a single schedule. Loops share
// nothing in-process; the claim store is the only synchronization point.
type Loop struct {
	Schedule  booking.Schedule
	Source    booking.Source
	Committer booking.Committer
	Claims    claim.Store
	Limiter   *rate.Limiter
	Logger    zerolog.Logger
	Config    Config

	// Now and Rand are injectable for tests; defaults are wired in Run.
	Now  func() time.Time
	Rand *rand.Rand
}

func (l *Loop) Run(ctx context.Context, sess session.Session) (Result, error) {
	cfg := l.Config.withDefaults()
	now := l.Now
	if now == nil {
		now = time.Now
	}
	rng := l.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	log := l.Logger.With().Str("schedule", l.Schedule.ID).Logger()
	res := Result{ScheduleID: l.Schedule.ID}

	window, err := booking.ResolveWindow(l.Schedule, now(), cfg.AuthorityZone, cfg.Lookahead, rng)
	if err != nil {
		return res, err
	}
	res.Window = window

	log = log.With().
		Int("facility", window.Facility).
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Logger()
	log.Info().
		Dur("jitter", window.Jitter).
		Str("date", window.Date.Format("2006-01-02")).
		Msg("window resolved")

	if !l.Schedule.WeekdayEligible(window.Weekday(cfg.AuthorityZone)) {
		res.State = StateSkipped
		log.Info().Stringer("weekday", window.Weekday(cfg.AuthorityZone)).Msg("weekday not eligible, skipping run")
		return res, nil
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		if l.Limiter != nil {
			if err := l.Limiter.Wait(ctx); err != nil {
				res.State = interruptedState(res.Claimed)
				return res, err
			}
		}

		slots, err := l.Source.ListAvailable(ctx, window.Facility, window.Date, l.Schedule.Players)
		if err != nil {
			// Transient source failures are "nothing available this attempt".
			log.Warn().Err(err).Int("attempt", attempt).Msg("fetch failed")
			slots = nil
		}

		l.scanSlots(ctx, log, sess, window, slots, &res)

		if len(res.Claimed) >= l.Schedule.Quantity {
			res.State = StateSatisfied
			log.Info().Int("claimed", len(res.Claimed)).Int("attempts", attempt).Msg("quantity satisfied")
			return res, nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		backoff := cfg.EmptyBackoff
		if len(slots) > 0 {
			backoff = cfg.BusyBackoff
		}
		if err := sleep(ctx, backoff); err != nil {
			res.State = interruptedState(res.Claimed)
			return res, err
		}
	}

	if len(res.Claimed) > 0 {
		// Partial fill: budget ran out before quantity, but the run produced
		// claims and must report them.
		res.State = StateSatisfied
		log.Info().Int("claimed", len(res.Claimed)).Msg("attempt budget reached with partial fill")
		return res, nil
	}
	res.State = StateExhausted
	log.Info().Int("attempts", res.Attempts).Msg("attempt budget exhausted without a claim")
	return res, nil
}

// scanSlots evaluates one fetch's slots: window eligibility, claim, commit.
// Every slot gets a logged decision so cross-worker races can be reconstructed
// afterwards.
func (l *Loop) scanSlots(ctx context.Context, log zerolog.Logger, sess session.Session, window booking.Window, slots []booking.Slot, res *Result) {
	cfg := l.Config.withDefaults()
	for _, slot := range slots {
		if !window.Contains(slot.TeeTime) {
			log.Debug().Time("slot", slot.TeeTime).Int64("rate", slot.RateID).
				Str("decision", "ineligible").Msg("slot evaluated")
			continue
		}
		if len(res.Claimed) >= l.Schedule.Quantity {
			log.Debug().Time("slot", slot.TeeTime).Int64("rate", slot.RateID).
				Str("decision", "eligible-not-selected").Msg("slot evaluated")
			continue
		}

		ok, err := l.Claims.TryClaim(ctx, slot.Identity(), cfg.ClaimTTL)
		if err != nil {
			// Without the store the at-most-once guarantee is gone; this
			// attempt is failed, not "claim-free".
			log.Error().Err(err).Time("slot", slot.TeeTime).Msg("claim store error, attempt failed")
			return
		}
		if !ok {
			log.Info().Time("slot", slot.TeeTime).Int64("rate", slot.RateID).
				Str("decision", "already-claimed-elsewhere").Msg("slot evaluated")
			continue
		}

		log.Info().Time("slot", slot.TeeTime).Int64("rate", slot.RateID).
			Str("decision", "claimed").Msg("slot evaluated")
		claimed := ClaimedSlot{
			Slot: slot,
			Hold: l.Committer.Hold(ctx, sess.AuthToken, slot),
		}
		claimed.Cart = l.Committer.AddToCart(ctx, sess.CartID, slot)

		if claimed.Hold.Failed() {
			log.Warn().Str("outcome", claimed.Hold.String()).Time("slot", slot.TeeTime).Msg("hold failed, claim stands")
		}
		if claimed.Cart.Failed() {
			log.Warn().Str("outcome", claimed.Cart.String()).Time("slot", slot.TeeTime).Msg("add-to-cart failed, claim stands")
		}
		res.Claimed = append(res.Claimed, claimed)
	}
}

// interruptedState labels a run cut short by cancellation so persisted
// results never carry an empty state.
func interruptedState(claimed []ClaimedSlot) State {
	if len(claimed) > 0 {
		return StateSatisfied
	}
	return StateExhausted
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
