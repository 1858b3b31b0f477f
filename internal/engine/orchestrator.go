package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/teetime-sniper/internal/booking"
	"github.com/example/teetime-sniper/internal/claim"
	"github.com/example/teetime-sniper/internal/session"
)

// Report aggregates a full run: one entry per schedule, an overall success
// flag (any schedule claimed something), and the finalize outcome when it ran.
type Report struct {
	Results  []Result
	Errs     []error
	Success  bool
	Finalize *booking.Outcome
}

// Orchestrator runs one acquisition loop per schedule concurrently. Loops
// share only the claim store and the (concurrency-safe) source/commit
// adapters; a loop failure or panic never disturbs its siblings.
type Orchestrator struct {
	Session   session.Provider
	Source    booking.Source
	Claims    claim.Store
	Finalizer booking.Finalizer

	// NewCommitter binds the commit adapter to a schedule's party
	// configuration.
	NewCommitter func(s booking.Schedule) booking.Committer

	// Limiter, when set, bounds aggregate fetch rate across all loops.
	Limiter *rate.Limiter
	Logger  zerolog.Logger
	Config  Config
}

// Run executes every schedule and blocks until all loops finish. It returns
// an error only for failures that prevent the run from starting at all.
func (o *Orchestrator) Run(ctx context.Context, schedules []booking.Schedule) (Report, error) {
	for _, s := range schedules {
		if err := s.Validate(); err != nil {
			return Report{}, err
		}
	}

	sess, err := o.Session.Session(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("obtain session: %w", err)
	}

	report := Report{
		Results: make([]Result, len(schedules)),
		Errs:    make([]error, len(schedules)),
	}

	var wg sync.WaitGroup
	for i, s := range schedules {
		wg.Add(1)
		go func(i int, s booking.Schedule) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					report.Errs[i] = fmt.Errorf("schedule %s: panic: %v", s.ID, r)
					o.Logger.Error().Str("schedule", s.ID).Interface("panic", r).Msg("loop panicked")
				}
			}()

			loop := &Loop{
				Schedule:  s,
				Source:    o.Source,
				Committer: o.NewCommitter(s),
				Claims:    o.Claims,
				Limiter:   o.Limiter,
				Logger:    o.Logger,
				Config:    o.Config,
			}
			report.Results[i], report.Errs[i] = loop.Run(ctx, sess)
		}(i, s)
	}
	wg.Wait()

	for _, r := range report.Results {
		if len(r.Claimed) > 0 {
			report.Success = true
			break
		}
	}

	if report.Success && o.Finalizer != nil {
		out := o.Finalizer.Checkout(ctx, sess.CartID)
		report.Finalize = &out
		if out.Failed() {
			o.Logger.Warn().Str("outcome", out.String()).Msg("finalize failed")
		} else {
			o.Logger.Info().Str("outcome", out.String()).Msg("finalized")
		}
	}

	return report, nil
}
