package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/example/teetime-sniper/internal/booking"
	"github.com/example/teetime-sniper/internal/claim"
	"github.com/example/teetime-sniper/internal/session"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) ([]booking.Slot, error)
}

func (f *fakeSource) ListAvailable(context.Context, int, time.Time, int) ([]booking.Slot, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call)
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCommitter struct {
	mu         sync.Mutex
	holds      []booking.Slot
	carts      []booking.Slot
	holdStatus int
	cartStatus int
}

func (f *fakeCommitter) Hold(_ context.Context, _ string, s booking.Slot) booking.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds = append(f.holds, s)
	return booking.Outcome{Action: "hold", Status: f.holdStatus}
}

func (f *fakeCommitter) AddToCart(_ context.Context, _ string, s booking.Slot) booking.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts = append(f.carts, s)
	return booking.Outcome{Action: "add-to-cart", Status: f.cartStatus}
}

type erroringStore struct{ calls int }

func (s *erroringStore) TryClaim(context.Context, string, time.Duration) (bool, error) {
	s.calls++
	return false, claim.ErrUnavailable
}

func (s *erroringStore) Release(context.Context, string) error { return nil }

func easternZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func testConfig(t *testing.T, maxAttempts int) Config {
	return Config{
		AuthorityZone: easternZone(t),
		MaxAttempts:   maxAttempts,
		ClaimTTL:      300 * time.Second,
		EmptyBackoff:  time.Millisecond,
		BusyBackoff:   time.Millisecond,
	}
}

// Sat Jul 6 2024, 10:00 Eastern = 14:00 UTC.
func satSchedule(quantity int) booking.Schedule {
	return booking.Schedule{
		ID:          "sat-morning",
		FacilityIDs: []int{9710},
		Start:       "10:00",
		Duration:    30 * time.Minute,
		Weekdays:    []time.Weekday{time.Saturday},
		Quantity:    quantity,
		Players:     4,
		Date:        time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC),
	}
}

func slotAtUTC(h, m int, rateID int64) booking.Slot {
	return booking.Slot{
		FacilityID: 9710,
		TeeTime:    time.Date(2024, 7, 6, h, m, 0, 0, time.UTC),
		RateID:     rateID,
		MaxPlayers: 4,
	}
}

func newLoop(t *testing.T, sched booking.Schedule, src *fakeSource, committer *fakeCommitter, store claim.Store, maxAttempts int) *Loop {
	return &Loop{
		Schedule:  sched,
		Source:    src,
		Committer: committer,
		Claims:    store,
		Logger:    zerolog.Nop(),
		Config:    testConfig(t, maxAttempts),
	}
}

func TestLoopClaimsOnlySlotInsideWindow(t *testing.T) {
	// 09:59, 10:05 and 10:31 Eastern as UTC instants: only 10:05 is inside
	// the inclusive 10:00..10:30 window.
	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		return []booking.Slot{
			slotAtUTC(13, 59, 1),
			slotAtUTC(14, 5, 2),
			slotAtUTC(14, 31, 3),
		}, nil
	}}
	committer := &fakeCommitter{holdStatus: 200, cartStatus: 201}
	store := claim.NewMemoryStore()

	loop := newLoop(t, satSchedule(1), src, committer, store, 3)
	res, err := loop.Run(context.Background(), session.Session{AuthToken: "tok", CartID: "cart"})
	require.NoError(t, err)

	assert.Equal(t, StateSatisfied, res.State)
	require.Len(t, res.Claimed, 1)
	assert.Equal(t, int64(2), res.Claimed[0].Slot.RateID)
	assert.Equal(t, 1, src.callCount())
	require.Len(t, committer.holds, 1)
	require.Len(t, committer.carts, 1)
}

func TestLoopWeekdaySkipRegardlessOfAvailability(t *testing.T) {
	sched := satSchedule(1)
	sched.Weekdays = []time.Weekday{time.Sunday}

	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		return []booking.Slot{slotAtUTC(14, 5, 1)}, nil
	}}
	loop := newLoop(t, sched, src, &fakeCommitter{}, claim.NewMemoryStore(), 3)

	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, res.State)
	assert.Empty(t, res.Claimed)
	assert.Zero(t, src.callCount(), "skipped run must not poll")
}

func TestLoopQuantityBound(t *testing.T) {
	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		return []booking.Slot{
			slotAtUTC(14, 0, 1),
			slotAtUTC(14, 8, 2),
			slotAtUTC(14, 16, 3),
			slotAtUTC(14, 24, 4),
		}, nil
	}}
	committer := &fakeCommitter{holdStatus: 200, cartStatus: 201}
	store := claim.NewMemoryStore()

	loop := newLoop(t, satSchedule(2), src, committer, store, 3)
	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)

	assert.Equal(t, StateSatisfied, res.State)
	assert.Len(t, res.Claimed, 2)
	assert.Len(t, committer.carts, 2)

	// the not-selected eligible slots stay claimable for other workers
	ok, err := store.TryClaim(context.Background(), slotAtUTC(14, 16, 3).Identity(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoopExhaustedAfterMaxAttempts(t *testing.T) {
	src := &fakeSource{fn: func(int) ([]booking.Slot, error) { return nil, nil }}
	loop := newLoop(t, satSchedule(1), src, &fakeCommitter{}, claim.NewMemoryStore(), 3)

	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Empty(t, res.Claimed)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, src.callCount())
}

func TestLoopFetchErrorTreatedAsEmpty(t *testing.T) {
	src := &fakeSource{fn: func(call int) ([]booking.Slot, error) {
		if call < 3 {
			return nil, errors.New("connection reset")
		}
		return []booking.Slot{slotAtUTC(14, 5, 1)}, nil
	}}
	committer := &fakeCommitter{holdStatus: 200, cartStatus: 201}
	loop := newLoop(t, satSchedule(1), src, committer, claim.NewMemoryStore(), 5)

	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)
	assert.Equal(t, StateSatisfied, res.State)
	assert.Equal(t, 3, res.Attempts)
}

func TestLoopSkipsSlotClaimedElsewhere(t *testing.T) {
	store := claim.NewMemoryStore()
	taken := slotAtUTC(14, 5, 1)
	ok, err := store.TryClaim(context.Background(), taken.Identity(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		return []booking.Slot{taken, slotAtUTC(14, 13, 2)}, nil
	}}
	committer := &fakeCommitter{holdStatus: 200, cartStatus: 201}
	loop := newLoop(t, satSchedule(1), src, committer, store, 3)

	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)
	require.Len(t, res.Claimed, 1)
	assert.Equal(t, int64(2), res.Claimed[0].Slot.RateID)
}

func TestLoopIdenticalIdentityClaimedOnce(t *testing.T) {
	// Same (rate, second-rounded time) fetched twice differing in metadata.
	a := slotAtUTC(14, 5, 1)
	b := a
	b.Price = 31

	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		return []booking.Slot{a, b}, nil
	}}
	committer := &fakeCommitter{holdStatus: 200, cartStatus: 201}
	loop := newLoop(t, satSchedule(2), src, committer, claim.NewMemoryStore(), 1)

	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)
	assert.Len(t, res.Claimed, 1)
}

func TestLoopCommitFailureKeepsClaim(t *testing.T) {
	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		return []booking.Slot{slotAtUTC(14, 5, 1)}, nil
	}}
	committer := &fakeCommitter{holdStatus: 500, cartStatus: 502}
	store := claim.NewMemoryStore()
	loop := newLoop(t, satSchedule(1), src, committer, store, 3)

	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)
	assert.Equal(t, StateSatisfied, res.State)
	require.Len(t, res.Claimed, 1)
	assert.True(t, res.Claimed[0].Hold.Failed())
	assert.True(t, res.Claimed[0].Cart.Failed())

	// claim still held despite commit failures
	ok, err := store.TryClaim(context.Background(), slotAtUTC(14, 5, 1).Identity(), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoopCancelledDuringBackoffLabelsState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		cancel()
		return nil, nil
	}}
	loop := newLoop(t, satSchedule(1), src, &fakeCommitter{}, claim.NewMemoryStore(), 5)

	res, err := loop.Run(ctx, session.Session{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateExhausted, res.State, "interrupted run must not report an empty state")
	assert.Equal(t, 1, res.Attempts)
}

func TestLoopCancelledAtLimiterLabelsState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{fn: func(int) ([]booking.Slot, error) { return nil, nil }}
	loop := newLoop(t, satSchedule(1), src, &fakeCommitter{}, claim.NewMemoryStore(), 5)
	loop.Limiter = rate.NewLimiter(rate.Limit(1), 1)

	res, err := loop.Run(ctx, session.Session{})
	require.Error(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Zero(t, src.callCount())
}

func TestLoopCancelledAfterPartialFillReportsClaims(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		cancel()
		return []booking.Slot{slotAtUTC(14, 5, 1)}, nil
	}}
	committer := &fakeCommitter{holdStatus: 200, cartStatus: 201}
	loop := newLoop(t, satSchedule(2), src, committer, claim.NewMemoryStore(), 5)

	res, err := loop.Run(ctx, session.Session{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateSatisfied, res.State)
	require.Len(t, res.Claimed, 1)
}

func TestLoopClaimStoreErrorFailsAttempt(t *testing.T) {
	src := &fakeSource{fn: func(int) ([]booking.Slot, error) {
		return []booking.Slot{slotAtUTC(14, 5, 1)}, nil
	}}
	store := &erroringStore{}
	loop := newLoop(t, satSchedule(1), src, &fakeCommitter{}, store, 2)

	res, err := loop.Run(context.Background(), session.Session{})
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Empty(t, res.Claimed)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, store.calls)
}
