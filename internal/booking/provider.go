package booking

import (
	"context"
	"fmt"
	"time"
)

// Source lists bookable slots for a facility and date. Implementations filter
// out booked slots and slots that cannot fit the required party size.
type Source interface {
	ListAvailable(ctx context.Context, facilityID int, date time.Time, players int) ([]Slot, error)
}

// Outcome is the opaque result of a commit action. The engine logs it and
// never interprets it beyond Failed.
type Outcome struct {
	Action string
	Status int
	Err    error
}

func (o Outcome) Failed() bool {
	return o.Err != nil || o.Status >= 400
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Action, o.Err)
	}
	return fmt.Sprintf("%s: status=%d", o.Action, o.Status)
}

// Committer performs the side effects after a successful claim: place a
// temporary hold on the slot, then add it to the shopping cart. Failures are
// reported through outcomes; the claim stands either way.
type Committer interface {
	Hold(ctx context.Context, authToken string, s Slot) Outcome
	AddToCart(ctx context.Context, cartID string, s Slot) Outcome
}

// Finalizer checks out the cart. Invoked at most once per run and only if at
// least one schedule claimed something.
type Finalizer interface {
	Checkout(ctx context.Context, cartID string) Outcome
}
