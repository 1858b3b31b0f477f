package session

import "context"

// Session carries the two tokens a run needs: the bearer token for
// authenticated API calls and the shopping-cart session id that claimed slots
// are added to. Obtained once per orchestrator run.
type Session struct {
	AuthToken string
	CartID    string
}

type Provider interface {
	Session(ctx context.Context) (Session, error)
}

// Static returns pre-captured tokens. Useful for tests and for runs where the
// tokens were captured out of band.
type Static struct {
	AuthToken string
	CartID    string
}

func (s Static) Session(context.Context) (Session, error) {
	return Session{AuthToken: s.AuthToken, CartID: s.CartID}, nil
}
