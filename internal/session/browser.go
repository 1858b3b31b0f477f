package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// BrowserConfig drives the headless login flow. The selectors match the
// booking site's login form.
type BrowserConfig struct {
	LoginURL    string
	TeeSheetURL string
	Username    string
	Password    string
	Headless    bool
	Timeout     time.Duration
}

// Browser obtains a Session by logging into the booking site with a headless
// browser and watching network traffic for the shopping-cart session the site
// creates after login.
type Browser struct {
	cfg    BrowserConfig
	logger zerolog.Logger
}

func NewBrowser(cfg BrowserConfig, logger zerolog.Logger) *Browser {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Browser{cfg: cfg, logger: logger.With().Str("component", "browser_session").Logger()}
}

func (b *Browser) Session(ctx context.Context) (Session, error) {
	u, err := launcher.New().Headless(b.cfg.Headless).Launch()
	if err != nil {
		return Session{}, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return Session{}, fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: b.cfg.LoginURL})
	if err != nil {
		return Session{}, fmt.Errorf("open login page: %w", err)
	}
	page = page.Timeout(b.cfg.Timeout)

	// Watch outgoing requests for the shopping-cart call before doing
	// anything that could trigger it.
	found := make(chan Session, 1)
	wait := page.EachEvent(func(e *proto.NetworkRequestWillBeSent) bool {
		id, ok := cartSessionID(e.Request.URL)
		if !ok {
			return false
		}
		s := Session{CartID: id}
		for k, v := range e.Request.Headers {
			if strings.EqualFold(k, "authorization") {
				s.AuthToken = strings.TrimPrefix(v.Str(), "Bearer ")
			}
		}
		select {
		case found <- s:
		default:
		}
		return true
	})
	go wait()

	if err := b.login(page); err != nil {
		return Session{}, err
	}

	if b.cfg.TeeSheetURL != "" {
		if err := page.Navigate(b.cfg.TeeSheetURL); err != nil {
			return Session{}, fmt.Errorf("open tee sheet: %w", err)
		}
	}

	select {
	case s := <-found:
		b.logger.Info().Str("cart_id", s.CartID).Msg("captured cart session")
		return s, nil
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case <-time.After(b.cfg.Timeout):
		return Session{}, fmt.Errorf("timed out waiting for shopping-cart session")
	}
}

func (b *Browser) login(page *rod.Page) error {
	user, err := page.Element("#txtUsername1")
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := user.Input(b.cfg.Username); err != nil {
		return fmt.Errorf("login form: %w", err)
	}

	pass, err := page.Element("#txtPassword1")
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := pass.Input(b.cfg.Password); err != nil {
		return fmt.Errorf("login form: %w", err)
	}

	submit, err := page.Element(".MuiButton-label")
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("login submit: %w", err)
	}

	b.logger.Debug().Msg("submitted login form")
	return nil
}

// cartSessionID extracts the session id from URLs of the form
// .../shopping-cart/<id> or .../shopping-cart/<id>/...
func cartSessionID(rawURL string) (string, bool) {
	const marker = "/shopping-cart/"
	i := strings.Index(rawURL, marker)
	if i < 0 {
		return "", false
	}
	rest := strings.TrimPrefix(rawURL[i+len(marker):], "/")
	if j := strings.IndexAny(rest, "/?"); j >= 0 {
		rest = rest[:j]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}
