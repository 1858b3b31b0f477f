package kenna

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/example/teetime-sniper/internal/booking"
)

// Client talks to the kenna.io booking backend. Every request carries the
// venue alias header; authenticated calls additionally carry the session
// token captured at login.
type Client struct {
	hc      *http.Client
	baseURL string
	alias   string
}

func New(baseURL, alias string) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
		alias:   alias,
	}
}

type rate struct {
	ExternalID     int64   `json:"externalId"`
	RateSetID      int64   `json:"rateSetId"`
	Name           string  `json:"name"`
	Holes          int     `json:"holes"`
	Transportation string  `json:"transportation"`
	Price          float64 `json:"price"`
}

type teeTime struct {
	CourseID      int       `json:"courseId"`
	TeeTime       time.Time `json:"teetime"`
	BookedPlayers int       `json:"bookedPlayers"`
	MaxPlayers    int       `json:"maxPlayers"`
	Rates         []rate    `json:"rates"`
}

type teeTimesResponse struct {
	DayInfo  json.RawMessage `json:"dayInfo"`
	TeeTimes []teeTime       `json:"teetimes"`
}

// ListAvailable implements booking.Source. Only slots that are completely
// unbooked and can seat the full party are candidates; everything else is the
// engine's decision.
func (c *Client) ListAvailable(ctx context.Context, facilityID int, date time.Time, players int) ([]booking.Slot, error) {
	query := map[string]string{
		"date":        date.Format("2006-01-02"),
		"facilityIds": strconv.Itoa(facilityID),
	}
	status, body, err := c.do(ctx, http.MethodGet, "/v2/tee-times", "", query, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list tee times: status=%d", status)
	}

	var days []teeTimesResponse
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, fmt.Errorf("list tee times: %w", err)
	}

	var out []booking.Slot
	for _, day := range days {
		for _, tt := range day.TeeTimes {
			if tt.BookedPlayers != 0 || tt.MaxPlayers < players {
				continue
			}
			if len(tt.Rates) == 0 {
				continue
			}
			r := tt.Rates[0]
			out = append(out, booking.Slot{
				FacilityID: tt.CourseID,
				TeeTime:    tt.TeeTime,
				RateID:     r.ExternalID,
				RateSetID:  r.RateSetID,
				Price:      r.Price,
				MaxPlayers: tt.MaxPlayers,
			})
		}
	}
	return out, nil
}

type cartItem struct {
	Item struct {
		FacilityID int    `json:"facilityId"`
		Type       string `json:"type"`
		Extra      struct {
			TeeTime string  `json:"teetime"`
			Players int     `json:"players"`
			Price   float64 `json:"price"`
			Rate    struct {
				Holes          int    `json:"holes"`
				RateID         int64  `json:"rateId"`
				RateSetID      int64  `json:"rateSetId"`
				Name           string `json:"name"`
				Transportation string `json:"transportation"`
			} `json:"rate"`
			FeaturedProducts []struct{} `json:"featuredProducts"`
		} `json:"extra"`
	} `json:"item"`
}

func newCartItem(s booking.Slot, players, holes int) cartItem {
	var ci cartItem
	ci.Item.FacilityID = s.FacilityID
	ci.Item.Type = "TeeTime"
	ci.Item.Extra.TeeTime = s.TeeTime.UTC().Format("2006-01-02T15:04:05.000Z")
	ci.Item.Extra.Players = players
	ci.Item.Extra.Price = s.Price
	ci.Item.Extra.Rate.Holes = holes
	ci.Item.Extra.Rate.RateID = s.RateID
	ci.Item.Extra.Rate.RateSetID = s.RateSetID
	ci.Item.Extra.Rate.Name = "Walking"
	ci.Item.Extra.Rate.Transportation = "Walking"
	ci.Item.Extra.FeaturedProducts = []struct{}{}
	return ci
}

// Players and Holes apply to every hold/cart request issued by this client;
// they come from the schedule that owns the loop.
type CommitConfig struct {
	Players int
	Holes   int
}

// Committer binds a Client to a party configuration.
type Committer struct {
	*Client
	cfg CommitConfig
}

func (c *Client) Committer(cfg CommitConfig) *Committer {
	return &Committer{Client: c, cfg: cfg}
}

// Hold places a short-lived server-side lock on the slot.
func (c *Committer) Hold(ctx context.Context, authToken string, s booking.Slot) booking.Outcome {
	payload, err := json.Marshal(newCartItem(s, c.cfg.Players, c.cfg.Holes).Item)
	if err != nil {
		return booking.Outcome{Action: "hold", Err: err}
	}
	status, _, err := c.doAuth(ctx, http.MethodPost, "/v2/tee-times/lock", authToken, nil, payload)
	return booking.Outcome{Action: "hold", Status: status, Err: err}
}

// AddToCart attaches the slot to the shopping-cart session.
func (c *Committer) AddToCart(ctx context.Context, cartID string, s booking.Slot) booking.Outcome {
	payload, err := json.Marshal(newCartItem(s, c.cfg.Players, c.cfg.Holes))
	if err != nil {
		return booking.Outcome{Action: "add-to-cart", Err: err}
	}
	status, _, err := c.do(ctx, http.MethodPost, "/shopping-cart/"+cartID+"/cart-item", "application/json", nil, payload)
	return booking.Outcome{Action: "add-to-cart", Status: status, Err: err}
}

// Checkout implements booking.Finalizer.
func (c *Client) Checkout(ctx context.Context, cartID string) booking.Outcome {
	status, _, err := c.do(ctx, http.MethodPost, "/shopping-cart/"+cartID+"/checkout", "application/json", nil, []byte("{}"))
	return booking.Outcome{Action: "checkout", Status: status, Err: err}
}

func (c *Committer) doAuth(ctx context.Context, method, path, authToken string, query map[string]string, body []byte) (int, []byte, error) {
	return c.Client.request(ctx, method, path, "application/json", authToken, query, body)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, query map[string]string, body []byte) (int, []byte, error) {
	return c.request(ctx, method, path, contentType, "", query, body)
}

func (c *Client) request(ctx context.Context, method, path, contentType, authToken string, query map[string]string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Be-Alias", c.alias)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}
