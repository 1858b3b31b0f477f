package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/teetime-sniper/internal/crypto"
)

type Config struct {
	DevMode bool

	// Claim store
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ClaimTTL      time.Duration

	// Booking backend
	APIBaseURL string
	VenueAlias string

	// Acquisition
	AuthorityZone string
	LookaheadDays int
	MaxAttempts   int
	FetchRate     float64 // aggregate fetches per second across loops
	FetchBurst    int

	// Schedule storage; optional, YAML task files work without it.
	DatabaseURL string

	// Browser login
	LoginURL      string
	TeeSheetURL   string
	LoginUsername string
	LoginPassword string
	Headless      bool

	// Pre-captured session tokens; when set the browser login is skipped.
	AuthToken string
	CartID    string

	// 32 bytes for AES-256-GCM, base64; optional unless credentials are
	// stored.
	CredEncKey []byte

	// Passphrase alternative to a raw key, stretched with scrypt. The salt
	// must stay stable per deployment or stored credentials become
	// unreadable.
	CredEncPassphrase string
	CredEncSalt       string
}

func FromEnv() (Config, error) {
	cfg := Config{
		DevMode:       strings.TrimSpace(os.Getenv("DEV_MODE")) == "1",
		RedisAddr:     envDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		APIBaseURL:    envDefault("API_BASE_URL", "https://phx-api-be-east-1b.kenna.io"),
		VenueAlias:    envDefault("VENUE_ALIAS", "city-of-london-golf-courses"),
		AuthorityZone: envDefault("AUTHORITY_ZONE", "America/New_York"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LoginURL:      strings.TrimSpace(os.Getenv("LOGIN_URL")),
		TeeSheetURL:   strings.TrimSpace(os.Getenv("TEESHEET_URL")),
		LoginUsername: strings.TrimSpace(os.Getenv("LOGIN_USERNAME")),
		LoginPassword: strings.TrimSpace(os.Getenv("LOGIN_PASSWORD")),
		Headless:      envDefault("BROWSER_HEADLESS", "1") == "1",
		AuthToken:     strings.TrimSpace(os.Getenv("AUTH_TOKEN")),
		CartID:        strings.TrimSpace(os.Getenv("CART_ID")),

		CredEncPassphrase: strings.TrimSpace(os.Getenv("CRED_ENC_PASSPHRASE")),
		CredEncSalt:       envDefault("CRED_ENC_SALT", "teesnipe"),
	}

	var err error
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	ttlSec, err := envInt("CLAIM_TTL_SECONDS", 300)
	if err != nil {
		return Config{}, err
	}
	if ttlSec < 1 {
		return Config{}, fmt.Errorf("CLAIM_TTL_SECONDS must be >= 1")
	}
	cfg.ClaimTTL = time.Duration(ttlSec) * time.Second

	if cfg.LookaheadDays, err = envInt("LOOKAHEAD_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = envInt("MAX_ATTEMPTS", 60); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("MAX_ATTEMPTS must be >= 1")
	}
	if cfg.FetchBurst, err = envInt("FETCH_BURST", 2); err != nil {
		return Config{}, err
	}

	rateStr := envDefault("FETCH_RATE", "4")
	cfg.FetchRate, err = strconv.ParseFloat(rateStr, 64)
	if err != nil || cfg.FetchRate <= 0 {
		return Config{}, fmt.Errorf("invalid FETCH_RATE %q", rateStr)
	}

	if v := strings.TrimSpace(os.Getenv("CRED_ENC_KEY")); v != "" {
		cfg.CredEncKey, err = decodeB64(v)
		if err != nil {
			return Config{}, fmt.Errorf("CRED_ENC_KEY: %w", err)
		}
		if len(cfg.CredEncKey) != 32 {
			return Config{}, fmt.Errorf("CRED_ENC_KEY must decode to 32 bytes (got %d)", len(cfg.CredEncKey))
		}
	}

	return cfg, nil
}

// CredentialKey resolves the AES key for stored credentials: a raw
// CRED_ENC_KEY wins, otherwise the key is derived from CRED_ENC_PASSPHRASE.
func (c Config) CredentialKey() ([]byte, error) {
	if len(c.CredEncKey) != 0 {
		return c.CredEncKey, nil
	}
	if c.CredEncPassphrase == "" {
		return nil, fmt.Errorf("CRED_ENC_KEY or CRED_ENC_PASSPHRASE is required for stored credentials")
	}
	return crypto.DeriveKey(c.CredEncPassphrase, c.CredEncSalt)
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func envInt(k string, d int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", k, v)
	}
	return n, nil
}

func decodeB64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
