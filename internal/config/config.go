package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"strconv"
	"time"
)

// Defaults used when neither a flag nor an environment variable is set.
const (
	DefaultAddr         = ":8080"
	DefaultDBPath       = "expenseman.db"
	DefaultTokenTTL     = 24 * time.Hour
	DefaultAccountLimit = 5
	DefaultCurrency     = "$"
	DefaultFrontendURL  = "http://localhost:3000"
	DefaultRatePerMin   = 300
)

// Config holds all server settings. It is built once at startup and never
// mutated afterwards; components receive it through their constructors.
type Config struct {
	Addr            string
	DBPath          string
	JWTSecret       string
	TokenTTL        time.Duration
	AccountLimit    int
	DefaultCurrency string
	FrontendURL     string
	GoogleClientID  string
	RatePerMinute   int
	DevMode         bool
}

// Load parses flags with environment-variable fallback and returns the
// resulting configuration. The JWT secret is the only required setting.
func Load(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("expenseman", flag.ContinueOnError)
	fs.SetOutput(output)

	addr := fs.String("addr", envOr("ADDR", DefaultAddr), "Listen address")
	dbPath := fs.String("db", envOr("DB_PATH", DefaultDBPath), "Path to database file")
	secret := fs.String("jwt-secret", os.Getenv("JWT_SECRET"), "Secret used to sign access tokens")
	tokenTTL := fs.Duration("token-ttl", DefaultTokenTTL, "Access token lifetime")
	accountLimit := fs.Int("account-limit", envIntOr("ACCOUNT_LIMIT", DefaultAccountLimit), "Maximum number of accounts per user")
	currency := fs.String("currency", envOr("DEFAULT_CURRENCY", DefaultCurrency), "Default currency for new accounts")
	frontendURL := fs.String("frontend-url", envOr("FRONTEND_URL", DefaultFrontendURL), "Frontend base URL for OAuth redirects")
	googleClientID := fs.String("google-client-id", os.Getenv("GOOGLE_CLIENT_ID"), "Google OAuth client ID (empty disables Google sign-in)")
	ratePerMin := fs.Int("rate-limit", envIntOr("RATE_LIMIT", DefaultRatePerMin), "Maximum requests per minute")
	devMode := fs.Bool("dev", os.Getenv("DEV_MODE") == "true", "Development mode (insecure cookies)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Allow overriding the listen port via env var if the address was not
	// explicitly set via flag (flag default is used).
	if port := os.Getenv("PORT"); port != "" && *addr == DefaultAddr && os.Getenv("ADDR") == "" {
		*addr = ":" + port
	}

	if *secret == "" {
		return nil, errors.New("jwt secret is required (set -jwt-secret or JWT_SECRET)")
	}
	if *accountLimit < 1 {
		return nil, errors.New("account limit must be at least 1")
	}
	if *ratePerMin < 1 {
		return nil, errors.New("rate limit must be at least 1 request per minute")
	}

	return &Config{
		Addr:            *addr,
		DBPath:          *dbPath,
		JWTSecret:       *secret,
		TokenTTL:        *tokenTTL,
		AccountLimit:    *accountLimit,
		DefaultCurrency: *currency,
		FrontendURL:     *frontendURL,
		GoogleClientID:  *googleClientID,
		RatePerMinute:   *ratePerMin,
		DevMode:         *devMode,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
