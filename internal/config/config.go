package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the Twitter OAuth2 and search endpoints. Overridable so tests
// and self-hosted mocks can point the clients elsewhere.
const (
	defaultAuthURL    = "https://twitter.com/i/oauth2/authorize"
	defaultTokenURL   = "https://api.twitter.com/2/oauth2/token"
	defaultSearchURL  = "https://api.twitter.com/2/tweets/search/recent"
	defaultRedirect   = "http://127.0.0.1:8080/callback"
	defaultSessionTTL = 30 * time.Minute
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabaseURL selects the store: "sqlite://<path>" or "postgres://<dsn>".
	DatabaseURL string

	// CORSOrigin is the allowed browser origin ("*" when unset).
	CORSOrigin string

	// ClientID and ClientSecret identify this app to the OAuth2 provider.
	ClientID     string
	ClientSecret string

	// RedirectURI is the registered callback URL for the authorization flow.
	RedirectURI string

	// AuthURL, TokenURL and SearchURL are the provider endpoints.
	AuthURL   string
	TokenURL  string
	SearchURL string

	// OpenAIKey enables the OpenAI-backed classifier when set; the keyword
	// fallback is used otherwise. OpenAIBaseURL is optional.
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	// RedisAddr enables the Redis session store when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SessionTTL bounds how long an operator session survives between the
	// authorize and callback requests.
	SessionTTL time.Duration

	// SnapshotDir is where per-topic CSV snapshots are written.
	SnapshotDir string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	clientID := os.Getenv("TW_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("TW_CLIENT_ID is required")
	}
	clientSecret := os.Getenv("TW_CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("TW_CLIENT_SECRET is required")
	}

	redisDB := 0
	if d := os.Getenv("REDIS_DB"); d != "" {
		var err error
		redisDB, err = strconv.Atoi(d)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}

	ttl := defaultSessionTTL
	if s := os.Getenv("SESSION_TTL"); s != "" {
		var err error
		ttl, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
	}

	cfg := &Config{
		Port:          port,
		DatabaseURL:   envOr("DATABASE_URL", "sqlite://tweetscope.db"),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		RedirectURI:   envOr("TW_REDIRECT_URI", defaultRedirect),
		AuthURL:       envOr("TW_AUTH_URL", defaultAuthURL),
		TokenURL:      envOr("TW_TOKEN_URL", defaultTokenURL),
		SearchURL:     envOr("TW_SEARCH_URL", defaultSearchURL),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   envOr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		SessionTTL:    ttl,
		SnapshotDir:   envOr("SNAPSHOT_DIR", "."),
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
