package config

import (
	"os"
	"time"
)

// Identity carries the identity provider endpoints and client credentials.
type Identity struct {
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	AuthEndpoint   string
	TokenEndpoint  string
	PersonEndpoint string
}

// Redis configures the optional Redis backend. An empty URL selects the
// in-memory stores.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config is everything main needs to wire the service.
type Config struct {
	Addr          string
	Env           string
	SessionSecret string
	HashSecret    string
	HashTTL       time.Duration
	FormsFile     string
	PostgresURL   string
	Redis         Redis
	Identity      Identity
}

// IsDev reports whether we run without TLS-only cookie requirements.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// FromEnv builds the config from environment variables so main stays lean.
// Development defaults apply wherever a variable is unset.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("FORMGATE_ADDR", ":8080"),
		Env:           envOr("FORMGATE_ENV", "dev"),
		SessionSecret: envOr("FORMGATE_SESSION_SECRET", "dev-secret-change-in-production"),
		HashSecret:    envOr("FORMGATE_HASH_SECRET", "dev-hash-secret-change-in-production"),
		HashTTL:       durationOr("FORMGATE_HASH_TTL", 30*time.Minute),
		FormsFile:     os.Getenv("FORMGATE_FORMS_FILE"),
		PostgresURL:   os.Getenv("FORMGATE_POSTGRES_URL"),
		Redis: Redis{
			URL:          os.Getenv("FORMGATE_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Identity: Identity{
			ClientID:       envOr("IDENTITY_CLIENT_ID", "formgate-dev"),
			ClientSecret:   os.Getenv("IDENTITY_CLIENT_SECRET"),
			RedirectURI:    envOr("IDENTITY_REDIRECT_URI", "http://localhost:8080/api/identity/callback"),
			AuthEndpoint:   envOr("IDENTITY_AUTH_ENDPOINT", "https://test.api.myinfo.gov.sg/com/v3/authorise"),
			TokenEndpoint:  envOr("IDENTITY_TOKEN_ENDPOINT", "https://test.api.myinfo.gov.sg/com/v3/token"),
			PersonEndpoint: envOr("IDENTITY_PERSON_ENDPOINT", "https://test.api.myinfo.gov.sg/com/v3/person"),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
