package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/pkg/httpx"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, optionally seeded by a .env file.
type Config struct {
	HTTPAddr            string        `env:"HTTP_ADDR"`
	Env                 string        `env:"ENV"`
	LogLevel            string        `env:"LOG_LEVEL"`
	LogFormat           string        `env:"LOG_FORMAT"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD"`

	StoreDriver  string        `env:"STORE_DRIVER"` // sqlite or postgres
	DatabaseFile string        `env:"DATABASE_FILE"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT"`

	// Exactly one of MasterKey and MasterKeyFile is used; an inline key wins.
	MasterKey     string `env:"MASTER_KEY"`
	MasterKeyFile string `env:"MASTER_KEY_FILE"`
	PepperFile    string `env:"PEPPER_FILE"`

	TOTPIssuer string        `env:"TOTP_ISSUER"`
	TOTPWindow uint          `env:"TOTP_WINDOW"`
	SetupTTL   time.Duration `env:"SETUP_TTL"`

	AttemptMax       int           `env:"ATTEMPT_MAX"`
	AttemptWindow    time.Duration `env:"ATTEMPT_WINDOW"`
	AttemptRetention time.Duration `env:"ATTEMPT_RETENTION"`
	RateLimitBackend string        `env:"RATE_LIMIT_BACKEND"` // store or redis
	RedisURL         string        `env:"REDIS_URL"`

	DeviceTrustDuration time.Duration `env:"DEVICE_TRUST_DURATION"`

	// Issuer is the iss of every token this service signs and the aud of
	// its own bearer tokens.
	Issuer string `env:"ISSUER"`

	// Bearer tokens are accepted from the local login and, when
	// configured, from an upstream identity provider.
	UpstreamIssuer   string        `env:"UPSTREAM_ISSUER"`
	UpstreamAudience []string      `env:"UPSTREAM_AUDIENCE" envSeparator:","`
	UpstreamJWKSURL  string        `env:"UPSTREAM_JWKS_URL"`
	UpstreamJWKS     string        `env:"UPSTREAM_JWKS"`
	JWKSRefresh      time.Duration `env:"UPSTREAM_JWKS_REFRESH"`
	TokenLeeway      time.Duration `env:"TOKEN_LEEWAY"`

	LocalLogin        bool          `env:"LOCAL_LOGIN"`
	AssertionKeyFile  string        `env:"ASSERTION_KEY_FILE"`
	AssertionAudience []string      `env:"ASSERTION_AUDIENCE" envSeparator:","`
	AssertionTTL      time.Duration `env:"ASSERTION_TTL"`
	SessionTTL        time.Duration `env:"SESSION_TTL"`

	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL"`

	StrictLimit   httpx.RateLimitConfig `envPrefix:"RATELIMIT_STRICT_"`
	ModerateLimit httpx.RateLimitConfig `envPrefix:"RATELIMIT_MODERATE_"`
	PublicLimit   httpx.RateLimitConfig `envPrefix:"RATELIMIT_PUBLIC_"`
}

// DefaultConfig is what an empty environment yields.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		Env:                 "dev",
		LogLevel:            "info",
		LogFormat:           "json",
		ShutdownGracePeriod: 10 * time.Second,

		StoreDriver:  "sqlite",
		DatabaseFile: "twofactor.db",
		StoreTimeout: 3 * time.Second,

		MasterKeyFile: "master.key",
		PepperFile:    "pepper",

		Issuer: "twofactor",

		TOTPIssuer: "twofactor",
		TOTPWindow: 1,
		SetupTTL:   service.DefaultSetupTTL,

		AttemptMax:       service.DefaultRateLimitPolicy.MaxFailures,
		AttemptWindow:    service.DefaultRateLimitPolicy.Window,
		AttemptRetention: service.DefaultAttemptRetention,
		RateLimitBackend: "store",

		DeviceTrustDuration: service.DefaultTrustDuration,

		JWKSRefresh: 15 * time.Minute,
		TokenLeeway: 30 * time.Second,

		LocalLogin:        true,
		AssertionKeyFile:  "assertion.pem",
		AssertionAudience: []string{service.DefaultAssertionAudience},
		AssertionTTL:      5 * time.Minute,
		SessionTTL:        15 * time.Minute,

		SMTPPort:    587,
		SMTPTimeout: 10 * time.Second,

		HousekeepingInterval: time.Hour,

		StrictLimit:   httpx.StrictLimit,
		ModerateLimit: httpx.ModerateLimit,
		PublicLimit:   httpx.PublicLimit,
	}
}

// LoadConfig loads envFiles (a missing ./.env is fine), then parses the
// environment over DefaultConfig and validates the result.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for the sqlite driver"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of sqlite, postgres", c.StoreDriver))
	}

	switch c.RateLimitBackend {
	case "store":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis rate limit backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND %q is not one of store, redis", c.RateLimitBackend))
	}

	if c.MasterKey == "" && c.MasterKeyFile == "" {
		errs = append(errs, errors.New("one of MASTER_KEY or MASTER_KEY_FILE is required"))
	}
	if strings.TrimSpace(c.TOTPIssuer) == "" {
		errs = append(errs, errors.New("TOTP_ISSUER must not be empty"))
	}
	if strings.Contains(c.TOTPIssuer, ":") {
		errs = append(errs, errors.New("TOTP_ISSUER must not contain ':'"))
	}
	if c.Issuer == "" {
		errs = append(errs, errors.New("ISSUER must not be empty"))
	}
	for _, aud := range c.AssertionAudience {
		if slices.Contains(c.BearerAudience(), aud) {
			errs = append(errs, fmt.Errorf("ASSERTION_AUDIENCE %q is also accepted for bearer tokens", aud))
		}
	}
	if c.AttemptMax <= 0 || c.AttemptWindow <= 0 {
		errs = append(errs, errors.New("ATTEMPT_MAX and ATTEMPT_WINDOW must be positive"))
	}
	if c.UpstreamJWKSURL != "" && c.UpstreamJWKS != "" {
		errs = append(errs, errors.New("set only one of UPSTREAM_JWKS_URL and UPSTREAM_JWKS"))
	}
	if c.UpstreamConfigured() && c.UpstreamIssuer == "" {
		errs = append(errs, errors.New("UPSTREAM_ISSUER is required with an upstream key set"))
	}
	if !c.LocalLogin && !c.UpstreamConfigured() {
		errs = append(errs, errors.New("no bearer token source: enable LOCAL_LOGIN or configure an upstream key set"))
	}

	for name, rl := range map[string]httpx.RateLimitConfig{
		"RATELIMIT_STRICT": c.StrictLimit, "RATELIMIT_MODERATE": c.ModerateLimit, "RATELIMIT_PUBLIC": c.PublicLimit,
	} {
		if !rl.Valid() {
			errs = append(errs, fmt.Errorf("%s_* values must be positive", name))
		}
	}

	return errors.Join(errs...)
}

// UpstreamConfigured reports whether an upstream key set was given.
func (c Config) UpstreamConfigured() bool {
	return c.UpstreamJWKSURL != "" || c.UpstreamJWKS != ""
}

// BearerAudience lists the aud values accepted on bearer tokens.
func (c Config) BearerAudience() []string {
	aud := []string{c.Issuer}
	for _, a := range c.UpstreamAudience {
		if a != "" && !slices.Contains(aud, a) {
			aud = append(aud, a)
		}
	}
	return aud
}

// BearerIssuers lists the iss values accepted on bearer tokens.
func (c Config) BearerIssuers() []string {
	iss := []string{c.Issuer}
	if c.UpstreamIssuer != "" && c.UpstreamIssuer != c.Issuer {
		iss = append(iss, c.UpstreamIssuer)
	}
	return iss
}

// RateLimitPolicy is the failed-attempt policy of the ledger.
func (c Config) RateLimitPolicy() service.RateLimitPolicy {
	return service.RateLimitPolicy{MaxFailures: c.AttemptMax, Window: c.AttemptWindow}
}
