// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN; required for anything that touches the store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SessionTTL is the session lifetime (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionSliding enables sliding expiry: Touch recomputes expires_at on each
	// validated access. Default false (absolute expiry fixed at issuance).
	SessionSliding bool `mapstructure:"SESSION_SLIDING"`
	// StoreTimeout bounds every store call made by the services (e.g. "5s").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`
	// AdminJWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) for admin tokens.
	AdminJWTPrivateKey string `mapstructure:"ADMIN_JWT_PRIVATE_KEY"`
	// AdminJWTPublicKey is the PEM-encoded public key matching AdminJWTPrivateKey.
	AdminJWTPublicKey string `mapstructure:"ADMIN_JWT_PUBLIC_KEY"`
	// AdminJWTIssuer is the iss claim on admin tokens.
	AdminJWTIssuer string `mapstructure:"ADMIN_JWT_ISSUER"`
	// AdminJWTAudience is the aud claim on admin tokens.
	AdminJWTAudience string `mapstructure:"ADMIN_JWT_AUDIENCE"`
	// AdminJWTTTL is the admin token lifetime (e.g. "12h").
	AdminJWTTTL string `mapstructure:"ADMIN_JWT_TTL"`

	// KafkaBrokers is a comma-separated broker list; when set, auth events are also
	// streamed to Kafka for the external analytics consumer.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic is the Kafka topic for streamed auth events.
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_TOPIC"`

	// SeedAdminUsername and SeedAdminPassword bootstrap the first admin via cmd/seed.
	SeedAdminUsername string `mapstructure:"SEED_ADMIN_USERNAME"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_SLIDING", false)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("ADMIN_JWT_ISSUER", "license-auth")
	v.SetDefault("ADMIN_JWT_AUDIENCE", "license-admin")
	v.SetDefault("ADMIN_JWT_TTL", "12h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_TOPIC", "auth-events")
	v.SetDefault("SEED_ADMIN_USERNAME", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// SessionLifetime parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// StoreCallTimeout parses StoreTimeout as a time.Duration. Returns 5s if unset or invalid.
func (c *Config) StoreCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// AdminTokenTTL parses AdminJWTTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AdminTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.AdminJWTTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// Used to decide if the auth-event stream is enabled (non-empty list).
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
