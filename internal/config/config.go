// Package config loads the oidc-server binary configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is decoded from OIDC_* environment variables. Command line flags
// override individual fields after decoding.
type Config struct {
	// Issuer is the absolute URL the server identifies as. ENV: OIDC_ISSUER
	Issuer string `env:"OIDC_ISSUER,required"`
	// ListenAddr like ":8080". ENV: OIDC_LISTEN_ADDR
	ListenAddr string `env:"OIDC_LISTEN_ADDR,default=:8080"`

	// SigningKeyFile is a PEM encoded RSA private key. A key is generated
	// at startup when empty. ENV: OIDC_SIGNING_KEY_FILE
	SigningKeyFile string `env:"OIDC_SIGNING_KEY_FILE"`
	SigningKeyID   string `env:"OIDC_SIGNING_KEY_ID,default=key-1"`

	// RedisAddr like "localhost:6379". Refresh tokens are kept in memory
	// when empty. ENV: OIDC_REDIS_ADDR
	RedisAddr      string `env:"OIDC_REDIS_ADDR"`
	RedisKeyPrefix string `env:"OIDC_REDIS_KEY_PREFIX,default=oidc:token:"`

	AccessTokenLifetime  time.Duration `env:"OIDC_ACCESS_TOKEN_LIFETIME,default=1h"`
	RefreshTokenLifetime time.Duration `env:"OIDC_REFRESH_TOKEN_LIFETIME,default=336h"`
	RollingRefreshTokens bool          `env:"OIDC_ROLLING_REFRESH_TOKENS,default=true"`

	// Clients is a comma separated list of id:secret pairs. ENV: OIDC_CLIENTS
	Clients string `env:"OIDC_CLIENTS"`

	LogLevel  string `env:"OIDC_LOG_LEVEL,default=info"`
	LogFormat string `env:"OIDC_LOG_FORMAT,default=console"`
}

var (
	// ErrLifetimeNotPositive is returned when a token lifetime is zero or negative.
	ErrLifetimeNotPositive = errors.New("token lifetimes must be positive")

	// ErrMalformedClients is returned when OIDC_CLIENTS is not a list of id:secret pairs.
	ErrMalformedClients = errors.New("clients must be a comma separated list of id:secret pairs")
)

// Load decodes the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that cannot be expressed as struct tags.
func (c *Config) Validate() error {
	if c.AccessTokenLifetime <= 0 || c.RefreshTokenLifetime <= 0 {
		return ErrLifetimeNotPositive
	}
	if _, err := c.ClientSecrets(); err != nil {
		return err
	}
	return nil
}

// ClientSecrets parses Clients into a map of client identifier to secret.
func (c *Config) ClientSecrets() (map[string]string, error) {
	clients := make(map[string]string)
	for _, pair := range strings.Split(c.Clients, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedClients, pair)
		}
		clients[id] = secret
	}
	return clients, nil
}
