package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// EnvConfig lists the environment variables the server understands. PORT is
// a shorthand for ADDRESS=":<port>"; ADDRESS wins when both are set.
// GRPC_DISABLED=true turns the gRPC health endpoint off.
type EnvConfig struct {
	Address            string         `env:"ADDRESS"`
	Port               string         `env:"PORT"`
	GRPCAddress        string         `env:"GRPC_ADDRESS"`
	GRPCDisabled       bool           `env:"GRPC_DISABLED"`
	DatabaseDriver     string         `env:"DATABASE_DRIVER"`
	DatabaseDSN        string         `env:"DATABASE_URL"`
	AccessTokenSecret  string         `env:"JWT_ACCESS_SECRET"`
	RefreshTokenSecret string         `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL     timex.Duration `env:"JWT_ACCESS_EXPIRATION"`
	RefreshTokenTTL    timex.Duration `env:"JWT_REFRESH_EXPIRATION"`
	SessionTTL         timex.Duration `env:"SESSION_EXPIRATION"`
	BcryptCost         int            `env:"BCRYPT_COST"`
	LogLevel           string         `env:"LOG_LEVEL"`
	OTLPEndpoint       string         `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins     []string       `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitPerMinute int            `env:"RATE_LIMIT_PER_MINUTE"`
}

// parseEnv overlays values present in the environment. A malformed value
// panics, matching parseJson.
func parseEnv(config *Config) {
	var e EnvConfig
	if err := env.Parse(&e); err != nil {
		panic(fmt.Errorf("parse env: %w", err))
	}

	if e.Port != "" {
		config.HTTPAddress = ":" + e.Port
	}
	setString(&config.HTTPAddress, e.Address)
	setString(&config.GRPCAddress, e.GRPCAddress)
	if e.GRPCDisabled {
		config.GRPCAddress = ""
	}
	setString(&config.DatabaseDriver, e.DatabaseDriver)
	setString(&config.DatabaseDSN, e.DatabaseDSN)
	setString(&config.AccessTokenSecret, e.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, e.RefreshTokenSecret)
	if e.AccessTokenTTL.Duration != 0 {
		config.AccessTokenValidityDuration = e.AccessTokenTTL.Duration
	}
	if e.RefreshTokenTTL.Duration != 0 {
		config.RefreshTokenValidityDuration = e.RefreshTokenTTL.Duration
	}
	if e.SessionTTL.Duration != 0 {
		config.SessionValidityDuration = e.SessionTTL.Duration
	}
	if e.BcryptCost != 0 {
		config.BcryptCost = e.BcryptCost
	}
	setString(&config.LogLevel, e.LogLevel)
	setString(&config.OTLPEndpoint, e.OTLPEndpoint)
	if len(e.AllowedOrigins) > 0 {
		config.AllowedOrigins = e.AllowedOrigins
	}
	if e.RateLimitPerMinute != 0 {
		config.RateLimitPerMinute = e.RateLimitPerMinute
	}
}
