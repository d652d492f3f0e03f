package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrijs2005/gophauth/internal/timex"
)

type EnvConfig struct {
	ServerURL      string         `env:"SERVER_URL"`
	RequestTimeout timex.Duration `env:"REQUEST_TIMEOUT"`
	SessionDB      string         `env:"SESSION_DB"`
}

func parseEnv(cfg *Config) {
	var e EnvConfig
	if err := env.ParseWithOptions(&e, env.Options{Prefix: "GOPHAUTH_"}); err != nil {
		panic(fmt.Errorf("parse env: %w", err))
	}

	if e.ServerURL != "" {
		cfg.ServerURL = e.ServerURL
	}
	if e.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = e.RequestTimeout.Duration
	}
	if e.SessionDB != "" {
		cfg.SessionDB = e.SessionDB
	}
}
