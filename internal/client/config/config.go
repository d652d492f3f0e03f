package config

import (
	"errors"
	"net/url"
	"time"
)

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	SessionDB      string
}

// LoadDefaults populates c with values that match a locally running server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.RequestTimeout = 10 * time.Second
	c.SessionDB = "session.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays JSON,
// environment and flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate reports settings the CLI cannot work with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, errors.New("server url must be an absolute http(s) url"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.SessionDB == "" {
		errs = append(errs, errors.New("session database path is required"))
	}

	return errors.Join(errs...)
}
