// Package config reads the proxy's settings from environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds everything main needs to wire the proxy.
type Config struct {
	Port              string
	GitHubAPIURL      string
	PublicBaseURL     string
	TrustForwarded    bool // honour X-Forwarded-Proto/Host when PublicBaseURL is unset
	UpstreamTimeout   time.Duration
	BundleConcurrency int
	RedisAddr         string
	RateLimit         int // requests per client per minute; 0 disables

	OTelEnabled     bool
	OTelServiceName string
	OTelSampleRatio float64

	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// AppConfigured reports whether GitHub App credentials were supplied.
func (c Config) AppConfigured() bool {
	return c.AppID != 0 && c.InstallationID != 0 && c.PrivateKeyPath != ""
}

// Load builds a Config from getenv (normally os.Getenv).
func Load(getenv func(string) string) (Config, error) {
	envOr := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:            envOr("PORT", "8080"),
		GitHubAPIURL:    envOr("GITHUB_API_URL", ""),
		PublicBaseURL:   envOr("PUBLIC_BASE_URL", ""),
		TrustForwarded:  envOr("TRUST_FORWARDED_HEADERS", "") == "true",
		RedisAddr:       envOr("REDIS_ADDR", ""),
		OTelEnabled:     envOr("OTEL_ENABLED", "") == "true",
		OTelServiceName: envOr("OTEL_SERVICE_NAME", "repoproxy"),
		PrivateKeyPath:  envOr("GITHUB_APP_PRIVATE_KEY_PATH", ""),
	}

	var err error
	if cfg.UpstreamTimeout, err = time.ParseDuration(envOr("UPSTREAM_TIMEOUT", "15s")); err != nil || cfg.UpstreamTimeout <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT: invalid duration %q", getenv("UPSTREAM_TIMEOUT"))
	}
	if cfg.BundleConcurrency, err = positiveInt(envOr("BUNDLE_CONCURRENCY", "8")); err != nil {
		return Config{}, fmt.Errorf("BUNDLE_CONCURRENCY: %w", err)
	}
	if cfg.RateLimit, err = strconv.Atoi(envOr("RATE_LIMIT", "600")); err != nil || cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT: invalid value %q", getenv("RATE_LIMIT"))
	}
	if cfg.OTelSampleRatio, err = strconv.ParseFloat(envOr("OTEL_SAMPLE_RATIO", "1"), 64); err != nil || cfg.OTelSampleRatio < 0 {
		return Config{}, fmt.Errorf("OTEL_SAMPLE_RATIO: invalid value %q", getenv("OTEL_SAMPLE_RATIO"))
	}
	if v := envOr("GITHUB_APP_ID", ""); v != "" {
		if cfg.AppID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Config{}, fmt.Errorf("GITHUB_APP_ID: %w", err)
		}
	}
	if v := envOr("GITHUB_APP_INSTALLATION_ID", ""); v != "" {
		if cfg.InstallationID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Config{}, fmt.Errorf("GITHUB_APP_INSTALLATION_ID: %w", err)
		}
	}
	return cfg, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("must be a positive integer, got %q", s)
	}
	return n, nil
}
