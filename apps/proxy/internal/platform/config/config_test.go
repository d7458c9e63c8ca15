package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/config"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 8, cfg.BundleConcurrency)
	assert.Equal(t, 600, cfg.RateLimit)
	assert.False(t, cfg.TrustForwarded)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "repoproxy", cfg.OTelServiceName)
	assert.InDelta(t, 1.0, cfg.OTelSampleRatio, 0)
	assert.False(t, cfg.AppConfigured())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := config.Load(env(map[string]string{
		"PORT":                        "9000",
		"GITHUB_API_URL":              "http://localhost:9090",
		"UPSTREAM_TIMEOUT":            "2s",
		"BUNDLE_CONCURRENCY":          "3",
		"RATE_LIMIT":                  "0",
		"TRUST_FORWARDED_HEADERS":     "true",
		"OTEL_ENABLED":                "true",
		"OTEL_SERVICE_NAME":           "proxy-eu",
		"OTEL_SAMPLE_RATIO":           "0.1",
		"GITHUB_APP_ID":               "12",
		"GITHUB_APP_INSTALLATION_ID":  "34",
		"GITHUB_APP_PRIVATE_KEY_PATH": "/keys/app.pem",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://localhost:9090", cfg.GitHubAPIURL)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 3, cfg.BundleConcurrency)
	assert.Zero(t, cfg.RateLimit)
	assert.True(t, cfg.TrustForwarded)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "proxy-eu", cfg.OTelServiceName)
	assert.InDelta(t, 0.1, cfg.OTelSampleRatio, 1e-9)
	assert.True(t, cfg.AppConfigured())
}

func TestLoad_Invalid(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"timeout":      {"UPSTREAM_TIMEOUT": "soon"},
		"concurrency":  {"BUNDLE_CONCURRENCY": "0"},
		"rate limit":   {"RATE_LIMIT": "-1"},
		"app id":       {"GITHUB_APP_ID": "abc"},
		"sample ratio": {"OTEL_SAMPLE_RATIO": "-0.5"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(env(vars))
			assert.Error(t, err)
		})
	}
}
