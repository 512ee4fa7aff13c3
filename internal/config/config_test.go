package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("YAMF_TEST_LISTEN_ADDR", ":9999")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.RegistryURL)
	assert.Equal(t, "http://localhost:8080", cfg.GatewayURL)
	assert.Equal(t, "", cfg.RegistryToken)
	assert.Equal(t, 3, cfg.RetryLimit)
	assert.Equal(t, 20*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 50, cfg.RegistrationRetryLimit)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 10000, cfg.StartPort)
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("YAMF_REGISTRY_URL", "http://registry.internal:4000")
	t.Setenv("YAMF_RETRY_LIMIT", "7")
	t.Setenv("YAMF_RETRY_DELAY", "50")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("YAMF_TEST_LISTEN_ADDR", ":9999")
	require.NoError(t, err)

	assert.Equal(t, "http://registry.internal:4000", cfg.RegistryURL)
	assert.Equal(t, 7, cfg.RetryLimit)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoadIgnoresUnparsableInt(t *testing.T) {
	t.Setenv("YAMF_RETRY_LIMIT", "not-a-number")

	cfg, err := Load("YAMF_TEST_LISTEN_ADDR", ":9999")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RetryLimit)
}

func TestEnvironmentGating(t *testing.T) {
	cases := []struct {
		env                 string
		prod, staging, dev  bool
		requireToken        bool
		devEndpointsEnabled bool
	}{
		{"production", true, false, false, true, false},
		{"staging", false, true, false, true, false},
		{"development", false, false, true, false, true},
		{"", false, false, true, false, true},
		{"local-dev", false, false, true, false, true},
	}
	for _, tc := range cases {
		cfg := &Config{Environment: tc.env}
		assert.Equal(t, tc.prod, cfg.IsProduction(), "env=%q IsProduction", tc.env)
		assert.Equal(t, tc.staging, cfg.IsStaging(), "env=%q IsStaging", tc.env)
		assert.Equal(t, tc.dev, cfg.IsDev(), "env=%q IsDev", tc.env)
		assert.Equal(t, tc.requireToken, cfg.RequireToken(), "env=%q RequireToken", tc.env)
		assert.Equal(t, tc.devEndpointsEnabled, cfg.DevEndpointsEnabled(), "env=%q DevEndpointsEnabled", tc.env)
	}
}
