package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, 60*time.Second, cfg.Sweeper.Interval)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenExpiry)
	assert.Equal(t, "admin.com", cfg.Auth.AdminEmailDomain)
	assert.Equal(t, 5*time.Minute, cfg.Cache.PlanTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SFLIX_STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("SFLIX_JWT_SECRET", "jwt-secret")
	t.Setenv("SFLIX_SERVER_ADDRESS", ":8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Stripe:  StripeConfig{SecretKey: "sk", FrontendURL: "http://localhost:3000"},
			Auth:    AuthConfig{JWTSecret: "secret"},
			Sweeper: SweeperConfig{Enabled: true, Interval: time.Minute},
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Stripe.SecretKey = ""
	cfg.Auth.JWTSecret = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stripe.secret_key")
	assert.Contains(t, err.Error(), "auth.jwt_secret")

	cfg = valid()
	cfg.Sweeper.Interval = 0
	assert.ErrorContains(t, cfg.Validate(), "sweeper.interval")

	cfg.Sweeper.Enabled = false
	assert.NoError(t, cfg.Validate())
}
