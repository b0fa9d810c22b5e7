package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "INR", cfg.Gateway.Currency)
	assert.Equal(t, VerifyPolicyFailClosed, cfg.Gateway.VerifyUnreachablePolicy)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout())
	assert.Equal(t, 2, cfg.Gateway.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Checkout.AttemptTTL())
	assert.Equal(t, time.Duration(0), cfg.Checkout.LocalOrderTTL())
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("GATEWAY_KEY_ID", "rzp_test_key")
	t.Setenv("GATEWAY_VERIFY_UNREACHABLE_POLICY", "ASSUME_VERIFIED")
	t.Setenv("GATEWAY_TIMEOUT_SECONDS", "3")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "rzp_test_key", cfg.Gateway.KeyID)
	assert.Equal(t, VerifyPolicyAssumeVerified, cfg.Gateway.VerifyUnreachablePolicy)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout())
}

// TestLoad_EnvFile verifies that values are read from a .env file.
func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	content := "JWT_SECRET=file_secret\nGATEWAY_MERCHANT_NAME=Test Shop\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file_secret", cfg.JWTSecret)
	assert.Equal(t, "Test Shop", cfg.Gateway.MerchantName)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration: JWT_SECRET")
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GATEWAY_VERIFY_UNREACHABLE_POLICY", "sometimes")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_VERIFY_UNREACHABLE_POLICY")
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DATABASE_DRIVER")
}
