package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("JWT_EXPIRY_HOURS", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 12*time.Hour, cfg.JWTExpiry)
	assert.Nil(t, cfg.AllowedOrigins)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MAX_DB_CONNS", "4")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("LOGIN_RATE_LIMIT", "5")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, int32(4), cfg.MaxDBConns)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5, cfg.LoginRateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("MAX_DB_CONNS", "lots")

	cfg := Load()

	assert.Equal(t, int32(16), cfg.MaxDBConns)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		JWTSecret:      " ",
		JWTExpiry:      0,
		MaxDBConns:     0,
		LoginRateLimit: 0,
		BcryptCost:     2,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "JWT_EXPIRY_HOURS")
	assert.Contains(t, err.Error(), "MAX_DB_CONNS")
	assert.Contains(t, err.Error(), "LOGIN_RATE_LIMIT")
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "session:abc", CacheKey.SessionKey("abc"))
	assert.Equal(t, "user:7:sessions", CacheKey.UserSessionsKey(7))
	assert.Equal(t, "rbac:events", CacheKey.RBACEventsChannel())
}
