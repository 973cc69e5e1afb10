package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 3*time.Second, cfg.DBLockTimeout)
	require.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	require.True(t, cfg.LowStockAlerts)
	require.Equal(t, "0 3 * * *", cfg.ReconcileCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigFromDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_ENV=production\nDB_LOCK_TIMEOUT=750ms\nRATE_LIMIT_PER_MINUTE=30\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "45")
	t.Cleanup(func() {
		_ = os.Unsetenv("APP_ENV")
		_ = os.Unsetenv("DB_LOCK_TIMEOUT")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 750*time.Millisecond, cfg.DBLockTimeout)
	require.Equal(t, 45, cfg.RateLimitPerMinute, "environment wins over .env")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{PGDSN: "postgres://x", DBLockTimeout: time.Second, RateLimitPerMinute: 1, CheckoutRateLimitPerMinute: 1}
	require.NoError(t, base.Validate())

	bad := base
	bad.PGDSN = ""
	require.Error(t, bad.Validate())

	bad = base
	bad.DBLockTimeout = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.CheckoutRateLimitPerMinute = 0
	require.Error(t, bad.Validate())
}

func TestConnectionSettings(t *testing.T) {
	cfg := &Config{PGDSN: "postgres://x@db/supermart", PGMaxConns: 4, RedisAddr: "cache:6379", RedisDB: 2}

	pool := cfg.Pool("worker")
	require.Equal(t, "supermart-worker", pool.ApplicationName)
	require.EqualValues(t, 4, pool.MaxConns)
	require.Equal(t, cfg.PGDSN, pool.DSN)

	require.Equal(t, 2, cfg.Redis().DB)
	require.Equal(t, "cache:6379", cfg.Asynq().Addr)
}
