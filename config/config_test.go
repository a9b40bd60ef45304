package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "DB_PATH", "PAYMENT_DAY", "CALC_WORKERS", "CACHE_TTL", "SCHEDULER_ENABLED", "RATES_PATH"} {
		t.Setenv(k, "")
	}

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "payroll.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Payroll.PaymentDay)
	assert.Equal(t, 4, cfg.Payroll.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Payroll.CacheTTL)
	assert.Empty(t, cfg.Payroll.RatesPath)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/payroll")
	t.Setenv("PAYMENT_DAY", "25")
	t.Setenv("SCHEDULER_ENABLED", "true")
	t.Setenv("SCHEDULER_INTERVAL", "30m")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Payroll.PaymentDay)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"APP_PORT", "http", "APP_PORT"},
		{"PAYMENT_DAY", "32", "PAYMENT_DAY"},
		{"CALC_WORKERS", "0", "CALC_WORKERS"},
		{"CACHE_TTL", "forever", "CACHE_TTL"},
		{"DB_DRIVER", "mysql", "DB_DRIVER"},
		{"SCHEDULER_ENABLED", "maybe", "SCHEDULER_ENABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.FromEnv()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFromEnv_PostgresNeedsURL(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := config.FromEnv()
	assert.ErrorContains(t, err, "DATABASE_URL")
}
