package config

import (
	"testing"
	"time"

	"github.com/flexprice/taxsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, types.ModeLocal, cfg.Deployment.Mode)
}

func TestValidateRejectsMissingSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
	}{
		{
			name:   "unknown run mode",
			mutate: func(c *Configuration) { c.Deployment.Mode = "worker" },
		},
		{
			name:   "sync concurrency below one",
			mutate: func(c *Configuration) { c.Sync.MaxConcurrency = 0 },
		},
		{
			name:   "redis enabled without address",
			mutate: func(c *Configuration) { c.Redis.Enabled = true; c.Redis.Address = "" },
		},
		{
			name:   "sentry enabled without dsn",
			mutate: func(c *Configuration) { c.Sentry.Enabled = true },
		},
		{
			name:   "unknown audit destination",
			mutate: func(c *Configuration) { c.Audit.Destination = "dynamodb" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewConfigReadsEnvironment(t *testing.T) {
	t.Setenv("TAXSYNC_SYNC_LEASE_WAIT", "750ms")
	t.Setenv("TAXSYNC_LOGGING_LEVEL", "warn")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Sync.LeaseWait)
	assert.Equal(t, types.LogLevelWarn, cfg.Logging.Level)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "tax", SSLMode: "disable"}
	assert.Equal(t, "user=u password=p dbname=tax host=db port=5433 sslmode=disable", cfg.GetDSN())
}
