package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_PATH", "DB_MAX_OPEN_CONNS", "DB_CONN_MAX_LIFETIME", "PRESALE_PROGRAM_ID",
		"MIRROR_ENABLED", "MIRROR_POLLING_INTERVAL", "MIRROR_BATCH_SIZE", "FORMANCE_LEDGER_NAME", "HTTP_LISTEN_ADDR",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "presale.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Empty(t, cfg.Presale.ProgramId)
	assert.False(t, cfg.Mirror.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Mirror.PollingInterval)
	assert.Equal(t, 100, cfg.Mirror.BatchSize)
	assert.Equal(t, "fraction-presale", cfg.Mirror.Formance.LedgerName)
	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("MIRROR_ENABLED", "true")
	t.Setenv("MIRROR_POLLING_INTERVAL", "250ms")
	t.Setenv("MIRROR_BATCH_SIZE", "16")
	t.Setenv("FORMANCE_STACK_URL", "http://localhost:3068")
	t.Setenv("HTTP_LISTEN_ADDR", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.True(t, cfg.Mirror.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Mirror.PollingInterval)
	assert.Equal(t, 16, cfg.Mirror.BatchSize)
	assert.Equal(t, "http://localhost:3068", cfg.Mirror.Formance.StackURL)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.ListenAddr)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("MIRROR_POLLING_INTERVAL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "MIRROR_POLLING_INTERVAL")
}

func TestGetEnvInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("MIRROR_BATCH_SIZE", "lots")
	assert.Equal(t, 7, getEnvInt("MIRROR_BATCH_SIZE", 7))
}
