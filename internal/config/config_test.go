package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseDSN_TCP(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		DBName:   "nhatro_reports",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=nhatro_reports sslmode=disable", dsn)
}

func TestDatabaseDSN_UnixSocket(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "/cloudsql/project:region:instance",
		User:     "postgres",
		Password: "secret",
		DBName:   "nhatro_reports",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=/cloudsql/project:region:instance")
	assert.NotContains(t, dsn, "port=")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "public/reports", cfg.Reports.OutputDir)
	assert.Equal(t, "/reports", cfg.Reports.PublicPath)
	assert.Equal(t, 4, cfg.Reports.MaxRenders)
	assert.Equal(t, 60*time.Second, cfg.Reports.GenerationTimeout)
	assert.False(t, cfg.GCS.Enabled())
}

func TestReportsConfigOverrides(t *testing.T) {
	t.Setenv("REPORTS_MAX_RENDERS", "2")
	t.Setenv("REPORTS_GENERATION_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Reports.MaxRenders)
	assert.Equal(t, 90*time.Second, cfg.Reports.GenerationTimeout)
}
