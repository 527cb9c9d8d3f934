package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "gtfs.db", cfg.Database.Path)
	assert.Equal(t, "stop_ids", cfg.Patterns.Strategy)
	assert.Equal(t, "service_route", cfg.Patterns.Kind)
	assert.Equal(t, "outbound", cfg.Patterns.DefaultDirection)
	assert.False(t, cfg.Patterns.StrictJoins)
	assert.Equal(t, 20, cfg.Patterns.KeepRuns)
	assert.Equal(t, 500, cfg.Import.BatchSize)
	assert.Equal(t, 15*time.Second, cfg.API.ReadTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_NAME", "gtfs")
	t.Setenv("PATTERN_STRATEGY", "route_short_name")
	t.Setenv("PATTERN_KIND", "course")
	t.Setenv("PATTERN_STRICT_JOINS", "true")
	t.Setenv("PATTERN_KEEP_RUNS", "3")
	t.Setenv("API_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("API_READ_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=localhost port=5432 user=postgres password= dbname=gtfs sslmode=disable",
		cfg.Database.ConnectionString())
	assert.Equal(t, "route_short_name", cfg.Patterns.Strategy)
	assert.Equal(t, "course", cfg.Patterns.Kind)
	assert.True(t, cfg.Patterns.StrictJoins)
	assert.Equal(t, 3, cfg.Patterns.KeepRuns)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.API.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.API.ReadTimeout)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	t.Setenv("PATTERN_STRATEGY", "shape_id")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Strategy")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsNegativeKeepRuns(t *testing.T) {
	t.Setenv("PATTERN_KEEP_RUNS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KeepRuns")
}
