package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diamant-gtfs/internal/common/config"
	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

const fixtureFeed = "../../internal/gtfs-static/testdata/feed"

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "gtfs.db")},
		Patterns: config.PatternsConfig{Strategy: "stop_ids", Kind: "service_route", DefaultDirection: "outbound"},
		API: config.APIConfig{
			Addr:         "127.0.0.1:0",
			DataDir:      filepath.Join(dir, "data"),
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Import: config.ImportConfig{BatchSize: 100, DownloadDir: dir},
	}
	return &app{cfg: cfg, log: logger.Nop(), stdout: out}, out
}

func TestCreateThenGetPatterns(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"db", "create", fixtureFeed}))

	require.NoError(t, a.run(ctx, []string{"db", "get", "patterns", "-f", "json"}))
	var pats []models.Pattern
	require.NoError(t, json.Unmarshal(out.Bytes(), &pats))
	require.Len(t, pats, 4)
	assert.Equal(t, "Central(Alpha~Charlie)", pats[0].Name)

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"db", "get", "runs", "-f", "json"}))
	var runs []models.Run
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "stop_ids", runs[0].Strategy)
}

func TestIdentifyPrunesRunHistory(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"db", "create", fixtureFeed}))
	for i := 0; i < 3; i++ {
		require.NoError(t, a.run(ctx, []string{"db", "identify", "--keep-runs", "2"}))
	}

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"db", "get", "runs", "-f", "json"}))
	var runs []models.Run
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestCreateWithKeyUsesDataDir(t *testing.T) {
	a, _ := newTestApp(t)

	require.NoError(t, a.run(context.Background(), []string{"db", "create", "--key", "demo", "--skip-identify", fixtureFeed}))
	assert.FileExists(t, filepath.Join(a.cfg.API.DataDir, "demo", "gtfs.db"))
}

func TestIdentifyWithSnapshotKeepsIDs(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	snap := filepath.Join(t.TempDir(), "identity.csv")

	require.NoError(t, a.run(ctx, []string{"db", "create", "--export-snapshot", snap, fixtureFeed}))
	require.FileExists(t, snap)

	// A filtered pass starts from an empty registry unless seeded.
	require.NoError(t, a.run(ctx, []string{"db", "identify", "--trip-ids", "T3"}))
	assert.Equal(t, "trip_id,pattern_id,direction_id\nT3,1,1\n", out.String())

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"db", "identify", "--trip-ids", "T3", "--snapshot", snap}))
	assert.Equal(t, "trip_id,pattern_id,direction_id\nT3,2,1\n", out.String())
}

func TestIdentifyRejectsSnapshotForRouteStrategy(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	snap := filepath.Join(t.TempDir(), "identity.json")

	require.NoError(t, a.run(ctx, []string{"db", "create", "--export-snapshot", snap, fixtureFeed}))
	err := a.run(ctx, []string{"db", "identify", "--strategy", "route_id", "--snapshot", snap})
	assert.Error(t, err)
}

func TestGetWritesOutputFile(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "stops.tsv")

	require.NoError(t, a.run(ctx, []string{"db", "create", "--skip-identify", fixtureFeed}))
	require.NoError(t, a.run(ctx, []string{"db", "get", "stops", "--word", "Alpha", "-f", "tsv", "-o", dest}))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Alpha East")
}

func TestCommandErrors(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	assert.Error(t, a.run(ctx, []string{"bogus"}))
	assert.Error(t, a.run(ctx, []string{"db"}))
	assert.Error(t, a.run(ctx, []string{"db", "create"}))
	assert.Error(t, a.run(ctx, []string{"db", "get", "patterns"}), "database does not exist yet")
	assert.Error(t, a.run(ctx, []string{"db", "create", "--kind", "line", fixtureFeed}))

	require.NoError(t, a.run(ctx, []string{"version"}))
	assert.Equal(t, version+"\n", out.String())
}
