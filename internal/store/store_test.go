package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diamant-gtfs/internal/common/db"
	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/internal/gtfs-static/importer"
	"github.com/diamant-gtfs/internal/patterns"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "gtfs.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = importer.NewImporter(database, 100).Import(context.Background(), "../gtfs-static/testdata/feed")
	require.NoError(t, err)
	return New(database)
}

func tripIDs(visits []models.Visit) []string {
	var ids []string
	for _, v := range visits {
		if len(ids) == 0 || ids[len(ids)-1] != v.TripID {
			ids = append(ids, v.TripID)
		}
	}
	return ids
}

func TestQueryVisitsOrderAndEnrichment(t *testing.T) {
	s := newTestStore(t)

	visits, err := s.QueryVisits(context.Background(), models.VisitFilter{})
	require.NoError(t, err)

	// TX has no trip row and S9 no stop row; both are dropped by the join.
	assert.Len(t, visits, 14)
	assert.Equal(t, []string{"T1", "T2", "T3", "T4", "T5"}, tripIDs(visits))

	t3 := visits[6:9]
	assert.Equal(t, []int{1, 2, 3}, []int{t3[0].StopSequence, t3[1].StopSequence, t3[2].StopSequence})
	assert.Equal(t, "Charlie", t3[0].StopName)
	assert.Equal(t, "24:10:00", t3[2].ArrivalTime)
	require.NotNil(t, t3[0].Direction)
	assert.Equal(t, models.Inbound, *t3[0].Direction)
	require.NotNil(t, t3[0].RouteLongName)
	assert.Equal(t, "Central", *t3[0].RouteLongName)

	t4 := visits[9]
	assert.Nil(t, t4.Direction)
	assert.Nil(t, t4.RouteLongName)
	require.NotNil(t, t4.RouteShortName)
	assert.Equal(t, "E2", *t4.RouteShortName)

	t5 := visits[12]
	assert.Nil(t, t5.RouteShortName)
}

func TestQueryVisitsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	visits, err := s.QueryVisits(ctx, models.VisitFilter{TripIDs: []string{"T3", "T1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T3"}, tripIDs(visits))
	assert.Len(t, visits, 6)

	visits, err = s.QueryVisits(ctx, models.VisitFilter{StopNamePrefix: "Alph"})
	require.NoError(t, err)
	assert.Len(t, visits, 5)
	for _, v := range visits {
		assert.Equal(t, "Alpha", v.StopName)
	}

	visits, err = s.QueryVisits(ctx, models.VisitFilter{TripIDs: []string{"T5"}, StopNamePrefix: "Alph"})
	require.NoError(t, err)
	assert.Len(t, visits, 2, "trip ids take precedence")

	visits, err = s.QueryVisits(ctx, models.VisitFilter{StopNamePrefix: "%"})
	require.NoError(t, err)
	assert.Empty(t, visits, "wildcards match literally")
}

func TestCountOrphanedStopTimes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.CountOrphanedStopTimes(ctx, models.VisitFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountOrphanedStopTimes(ctx, models.VisitFilter{TripIDs: []string{"T1", "T2"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSavePatternsAndSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := patterns.NewIdentifier(s, logger.Nop())

	first, err := id.Identify(ctx, patterns.Options{Strategy: patterns.StopIDs{}, Kind: patterns.Course}, nil)
	require.NoError(t, err)
	require.NoError(t, id.Persist(ctx, s, first))

	stored, err := s.QueryPatterns(ctx, patterns.Course)
	require.NoError(t, err)
	assert.Equal(t, first.Patterns, stored)

	assignments, err := s.QueryAssignments(ctx, patterns.Course)
	require.NoError(t, err)
	assert.Equal(t, first.Assignments, assignments)

	snapshot, err := s.QueryIdentitySnapshot(ctx, patterns.Course)
	require.NoError(t, err)
	assert.Equal(t, first.Snapshot, snapshot)

	second, err := id.Identify(ctx, patterns.Options{Strategy: patterns.StopIDs{}, Kind: patterns.Course}, snapshot)
	require.NoError(t, err)
	assert.Equal(t, first.Assignments, second.Assignments)
	require.NoError(t, id.Persist(ctx, s, second))

	runs, err := s.QueryRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest, err := s.LatestRun(ctx, "course")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Bootstrapped)
	assert.Equal(t, len(second.Assignments), latest.AssignmentCount)

	none, err := s.LatestRun(ctx, "service_route")
	require.NoError(t, err)
	assert.Nil(t, none)

	other, err := s.QueryPatterns(ctx, patterns.ServiceRoute)
	require.NoError(t, err)
	assert.Empty(t, other, "kinds are stored separately")
}

func TestIdentifyRouteShortNameAbortsWithoutPersisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))

	id := patterns.NewIdentifier(s, logger.Nop())
	_, err := id.Identify(ctx, patterns.Options{Strategy: patterns.RouteShortName{}}, nil)
	require.ErrorIs(t, err, patterns.ErrMissingRequiredField)

	var mf *patterns.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "T5", mf.TripID)
	assert.Equal(t, "R3", mf.RouteID)

	stored, err := s.QueryPatterns(ctx, patterns.ServiceRoute)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSavePatternsRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := models.Run{RunID: "r1", Kind: "service_route", Strategy: "stop_ids", StartedAt: time.Now(), FinishedAt: time.Now()}
	pats := []models.Pattern{{ID: 1, Name: "a", Direction: models.Outbound}}
	require.NoError(t, s.SavePatterns(ctx, patterns.ServiceRoute, run, pats, nil))

	// Duplicate primary key fails the insert after the delete ran.
	dup := []models.Pattern{{ID: 2, Name: "b"}, {ID: 2, Name: "b"}}
	run.RunID = "r2"
	err := s.SavePatterns(ctx, patterns.ServiceRoute, run, dup, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)

	stored, err := s.QueryPatterns(ctx, patterns.ServiceRoute)
	require.NoError(t, err)
	assert.Equal(t, pats, stored)
}

func TestPruneRunsKeepsNewestPerKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		at := base.Add(time.Duration(i) * time.Hour)
		run := models.Run{RunID: id, Kind: "service_route", Strategy: "stop_ids", StartedAt: at, FinishedAt: at}
		require.NoError(t, s.SavePatterns(ctx, patterns.ServiceRoute, run, nil, nil))
	}
	course := models.Run{RunID: "c1", Kind: "course", Strategy: "stop_ids", StartedAt: base, FinishedAt: base}
	require.NoError(t, s.SavePatterns(ctx, patterns.Course, course, nil, nil))

	deleted, err := s.PruneRuns(ctx, "service_route", 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = s.PruneRuns(ctx, "service_route", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	runs, err := s.QueryRuns(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	assert.ElementsMatch(t, []string{"r3", "c1"}, ids)
}

func TestReadsBeforeAnyPassAreEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pats, err := s.QueryPatterns(ctx, patterns.ServiceRoute)
	require.NoError(t, err)
	assert.Empty(t, pats)

	assignments, err := s.QueryAssignments(ctx, patterns.Course)
	require.NoError(t, err)
	assert.Empty(t, assignments)

	snapshot, err := s.QueryIdentitySnapshot(ctx, patterns.ServiceRoute)
	require.NoError(t, err)
	assert.Empty(t, snapshot)

	runs, err := s.QueryRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	latest, err := s.LatestRun(ctx, "service_route")
	require.NoError(t, err)
	assert.Nil(t, latest)

	exists, err := s.tableExists(ctx, "pattern_runs")
	require.NoError(t, err)
	assert.False(t, exists, "reads do not create tables")
}

func TestUnknownKind(t *testing.T) {
	s := newTestStore(t)
	_, err := s.QueryPatterns(context.Background(), patterns.Kind("line"))
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.ErrorIs(t, err, ErrStore)
}

func TestCatalogueQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	routes, err := s.QueryRoutes(ctx, "")
	require.NoError(t, err)
	assert.Len(t, routes, 3)

	routes, err = s.QueryRoutes(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "Central", routes[0].RouteLongName)

	trips, err := s.QueryTrips(ctx, TripFilter{RouteID: "R1"})
	require.NoError(t, err)
	assert.Len(t, trips, 3)

	trips, err = s.QueryTrips(ctx, TripFilter{StopID: "S4"})
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "T4", trips[0].TripID)
	assert.Nil(t, trips[0].DirectionID)

	stops, err := s.QueryStops(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, stops, 2, "LIKE is case-insensitive for ASCII in sqlite")

	stops, err = s.QueryStops(ctx, "")
	require.NoError(t, err)
	assert.Len(t, stops, 5)
}
