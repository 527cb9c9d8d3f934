package patterns

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

type fakeVisits struct {
	visits   []models.Visit
	orphaned int
	err      error
}

func (f *fakeVisits) QueryVisits(ctx context.Context, filter models.VisitFilter) ([]models.Visit, error) {
	return f.visits, f.err
}

func (f *fakeVisits) CountOrphanedStopTimes(ctx context.Context, filter models.VisitFilter) (int, error) {
	return f.orphaned, nil
}

type fakeSink struct {
	calls       int
	kind        Kind
	run         models.Run
	patterns    []models.Pattern
	assignments []models.Assignment
	err         error
}

func (f *fakeSink) SavePatterns(ctx context.Context, kind Kind, run models.Run, patterns []models.Pattern, assignments []models.Assignment) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.kind, f.run, f.patterns, f.assignments = kind, run, patterns, assignments
	return nil
}

func flatten(groups ...TripGroup) []models.Visit {
	var out []models.Visit
	for _, g := range groups {
		out = append(out, g.Visits...)
	}
	return out
}

func feed() []models.Visit {
	return flatten(
		trip("T1", dirPtr(models.Outbound), "A", "B", "C"),
		trip("T2", dirPtr(models.Outbound), "A", "B", "C"),
		trip("T3", dirPtr(models.Inbound), "C", "B", "A"),
		trip("T4", nil, "A", "B", "D"),
	)
}

func TestIdentifyAssignsEveryTrip(t *testing.T) {
	id := NewIdentifier(&fakeVisits{visits: feed()}, logger.Nop())

	res, err := id.Identify(context.Background(), Options{Strategy: StopIDs{}, Kind: Course}, nil)
	require.NoError(t, err)

	assert.Equal(t, []models.Assignment{
		{TripID: "T1", PatternID: 1, Direction: models.Outbound},
		{TripID: "T2", PatternID: 1, Direction: models.Outbound},
		{TripID: "T3", PatternID: 2, Direction: models.Inbound},
		{TripID: "T4", PatternID: 3, Direction: models.Outbound},
	}, res.Assignments)
	assert.Len(t, res.Patterns, 3)
	assert.Equal(t, "course", res.Run.Kind)
	assert.Equal(t, "stop_ids", res.Run.Strategy)
	assert.NotEmpty(t, res.Run.RunID)
	assert.False(t, res.Run.Bootstrapped)

	require.Len(t, res.Snapshot, 3)
	assert.Equal(t, models.SnapshotRow{
		PatternID:   1,
		Direction:   models.Outbound,
		PatternName: "Central(Alpha~Charlie)",
		TripIDs:     "T1,T2",
		StopIDs:     "A,B,C",
		StopNames:   "Alpha,Bravo,Charlie",
	}, res.Snapshot[0])
}

func TestIdentifyStabilityRoundTrip(t *testing.T) {
	for _, s := range []Strategy{StopIDs{}, StopNames{}} {
		first, err := NewIdentifier(&fakeVisits{visits: feed()}, logger.Nop()).
			Identify(context.Background(), Options{Strategy: s}, nil)
		require.NoError(t, err)

		// Reorder the feed so first-encounter order alone would renumber.
		reordered := flatten(
			trip("T0", nil, "D", "X"),
			trip("T4", nil, "A", "B", "D"),
			trip("T3", dirPtr(models.Inbound), "C", "B", "A"),
			trip("T1", dirPtr(models.Outbound), "A", "B", "C"),
			trip("T2", dirPtr(models.Outbound), "A", "B", "C"),
		)
		second, err := NewIdentifier(&fakeVisits{visits: reordered}, logger.Nop()).
			Identify(context.Background(), Options{Strategy: s}, first.Snapshot)
		require.NoError(t, err, s.Name())
		assert.True(t, second.Run.Bootstrapped)

		want := map[string]int{}
		for _, a := range first.Assignments {
			want[a.TripID] = a.PatternID
		}
		for _, a := range second.Assignments {
			if id, ok := want[a.TripID]; ok {
				assert.Equal(t, id, a.PatternID, "%s trip %s", s.Name(), a.TripID)
			} else {
				assert.Equal(t, 4, a.PatternID, "%s new trip %s", s.Name(), a.TripID)
			}
		}
	}
}

func TestIdentifyAbortsOnMissingField(t *testing.T) {
	visits := feed()
	for i := range visits {
		if visits[i].TripID == "T3" {
			visits[i].RouteShortName = nil
		}
	}
	sink := &fakeSink{}
	id := NewIdentifier(&fakeVisits{visits: visits}, logger.Nop())

	res, err := id.Identify(context.Background(), Options{Strategy: RouteShortName{}}, nil)
	require.ErrorIs(t, err, ErrMissingRequiredField)
	assert.Nil(t, res)
	assert.Zero(t, sink.calls)
}

func TestIdentifyStrictJoins(t *testing.T) {
	src := &fakeVisits{visits: feed(), orphaned: 2}

	_, err := NewIdentifier(src, logger.Nop()).
		Identify(context.Background(), Options{Strategy: StopIDs{}, StrictJoins: true}, nil)
	assert.ErrorIs(t, err, ErrOrphanedVisits)

	res, err := NewIdentifier(src, logger.Nop()).
		Identify(context.Background(), Options{Strategy: StopIDs{}}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Assignments, 4)
}

func TestIdentifyQueryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewIdentifier(&fakeVisits{err: boom}, logger.Nop()).
		Identify(context.Background(), Options{Strategy: StopIDs{}}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestPersist(t *testing.T) {
	id := NewIdentifier(&fakeVisits{visits: feed()}, logger.Nop())
	res, err := id.Identify(context.Background(), Options{Strategy: StopIDs{}}, nil)
	require.NoError(t, err)

	sink := &fakeSink{}
	require.NoError(t, id.Persist(context.Background(), sink, res))
	assert.Equal(t, ServiceRoute, sink.kind)
	assert.Equal(t, res.Run.RunID, sink.run.RunID)
	assert.Len(t, sink.assignments, 4)

	res.Filtered = true
	assert.ErrorIs(t, id.Persist(context.Background(), sink, res), ErrFilteredPersist)
	assert.Equal(t, 1, sink.calls)
}

func TestAggregateSnapshotSplitsDivergentSequences(t *testing.T) {
	visits := []models.AssignedVisit{
		{TripID: "T1", StopID: "A", StopName: "Alpha", PatternID: 4},
		{TripID: "T1", StopID: "B", StopName: "Bravo", PatternID: 4},
		{TripID: "T2", StopID: "A", StopName: "Alpha", PatternID: 4},
		{TripID: "T2", StopID: "C", StopName: "Charlie", PatternID: 4},
		{TripID: "T3", StopID: "A", StopName: "Alpha", PatternID: 4},
		{TripID: "T3", StopID: "B", StopName: "Bravo", PatternID: 4},
		{TripID: "T0", StopID: "X", StopName: "Xray", PatternID: 1},
	}

	rows := AggregateSnapshot(visits)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].PatternID)
	assert.Equal(t, "A,B", rows[1].StopIDs)
	assert.Equal(t, "T1,T3", rows[1].TripIDs)
	assert.Equal(t, "A,C", rows[2].StopIDs)
	assert.Equal(t, "Alpha,Charlie", rows[2].StopNames)
}
