package parser

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

type collected struct {
	stops     []*models.Stop
	routes    []*models.Route
	trips     []*models.Trip
	stopTimes []*models.StopTime
	calendars []*models.Calendar
	files     map[string]int
}

func collector() (*collected, ParseCallbacks) {
	c := &collected{files: map[string]int{}}
	return c, ParseCallbacks{
		OnStop:     func(s *models.Stop) error { c.stops = append(c.stops, s); return nil },
		OnRoute:    func(r *models.Route) error { c.routes = append(c.routes, r); return nil },
		OnTrip:     func(t *models.Trip) error { c.trips = append(c.trips, t); return nil },
		OnStopTime: func(st *models.StopTime) error { c.stopTimes = append(c.stopTimes, st); return nil },
		OnCalendar: func(cal *models.Calendar) error { c.calendars = append(c.calendars, cal); return nil },
		OnFileComplete: func(name string, n int) error {
			c.files[name] = n
			return nil
		},
	}
}

func TestParseFixtureDirectory(t *testing.T) {
	c, cb := collector()
	err := New(logger.Nop()).Parse(context.Background(), "../testdata/feed", cb)
	require.NoError(t, err)

	require.Len(t, c.stops, 5)
	assert.Equal(t, "S1", c.stops[0].StopID, "BOM must not leak into the first header")
	assert.Equal(t, "Alpha", c.stops[0].StopName)
	assert.InDelta(t, 35.681, c.stops[0].StopLat, 1e-9)

	require.Len(t, c.routes, 3)
	assert.Equal(t, "", c.routes[1].RouteLongName)

	require.Len(t, c.trips, 5)
	require.NotNil(t, c.trips[2].DirectionID)
	assert.Equal(t, models.Inbound, *c.trips[2].DirectionID)
	assert.Nil(t, c.trips[3].DirectionID)

	assert.Len(t, c.stopTimes, 16)
	assert.Equal(t, "24:10:00", c.stopTimes[8].ArrivalTime)
	assert.Equal(t, 16, c.files["stop_times.txt"])
	assert.Len(t, c.calendars, 1)
}

func TestParseFSNestedFolderAndMissingOptionalFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"gtfs/stops.txt":      {Data: []byte("stop_id,stop_name,stop_lat,stop_lon\nS1,Alpha,1,2\n")},
		"gtfs/routes.txt":     {Data: []byte("route_id,route_short_name,route_type\nR1,C1,3\n")},
		"gtfs/trips.txt":      {Data: []byte("route_id,service_id,trip_id\nR1,WK,T1\n")},
		"gtfs/stop_times.txt": {Data: []byte("trip_id,arrival_time,departure_time,stop_id,stop_sequence,shape_dist_traveled\nT1,08:00:00,08:00:00,S1,1,\n")},
	}

	c, cb := collector()
	require.NoError(t, New(logger.Nop()).ParseFS(context.Background(), fsys, cb))

	require.Len(t, c.stopTimes, 1)
	assert.Nil(t, c.stopTimes[0].ShapeDistTraveled)
	assert.Equal(t, "C1", c.routes[0].RouteShortName)
	_, parsedAgency := c.files["agency.txt"]
	assert.False(t, parsedAgency)
}

func TestParseTripDirectionOutOfRangeIsAbsent(t *testing.T) {
	fsys := fstest.MapFS{
		"stops.txt":      {Data: []byte("stop_id,stop_name\nS1,Alpha\n")},
		"routes.txt":     {Data: []byte("route_id,route_type\nR1,3\n")},
		"trips.txt":      {Data: []byte("route_id,service_id,trip_id,direction_id\nR1,WK,T1,0\nR1,WK,T2,1\nR1,WK,T3,2\nR1,WK,T4,-1\nR1,WK,T5,\n")},
		"stop_times.txt": {Data: []byte("trip_id,arrival_time,departure_time,stop_id,stop_sequence\n")},
	}

	c, cb := collector()
	require.NoError(t, New(logger.Nop()).ParseFS(context.Background(), fsys, cb))
	require.Len(t, c.trips, 5)

	require.NotNil(t, c.trips[0].DirectionID)
	assert.Equal(t, models.Outbound, *c.trips[0].DirectionID)
	require.NotNil(t, c.trips[1].DirectionID)
	assert.Equal(t, models.Inbound, *c.trips[1].DirectionID)
	for _, trip := range c.trips[2:] {
		assert.Nil(t, trip.DirectionID, trip.TripID)
	}
}

func TestParseFSRequiresStopTimes(t *testing.T) {
	fsys := fstest.MapFS{
		"stops.txt":  {Data: []byte("stop_id,stop_name\n")},
		"routes.txt": {Data: []byte("route_id\n")},
		"trips.txt":  {Data: []byte("trip_id\n")},
	}
	_, cb := collector()
	err := New(logger.Nop()).ParseFS(context.Background(), fsys, cb)
	assert.ErrorContains(t, err, "stop_times.txt")
}

func TestParseZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	files := map[string]string{
		"stops.txt":      "stop_id,stop_name,stop_lat,stop_lon\nS1,Alpha,1,2\nS2,Bravo,3,4\n",
		"routes.txt":     "route_id,route_long_name,route_type\nR1,Central,3\n",
		"trips.txt":      "route_id,service_id,trip_id,direction_id\nR1,WK,T1,1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\nT1,08:00:00,08:00:00,S1,1\nT1,08:05:00,08:05:00,S2,2\n",
	}
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	c, cb := collector()
	require.NoError(t, New(logger.Nop()).Parse(context.Background(), path, cb))
	assert.Len(t, c.stops, 2)
	assert.Len(t, c.stopTimes, 2)
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, cb := collector()
	err := New(logger.Nop()).Parse(ctx, "../testdata/feed", cb)
	assert.ErrorIs(t, err, context.Canceled)
}
