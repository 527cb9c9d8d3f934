package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

const visitsQuery = `
	SELECT st.trip_id, st.stop_sequence, st.stop_id, s.stop_name, s.stop_lat, s.stop_lon,
		t.route_id, r.route_short_name, r.route_long_name, t.direction_id,
		st.arrival_time, st.departure_time
	FROM stop_times st
	JOIN trips t ON t.trip_id = st.trip_id
	JOIN routes r ON r.route_id = t.route_id
	JOIN stops s ON s.stop_id = st.stop_id`

const orphansQuery = `
	SELECT COUNT(*)
	FROM stop_times st
	LEFT JOIN trips t ON t.trip_id = st.trip_id
	LEFT JOIN routes r ON r.route_id = t.route_id
	LEFT JOIN stops s ON s.stop_id = st.stop_id
	WHERE (t.trip_id IS NULL OR r.route_id IS NULL OR s.stop_id IS NULL)`

// visitFilterClause renders filter as SQL conditions. Trip ids take
// precedence over the stop name prefix.
func visitFilterClause(filter models.VisitFilter) (string, []interface{}) {
	switch {
	case len(filter.TripIDs) > 0:
		return inClause("st.trip_id", len(filter.TripIDs)), stringArgs(filter.TripIDs)
	case filter.StopNamePrefix != "":
		return `s.stop_name LIKE ? ESCAPE '\'`, []interface{}{likeEscape(filter.StopNamePrefix) + "%"}
	default:
		return "", nil
	}
}

// QueryVisits returns the enriched visits matching filter ordered by trip
// and stop_sequence. Stop times whose trip, route or stop is missing are
// left out by the join.
func (s *Store) QueryVisits(ctx context.Context, filter models.VisitFilter) ([]models.Visit, error) {
	query := visitsQuery
	cond, args := visitFilterClause(filter)
	if cond != "" {
		query += "\n\tWHERE " + cond
	}
	query += "\n\tORDER BY st.trip_id, st.stop_sequence"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query visits", err)
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		var (
			v                   models.Visit
			shortName, longName sql.NullString
			direction           sql.NullInt64
			arrival, departure  sql.NullString
		)
		if err := rows.Scan(&v.TripID, &v.StopSequence, &v.StopID, &v.StopName, &v.StopLat, &v.StopLon,
			&v.RouteID, &shortName, &longName, &direction, &arrival, &departure); err != nil {
			return nil, wrap("scan visit", err)
		}
		v.RouteShortName = nullStringPtr(shortName)
		v.RouteLongName = nullStringPtr(longName)
		if direction.Valid {
			d := models.Direction(direction.Int64)
			v.Direction = &d
		}
		v.ArrivalTime = arrival.String
		v.DepartureTime = departure.String
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("query visits", err)
	}

	s.logger.Debug("Queried visits",
		"trip_ids", len(filter.TripIDs),
		"stop_name_prefix", filter.StopNamePrefix,
		"visits", len(visits))

	return visits, nil
}

// CountOrphanedStopTimes counts the stop_times rows QueryVisits would drop
// for filter because their trip, route or stop does not exist.
func (s *Store) CountOrphanedStopTimes(ctx context.Context, filter models.VisitFilter) (int, error) {
	query := orphansQuery
	cond, args := visitFilterClause(filter)
	if cond != "" {
		query += " AND " + cond
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrap("count orphaned stop times", fmt.Errorf("scanning count: %w", err))
	}
	return n, nil
}
