package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// QueryRoutes lists routes, or the single route routeID when set.
func (s *Store) QueryRoutes(ctx context.Context, routeID string) ([]models.Route, error) {
	query := `SELECT route_id, agency_id, route_short_name, route_long_name, route_desc,
		route_type, route_url, route_color, route_text_color FROM routes`
	var args []interface{}
	if routeID != "" {
		query += " WHERE route_id = ?"
		args = append(args, routeID)
	}
	query += " ORDER BY route_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query routes", err)
	}
	defer rows.Close()

	var out []models.Route
	for rows.Next() {
		var (
			r                                       models.Route
			agency, short, long, desc, url, c, text sql.NullString
		)
		if err := rows.Scan(&r.RouteID, &agency, &short, &long, &desc, &r.RouteType, &url, &c, &text); err != nil {
			return nil, wrap("scan route", err)
		}
		r.AgencyID, r.RouteShortName, r.RouteLongName = agency.String, short.String, long.String
		r.RouteDesc, r.RouteURL, r.RouteColor, r.RouteTextColor = desc.String, url.String, c.String, text.String
		out = append(out, r)
	}
	return out, wrap("query routes", rows.Err())
}

// TripFilter narrows QueryTrips. StopID wins over RouteID.
type TripFilter struct {
	RouteID string
	StopID  string
}

func (s *Store) QueryTrips(ctx context.Context, filter TripFilter) ([]models.Trip, error) {
	query := `SELECT t.trip_id, t.route_id, t.service_id, t.trip_headsign, t.trip_short_name,
		t.direction_id, t.block_id, t.shape_id, t.wheelchair_accessible, t.bikes_allowed
		FROM trips t`
	var args []interface{}
	switch {
	case filter.StopID != "":
		query += " WHERE t.trip_id IN (SELECT trip_id FROM stop_times WHERE stop_id = ?)"
		args = append(args, filter.StopID)
	case filter.RouteID != "":
		query += " WHERE t.route_id = ?"
		args = append(args, filter.RouteID)
	}
	query += " ORDER BY t.trip_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query trips", err)
	}
	defer rows.Close()

	var out []models.Trip
	for rows.Next() {
		var (
			t                                   models.Trip
			headsign, shortName, block, shapeID sql.NullString
			direction                           sql.NullInt64
		)
		if err := rows.Scan(&t.TripID, &t.RouteID, &t.ServiceID, &headsign, &shortName,
			&direction, &block, &shapeID, &t.WheelchairAccessible, &t.BikesAllowed); err != nil {
			return nil, wrap("scan trip", err)
		}
		t.TripHeadsign, t.TripShortName, t.BlockID, t.ShapeID = headsign.String, shortName.String, block.String, shapeID.String
		if direction.Valid {
			d := models.Direction(direction.Int64)
			t.DirectionID = &d
		}
		out = append(out, t)
	}
	return out, wrap("query trips", rows.Err())
}

// QueryStops lists stops whose name contains word, or all stops when empty.
func (s *Store) QueryStops(ctx context.Context, word string) ([]models.Stop, error) {
	query := `SELECT stop_id, stop_code, stop_name, stop_lat, stop_lon, zone_id,
		location_type, parent_station, wheelchair_boarding, platform_code FROM stops`
	var args []interface{}
	if word = strings.TrimSpace(word); word != "" {
		query += ` WHERE stop_name LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscape(word)+"%")
	}
	query += " ORDER BY stop_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query stops", err)
	}
	defer rows.Close()

	var out []models.Stop
	for rows.Next() {
		var (
			st                           models.Stop
			code, zone, parent, platform sql.NullString
		)
		if err := rows.Scan(&st.StopID, &code, &st.StopName, &st.StopLat, &st.StopLon, &zone,
			&st.LocationType, &parent, &st.WheelchairBoarding, &platform); err != nil {
			return nil, wrap("scan stop", err)
		}
		st.StopCode, st.ZoneID, st.ParentStation, st.PlatformCode = code.String, zone.String, parent.String, platform.String
		out = append(out, st)
	}
	return out, wrap("query stops", rows.Err())
}
