package models

import (
	"strconv"
	"time"
)

// CSV header/record pairs used by the delimited output formats.

func (Visit) CSVHeader() []string {
	return []string{"trip_id", "stop_sequence", "stop_id", "stop_name", "stop_lat", "stop_lon",
		"route_id", "route_short_name", "route_long_name", "direction_id", "arrival_time", "departure_time"}
}

func (v Visit) CSVRecord() []string {
	return []string{
		v.TripID,
		strconv.Itoa(v.StopSequence),
		v.StopID,
		v.StopName,
		formatFloat(v.StopLat),
		formatFloat(v.StopLon),
		v.RouteID,
		deref(v.RouteShortName),
		deref(v.RouteLongName),
		formatDirection(v.Direction),
		v.ArrivalTime,
		v.DepartureTime,
	}
}

func (Pattern) CSVHeader() []string {
	return []string{"pattern_id", "pattern_name", "direction_id"}
}

func (p Pattern) CSVRecord() []string {
	return []string{strconv.Itoa(p.ID), p.Name, strconv.Itoa(int(p.Direction))}
}

func (Assignment) CSVHeader() []string {
	return []string{"trip_id", "pattern_id", "direction_id"}
}

func (a Assignment) CSVRecord() []string {
	return []string{a.TripID, strconv.Itoa(a.PatternID), strconv.Itoa(int(a.Direction))}
}

func (SnapshotRow) CSVHeader() []string {
	return []string{"pattern_id", "direction_id", "pattern_name", "trip_ids", "stop_ids", "stop_names"}
}

func (r SnapshotRow) CSVRecord() []string {
	return []string{
		strconv.Itoa(r.PatternID),
		strconv.Itoa(int(r.Direction)),
		r.PatternName,
		r.TripIDs,
		r.StopIDs,
		r.StopNames,
	}
}

func (Run) CSVHeader() []string {
	return []string{"run_id", "kind", "strategy", "bootstrapped", "pattern_count", "assignment_count",
		"started_at", "finished_at"}
}

func (r Run) CSVRecord() []string {
	return []string{
		r.RunID,
		r.Kind,
		r.Strategy,
		strconv.FormatBool(r.Bootstrapped),
		strconv.Itoa(r.PatternCount),
		strconv.Itoa(r.AssignmentCount),
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
	}
}

func (Route) CSVHeader() []string {
	return []string{"route_id", "agency_id", "route_short_name", "route_long_name", "route_desc",
		"route_type", "route_url", "route_color", "route_text_color"}
}

func (r Route) CSVRecord() []string {
	return []string{r.RouteID, r.AgencyID, r.RouteShortName, r.RouteLongName, r.RouteDesc,
		strconv.Itoa(r.RouteType), r.RouteURL, r.RouteColor, r.RouteTextColor}
}

func (Trip) CSVHeader() []string {
	return []string{"trip_id", "route_id", "service_id", "trip_headsign", "trip_short_name",
		"direction_id", "block_id", "shape_id", "wheelchair_accessible", "bikes_allowed"}
}

func (t Trip) CSVRecord() []string {
	return []string{t.TripID, t.RouteID, t.ServiceID, t.TripHeadsign, t.TripShortName,
		formatDirection(t.DirectionID), t.BlockID, t.ShapeID,
		strconv.Itoa(t.WheelchairAccessible), strconv.Itoa(t.BikesAllowed)}
}

func (Stop) CSVHeader() []string {
	return []string{"stop_id", "stop_code", "stop_name", "stop_lat", "stop_lon", "zone_id",
		"location_type", "parent_station", "wheelchair_boarding", "platform_code"}
}

func (s Stop) CSVRecord() []string {
	return []string{s.StopID, s.StopCode, s.StopName, formatFloat(s.StopLat), formatFloat(s.StopLon),
		s.ZoneID, strconv.Itoa(s.LocationType), s.ParentStation, strconv.Itoa(s.WheelchairBoarding),
		s.PlatformCode}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDirection(d *Direction) string {
	if d == nil {
		return ""
	}
	return strconv.Itoa(int(*d))
}
