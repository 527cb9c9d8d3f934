package models

import (
	"fmt"
	"strings"
	"time"
)

// Direction mirrors GTFS direction_id.
type Direction int

const (
	Outbound Direction = 0
	Inbound  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

func (d Direction) Valid() bool {
	return d == Outbound || d == Inbound
}

// ParseDirection accepts "outbound"/"inbound" or the GTFS codes "0"/"1".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outbound", "0":
		return Outbound, nil
	case "inbound", "1":
		return Inbound, nil
	default:
		return Outbound, fmt.Errorf("unknown direction %q", s)
	}
}

// Visit is one stop of one trip, enriched with stop and route facts.
type Visit struct {
	TripID         string     `json:"trip_id" yaml:"trip_id"`
	StopSequence   int        `json:"stop_sequence" yaml:"stop_sequence"`
	StopID         string     `json:"stop_id" yaml:"stop_id"`
	StopName       string     `json:"stop_name" yaml:"stop_name"`
	StopLat        float64    `json:"stop_lat" yaml:"stop_lat"`
	StopLon        float64    `json:"stop_lon" yaml:"stop_lon"`
	RouteID        string     `json:"route_id" yaml:"route_id"`
	RouteShortName *string    `json:"route_short_name,omitempty" yaml:"route_short_name,omitempty"`
	RouteLongName  *string    `json:"route_long_name,omitempty" yaml:"route_long_name,omitempty"`
	Direction      *Direction `json:"direction_id,omitempty" yaml:"direction_id,omitempty"`
	ArrivalTime    string     `json:"arrival_time" yaml:"arrival_time"`
	DepartureTime  string     `json:"departure_time" yaml:"departure_time"`
}

// RouteName prefers the long name and falls back to the short name.
func (v Visit) RouteName() string {
	if v.RouteLongName != nil && *v.RouteLongName != "" {
		return *v.RouteLongName
	}
	if v.RouteShortName != nil {
		return *v.RouteShortName
	}
	return ""
}

// Pattern is a deduplicated service route or course.
type Pattern struct {
	ID        int       `json:"pattern_id" yaml:"pattern_id"`
	Name      string    `json:"pattern_name" yaml:"pattern_name"`
	Direction Direction `json:"direction_id" yaml:"direction_id"`
}

// Assignment links one trip to the pattern it resolved to.
type Assignment struct {
	TripID    string    `json:"trip_id" yaml:"trip_id"`
	PatternID int       `json:"pattern_id" yaml:"pattern_id"`
	Direction Direction `json:"direction_id" yaml:"direction_id"`
}

// SnapshotRow is one exported identity: every trip of a pattern sharing the
// same stop sequence, with ids and names comma joined.
type SnapshotRow struct {
	PatternID   int       `json:"pattern_id" yaml:"pattern_id"`
	Direction   Direction `json:"direction_id" yaml:"direction_id"`
	PatternName string    `json:"pattern_name,omitempty" yaml:"pattern_name,omitempty"`
	TripIDs     string    `json:"trip_ids" yaml:"trip_ids"`
	StopIDs     string    `json:"stop_ids" yaml:"stop_ids"`
	StopNames   string    `json:"stop_names" yaml:"stop_names"`
}

// Run records one persisted identification pass.
type Run struct {
	RunID           string    `json:"run_id" yaml:"run_id"`
	Kind            string    `json:"kind" yaml:"kind"`
	Strategy        string    `json:"strategy" yaml:"strategy"`
	Bootstrapped    bool      `json:"bootstrapped" yaml:"bootstrapped"`
	PatternCount    int       `json:"pattern_count" yaml:"pattern_count"`
	AssignmentCount int       `json:"assignment_count" yaml:"assignment_count"`
	StartedAt       time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time `json:"finished_at" yaml:"finished_at"`
}

// AssignedVisit is a visit tagged with the pattern its trip resolved to.
// Snapshot rows are aggregated from these.
type AssignedVisit struct {
	TripID       string
	StopSequence int
	StopID       string
	StopName     string
	PatternID    int
	PatternName  string
	Direction    Direction
}

// VisitFilter narrows a visit query. TripIDs wins over StopNamePrefix.
type VisitFilter struct {
	TripIDs        []string
	StopNamePrefix string
}

func (f VisitFilter) IsZero() bool {
	return len(f.TripIDs) == 0 && f.StopNamePrefix == ""
}
