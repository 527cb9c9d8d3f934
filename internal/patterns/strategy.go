package patterns

import (
	"fmt"
	"strings"

	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// Strategy derives the deduplication key of a trip.
type Strategy interface {
	Name() string
	DeriveKey(group TripGroup) (string, error)
}

// SnapshotStrategy is a Strategy whose keys can be rebuilt from an exported
// snapshot row. Only the stop-based strategies qualify.
type SnapshotStrategy interface {
	Strategy
	SnapshotKey(row models.SnapshotRow) string
}

type (
	StopIDs        struct{}
	StopNames      struct{}
	RouteID        struct{}
	RouteShortName struct{}
	RouteLongName  struct{}
)

var strategies = []Strategy{StopIDs{}, StopNames{}, RouteID{}, RouteShortName{}, RouteLongName{}}

// StrategyNames lists the accepted strategy names.
func StrategyNames() []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name()
	}
	return names
}

func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range strategies {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown identify strategy %q (want one of %s)",
		name, strings.Join(StrategyNames(), ", "))
}

func (StopIDs) Name() string { return "stop_ids" }

func (s StopIDs) DeriveKey(group TripGroup) (string, error) {
	if len(group.Visits) == 0 {
		return "", &EmptyTripGroupError{TripID: group.TripID}
	}
	ids := make([]string, len(group.Visits))
	for i, v := range group.Visits {
		ids[i] = v.StopID
	}
	return strings.Join(ids, ","), nil
}

func (StopIDs) SnapshotKey(row models.SnapshotRow) string { return row.StopIDs }

func (StopNames) Name() string { return "stop_names" }

func (s StopNames) DeriveKey(group TripGroup) (string, error) {
	if len(group.Visits) == 0 {
		return "", &EmptyTripGroupError{TripID: group.TripID}
	}
	names := make([]string, len(group.Visits))
	for i, v := range group.Visits {
		names[i] = v.StopName
	}
	return strings.Join(names, ","), nil
}

func (StopNames) SnapshotKey(row models.SnapshotRow) string { return row.StopNames }

func (RouteID) Name() string { return "route_id" }

func (RouteID) DeriveKey(group TripGroup) (string, error) {
	if len(group.Visits) == 0 {
		return "", &EmptyTripGroupError{TripID: group.TripID}
	}
	return group.First().RouteID, nil
}

func (RouteShortName) Name() string { return "route_short_name" }

func (s RouteShortName) DeriveKey(group TripGroup) (string, error) {
	if len(group.Visits) == 0 {
		return "", &EmptyTripGroupError{TripID: group.TripID}
	}
	first := group.First()
	if first.RouteShortName == nil {
		return "", &MissingFieldError{Strategy: s.Name(), TripID: group.TripID, RouteID: first.RouteID, Field: "route_short_name"}
	}
	return *first.RouteShortName, nil
}

func (RouteLongName) Name() string { return "route_long_name" }

func (s RouteLongName) DeriveKey(group TripGroup) (string, error) {
	if len(group.Visits) == 0 {
		return "", &EmptyTripGroupError{TripID: group.TripID}
	}
	first := group.First()
	if first.RouteLongName == nil {
		return "", &MissingFieldError{Strategy: s.Name(), TripID: group.TripID, RouteID: first.RouteID, Field: "route_long_name"}
	}
	return *first.RouteLongName, nil
}
