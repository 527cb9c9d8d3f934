package patterns

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredField is returned when a route-based strategy meets a
	// trip whose route lacks the field the strategy keys on.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrEmptyTripGroup is returned when a trip resolved to no visits.
	ErrEmptyTripGroup = errors.New("empty trip group")

	// ErrSnapshotUnsupported is returned when a snapshot is supplied for a
	// strategy whose keys cannot be rebuilt from stop ids or stop names.
	ErrSnapshotUnsupported = errors.New("strategy cannot be bootstrapped from a snapshot")

	// ErrInvalidSnapshot is returned for snapshot rows that cannot seed a registry.
	ErrInvalidSnapshot = errors.New("invalid snapshot row")

	// ErrOrphanedVisits is returned in strict mode when stop times reference
	// trips, routes or stops that do not exist.
	ErrOrphanedVisits = errors.New("stop times reference missing trips, routes or stops")
)

type MissingFieldError struct {
	Strategy string
	TripID   string
	RouteID  string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("trip %s: route %s has no %s (strategy %s): %v",
		e.TripID, e.RouteID, e.Field, e.Strategy, ErrMissingRequiredField)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingRequiredField
}

type EmptyTripGroupError struct {
	TripID string
}

func (e *EmptyTripGroupError) Error() string {
	return fmt.Sprintf("trip %s: %v", e.TripID, ErrEmptyTripGroup)
}

func (e *EmptyTripGroupError) Unwrap() error {
	return ErrEmptyTripGroup
}
