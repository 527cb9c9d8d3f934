package models

import (
	"time"
)

type Agency struct {
	AgencyID       string `json:"agency_id" yaml:"agency_id"`
	AgencyName     string `json:"agency_name" yaml:"agency_name"`
	AgencyURL      string `json:"agency_url" yaml:"agency_url"`
	AgencyTimezone string `json:"agency_timezone" yaml:"agency_timezone"`
	AgencyLang     string `json:"agency_lang,omitempty" yaml:"agency_lang,omitempty"`
	AgencyPhone    string `json:"agency_phone,omitempty" yaml:"agency_phone,omitempty"`
	AgencyFareURL  string `json:"agency_fare_url,omitempty" yaml:"agency_fare_url,omitempty"`
}

type Stop struct {
	StopID             string  `json:"stop_id" yaml:"stop_id"`
	StopCode           string  `json:"stop_code,omitempty" yaml:"stop_code,omitempty"`
	StopName           string  `json:"stop_name" yaml:"stop_name"`
	StopLat            float64 `json:"stop_lat" yaml:"stop_lat"`
	StopLon            float64 `json:"stop_lon" yaml:"stop_lon"`
	ZoneID             string  `json:"zone_id,omitempty" yaml:"zone_id,omitempty"`
	LocationType       int     `json:"location_type" yaml:"location_type"`
	ParentStation      string  `json:"parent_station,omitempty" yaml:"parent_station,omitempty"`
	WheelchairBoarding int     `json:"wheelchair_boarding" yaml:"wheelchair_boarding"`
	PlatformCode       string  `json:"platform_code,omitempty" yaml:"platform_code,omitempty"`
}

type Route struct {
	RouteID        string `json:"route_id" yaml:"route_id"`
	AgencyID       string `json:"agency_id,omitempty" yaml:"agency_id,omitempty"`
	RouteShortName string `json:"route_short_name,omitempty" yaml:"route_short_name,omitempty"`
	RouteLongName  string `json:"route_long_name,omitempty" yaml:"route_long_name,omitempty"`
	RouteDesc      string `json:"route_desc,omitempty" yaml:"route_desc,omitempty"`
	RouteType      int    `json:"route_type" yaml:"route_type"`
	RouteURL       string `json:"route_url,omitempty" yaml:"route_url,omitempty"`
	RouteColor     string `json:"route_color,omitempty" yaml:"route_color,omitempty"`
	RouteTextColor string `json:"route_text_color,omitempty" yaml:"route_text_color,omitempty"`
}

type Trip struct {
	TripID               string     `json:"trip_id" yaml:"trip_id"`
	RouteID              string     `json:"route_id" yaml:"route_id"`
	ServiceID            string     `json:"service_id" yaml:"service_id"`
	TripHeadsign         string     `json:"trip_headsign,omitempty" yaml:"trip_headsign,omitempty"`
	TripShortName        string     `json:"trip_short_name,omitempty" yaml:"trip_short_name,omitempty"`
	DirectionID          *Direction `json:"direction_id,omitempty" yaml:"direction_id,omitempty"`
	BlockID              string     `json:"block_id,omitempty" yaml:"block_id,omitempty"`
	ShapeID              string     `json:"shape_id,omitempty" yaml:"shape_id,omitempty"`
	WheelchairAccessible int        `json:"wheelchair_accessible" yaml:"wheelchair_accessible"`
	BikesAllowed         int        `json:"bikes_allowed" yaml:"bikes_allowed"`
}

type StopTime struct {
	TripID            string
	ArrivalTime       string // HH:MM:SS, may exceed 24:00:00
	DepartureTime     string // HH:MM:SS, may exceed 24:00:00
	StopID            string
	StopSequence      int
	StopHeadsign      string
	PickupType        int
	DropOffType       int
	ShapeDistTraveled *float64
	Timepoint         *int
}

type Calendar struct {
	ServiceID string
	Monday    int
	Tuesday   int
	Wednesday int
	Thursday  int
	Friday    int
	Saturday  int
	Sunday    int
	StartDate time.Time
	EndDate   time.Time
}

type CalendarDate struct {
	ServiceID     string
	Date          time.Time
	ExceptionType int
}

type Shape struct {
	ShapeID           string
	ShapePtLat        float64
	ShapePtLon        float64
	ShapePtSequence   int
	ShapeDistTraveled *float64
}

type Transfer struct {
	FromStopID      string
	ToStopID        string
	TransferType    int
	MinTransferTime *int
}
