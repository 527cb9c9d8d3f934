package importer

import "fmt"

type table struct {
	name    string
	columns []string
	ddl     string
}

var tables = []table{
	{
		name:    "agency",
		columns: []string{"agency_id", "agency_name", "agency_url", "agency_timezone", "agency_lang", "agency_phone", "agency_fare_url"},
		ddl: `CREATE TABLE agency (
	agency_id TEXT NOT NULL PRIMARY KEY,
	agency_name TEXT NOT NULL,
	agency_url TEXT,
	agency_timezone TEXT NOT NULL,
	agency_lang TEXT,
	agency_phone TEXT,
	agency_fare_url TEXT
)`,
	},
	{
		name:    "stops",
		columns: []string{"stop_id", "stop_code", "stop_name", "stop_lat", "stop_lon", "zone_id", "location_type", "parent_station", "wheelchair_boarding", "platform_code"},
		ddl: `CREATE TABLE stops (
	stop_id TEXT NOT NULL PRIMARY KEY,
	stop_code TEXT,
	stop_name TEXT NOT NULL,
	stop_lat DOUBLE PRECISION NOT NULL,
	stop_lon DOUBLE PRECISION NOT NULL,
	zone_id TEXT,
	location_type INTEGER NOT NULL DEFAULT 0,
	parent_station TEXT,
	wheelchair_boarding INTEGER NOT NULL DEFAULT 0,
	platform_code TEXT
)`,
	},
	{
		name:    "routes",
		columns: []string{"route_id", "agency_id", "route_short_name", "route_long_name", "route_desc", "route_type", "route_url", "route_color", "route_text_color"},
		ddl: `CREATE TABLE routes (
	route_id TEXT NOT NULL PRIMARY KEY,
	agency_id TEXT,
	route_short_name TEXT,
	route_long_name TEXT,
	route_desc TEXT,
	route_type INTEGER NOT NULL,
	route_url TEXT,
	route_color TEXT,
	route_text_color TEXT
)`,
	},
	{
		name:    "calendar",
		columns: []string{"service_id", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "start_date", "end_date"},
		ddl: `CREATE TABLE calendar (
	service_id TEXT NOT NULL PRIMARY KEY,
	monday INTEGER NOT NULL,
	tuesday INTEGER NOT NULL,
	wednesday INTEGER NOT NULL,
	thursday INTEGER NOT NULL,
	friday INTEGER NOT NULL,
	saturday INTEGER NOT NULL,
	sunday INTEGER NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL
)`,
	},
	{
		name:    "calendar_dates",
		columns: []string{"service_id", "date", "exception_type"},
		ddl: `CREATE TABLE calendar_dates (
	service_id TEXT NOT NULL,
	date TEXT NOT NULL,
	exception_type INTEGER NOT NULL,
	PRIMARY KEY (service_id, date)
)`,
	},
	{
		name:    "shapes",
		columns: []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence", "shape_dist_traveled"},
		ddl: `CREATE TABLE shapes (
	shape_id TEXT NOT NULL,
	shape_pt_lat DOUBLE PRECISION NOT NULL,
	shape_pt_lon DOUBLE PRECISION NOT NULL,
	shape_pt_sequence INTEGER NOT NULL,
	shape_dist_traveled DOUBLE PRECISION,
	PRIMARY KEY (shape_id, shape_pt_sequence)
)`,
	},
	{
		name:    "trips",
		columns: []string{"trip_id", "route_id", "service_id", "trip_headsign", "trip_short_name", "direction_id", "block_id", "shape_id", "wheelchair_accessible", "bikes_allowed"},
		ddl: `CREATE TABLE trips (
	trip_id TEXT NOT NULL PRIMARY KEY,
	route_id TEXT NOT NULL,
	service_id TEXT NOT NULL,
	trip_headsign TEXT,
	trip_short_name TEXT,
	direction_id INTEGER,
	block_id TEXT,
	shape_id TEXT,
	wheelchair_accessible INTEGER NOT NULL DEFAULT 0,
	bikes_allowed INTEGER NOT NULL DEFAULT 0
)`,
	},
	{
		name:    "stop_times",
		columns: []string{"trip_id", "arrival_time", "departure_time", "stop_id", "stop_sequence", "stop_headsign", "pickup_type", "drop_off_type", "shape_dist_traveled", "timepoint"},
		ddl: `CREATE TABLE stop_times (
	trip_id TEXT NOT NULL,
	arrival_time TEXT,
	departure_time TEXT,
	stop_id TEXT NOT NULL,
	stop_sequence INTEGER NOT NULL,
	stop_headsign TEXT,
	pickup_type INTEGER NOT NULL DEFAULT 0,
	drop_off_type INTEGER NOT NULL DEFAULT 0,
	shape_dist_traveled DOUBLE PRECISION,
	timepoint INTEGER,
	PRIMARY KEY (trip_id, stop_sequence)
)`,
	},
	{
		name:    "transfers",
		columns: []string{"from_stop_id", "to_stop_id", "transfer_type", "min_transfer_time"},
		ddl: `CREATE TABLE transfers (
	from_stop_id TEXT NOT NULL,
	to_stop_id TEXT NOT NULL,
	transfer_type INTEGER NOT NULL,
	min_transfer_time INTEGER
)`,
	},
}

var indexes = []string{
	"CREATE INDEX idx_stop_times_stop_id ON stop_times (stop_id)",
	"CREATE INDEX idx_trips_route_id ON trips (route_id)",
	"CREATE INDEX idx_stops_stop_name ON stops (stop_name)",
}

func tableByName(name string) table {
	for _, t := range tables {
		if t.name == name {
			return t
		}
	}
	panic(fmt.Sprintf("importer: unknown table %q", name))
}

// dropStatements drops children before parents.
func dropStatements() []string {
	stmts := make([]string, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+tables[i].name)
	}
	return stmts
}

func createStatements() []string {
	stmts := make([]string, 0, len(tables)+len(indexes))
	for _, t := range tables {
		stmts = append(stmts, t.ddl)
	}
	return append(stmts, indexes...)
}
