package parser

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// Files in the order they are parsed, parents before children.
var parseOrder = []string{
	"agency.txt",
	"stops.txt",
	"routes.txt",
	"calendar.txt",
	"calendar_dates.txt",
	"shapes.txt",
	"trips.txt",
	"stop_times.txt",
	"transfers.txt",
}

// Required files must be present in every feed.
var required = map[string]bool{
	"stops.txt":      true,
	"routes.txt":     true,
	"trips.txt":      true,
	"stop_times.txt": true,
}

type Parser struct {
	logger logger.Logger
}

func New(logger logger.Logger) *Parser {
	return &Parser{logger: logger}
}

type ParseCallbacks struct {
	OnAgency       func(agency *models.Agency) error
	OnStop         func(stop *models.Stop) error
	OnRoute        func(route *models.Route) error
	OnTrip         func(trip *models.Trip) error
	OnStopTime     func(stopTime *models.StopTime) error
	OnCalendar     func(calendar *models.Calendar) error
	OnCalendarDate func(calendarDate *models.CalendarDate) error
	OnShape        func(shape *models.Shape) error
	OnTransfer     func(transfer *models.Transfer) error
	OnFileComplete func(fileName string, records int) error
}

// Parse reads a feed from a directory or a zip archive.
func (p *Parser) Parse(ctx context.Context, source string, callbacks ParseCallbacks) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("opening feed: %w", err)
	}
	if info.IsDir() {
		p.logger.Info("Parsing GTFS directory", "path", source)
		return p.ParseFS(ctx, os.DirFS(source), callbacks)
	}
	return p.ParseZip(ctx, source, callbacks)
}

func (p *Parser) ParseZip(ctx context.Context, zipPath string, callbacks ParseCallbacks) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening zip file: %w", err)
	}
	defer reader.Close()

	p.logger.Info("Parsing GTFS zip file", "path", zipPath, "files", len(reader.File))
	return p.ParseFS(ctx, reader, callbacks)
}

// ParseFS parses the feed at the root of fsys. A feed zipped together with
// its enclosing folder is detected and parsed from that folder.
func (p *Parser) ParseFS(ctx context.Context, fsys fs.FS, callbacks ParseCallbacks) error {
	root, err := feedRoot(fsys)
	if err != nil {
		return err
	}
	if root != "." {
		p.logger.Info("Detected nested GTFS folder", "folder", root)
		if fsys, err = fs.Sub(fsys, root); err != nil {
			return fmt.Errorf("opening %s: %w", root, err)
		}
	}

	for _, fileName := range parseOrder {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := fsys.Open(fileName)
		if err != nil {
			if required[fileName] {
				return fmt.Errorf("required file %s: %w", fileName, err)
			}
			p.logger.Debug("File not found in feed", "file", fileName)
			continue
		}

		err = p.parseFile(fileName, f, callbacks)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", fileName, err)
		}
	}

	p.logger.Info("GTFS parsing completed successfully")
	return nil
}

func feedRoot(fsys fs.FS) (string, error) {
	if _, err := fs.Stat(fsys, "stop_times.txt"); err == nil {
		return ".", nil
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", fmt.Errorf("listing feed: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(fsys, path.Join(e.Name(), "stop_times.txt")); err == nil {
			return e.Name(), nil
		}
	}
	return ".", nil
}

func (p *Parser) parseFile(fileName string, r io.Reader, callbacks ParseCallbacks) error {
	p.logger.Debug("Parsing file", "name", fileName)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		p.logger.Warn("Empty file", "name", fileName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	headerMap := make(map[string]int)
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headerMap[strings.TrimSpace(h)] = i
	}
	rec := record{header: headerMap}

	count := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading record: %w", err)
		}
		rec.values = row

		switch fileName {
		case "agency.txt":
			if callbacks.OnAgency != nil {
				if err := callbacks.OnAgency(rec.agency()); err != nil {
					return err
				}
			}
		case "stops.txt":
			if callbacks.OnStop != nil {
				if err := callbacks.OnStop(rec.stop()); err != nil {
					return err
				}
			}
		case "routes.txt":
			if callbacks.OnRoute != nil {
				if err := callbacks.OnRoute(rec.route()); err != nil {
					return err
				}
			}
		case "trips.txt":
			if callbacks.OnTrip != nil {
				if err := callbacks.OnTrip(rec.trip()); err != nil {
					return err
				}
			}
		case "stop_times.txt":
			if callbacks.OnStopTime != nil {
				if err := callbacks.OnStopTime(rec.stopTime()); err != nil {
					return err
				}
			}
		case "calendar.txt":
			if callbacks.OnCalendar != nil {
				calendar, err := rec.calendar()
				if err != nil {
					p.logger.Warn("Failed to parse calendar record", "error", err)
					continue
				}
				if err := callbacks.OnCalendar(calendar); err != nil {
					return err
				}
			}
		case "calendar_dates.txt":
			if callbacks.OnCalendarDate != nil {
				calendarDate, err := rec.calendarDate()
				if err != nil {
					p.logger.Warn("Failed to parse calendar_date record", "error", err)
					continue
				}
				if err := callbacks.OnCalendarDate(calendarDate); err != nil {
					return err
				}
			}
		case "shapes.txt":
			if callbacks.OnShape != nil {
				if err := callbacks.OnShape(rec.shape()); err != nil {
					return err
				}
			}
		case "transfers.txt":
			if callbacks.OnTransfer != nil {
				if err := callbacks.OnTransfer(rec.transfer()); err != nil {
					return err
				}
			}
		}

		count++
		if count%100000 == 0 {
			p.logger.Debug("Progress", "file", fileName, "records", count)
		}
	}

	p.logger.Info("File parsed", "name", fileName, "records", count)

	if callbacks.OnFileComplete != nil {
		if err := callbacks.OnFileComplete(fileName, count); err != nil {
			return fmt.Errorf("file complete callback: %w", err)
		}
	}

	return nil
}

// record reads header-indexed values from one CSV row.
type record struct {
	header map[string]int
	values []string
}

func (r record) getString(field string) string {
	if idx, ok := r.header[field]; ok && idx < len(r.values) {
		return strings.TrimSpace(r.values[idx])
	}
	return ""
}

func (r record) getInt(field string, defaultVal int) int {
	val, err := strconv.Atoi(r.getString(field))
	if err != nil {
		return defaultVal
	}
	return val
}

func (r record) getFloat(field string, defaultVal float64) float64 {
	val, err := strconv.ParseFloat(r.getString(field), 64)
	if err != nil {
		return defaultVal
	}
	return val
}

func (r record) getOptionalInt(field string) *int {
	val, err := strconv.Atoi(r.getString(field))
	if err != nil {
		return nil
	}
	return &val
}

func (r record) getOptionalFloat(field string) *float64 {
	val, err := strconv.ParseFloat(r.getString(field), 64)
	if err != nil {
		return nil
	}
	return &val
}

func (r record) agency() *models.Agency {
	return &models.Agency{
		AgencyID:       r.getString("agency_id"),
		AgencyName:     r.getString("agency_name"),
		AgencyURL:      r.getString("agency_url"),
		AgencyTimezone: r.getString("agency_timezone"),
		AgencyLang:     r.getString("agency_lang"),
		AgencyPhone:    r.getString("agency_phone"),
		AgencyFareURL:  r.getString("agency_fare_url"),
	}
}

func (r record) stop() *models.Stop {
	return &models.Stop{
		StopID:             r.getString("stop_id"),
		StopCode:           r.getString("stop_code"),
		StopName:           r.getString("stop_name"),
		StopLat:            r.getFloat("stop_lat", 0),
		StopLon:            r.getFloat("stop_lon", 0),
		ZoneID:             r.getString("zone_id"),
		LocationType:       r.getInt("location_type", 0),
		ParentStation:      r.getString("parent_station"),
		WheelchairBoarding: r.getInt("wheelchair_boarding", 0),
		PlatformCode:       r.getString("platform_code"),
	}
}

func (r record) route() *models.Route {
	return &models.Route{
		RouteID:        r.getString("route_id"),
		AgencyID:       r.getString("agency_id"),
		RouteShortName: r.getString("route_short_name"),
		RouteLongName:  r.getString("route_long_name"),
		RouteDesc:      r.getString("route_desc"),
		RouteType:      r.getInt("route_type", 0),
		RouteURL:       r.getString("route_url"),
		RouteColor:     r.getString("route_color"),
		RouteTextColor: r.getString("route_text_color"),
	}
}

func (r record) trip() *models.Trip {
	// direction_id outside 0/1 is treated as absent.
	var direction *models.Direction
	if d := r.getOptionalInt("direction_id"); d != nil {
		if dir := models.Direction(*d); dir.Valid() {
			direction = &dir
		}
	}
	return &models.Trip{
		TripID:               r.getString("trip_id"),
		RouteID:              r.getString("route_id"),
		ServiceID:            r.getString("service_id"),
		TripHeadsign:         r.getString("trip_headsign"),
		TripShortName:        r.getString("trip_short_name"),
		DirectionID:          direction,
		BlockID:              r.getString("block_id"),
		ShapeID:              r.getString("shape_id"),
		WheelchairAccessible: r.getInt("wheelchair_accessible", 0),
		BikesAllowed:         r.getInt("bikes_allowed", 0),
	}
}

func (r record) stopTime() *models.StopTime {
	return &models.StopTime{
		TripID:            r.getString("trip_id"),
		ArrivalTime:       r.getString("arrival_time"),
		DepartureTime:     r.getString("departure_time"),
		StopID:            r.getString("stop_id"),
		StopSequence:      r.getInt("stop_sequence", 0),
		StopHeadsign:      r.getString("stop_headsign"),
		PickupType:        r.getInt("pickup_type", 0),
		DropOffType:       r.getInt("drop_off_type", 0),
		ShapeDistTraveled: r.getOptionalFloat("shape_dist_traveled"),
		Timepoint:         r.getOptionalInt("timepoint"),
	}
}

func (r record) calendar() (*models.Calendar, error) {
	startDate, err := time.Parse("20060102", r.getString("start_date"))
	if err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}

	endDate, err := time.Parse("20060102", r.getString("end_date"))
	if err != nil {
		return nil, fmt.Errorf("parsing end_date: %w", err)
	}

	return &models.Calendar{
		ServiceID: r.getString("service_id"),
		Monday:    r.getInt("monday", 0),
		Tuesday:   r.getInt("tuesday", 0),
		Wednesday: r.getInt("wednesday", 0),
		Thursday:  r.getInt("thursday", 0),
		Friday:    r.getInt("friday", 0),
		Saturday:  r.getInt("saturday", 0),
		Sunday:    r.getInt("sunday", 0),
		StartDate: startDate,
		EndDate:   endDate,
	}, nil
}

func (r record) calendarDate() (*models.CalendarDate, error) {
	date, err := time.Parse("20060102", r.getString("date"))
	if err != nil {
		return nil, fmt.Errorf("parsing date: %w", err)
	}

	return &models.CalendarDate{
		ServiceID:     r.getString("service_id"),
		Date:          date,
		ExceptionType: r.getInt("exception_type", 0),
	}, nil
}

func (r record) shape() *models.Shape {
	return &models.Shape{
		ShapeID:           r.getString("shape_id"),
		ShapePtLat:        r.getFloat("shape_pt_lat", 0),
		ShapePtLon:        r.getFloat("shape_pt_lon", 0),
		ShapePtSequence:   r.getInt("shape_pt_sequence", 0),
		ShapeDistTraveled: r.getOptionalFloat("shape_dist_traveled"),
	}
}

func (r record) transfer() *models.Transfer {
	return &models.Transfer{
		FromStopID:      r.getString("from_stop_id"),
		ToStopID:        r.getString("to_stop_id"),
		TransferType:    r.getInt("transfer_type", 0),
		MinTransferTime: r.getOptionalInt("min_transfer_time"),
	}
}
