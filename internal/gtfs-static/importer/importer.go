package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/diamant-gtfs/internal/common/db"
	"github.com/diamant-gtfs/internal/gtfs-static/parser"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

const DefaultBatchSize = 500

type Importer struct {
	db        *db.DB
	batchSize int
}

func NewImporter(database *db.DB, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{
		db:        database,
		batchSize: batchSize,
	}
}

// Summary counts the rows written per table.
type Summary struct {
	Tables   map[string]int
	Duration time.Duration
}

// Import replaces every GTFS table with the contents of the feed at source,
// a directory or zip archive. The whole import runs in one transaction.
func (i *Importer) Import(ctx context.Context, source string) (*Summary, error) {
	start := time.Now()
	p := parser.New(i.db.Logger())

	agencyBatch := i.newBatchInserter("agency")
	stopBatch := i.newBatchInserter("stops")
	routeBatch := i.newBatchInserter("routes")
	calendarBatch := i.newBatchInserter("calendar")
	calendarDateBatch := i.newBatchInserter("calendar_dates")
	shapeBatch := i.newBatchInserter("shapes")
	tripBatch := i.newBatchInserter("trips")
	stopTimeBatch := i.newBatchInserter("stop_times")
	transferBatch := i.newBatchInserter("transfers")

	callbacks := parser.ParseCallbacks{
		OnAgency: func(agency *models.Agency) error {
			return agencyBatch.Add(
				agency.AgencyID,
				agency.AgencyName,
				nullString(agency.AgencyURL),
				agency.AgencyTimezone,
				nullString(agency.AgencyLang),
				nullString(agency.AgencyPhone),
				nullString(agency.AgencyFareURL),
			)
		},
		OnStop: func(stop *models.Stop) error {
			return stopBatch.Add(
				stop.StopID,
				nullString(stop.StopCode),
				stop.StopName,
				stop.StopLat,
				stop.StopLon,
				nullString(stop.ZoneID),
				stop.LocationType,
				nullString(stop.ParentStation),
				stop.WheelchairBoarding,
				nullString(stop.PlatformCode),
			)
		},
		OnRoute: func(route *models.Route) error {
			return routeBatch.Add(
				route.RouteID,
				nullString(route.AgencyID),
				nullString(route.RouteShortName),
				nullString(route.RouteLongName),
				nullString(route.RouteDesc),
				route.RouteType,
				nullString(route.RouteURL),
				nullString(route.RouteColor),
				nullString(route.RouteTextColor),
			)
		},
		OnCalendar: func(calendar *models.Calendar) error {
			return calendarBatch.Add(
				calendar.ServiceID,
				calendar.Monday,
				calendar.Tuesday,
				calendar.Wednesday,
				calendar.Thursday,
				calendar.Friday,
				calendar.Saturday,
				calendar.Sunday,
				calendar.StartDate.Format("20060102"),
				calendar.EndDate.Format("20060102"),
			)
		},
		OnCalendarDate: func(calendarDate *models.CalendarDate) error {
			return calendarDateBatch.Add(
				calendarDate.ServiceID,
				calendarDate.Date.Format("20060102"),
				calendarDate.ExceptionType,
			)
		},
		OnShape: func(shape *models.Shape) error {
			return shapeBatch.Add(
				shape.ShapeID,
				shape.ShapePtLat,
				shape.ShapePtLon,
				shape.ShapePtSequence,
				nullFloat(shape.ShapeDistTraveled),
			)
		},
		OnTrip: func(trip *models.Trip) error {
			direction := sql.NullInt64{}
			if trip.DirectionID != nil {
				direction = sql.NullInt64{Int64: int64(*trip.DirectionID), Valid: true}
			}
			return tripBatch.Add(
				trip.TripID,
				trip.RouteID,
				trip.ServiceID,
				nullString(trip.TripHeadsign),
				nullString(trip.TripShortName),
				direction,
				nullString(trip.BlockID),
				nullString(trip.ShapeID),
				trip.WheelchairAccessible,
				trip.BikesAllowed,
			)
		},
		OnStopTime: func(stopTime *models.StopTime) error {
			return stopTimeBatch.Add(
				stopTime.TripID,
				nullString(stopTime.ArrivalTime),
				nullString(stopTime.DepartureTime),
				stopTime.StopID,
				stopTime.StopSequence,
				nullString(stopTime.StopHeadsign),
				stopTime.PickupType,
				stopTime.DropOffType,
				nullFloat(stopTime.ShapeDistTraveled),
				nullInt(stopTime.Timepoint),
			)
		},
		OnTransfer: func(transfer *models.Transfer) error {
			return transferBatch.Add(
				transfer.FromStopID,
				transfer.ToStopID,
				transfer.TransferType,
				nullInt(transfer.MinTransferTime),
			)
		},
	}

	tx, err := i.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := i.db.ExecStatements(ctx, tx, dropStatements()); err != nil {
		return nil, fmt.Errorf("dropping tables: %w", err)
	}
	if err := i.db.ExecStatements(ctx, tx, createStatements()); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	batches := []*batchInserter{
		agencyBatch, stopBatch, routeBatch, calendarBatch, calendarDateBatch,
		shapeBatch, tripBatch, stopTimeBatch, transferBatch,
	}
	for _, batch := range batches {
		batch.ctx = ctx
		batch.tx = tx
	}

	if err := p.Parse(ctx, source, callbacks); err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	summary := &Summary{Tables: make(map[string]int, len(batches))}
	for _, batch := range batches {
		if err := batch.Flush(); err != nil {
			return nil, fmt.Errorf("flushing %s batch: %w", batch.table.name, err)
		}
		summary.Tables[batch.table.name] = batch.total
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	summary.Duration = time.Since(start)

	i.db.Logger().Info("Import completed successfully",
		"source", source,
		"stops", summary.Tables["stops"],
		"routes", summary.Tables["routes"],
		"trips", summary.Tables["trips"],
		"stop_times", summary.Tables["stop_times"],
		"duration", summary.Duration.String())

	return summary, nil
}

type batchInserter struct {
	db         *db.DB
	table      table
	values     []interface{}
	valueCount int
	total      int
	batchSize  int
	ctx        context.Context
	tx         *sql.Tx
}

func (i *Importer) newBatchInserter(tableName string) *batchInserter {
	t := tableByName(tableName)
	return &batchInserter{
		db:        i.db,
		table:     t,
		values:    make([]interface{}, 0, i.batchSize*len(t.columns)),
		batchSize: i.batchSize,
	}
}

func (b *batchInserter) Add(values ...interface{}) error {
	if len(values) != len(b.table.columns) {
		return fmt.Errorf("%s: got %d values for %d columns", b.table.name, len(values), len(b.table.columns))
	}
	b.values = append(b.values, values...)
	b.valueCount++

	if b.valueCount >= b.batchSize {
		return b.Flush()
	}

	return nil
}

func (b *batchInserter) Flush() error {
	if b.valueCount == 0 {
		return nil
	}

	query := b.db.Rebind(b.buildInsertQuery())
	if _, err := b.tx.ExecContext(b.ctx, query, b.values...); err != nil {
		return fmt.Errorf("executing batch insert: %w", err)
	}

	b.total += b.valueCount
	b.values = b.values[:0]
	b.valueCount = 0

	return nil
}

func (b *batchInserter) buildInsertQuery() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", b.table.name, strings.Join(b.table.columns, ", "))

	row := "(" + db.Placeholders(len(b.table.columns)) + ")"
	for i := 0; i < b.valueCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
	}

	sb.WriteString(" ON CONFLICT DO NOTHING")

	return sb.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
