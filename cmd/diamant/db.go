package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/diamant-gtfs/internal/api"
	"github.com/diamant-gtfs/internal/common/db"
	"github.com/diamant-gtfs/internal/gtfs-static/downloader"
	"github.com/diamant-gtfs/internal/gtfs-static/importer"
	"github.com/diamant-gtfs/internal/output"
	"github.com/diamant-gtfs/internal/patterns"
	"github.com/diamant-gtfs/internal/store"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

type dbFlags struct {
	path string
	key  string
}

func (a *app) addDBFlags(fs *pflag.FlagSet) *dbFlags {
	f := &dbFlags{}
	fs.StringVarP(&f.path, "database", "d", "", "SQLite database file (default: DB_PATH, or postgres when DB_DRIVER=postgres)")
	fs.StringVarP(&f.key, "key", "k", "", "use <data dir>/<key>/gtfs.db, the layout served by \"diamant serve\"")
	return f
}

// openDatabase opens the database chosen by flags and config. Unless create
// is set, a SQLite file must already exist.
func (a *app) openDatabase(f *dbFlags, create bool) (*db.DB, error) {
	path := f.path
	switch {
	case f.key != "":
		path = filepath.Join(a.cfg.API.DataDir, f.key, api.DatabaseFile)
	case path == "" && a.cfg.Database.Driver == string(db.Postgres):
		return db.Open(a.cfg.Database, a.log)
	case path == "":
		path = a.cfg.Database.Path
	}

	if create {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return db.OpenSQLite(path, a.log)
}

type patternFlags struct {
	strategy       string
	kind           string
	direction      string
	strict         bool
	snapshot       string
	snapshotFormat string
	keepRuns       int
}

func (a *app) addPatternFlags(fs *pflag.FlagSet) *patternFlags {
	f := &patternFlags{}
	fs.StringVarP(&f.strategy, "strategy", "s", a.cfg.Patterns.Strategy,
		"identify strategy: stop_ids, stop_names, route_id, route_short_name or route_long_name")
	fs.StringVar(&f.kind, "kind", a.cfg.Patterns.Kind, "pattern kind: service_route or course")
	fs.StringVar(&f.direction, "default-direction", a.cfg.Patterns.DefaultDirection,
		"direction of new patterns whose trips carry none: outbound or inbound")
	fs.BoolVar(&f.strict, "strict-joins", a.cfg.Patterns.StrictJoins,
		"fail when stop times reference missing trips, routes or stops")
	fs.StringVar(&f.snapshot, "snapshot", "", "identity snapshot file to keep pattern ids stable")
	fs.StringVar(&f.snapshotFormat, "snapshot-format", "", "snapshot file format (default: from extension)")
	fs.IntVar(&f.keepRuns, "keep-runs", a.cfg.Patterns.KeepRuns, "runs of the kind kept in the history (0 keeps all)")
	return f
}

func (f *patternFlags) resolve() (patterns.Options, []models.SnapshotRow, error) {
	var opts patterns.Options
	var err error

	if opts.Strategy, err = patterns.ParseStrategy(f.strategy); err != nil {
		return opts, nil, err
	}
	if opts.Kind, err = patterns.ParseKind(f.kind); err != nil {
		return opts, nil, err
	}
	if opts.DefaultDirection, err = models.ParseDirection(f.direction); err != nil {
		return opts, nil, err
	}
	opts.StrictJoins = f.strict

	if f.snapshot == "" {
		return opts, nil, nil
	}

	var format output.Format
	if f.snapshotFormat != "" {
		if format, err = output.ParseFormat(f.snapshotFormat); err != nil {
			return opts, nil, err
		}
	}
	rows, err := output.ReadSnapshotFile(f.snapshot, format)
	if err != nil {
		return opts, nil, err
	}
	return opts, rows, nil
}

// persist stores res and trims the run history of its kind.
func (a *app) persist(ctx context.Context, st *store.Store, id *patterns.Identifier, res *patterns.Result, keepRuns int) error {
	if err := id.Persist(ctx, st, res); err != nil {
		return err
	}
	_, err := st.PruneRuns(ctx, res.Run.Kind, keepRuns)
	return err
}

func (a *app) writeSnapshotFile(path string, rows []models.SnapshotRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	if err := output.Write(f, output.FormatFromPath(path), rows); err != nil {
		f.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	a.log.Info("Identity snapshot written", "path", path, "rows", len(rows))
	return nil
}

func (a *app) dbCreate(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("db create", pflag.ContinueOnError)
	dbf := a.addDBFlags(fs)
	pf := a.addPatternFlags(fs)
	batchSize := fs.Int("batch-size", a.cfg.Import.BatchSize, "rows per INSERT statement")
	skipIdentify := fs.Bool("skip-identify", false, "only import the feed")
	export := fs.String("export-snapshot", "", "write the identity snapshot of the new patterns to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("db create needs exactly one feed: a directory, zip file or URL")
	}

	opts, bootstrap, err := pf.resolve()
	if err != nil {
		return err
	}

	source, cleanup, err := downloader.NewHTTPDownloader(a.log).Fetch(ctx, fs.Arg(0), a.cfg.Import.DownloadDir)
	if err != nil {
		return fmt.Errorf("fetching feed: %w", err)
	}
	defer cleanup()

	database, err := a.openDatabase(dbf, true)
	if err != nil {
		return err
	}
	defer database.Close()

	if _, err := importer.NewImporter(database, *batchSize).Import(ctx, source); err != nil {
		return fmt.Errorf("importing feed: %w", err)
	}

	st := store.New(database)
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	if *skipIdentify {
		return nil
	}

	id := patterns.NewIdentifier(st, a.log)
	res, err := id.Identify(ctx, opts, bootstrap)
	if err != nil {
		return err
	}
	if err := a.persist(ctx, st, id, res, pf.keepRuns); err != nil {
		return err
	}

	if *export != "" {
		return a.writeSnapshotFile(*export, res.Snapshot)
	}
	return nil
}

func (a *app) dbIdentify(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("db identify", pflag.ContinueOnError)
	dbf := a.addDBFlags(fs)
	pf := a.addPatternFlags(fs)
	tripIDs := fs.StringSlice("trip-ids", nil, "only these trips (results are printed, not stored)")
	prefix := fs.String("stop-name-prefix", "", "only visits at stops whose name starts with this (printed, not stored)")
	dryRun := fs.Bool("dry-run", false, "print assignments instead of storing them")
	format := fs.StringP("format", "f", string(output.CSV), "output format: csv, tsv, json, pjson or yaml")
	export := fs.String("export-snapshot", "", "write the identity snapshot to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, bootstrap, err := pf.resolve()
	if err != nil {
		return err
	}
	opts.Filter = models.VisitFilter{TripIDs: *tripIDs, StopNamePrefix: *prefix}
	outFormat, err := output.ParseFormat(*format)
	if err != nil {
		return err
	}

	database, err := a.openDatabase(dbf, false)
	if err != nil {
		return err
	}
	defer database.Close()

	st := store.New(database)
	id := patterns.NewIdentifier(st, a.log)
	res, err := id.Identify(ctx, opts, bootstrap)
	if err != nil {
		return err
	}

	if res.Filtered || *dryRun {
		if err := output.Write(a.stdout, outFormat, res.Assignments); err != nil {
			return err
		}
	} else {
		previous, err := st.LatestRun(ctx, string(opts.Kind))
		if err != nil {
			return err
		}
		if previous != nil {
			a.log.Info("Replacing previous run",
				"run_id", previous.RunID,
				"strategy", previous.Strategy,
				"patterns", previous.PatternCount)
		}
		if err := a.persist(ctx, st, id, res, pf.keepRuns); err != nil {
			return err
		}
	}

	if *export != "" {
		return a.writeSnapshotFile(*export, res.Snapshot)
	}
	return nil
}

var getTargets = []string{"routes", "trips", "visits", "stops", "patterns", "assignments", "identity", "runs"}

func (a *app) dbGet(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("db get", pflag.ContinueOnError)
	dbf := a.addDBFlags(fs)
	format := fs.StringP("format", "f", string(output.CSV), "output format: csv, tsv, json, pjson or yaml")
	out := fs.StringP("output", "o", "", "write to this file instead of stdout")
	routeID := fs.String("route-id", "", "routes, trips: only this route")
	stopID := fs.String("stop-id", "", "trips: only trips calling at this stop")
	tripIDs := fs.StringSlice("trip-ids", nil, "visits: only these trips")
	prefix := fs.String("stop-name-prefix", "", "visits: only stops whose name starts with this")
	word := fs.String("word", "", "stops: only stops whose name contains this")
	kind := fs.String("kind", a.cfg.Patterns.Kind, "patterns, assignments, identity: service_route or course")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("db get needs one of %v", getTargets)
	}

	outFormat, err := output.ParseFormat(*format)
	if err != nil {
		return err
	}
	k, err := patterns.ParseKind(*kind)
	if err != nil {
		return err
	}

	database, err := a.openDatabase(dbf, false)
	if err != nil {
		return err
	}
	defer database.Close()
	st := store.New(database)

	var w io.Writer = a.stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch fs.Arg(0) {
	case "routes":
		return writeQuery(w, outFormat, func() ([]models.Route, error) { return st.QueryRoutes(ctx, *routeID) })
	case "trips":
		return writeQuery(w, outFormat, func() ([]models.Trip, error) {
			return st.QueryTrips(ctx, store.TripFilter{RouteID: *routeID, StopID: *stopID})
		})
	case "visits":
		return writeQuery(w, outFormat, func() ([]models.Visit, error) {
			return st.QueryVisits(ctx, models.VisitFilter{TripIDs: *tripIDs, StopNamePrefix: *prefix})
		})
	case "stops":
		return writeQuery(w, outFormat, func() ([]models.Stop, error) { return st.QueryStops(ctx, *word) })
	case "patterns":
		return writeQuery(w, outFormat, func() ([]models.Pattern, error) { return st.QueryPatterns(ctx, k) })
	case "assignments":
		return writeQuery(w, outFormat, func() ([]models.Assignment, error) { return st.QueryAssignments(ctx, k) })
	case "identity":
		return writeQuery(w, outFormat, func() ([]models.SnapshotRow, error) { return st.QueryIdentitySnapshot(ctx, k) })
	case "runs":
		return writeQuery(w, outFormat, func() ([]models.Run, error) { return st.QueryRuns(ctx) })
	default:
		return fmt.Errorf("unknown db get target %q (want one of %v)", fs.Arg(0), getTargets)
	}
}

func writeQuery[T output.Record](w io.Writer, format output.Format, query func() ([]T, error)) error {
	items, err := query()
	if err != nil {
		return err
	}
	return output.Write(w, format, items)
}
