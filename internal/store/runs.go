package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

func (s *Store) recordRun(ctx context.Context, tx *sql.Tx, run models.Run) error {
	bootstrapped := 0
	if run.Bootstrapped {
		bootstrapped = 1
	}

	query := `
		INSERT INTO pattern_runs (run_id, kind, strategy, bootstrapped, pattern_count, assignment_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, s.db.Rebind(query),
		run.RunID,
		run.Kind,
		run.Strategy,
		bootstrapped,
		run.PatternCount,
		run.AssignmentCount,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	s.logger.Debug("Recorded run", "run_id", run.RunID, "kind", run.Kind)
	return nil
}

const runColumns = "run_id, kind, strategy, bootstrapped, pattern_count, assignment_count, started_at, finished_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (models.Run, error) {
	var (
		run               models.Run
		bootstrapped      int
		started, finished string
	)
	if err := row.Scan(&run.RunID, &run.Kind, &run.Strategy, &bootstrapped,
		&run.PatternCount, &run.AssignmentCount, &started, &finished); err != nil {
		return run, err
	}
	run.Bootstrapped = bootstrapped != 0

	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return run, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return run, fmt.Errorf("parsing finished_at: %w", err)
	}
	return run, nil
}

// QueryRuns lists recorded runs, newest first.
func (s *Store) QueryRuns(ctx context.Context) ([]models.Run, error) {
	if ok, err := s.tableExists(ctx, "pattern_runs"); err != nil || !ok {
		return nil, wrap("query runs", err)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM pattern_runs ORDER BY finished_at DESC, run_id")
	if err != nil {
		return nil, wrap("query runs", err)
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, wrap("scan run", err)
		}
		out = append(out, run)
	}
	return out, wrap("query runs", rows.Err())
}

// LatestRun returns the newest run of kind, or nil when none was recorded.
func (s *Store) LatestRun(ctx context.Context, kind string) (*models.Run, error) {
	if ok, err := s.tableExists(ctx, "pattern_runs"); err != nil || !ok {
		return nil, wrap("latest run", err)
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM pattern_runs WHERE kind = ? ORDER BY finished_at DESC LIMIT 1", kind)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("No run recorded", "kind", kind)
		return nil, nil
	}
	if err != nil {
		return nil, wrap("latest run", err)
	}

	s.logger.Debug("Found latest run",
		"run_id", run.RunID,
		"kind", run.Kind,
		"finished_at", run.FinishedAt)

	return &run, nil
}

// PruneRuns deletes the run history of kind beyond the newest keep runs and
// returns how many rows went. keep <= 0 keeps everything.
func (s *Store) PruneRuns(ctx context.Context, kind string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	s.logger.Debug("Pruning run history", "kind", kind, "keep", keep)

	query := `
		DELETE FROM pattern_runs
		WHERE kind = ? AND run_id NOT IN (
			SELECT run_id FROM pattern_runs
			WHERE kind = ?
			ORDER BY finished_at DESC, run_id
			LIMIT ?
		)
	`
	res, err := s.db.ExecContext(ctx, query, kind, kind, keep)
	if err != nil {
		return 0, wrap("prune runs", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("prune runs", err)
	}

	if deleted > 0 {
		s.logger.Info("Pruned run history", "kind", kind, "deleted", deleted, "kept", keep)
	}
	return deleted, nil
}
