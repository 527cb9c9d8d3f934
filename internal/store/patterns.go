package store

import (
	"context"
	"fmt"

	"github.com/diamant-gtfs/internal/patterns"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// SavePatterns replaces the patterns and assignments of kind and records run,
// all in one transaction.
func (s *Store) SavePatterns(ctx context.Context, kind patterns.Kind, run models.Run, pats []models.Pattern, assignments []models.Assignment) error {
	t, err := tablesFor(kind)
	if err != nil {
		return wrap("save patterns", err)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return wrap("save patterns", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	stmts := append(schemaStatements(),
		"DELETE FROM "+t.assignments,
		"DELETE FROM "+t.patterns,
	)
	if err := s.db.ExecStatements(ctx, tx, stmts); err != nil {
		return wrap("save patterns", err)
	}

	patternRows := make([][]interface{}, len(pats))
	for i, p := range pats {
		patternRows[i] = []interface{}{p.ID, p.Name, int(p.Direction)}
	}
	if err := s.insertRows(ctx, tx, t.patterns, []string{"id", "name", "direction_id"}, patternRows); err != nil {
		return wrap("save patterns", err)
	}

	assignmentRows := make([][]interface{}, len(assignments))
	for i, a := range assignments {
		assignmentRows[i] = []interface{}{a.TripID, a.PatternID, int(a.Direction)}
	}
	if err := s.insertRows(ctx, tx, t.assignments, []string{"trip_id", "id", "direction_id"}, assignmentRows); err != nil {
		return wrap("save patterns", err)
	}

	if err := s.recordRun(ctx, tx, run); err != nil {
		return wrap("save patterns", err)
	}

	if err := tx.Commit(); err != nil {
		return wrap("save patterns", fmt.Errorf("committing transaction: %w", err))
	}

	s.logger.Info("Saved patterns",
		"kind", string(kind),
		"table", t.patterns,
		"patterns", len(pats),
		"assignments", len(assignments),
		"run_id", run.RunID)

	return nil
}

func (s *Store) QueryPatterns(ctx context.Context, kind patterns.Kind) ([]models.Pattern, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, wrap("query patterns", err)
	}
	if ok, err := s.tableExists(ctx, t.patterns); err != nil || !ok {
		return nil, wrap("query patterns", err)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, name, direction_id FROM %s ORDER BY id, direction_id", t.patterns))
	if err != nil {
		return nil, wrap("query patterns", err)
	}
	defer rows.Close()

	var out []models.Pattern
	for rows.Next() {
		var p models.Pattern
		if err := rows.Scan(&p.ID, &p.Name, &p.Direction); err != nil {
			return nil, wrap("scan pattern", err)
		}
		out = append(out, p)
	}
	return out, wrap("query patterns", rows.Err())
}

func (s *Store) QueryAssignments(ctx context.Context, kind patterns.Kind) ([]models.Assignment, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, wrap("query assignments", err)
	}
	if ok, err := s.tableExists(ctx, t.assignments); err != nil || !ok {
		return nil, wrap("query assignments", err)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT trip_id, id, direction_id FROM %s ORDER BY trip_id", t.assignments))
	if err != nil {
		return nil, wrap("query assignments", err)
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.TripID, &a.PatternID, &a.Direction); err != nil {
			return nil, wrap("scan assignment", err)
		}
		out = append(out, a)
	}
	return out, wrap("query assignments", rows.Err())
}

// QueryAssignedVisits returns every stored visit of an assigned trip, tagged
// with its pattern, ordered by trip and stop_sequence.
func (s *Store) QueryAssignedVisits(ctx context.Context, kind patterns.Kind) ([]models.AssignedVisit, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, wrap("query assigned visits", err)
	}
	if ok, err := s.tableExists(ctx, t.assignments); err != nil || !ok {
		return nil, wrap("query assigned visits", err)
	}

	query := fmt.Sprintf(`
	SELECT a.trip_id, st.stop_sequence, st.stop_id, s.stop_name, p.id, p.name, p.direction_id
	FROM %s a
	JOIN %s p ON p.id = a.id AND p.direction_id = a.direction_id
	JOIN stop_times st ON st.trip_id = a.trip_id
	JOIN stops s ON s.stop_id = st.stop_id
	ORDER BY a.trip_id, st.stop_sequence`, t.assignments, t.patterns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("query assigned visits", err)
	}
	defer rows.Close()

	var out []models.AssignedVisit
	for rows.Next() {
		var v models.AssignedVisit
		if err := rows.Scan(&v.TripID, &v.StopSequence, &v.StopID, &v.StopName,
			&v.PatternID, &v.PatternName, &v.Direction); err != nil {
			return nil, wrap("scan assigned visit", err)
		}
		out = append(out, v)
	}
	return out, wrap("query assigned visits", rows.Err())
}

// QueryIdentitySnapshot rebuilds the snapshot of the stored patterns of kind.
func (s *Store) QueryIdentitySnapshot(ctx context.Context, kind patterns.Kind) ([]models.SnapshotRow, error) {
	visits, err := s.QueryAssignedVisits(ctx, kind)
	if err != nil {
		return nil, err
	}
	return patterns.AggregateSnapshot(visits), nil
}
