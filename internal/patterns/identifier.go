package patterns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// ErrFilteredPersist is returned when a pass restricted to some trips is
// asked to replace the stored patterns of its kind.
var ErrFilteredPersist = errors.New("filtered identification passes cannot be persisted")

// VisitSource is the store side of an identification pass.
type VisitSource interface {
	QueryVisits(ctx context.Context, filter models.VisitFilter) ([]models.Visit, error)
	CountOrphanedStopTimes(ctx context.Context, filter models.VisitFilter) (int, error)
}

// PatternSink persists the outcome of a pass in one transaction.
type PatternSink interface {
	SavePatterns(ctx context.Context, kind Kind, run models.Run, patterns []models.Pattern, assignments []models.Assignment) error
}

type Options struct {
	Strategy         Strategy
	Kind             Kind
	DefaultDirection models.Direction
	StrictJoins      bool
	Filter           models.VisitFilter
}

type Result struct {
	Run         models.Run
	Kind        Kind
	Filtered    bool
	Patterns    []models.Pattern
	Assignments []models.Assignment
	Snapshot    []models.SnapshotRow
}

type Identifier struct {
	visits VisitSource
	logger logger.Logger
	now    func() time.Time
}

func NewIdentifier(visits VisitSource, logger logger.Logger) *Identifier {
	return &Identifier{
		visits: visits,
		logger: logger,
		now:    time.Now,
	}
}

// Identify runs one pass over the filtered visits. Nothing is persisted and
// the first failing trip aborts the pass.
func (i *Identifier) Identify(ctx context.Context, opts Options, bootstrap []models.SnapshotRow) (*Result, error) {
	if opts.Strategy == nil {
		return nil, errors.New("identify: no strategy")
	}
	if opts.Kind == "" {
		opts.Kind = ServiceRoute
	}
	started := i.now()

	orphaned, err := i.visits.CountOrphanedStopTimes(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("checking stop_times joins: %w", err)
	}
	if orphaned > 0 {
		if opts.StrictJoins {
			return nil, fmt.Errorf("%d stop_times rows: %w", orphaned, ErrOrphanedVisits)
		}
		i.logger.Warn("Stop times without matching trip, route or stop are skipped", "rows", orphaned)
	}

	visits, err := i.visits.QueryVisits(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("querying visits: %w", err)
	}

	registry, err := NewRegistry(opts.Strategy, bootstrap,
		WithDefaultDirection(opts.DefaultDirection), WithLogger(i.logger))
	if err != nil {
		return nil, err
	}

	groups := GroupVisits(visits)
	assigned := make(map[string]models.Pattern, len(groups))
	assignments := make([]models.Assignment, 0, len(groups))

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := registry.Generate(g)
		if err != nil {
			return nil, fmt.Errorf("identifying patterns: %w", err)
		}
		assigned[g.TripID] = p
		assignments = append(assignments, models.Assignment{TripID: g.TripID, PatternID: p.ID, Direction: p.Direction})
	}

	all := registry.All()
	res := &Result{
		Kind:        opts.Kind,
		Filtered:    !opts.Filter.IsZero(),
		Patterns:    all,
		Assignments: assignments,
		Snapshot:    AggregateSnapshot(AssignVisits(groups, assigned)),
		Run: models.Run{
			RunID:           uuid.NewString(),
			Kind:            string(opts.Kind),
			Strategy:        opts.Strategy.Name(),
			Bootstrapped:    len(bootstrap) > 0,
			PatternCount:    len(all),
			AssignmentCount: len(assignments),
			StartedAt:       started,
			FinishedAt:      i.now(),
		},
	}

	i.logger.Info("Identification pass completed",
		"run_id", res.Run.RunID,
		"kind", string(opts.Kind),
		"strategy", opts.Strategy.Name(),
		"visits", len(visits),
		"trips", len(groups),
		"patterns", len(all),
		"next_id", registry.NextID(),
		"duration", res.Run.FinishedAt.Sub(started).String())

	return res, nil
}

// Persist replaces the stored patterns of the result's kind.
func (i *Identifier) Persist(ctx context.Context, sink PatternSink, res *Result) error {
	if res.Filtered {
		return ErrFilteredPersist
	}
	if err := sink.SavePatterns(ctx, res.Kind, res.Run, res.Patterns, res.Assignments); err != nil {
		return fmt.Errorf("persisting run %s: %w", res.Run.RunID, err)
	}
	i.logger.Info("Patterns persisted",
		"run_id", res.Run.RunID,
		"kind", string(res.Kind),
		"patterns", len(res.Patterns),
		"assignments", len(res.Assignments))
	return nil
}
