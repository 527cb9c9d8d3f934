package patterns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// Registry deduplicates trips into patterns and hands out pattern ids.
// A registry is owned by a single identification pass and is not safe for
// concurrent use.
type Registry struct {
	strategy         Strategy
	defaultDirection models.Direction
	logger           logger.Logger

	nextID int
	byKey  map[string]models.Pattern
}

type patternIdent struct {
	id  int
	dir models.Direction
}

type Option func(*Registry)

// WithDefaultDirection sets the direction given to new patterns whose first
// visit carries none, or a value other than 0/1. Outbound when unset.
func WithDefaultDirection(d models.Direction) Option {
	return func(r *Registry) {
		r.defaultDirection = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry builds a registry for strategy, seeded from bootstrap when it
// holds rows. Seeding needs a SnapshotStrategy.
func NewRegistry(strategy Strategy, bootstrap []models.SnapshotRow, opts ...Option) (*Registry, error) {
	r := &Registry{
		strategy:         strategy,
		defaultDirection: models.Outbound,
		logger:           logger.Nop(),
		byKey:            make(map[string]models.Pattern),
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(bootstrap) == 0 {
		return r, nil
	}

	ss, ok := strategy.(SnapshotStrategy)
	if !ok {
		return nil, fmt.Errorf("bootstrapping %s: %w", strategy.Name(), ErrSnapshotUnsupported)
	}
	if err := r.seed(ss, bootstrap); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) seed(ss SnapshotStrategy, rows []models.SnapshotRow) error {
	sorted := make([]models.SnapshotRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.PatternID != b.PatternID {
			return a.PatternID < b.PatternID
		}
		if a.Direction != b.Direction {
			return a.Direction < b.Direction
		}
		return a.StopIDs < b.StopIDs
	})

	// Every key seeded for one pattern shares the name of its first row.
	names := make(map[patternIdent]string)
	conflicts := 0
	for _, row := range sorted {
		if row.PatternID <= 0 {
			return fmt.Errorf("pattern_id %d: %w", row.PatternID, ErrInvalidSnapshot)
		}
		if !row.Direction.Valid() {
			return fmt.Errorf("pattern_id %d: direction %d: %w", row.PatternID, int(row.Direction), ErrInvalidSnapshot)
		}
		key := ss.SnapshotKey(row)
		if key == "" {
			return fmt.Errorf("pattern_id %d: no %s: %w", row.PatternID, ss.Name(), ErrInvalidSnapshot)
		}
		if row.PatternID > r.nextID {
			r.nextID = row.PatternID
		}

		if existing, ok := r.byKey[key]; ok {
			if existing.ID != row.PatternID {
				conflicts++
				r.logger.Warn("Snapshot key already seeded, keeping lower id",
					"strategy", ss.Name(), "kept_id", existing.ID, "dropped_id", row.PatternID)
			}
			continue
		}

		ident := patternIdent{row.PatternID, row.Direction}
		name, ok := names[ident]
		if !ok {
			name = row.PatternName
			if name == "" {
				name = snapshotDisplayName(row.StopNames)
			}
			names[ident] = name
		}
		r.byKey[key] = models.Pattern{ID: row.PatternID, Name: name, Direction: row.Direction}
	}

	r.logger.Info("Seeded pattern registry from snapshot",
		"strategy", ss.Name(), "rows", len(rows), "keys", len(r.byKey), "next_id", r.nextID, "conflicts", conflicts)
	return nil
}

// Generate resolves group to its pattern, registering a new one the first
// time its key is seen. Known keys return the stored pattern unchanged.
func (r *Registry) Generate(group TripGroup) (models.Pattern, error) {
	if len(group.Visits) == 0 {
		return models.Pattern{}, &EmptyTripGroupError{TripID: group.TripID}
	}

	key, err := r.strategy.DeriveKey(group)
	if err != nil {
		return models.Pattern{}, err
	}
	if p, ok := r.byKey[key]; ok {
		return p, nil
	}

	first, last := group.First(), group.Last()
	direction := r.defaultDirection
	if first.Direction != nil && first.Direction.Valid() {
		direction = *first.Direction
	}

	r.nextID++
	p := models.Pattern{
		ID:        r.nextID,
		Name:      DisplayName(first.RouteName(), first.StopName, last.StopName),
		Direction: direction,
	}
	r.byKey[key] = p
	return p, nil
}

// All returns every registered pattern ordered by id. Patterns seeded under
// more than one key are listed once.
func (r *Registry) All() []models.Pattern {
	seen := make(map[patternIdent]bool, len(r.byKey))
	out := make([]models.Pattern, 0, len(r.byKey))
	for _, p := range r.byKey {
		k := patternIdent{p.ID, p.Direction}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Direction < out[j].Direction
	})
	return out
}

// NextID is the highest id handed out or seeded so far.
func (r *Registry) NextID() int {
	return r.nextID
}

// DisplayName formats "route(first~last)".
func DisplayName(routeName, firstStop, lastStop string) string {
	return fmt.Sprintf("%s(%s~%s)", routeName, firstStop, lastStop)
}

func snapshotDisplayName(stopNames string) string {
	if stopNames == "" {
		return ""
	}
	names := strings.Split(stopNames, ",")
	return DisplayName("", names[0], names[len(names)-1])
}
