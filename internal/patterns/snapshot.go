package patterns

import (
	"sort"
	"strings"

	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// AggregateSnapshot folds assigned visits into snapshot rows: one row per
// (pattern_id, direction, stop sequence), listing every trip that shares it.
// Input must be ordered by trip then stop_sequence. Rows come out ordered by
// pattern_id, direction and stop_ids.
func AggregateSnapshot(visits []models.AssignedVisit) []models.SnapshotRow {
	type trip struct {
		id        string
		pattern   int
		name      string
		direction models.Direction
		stopIDs   []string
		stopNames []string
	}

	index := make(map[string]int)
	var trips []*trip
	for _, v := range visits {
		i, ok := index[v.TripID]
		if !ok {
			i = len(trips)
			index[v.TripID] = i
			trips = append(trips, &trip{id: v.TripID, pattern: v.PatternID, name: v.PatternName, direction: v.Direction})
		}
		t := trips[i]
		t.stopIDs = append(t.stopIDs, v.StopID)
		t.stopNames = append(t.stopNames, v.StopName)
	}

	type rowKey struct {
		pattern   int
		direction models.Direction
		stopIDs   string
	}
	rowIndex := make(map[rowKey]int)
	var rows []models.SnapshotRow
	var tripIDs [][]string

	for _, t := range trips {
		k := rowKey{t.pattern, t.direction, strings.Join(t.stopIDs, ",")}
		i, ok := rowIndex[k]
		if !ok {
			i = len(rows)
			rowIndex[k] = i
			rows = append(rows, models.SnapshotRow{
				PatternID:   t.pattern,
				Direction:   t.direction,
				PatternName: t.name,
				StopIDs:     k.stopIDs,
				StopNames:   strings.Join(t.stopNames, ","),
			})
			tripIDs = append(tripIDs, nil)
		}
		tripIDs[i] = append(tripIDs[i], t.id)
	}

	for i := range rows {
		rows[i].TripIDs = strings.Join(tripIDs[i], ",")
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PatternID != b.PatternID {
			return a.PatternID < b.PatternID
		}
		if a.Direction != b.Direction {
			return a.Direction < b.Direction
		}
		return a.StopIDs < b.StopIDs
	})
	return rows
}

// AssignVisits tags every visit of groups with the pattern of its trip.
// Trips missing from assigned are skipped.
func AssignVisits(groups []TripGroup, assigned map[string]models.Pattern) []models.AssignedVisit {
	var out []models.AssignedVisit
	for _, g := range groups {
		p, ok := assigned[g.TripID]
		if !ok {
			continue
		}
		for _, v := range g.Visits {
			out = append(out, models.AssignedVisit{
				TripID:       v.TripID,
				StopSequence: v.StopSequence,
				StopID:       v.StopID,
				StopName:     v.StopName,
				PatternID:    p.ID,
				PatternName:  p.Name,
				Direction:    p.Direction,
			})
		}
	}
	return out
}
