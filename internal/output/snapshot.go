package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// Column names accepted for each snapshot field. Exports of the service
// route and course tables name their id and direction columns after the kind.
var snapshotColumns = map[string][]string{
	"pattern_id":   {"pattern_id", "service_route_id", "course_id", "id"},
	"direction_id": {"direction_id", "service_route_direction_id", "course_direction_id", "direction"},
	"pattern_name": {"pattern_name", "service_route_name", "course_name", "name"},
	"trip_ids":     {"trip_ids"},
	"stop_ids":     {"stop_ids"},
	"stop_names":   {"stop_names"},
}

// ReadSnapshotFile loads snapshot rows from path. An empty format is taken
// from the file extension.
func ReadSnapshotFile(path string, format Format) ([]models.SnapshotRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if format == "" {
		format = FormatFromPath(path)
	}
	rows, err := ReadSnapshot(f, format)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	return rows, nil
}

func ReadSnapshot(r io.Reader, format Format) ([]models.SnapshotRow, error) {
	switch format {
	case CSV, TSV:
		return readDelimitedSnapshot(r, format)
	case JSON, PrettyJSON:
		var rows []models.SnapshotRow
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		return rows, nil
	case YAML:
		var rows []models.SnapshotRow
		if err := yaml.NewDecoder(r).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
}

func readDelimitedSnapshot(r io.Reader, format Format) ([]models.SnapshotRow, error) {
	cr := csv.NewReader(r)
	if format == TSV {
		cr.Comma = '\t'
		cr.LazyQuotes = true
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for field, aliases := range snapshotColumns {
			for _, alias := range aliases {
				if h == alias {
					if _, seen := index[field]; !seen {
						index[field] = i
					}
				}
			}
		}
	}
	if _, ok := index["pattern_id"]; !ok {
		return nil, errors.New("snapshot has no pattern_id column")
	}
	_, hasIDs := index["stop_ids"]
	_, hasNames := index["stop_names"]
	if !hasIDs && !hasNames {
		return nil, errors.New("snapshot has neither stop_ids nor stop_names column")
	}

	get := func(record []string, field string) string {
		if i, ok := index[field]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var rows []models.SnapshotRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id, err := strconv.Atoi(get(record, "pattern_id"))
		if err != nil {
			return nil, fmt.Errorf("line %d: pattern_id: %w", line, err)
		}
		direction := models.Outbound
		if d := get(record, "direction_id"); d != "" {
			if direction, err = models.ParseDirection(d); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}

		rows = append(rows, models.SnapshotRow{
			PatternID:   id,
			Direction:   direction,
			PatternName: get(record, "pattern_name"),
			TripIDs:     get(record, "trip_ids"),
			StopIDs:     get(record, "stop_ids"),
			StopNames:   get(record, "stop_names"),
		})
	}
	return rows, nil
}
