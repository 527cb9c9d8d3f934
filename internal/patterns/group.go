package patterns

import (
	"fmt"
	"strings"

	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

// Kind selects which pattern tables an identification pass writes to.
type Kind string

const (
	ServiceRoute Kind = "service_route"
	Course       Kind = "course"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case ServiceRoute, Course:
		return k, nil
	default:
		return "", fmt.Errorf("unknown pattern kind %q (want %s or %s)", s, ServiceRoute, Course)
	}
}

// TripGroup holds the visits of one trip in stop_sequence order.
type TripGroup struct {
	TripID string
	Visits []models.Visit
}

func (g TripGroup) First() models.Visit {
	return g.Visits[0]
}

func (g TripGroup) Last() models.Visit {
	return g.Visits[len(g.Visits)-1]
}

// GroupVisits splits visits by trip. Groups come out in the order their trip
// is first seen, and visits keep their input order.
func GroupVisits(visits []models.Visit) []TripGroup {
	index := make(map[string]int)
	var groups []TripGroup

	for _, v := range visits {
		i, ok := index[v.TripID]
		if !ok {
			i = len(groups)
			index[v.TripID] = i
			groups = append(groups, TripGroup{TripID: v.TripID})
		}
		groups[i].Visits = append(groups[i].Visits, v)
	}

	return groups
}
