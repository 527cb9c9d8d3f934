package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diamant-gtfs/internal/patterns"
	"github.com/diamant-gtfs/internal/store"
	"github.com/diamant-gtfs/pkg/gtfs-static/models"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

type ConfigResponse struct {
	Version string   `json:"version"`
	Keys    []string `json:"keys"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeItems[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, ItemsResponse[T]{Items: items})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	var re *requestError
	switch {
	case errors.Is(err, ErrUnknownKey):
		status, msg = http.StatusNotFound, "unknown feed key"
	case errors.As(err, &re):
		status, msg = http.StatusBadRequest, re.msg
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{Version: s.version, Keys: s.stores.Keys()})
}

// handleStopTimeDetails serves GET /{key}/stop_time_details.
func (s *Server) handleStopTimeDetails(w http.ResponseWriter, r *http.Request) {
	st, err := s.stores.Get(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filter := models.VisitFilter{
		TripIDs:        splitCSV(r.URL.Query().Get("trip_ids")),
		StopNamePrefix: r.URL.Query().Get("stop_name_prefix"),
	}
	visits, err := st.QueryVisits(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeItems(w, visits)
}

// handleStops serves GET /{key}/stops: the stop sequence of each listed trip.
func (s *Server) handleStops(w http.ResponseWriter, r *http.Request) {
	st, err := s.stores.Get(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tripIDs := splitCSV(r.URL.Query().Get("trip_ids"))
	if len(tripIDs) == 0 {
		s.writeError(w, r, badRequest("trip_ids is required"))
		return
	}
	visits, err := st.QueryVisits(r.Context(), models.VisitFilter{TripIDs: tripIDs})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeItems(w, visits)
}

// handleTrips serves GET /{key}/trips?stop_id=.
func (s *Server) handleTrips(w http.ResponseWriter, r *http.Request) {
	st, err := s.stores.Get(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filter := store.TripFilter{
		StopID:  r.URL.Query().Get("stop_id"),
		RouteID: r.URL.Query().Get("route_id"),
	}
	if filter.StopID == "" && filter.RouteID == "" {
		s.writeError(w, r, badRequest("stop_id or route_id is required"))
		return
	}
	trips, err := st.QueryTrips(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeItems(w, trips)
}

// handlePatterns serves GET /{key}/patterns?kind=.
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	st, err := s.stores.Get(chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	kind := patterns.ServiceRoute
	if k := r.URL.Query().Get("kind"); k != "" {
		if kind, err = patterns.ParseKind(k); err != nil {
			s.writeError(w, r, badRequest(err.Error()))
			return
		}
	}
	pats, err := st.QueryPatterns(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeItems(w, pats)
}
