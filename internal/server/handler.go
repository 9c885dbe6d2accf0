// Package server exposes the route-weather API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"driveweather.app/server/internal/config"
	"driveweather.app/server/internal/services"
)

// maxDeparturePast rejects departures further back than the slider can
// reach.
const maxDeparturePast = 48 * time.Hour

// departureLayouts are the accepted ISO-8601 shapes for the departure
// parameter, tried in order after RFC3339. The zone-less layouts come from
// datetime-local form inputs.
var departureLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// TripPlanner is the slice of the trip service the handlers use.
type TripPlanner interface {
	PlanTrip(ctx context.Context, origin, destination string, departure time.Time) (*services.TripPlan, error)
}

// Handler serves the route-weather endpoints.
type Handler struct {
	trips TripPlanner
	cfg   *config.Config
	loc   *time.Location

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Handler. Zone-less departure times are interpreted in the
// configured timezone, falling back to a fixed UTC-8 offset if the zone
// database does not know it.
func New(trips TripPlanner, cfg *config.Config) *Handler {
	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, assuming UTC-8: %v", cfg.Server.Timezone, err)
		loc = time.FixedZone("PST", -8*3600)
	}
	return &Handler{trips: trips, cfg: cfg, loc: loc, now: time.Now}
}

// RouteWeather handles GET /api/route-weather.
func (h *Handler) RouteWeather(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	origin, destination, departure, ok := h.parseParams(w, r)
	if !ok {
		return
	}

	plan, err := h.trips.PlanTrip(r.Context(), origin, destination, departure)
	if err != nil {
		log.Printf("Trip planning failed for %q -> %q: %v", origin, destination, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(plan); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// RouteWeatherKML handles GET /api/route-weather.kml, rendering the same
// plan as a severity-colored KML overlay.
func (h *Handler) RouteWeatherKML(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w)
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	origin, destination, departure, ok := h.parseParams(w, r)
	if !ok {
		return
	}

	plan, err := h.trips.PlanTrip(r.Context(), origin, destination, departure)
	if err != nil {
		log.Printf("Trip planning failed for %q -> %q: %v", origin, destination, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	if err := services.WriteRouteOverlay(w, plan); err != nil {
		log.Printf("Failed to write KML: %v", err)
	}
}

// parseParams validates the shared query parameters, writing the error
// response itself when validation fails.
func (h *Handler) parseParams(w http.ResponseWriter, r *http.Request) (origin, destination string, departure time.Time, ok bool) {
	q := r.URL.Query()
	origin = strings.TrimSpace(q.Get("origin"))
	destination = strings.TrimSpace(q.Get("destination"))
	departureStr := strings.TrimSpace(q.Get("departure"))

	if origin == "" || destination == "" || departureStr == "" {
		writeError(w, http.StatusBadRequest, "Missing required params: origin, destination, departure")
		return "", "", time.Time{}, false
	}

	departure, err := h.parseDeparture(departureStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid departure format. Use ISO 8601.")
		return "", "", time.Time{}, false
	}

	if h.now().Sub(departure) > maxDeparturePast {
		writeError(w, http.StatusBadRequest, "Departure is too far in the past.")
		return "", "", time.Time{}, false
	}

	return origin, destination, departure, true
}

// parseDeparture accepts RFC3339 or a zone-less ISO-8601 timestamp, the
// latter interpreted in the handler's configured timezone.
func (h *Handler) parseDeparture(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range departureLayouts {
		if t, err := time.ParseInLocation(layout, raw, h.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized departure time %q", raw)
}

func (h *Handler) setCORS(w http.ResponseWriter) {
	origins := h.cfg.Server.CorsOrigins
	if len(origins) == 0 {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", strings.Join(origins, ", "))
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}
