package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/config"
	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/routing"
	"driveweather.app/server/internal/lib/segments"
)

const metersPerMile = 1609.344

// RouteSummary is the caller-facing description of the driven route.
type RouteSummary struct {
	Summary              string    `json:"summary"`
	TotalDistanceMiles   float64   `json:"total_distance_miles"`
	TotalDurationMinutes int       `json:"total_duration_minutes"`
	Departure            time.Time `json:"departure"`
	Arrival              time.Time `json:"arrival"`
	Polyline             string    `json:"polyline"`
}

// SliderRange describes the hourly departure slots offered alongside the
// selected departure.
type SliderRange struct {
	Min         time.Time `json:"min"`
	Max         time.Time `json:"max"`
	StepMinutes int       `json:"step_minutes"`
	Selected    time.Time `json:"selected"`
}

// TripPlan is the full response for one route-weather request: the selected
// departure's segments and alerts, plus precomputed data for every slot in
// the slider range.
type TripPlan struct {
	Route    RouteSummary        `json:"route"`
	Segments []segments.Segment  `json:"segments"`
	Alerts   []alerts.Alert      `json:"alerts"`
	Sources  []string            `json:"sources"`
	Slots    map[string]SlotData `json:"slots"`
	Slider   SliderRange         `json:"slider"`
}

// TripService orchestrates a route-weather request end to end: route,
// waypoint placement, one raw fetch, rest stops, and per-slot planning.
type TripService struct {
	router    RoutePlanner
	roads     RoadReporter
	fetcher   *Fetcher
	planner   *Planner
	condenser *alerts.Condenser
	store     *cache.Cache
	cfg       *config.Config

	// now is swappable for tests.
	now func() time.Time
}

// NewTripService creates a TripService over the given collaborators.
func NewTripService(router RoutePlanner, roadClient RoadReporter, fetcher *Fetcher, planner *Planner, condenser *alerts.Condenser, store *cache.Cache, cfg *config.Config) *TripService {
	return &TripService{
		router:    router,
		roads:     roadClient,
		fetcher:   fetcher,
		planner:   planner,
		condenser: condenser,
		store:     store,
		cfg:       cfg,
		now:       time.Now,
	}
}

// PlanTrip plans the trip departing at the given time and precomputes
// segment data for every slot in the departure slider range.
func (s *TripService) PlanTrip(ctx context.Context, origin, destination string, departure time.Time) (*TripPlan, error) {
	route, err := s.router.ComputeRoute(ctx, origin, destination, departure)
	if err != nil {
		return nil, fmt.Errorf("computing route: %w", err)
	}

	points, err := geo.DecodePolyline(route.Polyline)
	if err != nil {
		return nil, fmt.Errorf("decoding route polyline: %w", err)
	}
	if len(points) == 0 {
		return nil, errors.New("route contained no geometry")
	}

	// Stations are fetched ahead of placement so waypoints can snap to
	// them; failure degrades to interval-only placement.
	stations, err := s.roads.GetStations(ctx)
	if err != nil {
		log.Printf("Station prefetch failed, placing interval waypoints only: %v", err)
		stations = nil
	}

	waypoints := routing.PlaceWaypoints(points, stations, routing.PlacementConfig{
		SnapRadius:        s.cfg.Waypoints.StationSnapRadiusMiles,
		MinStationSpacing: s.cfg.Waypoints.MinStationSpacingMiles,
		GapThreshold:      s.cfg.Waypoints.GapFillThresholdMiles,
		FillInterval:      s.cfg.Waypoints.FillIntervalMiles,
	})

	raw := s.fetcher.FetchRaw(ctx, waypoints, stations)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}

	restDuration := time.Duration(s.cfg.RestStops.DurationMinutes) * time.Minute
	restStops := s.planRestStops(ctx, waypoints, route, raw, departure)

	selected := s.planner.BuildSlot(departure, waypoints, route, raw, 1.0, restStops, restDuration)
	if s.condenser.Enabled() {
		s.condenseAlerts(ctx, selected.Alerts)
	}

	slotTimes := ComputeSliderSlots(departure, s.now())
	slots := s.buildSlots(slotTimes, waypoints, route, raw, restStops, restDuration)
	slots[departure.Format(time.RFC3339)] = selected

	arrival := selected.Arrival
	plan := &TripPlan{
		Route: RouteSummary{
			Summary:              route.Summary,
			TotalDistanceMiles:   math.Round(route.DistanceMeters/metersPerMile*10) / 10,
			TotalDurationMinutes: int(math.RoundToEven(float64(route.DurationSeconds) / 60)),
			Departure:            departure,
			Arrival:              arrival,
			Polyline:             route.Polyline,
		},
		Segments: selected.Segments,
		Alerts:   selected.Alerts,
		Sources:  raw.Sources,
		Slots:    slots,
		Slider: SliderRange{
			StepMinutes: 60,
			Selected:    departure,
		},
	}
	if len(slotTimes) > 0 {
		plan.Slider.Min = slotTimes[0]
		plan.Slider.Max = slotTimes[len(slotTimes)-1]
	}
	return plan, nil
}

// planRestStops places rest stops from the nominal departure's adjusted
// ETAs and resolves a nearby place name for each. Computed once per request
// and reused across every slot.
func (s *TripService) planRestStops(ctx context.Context, waypoints []routing.Waypoint, route *routing.Route, raw *RawBundle, departure time.Time) []segments.RestStop {
	interval := time.Duration(s.cfg.RestStops.IntervalMinutes) * time.Minute
	if interval <= 0 {
		return nil
	}

	etas := s.planner.AdjustedETAs(departure, waypoints, route, raw, 1.0)
	positions := segments.ComputeRestStopPositions(etas, interval)

	stops := make([]segments.RestStop, 0, len(positions))
	for _, pos := range positions {
		stop := segments.RestStop{
			AfterSegmentIndex: pos,
			Location:          waypoints[pos].Location,
		}
		place, err := s.router.FindNearbyRestStop(ctx, waypoints[pos].Location)
		if err != nil {
			log.Printf("Rest stop lookup failed near waypoint %d: %v", pos, err)
		} else if place != nil {
			stop.PlaceName = place.Name
			stop.Location = place.Location
		}
		stops = append(stops, stop)
	}
	return stops
}

// buildSlots computes slot data for every slider time in parallel. Each
// slot reads only the shared immutable bundle and writes slot-local state.
func (s *TripService) buildSlots(slotTimes []time.Time, waypoints []routing.Waypoint, route *routing.Route, raw *RawBundle, restStops []segments.RestStop, restDuration time.Duration) map[string]SlotData {
	results := make([]SlotData, len(slotTimes))
	var wg sync.WaitGroup
	for i, slot := range slotTimes {
		i, slot := i, slot
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.planner.BuildSlot(slot, waypoints, route, raw, 1.0, restStops, restDuration)
		}()
	}
	wg.Wait()

	slots := make(map[string]SlotData, len(slotTimes))
	for i, slot := range slotTimes {
		slots[slot.Format(time.RFC3339)] = results[i]
	}
	return slots
}

// condenseAlerts fills CondensedSummary for each alert, consulting the
// process-wide cache so repeated slot recomputation does not re-bill the
// summarization API for the same alert text.
func (s *TripService) condenseAlerts(ctx context.Context, list []alerts.Alert) {
	for i := range list {
		hash := alerts.ContentHash(list[i])
		if summary, found, err := s.store.GetCondensedAlert(hash); err == nil && found {
			list[i].CondensedSummary = summary
			continue
		}
		summary, err := s.condenser.Condense(ctx, list[i])
		if err != nil {
			log.Printf("Alert condense failed: %v", err)
			continue
		}
		list[i].CondensedSummary = summary
		if err := s.store.SetCondensedAlert(hash, summary, s.cfg.Alerts.CacheTTL); err != nil {
			log.Printf("Failed to cache condensed alert: %v", err)
		}
	}
}
