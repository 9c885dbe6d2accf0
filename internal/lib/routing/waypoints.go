package routing

import (
	"math"
	"sort"

	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
)

// PlacementConfig holds the tunables for station-aware waypoint placement.
// All distances are in miles.
type PlacementConfig struct {
	SnapRadius        float64 // max distance from route to adopt a station
	MinStationSpacing float64 // min along-route spacing between kept stations
	GapThreshold      float64 // gaps wider than this get fill waypoints
	FillInterval      float64 // spacing of inserted fill waypoints
}

// DefaultPlacementConfig mirrors the production tunables for Sierra routes.
func DefaultPlacementConfig() PlacementConfig {
	return PlacementConfig{
		SnapRadius:        15,
		MinStationSpacing: 5,
		GapThreshold:      30,
		FillInterval:      15,
	}
}

// PlaceWaypoints builds the evaluation waypoints for a route, preferring
// sensor station locations where they sit near the route and filling long
// gaps at a regular interval. Output is ordered by along-route position,
// starts at the route origin and ends at the destination.
func PlaceWaypoints(points []geo.Point, stations []roads.Station, cfg PlacementConfig) []Waypoint {
	if len(points) == 0 {
		return nil
	}
	if len(points) == 1 {
		return []Waypoint{{Location: points[0], Kind: KindFill}}
	}

	cumulative := geo.CumulativeMiles(points)
	totalMiles := cumulative[len(cumulative)-1]

	type candidate struct {
		station roads.Station
		along   float64
	}
	var candidates []candidate
	for _, st := range stations {
		if !st.Location.Valid() {
			continue
		}
		distFromRoute, along := geo.ClosestOnRoute(points, cumulative, st.Location)
		if distFromRoute <= cfg.SnapRadius {
			candidates = append(candidates, candidate{station: st, along: along})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].along < candidates[j].along
	})

	// Greedy dedup: first station at a position wins, nearby followers drop.
	var kept []candidate
	for _, c := range candidates {
		if len(kept) > 0 && math.Abs(c.along-kept[len(kept)-1].along) < cfg.MinStationSpacing {
			continue
		}
		kept = append(kept, c)
	}

	result := []Waypoint{{Location: points[0], Kind: KindFill, AlongRouteMiles: 0}}
	for _, c := range kept {
		st := c.station
		result = append(result, Waypoint{
			Location:        st.Location,
			Kind:            KindStation,
			Station:         &st,
			AlongRouteMiles: c.along,
		})
	}
	result = append(result, Waypoint{
		Location:        points[len(points)-1],
		Kind:            KindFill,
		AlongRouteMiles: totalMiles,
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AlongRouteMiles < result[j].AlongRouteMiles
	})

	// Fill gaps wider than the threshold at the fill interval, never
	// reaching the next kept waypoint's position.
	filled := make([]Waypoint, 0, len(result))
	for i, wp := range result {
		filled = append(filled, wp)
		if i == len(result)-1 {
			continue
		}
		gap := result[i+1].AlongRouteMiles - wp.AlongRouteMiles
		if gap <= cfg.GapThreshold {
			continue
		}
		numFills := int(gap / cfg.FillInterval)
		for f := 1; f <= numFills; f++ {
			target := wp.AlongRouteMiles + float64(f)*cfg.FillInterval
			if target >= result[i+1].AlongRouteMiles {
				break
			}
			filled = append(filled, Waypoint{
				Location:        geo.PointAtMiles(points, cumulative, target),
				Kind:            KindFill,
				AlongRouteMiles: target,
			})
		}
	}
	sort.SliceStable(filled, func(i, j int) bool {
		return filled[i].AlongRouteMiles < filled[j].AlongRouteMiles
	})

	return filled
}
