package routing

import (
	"math"
	"time"

	"driveweather.app/server/internal/lib/geo"
)

// speedFloor prevents division blow-up from pathological slowdown inputs.
const speedFloor = 0.1

// ComputeETAs assigns an arrival time to each waypoint assuming constant
// speed, splitting the total trip duration proportionally to great-circle
// segment distance. The first waypoint's ETA equals the departure time.
func ComputeETAs(waypoints []Waypoint, totalDuration time.Duration, departure time.Time) []time.Time {
	return ComputeAdjustedETAs(waypoints, totalDuration, departure, 1.0, nil)
}

// ComputeAdjustedETAs is ComputeETAs with a global speed factor and optional
// per-segment slowdowns. slowdowns[i] applies to travel from waypoints[i] to
// waypoints[i+1]; 0.7 means 70% of normal speed, so the segment takes 1/0.7
// longer. The effective factor is floored at 0.1.
func ComputeAdjustedETAs(waypoints []Waypoint, totalDuration time.Duration, departure time.Time, baseSpeedFactor float64, slowdowns []float64) []time.Time {
	if len(waypoints) <= 1 {
		return []time.Time{departure}
	}

	segDistances := make([]float64, 0, len(waypoints)-1)
	totalDistance := 0.0
	for i := 1; i < len(waypoints); i++ {
		d := geo.MilesBetween(waypoints[i-1].Location, waypoints[i].Location)
		segDistances = append(segDistances, d)
		totalDistance += d
	}
	if totalDistance == 0 {
		etas := make([]time.Time, len(waypoints))
		for i := range etas {
			etas[i] = departure
		}
		return etas
	}

	etas := make([]time.Time, 0, len(waypoints))
	etas = append(etas, departure)
	cumulativeSeconds := 0.0
	for i, d := range segDistances {
		baseSeconds := (d / totalDistance) * totalDuration.Seconds()
		slowdown := 1.0
		if i < len(slowdowns) {
			slowdown = slowdowns[i]
		}
		effective := math.Max(baseSpeedFactor*slowdown, speedFloor)
		cumulativeSeconds += baseSeconds / effective
		etas = append(etas, departure.Add(time.Duration(cumulativeSeconds*float64(time.Second))))
	}
	return etas
}
