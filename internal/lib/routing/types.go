package routing

import (
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
)

// WaypointKind distinguishes interval-fill waypoints from waypoints snapped
// to a roadside sensor station.
type WaypointKind string

const (
	KindFill    WaypointKind = "fill"
	KindStation WaypointKind = "station"
)

// Waypoint is a point along the route at which weather and road data is
// evaluated. Station waypoints carry a reference to the matched station.
type Waypoint struct {
	Location        geo.Point      `json:"location"`
	Kind            WaypointKind   `json:"kind"`
	Station         *roads.Station `json:"station,omitempty"`
	AlongRouteMiles float64        `json:"along_route_miles"`
}

// Step is a single turn-by-turn instruction from the route provider.
type Step struct {
	Instruction   string    `json:"instruction"`
	Maneuver      string    `json:"maneuver,omitempty"`
	StartLocation geo.Point `json:"start_location"`
	EndLocation   geo.Point `json:"end_location"`
}

// Route is the resolved driving route between origin and destination.
type Route struct {
	Polyline        string  `json:"polyline"`
	Steps           []Step  `json:"steps"`
	DistanceMeters  float64 `json:"total_distance_meters"`
	DurationSeconds int     `json:"total_duration_seconds"`
	Summary         string  `json:"summary"`
}
