package segments

import (
	"time"

	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
)

// RoadSummary is the per-segment road-authority view: the matched chain
// control (if the turn instruction names a restricted highway), the nearest
// station's pavement status, and active alerts.
type RoadSummary struct {
	ChainControl   *roads.ChainControl `json:"chain_control"`
	PavementStatus *string             `json:"pavement_status"`
	Alerts         []alerts.Alert      `json:"alerts"`
}

// SunTimes carries the sunrise/sunset pair used for light-level
// classification, echoed into the response for client-side rendering.
type SunTimes struct {
	Sunrise *time.Time `json:"sunrise"`
	Sunset  *time.Time `json:"sunset"`
}

// Segment is one waypoint's slice of the trip. Rest-stop pseudo-segments
// reuse the same struct with Type "rest_stop" and only the rest fields set.
type Segment struct {
	Index           int                     `json:"index"`
	Type            string                  `json:"type,omitempty"`
	Location        geo.Point               `json:"location"`
	MileMarker      float64                 `json:"mile_marker"`
	ETA             *time.Time              `json:"eta,omitempty"`
	TurnInstruction string                  `json:"turn_instruction,omitempty"`
	Weather         *conditions.Observation `json:"weather,omitempty"`
	RoadConditions  *RoadSummary            `json:"road_conditions,omitempty"`
	SeverityScore   int                     `json:"severity_score"`
	SeverityLabel   string                  `json:"severity_label,omitempty"`
	LightLevel      conditions.LightLevel   `json:"light_level,omitempty"`
	Sun             *SunTimes               `json:"sun,omitempty"`
	SourceLinks     map[string]string       `json:"source_links,omitempty"`

	// Rest-stop pseudo-segment fields.
	PlaceName           string     `json:"place_name,omitempty"`
	RestDurationMinutes int        `json:"rest_duration_minutes,omitempty"`
	ETAArrive           *time.Time `json:"eta_arrive,omitempty"`
	ETADepart           *time.Time `json:"eta_depart,omitempty"`
}

// RestStop links a planned rest to the segment it follows, with the place
// found by the point-of-interest lookup (or the waypoint itself as fallback).
type RestStop struct {
	AfterSegmentIndex int       `json:"after_segment_index"`
	PlaceName         string    `json:"place_name,omitempty"`
	Location          geo.Point `json:"location"`
}
