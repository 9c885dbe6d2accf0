package roads

import "driveweather.app/server/internal/lib/geo"

// Station represents a fixed Caltrans RWIS roadside sensor with its most
// recent readings. Pointer-valued fields are absent when the sensor did not
// report them.
type Station struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Location          geo.Point `json:"location"`
	PavementStatus    string    `json:"pavement_status"`
	PavementTempF     *float64  `json:"pavement_temp_f"`
	AirTempF          *float64  `json:"air_temp_f"`
	VisibilityMiles   *float64  `json:"visibility_miles"`
	WindSpeedMph      *float64  `json:"wind_speed_mph"`
	PrecipitationType string    `json:"precipitation_type"`
}

// RoadCondition is the nearest-station match for a waypoint, or nil when no
// station sits within the match radius.
type RoadCondition struct {
	PavementStatus    string   `json:"pavement_status"`
	PavementTempF     *float64 `json:"pavement_temp_f"`
	AirTempF          *float64 `json:"air_temp_f"`
	VisibilityMiles   *float64 `json:"visibility_miles"`
	WindSpeedMph      *float64 `json:"wind_speed_mph"`
	PrecipitationType string   `json:"precipitation_type"`
	DistanceMiles     float64  `json:"distance_miles"`
}

// ChainControl is one Caltrans chain restriction entry. Level is one of
// R1, R2, R3.
type ChainControl struct {
	Highway       string   `json:"highway"`
	Direction     string   `json:"direction"`
	Level         string   `json:"level"`
	BeginPostmile *float64 `json:"begin_postmile"`
	EndPostmile   *float64 `json:"end_postmile"`
	Description   string   `json:"description"`
}
