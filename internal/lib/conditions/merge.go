// Package conditions merges per-provider weather samples into a single
// observation per waypoint and time, and scores the result for hazard
// severity.
package conditions

import "math"

// Sample is one provider's normalized observation at one point in time.
// Pointer fields are absent when the provider did not report them; zero
// values stand in for "not reported" on the numeric fields the merge treats
// conservatively.
type Sample struct {
	TemperatureF      *float64
	WindSpeedMph      float64
	WindGustsMph      float64
	WindDirectionDeg  *float64
	PrecipProbability float64
	PrecipType        string
	PrecipMmHr        float64
	VisibilityMiles   *float64
	SnowDepthIn       float64
	FreezingLevelFt   *float64
	ConditionText     string
	RoadRiskScore     *float64
	RoadRiskLabel     string
}

// Observation is the merged per-waypoint weather at one target time.
type Observation struct {
	TemperatureF      *float64 `json:"temperature_f"`
	WindSpeedMph      float64  `json:"wind_speed_mph"`
	WindGustsMph      float64  `json:"wind_gusts_mph"`
	WindDirectionDeg  *float64 `json:"wind_direction_deg"`
	PrecipProbability float64  `json:"precipitation_probability"`
	PrecipType        string   `json:"precipitation_type"`
	PrecipMmHr        float64  `json:"precipitation_mm_hr"`
	RainIntensity     string   `json:"rain_intensity"`
	VisibilityMiles   *float64 `json:"visibility_miles"`
	FogLevel          string   `json:"fog_level"`
	SnowDepthIn       float64  `json:"snow_depth_in"`
	FreezingLevelFt   *float64 `json:"freezing_level_ft"`
	ConditionText     string   `json:"condition_text"`
	RoadRiskScore     *float64 `json:"road_risk_score"`
	RoadRiskLabel     string   `json:"road_risk_label,omitempty"`
}

// ClassifyRainIntensity buckets a precipitation rate in mm/hr.
func ClassifyRainIntensity(mmHr float64) string {
	switch {
	case mmHr < 0.1:
		return "none"
	case mmHr < 0.5:
		return "light"
	case mmHr < 4.0:
		return "moderate"
	default:
		return "heavy"
	}
}

// ClassifyFogLevel buckets visibility in miles. Unknown visibility reads as
// clear.
func ClassifyFogLevel(visibilityMiles *float64) string {
	switch {
	case visibilityMiles == nil, *visibilityMiles > 5.0:
		return "none"
	case *visibilityMiles > 1.0:
		return "patchy"
	default:
		return "dense"
	}
}

// Merge resolves a single observation from up to three provider samples.
// The merge rules are fixed and source-prioritized: conservative maxima for
// wind and precipitation probability, conservative minimum for visibility,
// Open-Meteo for rates and snow, Tomorrow.io for precipitation type and road
// risk, NWS for condition text. Deterministic and stateless.
func Merge(nws, openMeteo, tomorrow *Sample) Observation {
	var obs Observation

	// Temperature: mean of Open-Meteo and Tomorrow.io; NWS only as fallback.
	var temps []float64
	if openMeteo != nil && openMeteo.TemperatureF != nil {
		temps = append(temps, *openMeteo.TemperatureF)
	}
	if tomorrow != nil && tomorrow.TemperatureF != nil {
		temps = append(temps, *tomorrow.TemperatureF)
	}
	if len(temps) == 0 && nws != nil && nws.TemperatureF != nil {
		temps = append(temps, *nws.TemperatureF)
	}
	if len(temps) > 0 {
		sum := 0.0
		for _, t := range temps {
			sum += t
		}
		mean := math.Round(sum/float64(len(temps))*10) / 10
		obs.TemperatureF = &mean
	}

	// Wind speed: max across all present sources (never under-report).
	for _, s := range []*Sample{nws, openMeteo, tomorrow} {
		if s != nil && s.WindSpeedMph > obs.WindSpeedMph {
			obs.WindSpeedMph = s.WindSpeedMph
		}
	}

	// Gusts: max of sources that report them, else equal to wind speed.
	for _, s := range []*Sample{openMeteo, tomorrow} {
		if s != nil && s.WindGustsMph > obs.WindGustsMph {
			obs.WindGustsMph = s.WindGustsMph
		}
	}
	if obs.WindGustsMph == 0 {
		obs.WindGustsMph = obs.WindSpeedMph
	}

	if openMeteo != nil {
		obs.WindDirectionDeg = openMeteo.WindDirectionDeg
		obs.PrecipMmHr = openMeteo.PrecipMmHr
		obs.SnowDepthIn = openMeteo.SnowDepthIn
		obs.FreezingLevelFt = openMeteo.FreezingLevelFt
	}

	// Precipitation probability: max of NWS and Tomorrow.io.
	for _, s := range []*Sample{nws, tomorrow} {
		if s != nil && s.PrecipProbability > obs.PrecipProbability {
			obs.PrecipProbability = s.PrecipProbability
		}
	}

	obs.PrecipType = "none"
	if tomorrow != nil && tomorrow.PrecipType != "" {
		obs.PrecipType = tomorrow.PrecipType
	}

	obs.RainIntensity = ClassifyRainIntensity(obs.PrecipMmHr)

	// Visibility: min of sources that report it.
	for _, s := range []*Sample{openMeteo, tomorrow} {
		if s != nil && s.VisibilityMiles != nil {
			if obs.VisibilityMiles == nil || *s.VisibilityMiles < *obs.VisibilityMiles {
				v := *s.VisibilityMiles
				obs.VisibilityMiles = &v
			}
		}
	}
	obs.FogLevel = ClassifyFogLevel(obs.VisibilityMiles)

	if nws != nil && nws.ConditionText != "" {
		obs.ConditionText = nws.ConditionText
	} else if tomorrow != nil {
		obs.ConditionText = tomorrow.ConditionText
	}

	if tomorrow != nil {
		obs.RoadRiskScore = tomorrow.RoadRiskScore
		obs.RoadRiskLabel = tomorrow.RoadRiskLabel
	}

	return obs
}
