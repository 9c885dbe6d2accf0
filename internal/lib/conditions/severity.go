package conditions

import (
	"math"
	"strings"
	"time"

	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/roads"
)

// LightLevel classifies ambient light at a waypoint's ETA.
type LightLevel string

const (
	Day      LightLevel = "day"
	Twilight LightLevel = "twilight"
	Night    LightLevel = "night"
)

// twilightWindow is the band around sunrise/sunset treated as twilight.
const twilightWindow = 30 * time.Minute

// effectiveWind folds gusts into a single conservative wind figure.
func effectiveWind(windMph, gustsMph float64) float64 {
	return math.Max(windMph, gustsMph*0.7)
}

// Severity converts an observation, matched road condition, matched chain
// control and active alerts into an additive 0-10 hazard score and a
// green/yellow/red label.
func Severity(obs Observation, road *roads.RoadCondition, chain *roads.ChainControl, active []alerts.Alert) (int, string) {
	score := 0.0

	if obs.VisibilityMiles != nil {
		switch vis := *obs.VisibilityMiles; {
		case vis < 0.25:
			score += 4
		case vis < 1.0:
			score += 3
		case vis < 3.0:
			score += 2
		case vis < 5.0:
			score += 1
		}
	}

	switch wind := effectiveWind(obs.WindSpeedMph, obs.WindGustsMph); {
	case wind > 45:
		score += 3
	case wind > 35:
		score += 2.5
	case wind >= 25:
		score += 1.5
	case wind > 20:
		score += 1
	}

	switch {
	case obs.PrecipMmHr > 8.0:
		score += 3
	case obs.PrecipMmHr > 4.0:
		score += 2.5
	case obs.PrecipMmHr > 2.0:
		score += 1.5
	case obs.PrecipMmHr > 0.5:
		score += 1
	}

	if chain != nil {
		switch strings.ToUpper(chain.Level) {
		case "R3":
			score += 3
		case "R2":
			score += 2
		case "R1":
			score += 1
		}
	}

	if road != nil {
		switch strings.ToLower(road.PavementStatus) {
		case "ice", "snow":
			score += 2
		case "wet":
			score += 0.5
		}
	}

	for _, alert := range active {
		switch strings.ToLower(alert.Severity) {
		case "extreme", "severe":
			score += 2
		case "moderate":
			score += 1
		}
	}

	final := int(math.Min(10, math.RoundToEven(score)))

	switch {
	case final <= 3:
		return final, "green"
	case final <= 6:
		return final, "yellow"
	default:
		return final, "red"
	}
}

// SlowdownFactor derives the multiplicative speed factor (<=1.0) fed back
// into the ETA computation. Independent of the severity score.
func SlowdownFactor(obs Observation, light LightLevel) float64 {
	factor := 1.0

	switch obs.RainIntensity {
	case "light":
		factor *= 0.90
	case "moderate":
		factor *= 0.80
	case "heavy":
		factor *= 0.70
	}

	if obs.PrecipType == "snow" || obs.SnowDepthIn > 0 {
		factor *= 0.65
	}

	switch obs.FogLevel {
	case "dense":
		factor *= 0.70
	case "patchy":
		factor *= 0.85
	}

	if effectiveWind(obs.WindSpeedMph, obs.WindGustsMph) > 35 {
		factor *= 0.85
	}

	if light == Night && obs.RainIntensity != "none" {
		factor *= 0.90
	}

	return math.Round(factor*1000) / 1000
}

// ClassifyLightLevel buckets a time into day, twilight or night relative to
// sunrise and sunset. Twilight is within 30 minutes (inclusive) of either;
// missing sun data defaults to day.
func ClassifyLightLevel(t time.Time, sunrise, sunset *time.Time) LightLevel {
	if sunrise == nil || sunset == nil {
		return Day
	}

	nearSunrise := absDuration(t.Sub(*sunrise)) <= twilightWindow
	nearSunset := absDuration(t.Sub(*sunset)) <= twilightWindow
	if nearSunrise || nearSunset {
		return Twilight
	}
	if t.After(sunrise.Add(twilightWindow)) && t.Before(sunset.Add(-twilightWindow)) {
		return Day
	}
	return Night
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
