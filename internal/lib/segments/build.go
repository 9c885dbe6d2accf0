package segments

import (
	"fmt"
	"math"
	"time"

	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
	"driveweather.app/server/internal/lib/routing"
)

// Input bundles the per-waypoint data the assembler walks in lockstep.
// Observations, RoadMatches, AlertsBySegment, LightLevels, ETAs and Sun all
// index by waypoint; shorter slices are treated as absent for the tail.
type Input struct {
	Waypoints       []routing.Waypoint
	ETAs            []time.Time
	Steps           []routing.Step
	Observations    []conditions.Observation
	RoadMatches     []*roads.RoadCondition
	AlertsBySegment [][]alerts.Alert
	ChainControls   []roads.ChainControl
	LightLevels     []conditions.LightLevel
	Sun             []*SunTimes
}

// Build assembles the response segments: cumulative mile markers, nearest
// route-step turn instruction, chain-control matching against that
// instruction, severity scoring, and conditional source-attribution links.
func Build(in Input) []Segment {
	out := make([]Segment, 0, len(in.Waypoints))
	cumulativeMiles := 0.0

	for i, wp := range in.Waypoints {
		if i > 0 {
			cumulativeMiles += geo.MilesBetween(in.Waypoints[i-1].Location, wp.Location)
		}

		var obs conditions.Observation
		if i < len(in.Observations) {
			obs = in.Observations[i]
		}
		var road *roads.RoadCondition
		if i < len(in.RoadMatches) {
			road = in.RoadMatches[i]
		}
		var segAlerts []alerts.Alert
		if i < len(in.AlertsBySegment) {
			segAlerts = in.AlertsBySegment[i]
		}

		instruction := nearestStepInstruction(in.Steps, wp.Location)
		chain := roads.MatchChainControl(in.ChainControls, instruction)
		score, label := conditions.Severity(obs, road, chain, segAlerts)

		var pavement *string
		if road != nil && road.PavementStatus != "" {
			status := road.PavementStatus
			pavement = &status
		}

		seg := Segment{
			Index: i,
			Location: geo.Point{
				Latitude:  round5(wp.Location.Latitude),
				Longitude: round5(wp.Location.Longitude),
			},
			MileMarker:      math.Round(cumulativeMiles*10) / 10,
			TurnInstruction: instruction,
			Weather:         &obs,
			RoadConditions: &RoadSummary{
				ChainControl:   chain,
				PavementStatus: pavement,
				Alerts:         segAlerts,
			},
			SeverityScore: score,
			SeverityLabel: label,
			SourceLinks:   sourceLinks(round5(wp.Location.Latitude), round5(wp.Location.Longitude), obs, road, chain),
		}
		if i < len(in.ETAs) {
			eta := in.ETAs[i]
			seg.ETA = &eta
		}
		if i < len(in.LightLevels) {
			seg.LightLevel = in.LightLevels[i]
		}
		if i < len(in.Sun) {
			seg.Sun = in.Sun[i]
		}
		out = append(out, seg)
	}
	return out
}

// nearestStepInstruction attaches the turn instruction whose step start is
// closest to the waypoint.
func nearestStepInstruction(steps []routing.Step, loc geo.Point) string {
	instruction := ""
	bestDist := math.Inf(1)
	for _, step := range steps {
		d := geo.MilesBetween(loc, step.StartLocation)
		if d < bestDist {
			bestDist = d
			instruction = step.Instruction
		}
	}
	return instruction
}

// sourceLinks builds the per-segment attribution links. NWS and Open-Meteo
// always appear; Tomorrow.io only when road risk came through; Caltrans only
// when chain-control or pavement data exists for the segment.
func sourceLinks(lat, lon float64, obs conditions.Observation, road *roads.RoadCondition, chain *roads.ChainControl) map[string]string {
	links := map[string]string{
		"nws":        fmt.Sprintf("https://forecast.weather.gov/MapClick.php?lat=%v&lon=%v", lat, lon),
		"open_meteo": fmt.Sprintf("https://open-meteo.com/en/docs#latitude=%v&longitude=%v", lat, lon),
	}
	if obs.RoadRiskScore != nil {
		links["tomorrow_io"] = "https://www.tomorrow.io/weather/"
	}
	if chain != nil || (road != nil && road.PavementStatus != "") {
		links["caltrans"] = "https://roads.dot.ca.gov/"
	}
	return links
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
