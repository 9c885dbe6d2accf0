package roads

import (
	"math"
	"regexp"
	"strings"

	"driveweather.app/server/internal/lib/geo"
)

// highwayPattern matches highway identifiers like "I-80", "US 50", "SR-88",
// "Hwy 4", "Highway 88" or "Route 120" and captures the route number.
var highwayPattern = regexp.MustCompile(`(?i)\b(?:I|US|SR|CA|Hwy\.?|Highway|Route|Rte\.?)[-\s]*(\d+)\b`)

// MatchStation finds the nearest station to a waypoint within radiusMiles.
// Returns nil when no station qualifies.
func MatchStation(stations []Station, waypoint geo.Point, radiusMiles float64) *RoadCondition {
	var best *Station
	bestDist := math.Inf(1)

	for i := range stations {
		dist := geo.MilesBetween(waypoint, stations[i].Location)
		if dist < bestDist && dist <= radiusMiles {
			bestDist = dist
			best = &stations[i]
		}
	}

	if best == nil {
		return nil
	}

	return &RoadCondition{
		PavementStatus:    best.PavementStatus,
		PavementTempF:     best.PavementTempF,
		AirTempF:          best.AirTempF,
		VisibilityMiles:   best.VisibilityMiles,
		WindSpeedMph:      best.WindSpeedMph,
		PrecipitationType: best.PrecipitationType,
		DistanceMiles:     math.Round(bestDist*10) / 10,
	}
}

// HighwayNumbers extracts the set of route numbers named in a turn
// instruction ("Merge onto I-80 East" -> ["80"]).
func HighwayNumbers(instruction string) []string {
	matches := highwayPattern.FindAllStringSubmatch(instruction, -1)
	seen := make(map[string]bool)
	var numbers []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			numbers = append(numbers, m[1])
		}
	}
	return numbers
}

// chainLevelRank orders restriction levels by severity.
func chainLevelRank(level string) int {
	switch strings.ToUpper(level) {
	case "R3":
		return 3
	case "R2":
		return 2
	case "R1":
		return 1
	default:
		return 0
	}
}

// MatchChainControl finds the chain control entry whose highway appears in
// the given turn instruction. When several entries match, the most
// restrictive level wins (R3 > R2 > R1). Returns nil when no control
// matches.
func MatchChainControl(controls []ChainControl, instruction string) *ChainControl {
	if instruction == "" || len(controls) == 0 {
		return nil
	}

	numbers := HighwayNumbers(instruction)
	if len(numbers) == 0 {
		return nil
	}

	var best *ChainControl
	for i := range controls {
		hwy := strings.TrimSpace(controls[i].Highway)
		// CWWP2 reports the bare route number; descriptions carry the
		// prefixed form.
		hwyNumbers := HighwayNumbers(controls[i].Highway)
		for _, n := range numbers {
			matched := hwy == n
			for _, hn := range hwyNumbers {
				if hn == n {
					matched = true
				}
			}
			if !matched {
				continue
			}
			if best == nil || chainLevelRank(controls[i].Level) > chainLevelRank(best.Level) {
				best = &controls[i]
			}
		}
	}

	return best
}
