package services

import (
	"time"

	"driveweather.app/server/internal/clients/nws"
	"driveweather.app/server/internal/clients/tomorrowio"
	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/roads"
	"driveweather.app/server/internal/lib/routing"
	"driveweather.app/server/internal/lib/segments"
)

// stationSelfMatchRadius effectively disables the distance check when a
// waypoint was placed on a station; the station is always its own match.
const stationSelfMatchRadius = 9999

// SlotData is the per-departure-slot output: assembled segments plus the
// slot's deduplicated alerts.
type SlotData struct {
	Segments  []segments.Segment `json:"segments"`
	Alerts    []alerts.Alert     `json:"alerts"`
	Departure time.Time          `json:"departure"`
	Arrival   time.Time          `json:"arrival"`
}

// resolved pairs the per-waypoint lookups for one set of ETAs.
type resolved struct {
	observations    []conditions.Observation
	roadMatches     []*roads.RoadCondition
	alertsBySegment [][]alerts.Alert
}

// Planner turns a raw bundle into per-slot segment data.
type Planner struct {
	openMeteo          BatchForecaster
	stationMatchRadius float64
}

// NewPlanner creates a Planner. The Open-Meteo client is needed for
// time-indexed sample and sun-time lookups against the raw forecasts.
func NewPlanner(openMeteoClient BatchForecaster, stationMatchRadius float64) *Planner {
	return &Planner{openMeteo: openMeteoClient, stationMatchRadius: stationMatchRadius}
}

// ComputeSliderSlots returns the hourly departure slots offered to the
// caller: from max(now, departure-48h) rounded up to the hour, through
// departure+48h rounded down, inclusive.
func ComputeSliderSlots(departure, now time.Time) []time.Time {
	start := departure.Add(-48 * time.Hour)
	if now.After(start) {
		start = now
	}
	start = ceilHour(start)
	end := departure.Add(48 * time.Hour).Truncate(time.Hour)

	var slots []time.Time
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		slots = append(slots, t)
	}
	return slots
}

func ceilHour(t time.Time) time.Time {
	truncated := t.Truncate(time.Hour)
	if truncated.Equal(t) {
		return truncated
	}
	return truncated.Add(time.Hour)
}

// resolveForETAs looks up weather, road conditions and active alerts for
// each waypoint at its ETA, reading only from the pre-fetched bundle.
func (p *Planner) resolveForETAs(raw *RawBundle, waypoints []routing.Waypoint, etas []time.Time) resolved {
	n := len(waypoints)
	res := resolved{
		observations:    make([]conditions.Observation, n),
		roadMatches:     make([]*roads.RoadCondition, n),
		alertsBySegment: make([][]alerts.Alert, n),
	}

	for i, wp := range waypoints {
		eta := etas[i]

		var nwsSample, openMeteoSample, tomorrowSample *conditions.Sample
		if i < len(raw.NWS) && raw.NWS[i] != nil {
			nwsSample = nws.FindForecastForTime(raw.NWS[i], eta)
		}
		if i < len(raw.OpenMeteo) && raw.OpenMeteo[i] != nil {
			openMeteoSample = p.openMeteo.FindSampleForTime(raw.OpenMeteo[i], eta)
		}
		if i < len(raw.Tomorrow) && len(raw.Tomorrow[i]) > 0 {
			tomorrowSample = tomorrowio.FindSampleForTime(raw.Tomorrow[i], eta)
		}
		res.observations[i] = conditions.Merge(nwsSample, openMeteoSample, tomorrowSample)

		if wp.Kind == routing.KindStation && wp.Station != nil {
			res.roadMatches[i] = roads.MatchStation([]roads.Station{*wp.Station}, wp.Location, stationSelfMatchRadius)
		} else {
			res.roadMatches[i] = roads.MatchStation(raw.Stations, wp.Location, p.stationMatchRadius)
		}

		if i < len(raw.NWSAlerts) {
			res.alertsBySegment[i] = alerts.FilterActive(raw.NWSAlerts[i], eta)
		}
	}
	return res
}

// BuildSlot runs the full pipeline for one departure time against the
// shared raw bundle. Exactly two ETA passes: the first with the base speed
// factor alone, the second with per-segment weather slowdowns folded in.
// Rest-stop delays and pseudo-segments are applied on top of the second
// pass.
func (p *Planner) BuildSlot(slotDeparture time.Time, waypoints []routing.Waypoint, route *routing.Route, raw *RawBundle, baseSpeedFactor float64, restStops []segments.RestStop, restDuration time.Duration) SlotData {
	adjustedETAs := p.AdjustedETAs(slotDeparture, waypoints, route, raw, baseSpeedFactor)

	finalETAs := adjustedETAs
	if len(restStops) > 0 {
		indices := make([]int, len(restStops))
		for i, rs := range restStops {
			indices[i] = rs.AfterSegmentIndex
		}
		finalETAs = segments.ApplyRestStopDelays(adjustedETAs, indices, restDuration)
	}

	final := p.resolveForETAs(raw, waypoints, finalETAs)

	lightLevels := make([]conditions.LightLevel, len(finalETAs))
	sunTimes := make([]*segments.SunTimes, len(finalETAs))
	for i, eta := range finalETAs {
		lightLevels[i] = p.lightLevelAt(raw, i, eta)
		sunTimes[i] = p.sunTimesAt(raw, i, eta)
	}

	segs := segments.Build(segments.Input{
		Waypoints:       waypoints,
		ETAs:            finalETAs,
		Steps:           route.Steps,
		Observations:    final.observations,
		RoadMatches:     final.roadMatches,
		AlertsBySegment: final.alertsBySegment,
		ChainControls:   raw.ChainControls,
		LightLevels:     lightLevels,
		Sun:             sunTimes,
	})
	if len(restStops) > 0 {
		segs = segments.InsertRestStopSegments(segs, restStops, restDuration)
	}

	arrival := slotDeparture
	if len(finalETAs) > 0 {
		arrival = finalETAs[len(finalETAs)-1]
	}

	return SlotData{
		Segments:  segs,
		Alerts:    dedupAlerts(final.alertsBySegment),
		Departure: slotDeparture,
		Arrival:   arrival,
	}
}

// AdjustedETAs runs the two ETA passes: pass one with the base speed factor
// alone, then per-segment weather slowdowns derived from that first
// resolution, then pass two folding the slowdowns in. Light level for each
// slowdown uses the first-pass ETA at the segment's start.
func (p *Planner) AdjustedETAs(slotDeparture time.Time, waypoints []routing.Waypoint, route *routing.Route, raw *RawBundle, baseSpeedFactor float64) []time.Time {
	totalDuration := time.Duration(route.DurationSeconds) * time.Second

	scaled := time.Duration(float64(totalDuration) / baseSpeedFactor)
	initialETAs := routing.ComputeETAs(waypoints, scaled, slotDeparture)

	first := p.resolveForETAs(raw, waypoints, initialETAs)

	slowdowns := make([]float64, 0, len(waypoints))
	for i := 0; i < len(first.observations)-1; i++ {
		light := p.lightLevelAt(raw, i, initialETAs[i])
		slowdowns = append(slowdowns, conditions.SlowdownFactor(first.observations[i], light))
	}

	return routing.ComputeAdjustedETAs(waypoints, totalDuration, slotDeparture, baseSpeedFactor, slowdowns)
}

// lightLevelAt classifies day/twilight/night at a waypoint's ETA using the
// Open-Meteo sunrise/sunset for that date; missing data defaults to day.
func (p *Planner) lightLevelAt(raw *RawBundle, i int, eta time.Time) conditions.LightLevel {
	var sunrise, sunset *time.Time
	if i < len(raw.OpenMeteo) && raw.OpenMeteo[i] != nil {
		if sun := p.openMeteo.FindSunTimes(raw.OpenMeteo[i], eta); sun != nil {
			sunrise, sunset = &sun.Sunrise, &sun.Sunset
		}
	}
	return conditions.ClassifyLightLevel(eta, sunrise, sunset)
}

func (p *Planner) sunTimesAt(raw *RawBundle, i int, eta time.Time) *segments.SunTimes {
	if i >= len(raw.OpenMeteo) || raw.OpenMeteo[i] == nil {
		return nil
	}
	sun := p.openMeteo.FindSunTimes(raw.OpenMeteo[i], eta)
	if sun == nil {
		return nil
	}
	return &segments.SunTimes{Sunrise: &sun.Sunrise, Sunset: &sun.Sunset}
}

// dedupAlerts merges a slot's alerts by headline. The first occurrence
// creates the entry with its segment index; later occurrences of the same
// headline append their index instead of duplicating the alert.
func dedupAlerts(alertsBySegment [][]alerts.Alert) []alerts.Alert {
	var all []alerts.Alert
	seen := make(map[string]int)
	for i, segAlerts := range alertsBySegment {
		for _, alert := range segAlerts {
			if at, ok := seen[alert.Headline]; ok {
				all[at].AffectedSegments = append(all[at].AffectedSegments, i)
				continue
			}
			alert.AffectedSegments = []int{i}
			seen[alert.Headline] = len(all)
			all = append(all, alert)
		}
	}
	if all == nil {
		all = []alerts.Alert{}
	}
	return all
}
