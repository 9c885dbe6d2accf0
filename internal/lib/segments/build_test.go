package segments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
	"driveweather.app/server/internal/lib/routing"
)

func f64(v float64) *float64 { return &v }

func clearObs() conditions.Observation {
	return conditions.Observation{
		VisibilityMiles: f64(10),
		RainIntensity:   "none",
		FogLevel:        "none",
		PrecipType:      "none",
	}
}

func testWaypoints() []routing.Waypoint {
	return []routing.Waypoint{
		{Location: geo.Point{Latitude: 38.7, Longitude: -120.0}, Kind: routing.KindFill},
		{Location: geo.Point{Latitude: 38.8, Longitude: -120.1}, Kind: routing.KindFill},
		{Location: geo.Point{Latitude: 38.9, Longitude: -120.2}, Kind: routing.KindFill},
	}
}

func TestBuild_MileMarkersAccumulate(t *testing.T) {
	wps := testWaypoints()
	t0 := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	segs := Build(Input{
		Waypoints:    wps,
		ETAs:         []time.Time{t0, t0.Add(time.Hour), t0.Add(2 * time.Hour)},
		Observations: []conditions.Observation{clearObs(), clearObs(), clearObs()},
	})

	require.Len(t, segs, 3)
	assert.Equal(t, 0.0, segs[0].MileMarker)
	assert.Greater(t, segs[1].MileMarker, segs[0].MileMarker)
	assert.Greater(t, segs[2].MileMarker, segs[1].MileMarker)
	for i, seg := range segs {
		assert.Equal(t, i, seg.Index)
		require.NotNil(t, seg.ETA)
	}
	assert.Equal(t, t0.Add(2*time.Hour), *segs[2].ETA)
}

func TestBuild_AttachesNearestStepInstruction(t *testing.T) {
	wps := testWaypoints()
	steps := []routing.Step{
		{Instruction: "Head north on SR-89", StartLocation: geo.Point{Latitude: 38.7, Longitude: -120.0}},
		{Instruction: "Continue on US-50", StartLocation: geo.Point{Latitude: 38.9, Longitude: -120.2}},
	}

	segs := Build(Input{
		Waypoints:    wps,
		Steps:        steps,
		Observations: []conditions.Observation{clearObs(), clearObs(), clearObs()},
	})

	require.Len(t, segs, 3)
	assert.Equal(t, "Head north on SR-89", segs[0].TurnInstruction)
	assert.Equal(t, "Continue on US-50", segs[2].TurnInstruction)
}

func TestBuild_ChainControlRaisesSeverity(t *testing.T) {
	wps := testWaypoints()
	steps := []routing.Step{
		{Instruction: "Continue on US-50", StartLocation: geo.Point{Latitude: 38.8, Longitude: -120.1}},
	}
	controls := []roads.ChainControl{
		{Highway: "US-50", Direction: "EB", Level: "R2", Description: "Chains required over Echo Summit"},
	}

	segs := Build(Input{
		Waypoints:     wps,
		Steps:         steps,
		Observations:  []conditions.Observation{clearObs(), clearObs(), clearObs()},
		ChainControls: controls,
	})

	require.Len(t, segs, 3)
	seg := segs[1]
	require.NotNil(t, seg.RoadConditions.ChainControl)
	assert.Equal(t, "R2", seg.RoadConditions.ChainControl.Level)
	assert.Equal(t, 2, seg.SeverityScore)
	assert.Contains(t, seg.SourceLinks, "caltrans")
}

func TestBuild_SourceLinksConditional(t *testing.T) {
	wps := testWaypoints()[:1]

	obs := clearObs()
	segs := Build(Input{Waypoints: wps, Observations: []conditions.Observation{obs}})
	require.Len(t, segs, 1)
	links := segs[0].SourceLinks
	assert.Contains(t, links, "nws")
	assert.Contains(t, links, "open_meteo")
	assert.NotContains(t, links, "tomorrow_io")
	assert.NotContains(t, links, "caltrans")

	obs.RoadRiskScore = f64(3)
	status := "wet"
	road := &roads.RoadCondition{PavementStatus: status, DistanceMiles: 1.2}
	segs = Build(Input{
		Waypoints:    wps,
		Observations: []conditions.Observation{obs},
		RoadMatches:  []*roads.RoadCondition{road},
	})
	require.Len(t, segs, 1)
	links = segs[0].SourceLinks
	assert.Contains(t, links, "tomorrow_io")
	assert.Contains(t, links, "caltrans")
	require.NotNil(t, segs[0].RoadConditions.PavementStatus)
	assert.Equal(t, status, *segs[0].RoadConditions.PavementStatus)
}

func TestBuild_LightLevelsAndSunEchoed(t *testing.T) {
	wps := testWaypoints()[:1]
	sunrise := time.Date(2026, 1, 15, 15, 10, 0, 0, time.UTC)
	sunset := time.Date(2026, 1, 16, 1, 5, 0, 0, time.UTC)

	segs := Build(Input{
		Waypoints:    wps,
		Observations: []conditions.Observation{clearObs()},
		LightLevels:  []conditions.LightLevel{conditions.Night},
		Sun:          []*SunTimes{{Sunrise: &sunrise, Sunset: &sunset}},
	})

	require.Len(t, segs, 1)
	assert.Equal(t, conditions.Night, segs[0].LightLevel)
	require.NotNil(t, segs[0].Sun)
	assert.Equal(t, sunrise, *segs[0].Sun.Sunrise)
}
