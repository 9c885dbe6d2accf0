package services

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	kml "github.com/twpayne/go-kml/v2"

	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/segments"
)

var severityColors = map[string]color.RGBA{
	"green":  {R: 0x2e, G: 0xcc, B: 0x40, A: 0xff},
	"yellow": {R: 0xff, G: 0xdc, B: 0x00, A: 0xff},
	"red":    {R: 0xff, G: 0x41, B: 0x36, A: 0xff},
}

// WriteRouteOverlay renders a trip plan as a KML document: the route line
// plus one placemark per segment, styled by severity, suitable for Google
// Earth or any KML-aware map layer.
func WriteRouteOverlay(w io.Writer, plan *TripPlan) error {
	children := []kml.Element{
		kml.Name(overlayName(plan)),
	}
	for _, label := range []string{"green", "yellow", "red"} {
		children = append(children, kml.SharedStyle("severity-"+label,
			kml.IconStyle(
				kml.Color(severityColors[label]),
				kml.Scale(1.1),
			),
		))
	}

	if line := routeLine(plan.Route.Polyline); line != nil {
		children = append(children, line)
	}
	for _, seg := range plan.Segments {
		children = append(children, segmentPlacemark(seg))
	}

	doc := kml.KML(kml.Document(children...))
	return doc.WriteIndent(w, "", "  ")
}

func overlayName(plan *TripPlan) string {
	if plan.Route.Summary != "" {
		return plan.Route.Summary
	}
	return "Route weather"
}

func routeLine(polyline string) kml.Element {
	points, err := geo.DecodePolyline(polyline)
	if err != nil || len(points) < 2 {
		return nil
	}
	coords := make([]kml.Coordinate, len(points))
	for i, p := range points {
		coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}
	return kml.Placemark(
		kml.Name("Route"),
		kml.LineString(
			kml.Coordinates(coords...),
			kml.Tessellate(true),
		),
	)
}

func segmentPlacemark(seg segments.Segment) kml.Element {
	name := fmt.Sprintf("Mile %.1f", seg.MileMarker)
	if seg.Type == "rest_stop" && seg.PlaceName != "" {
		name = seg.PlaceName
	}

	styleLabel := seg.SeverityLabel
	if _, ok := severityColors[styleLabel]; !ok {
		styleLabel = "green"
	}

	return kml.Placemark(
		kml.Name(name),
		kml.Description(segmentDescription(seg)),
		kml.StyleURL("#severity-"+styleLabel),
		kml.Point(
			kml.Coordinates(kml.Coordinate{
				Lon: seg.Location.Longitude,
				Lat: seg.Location.Latitude,
			}),
		),
	)
}

func segmentDescription(seg segments.Segment) string {
	var lines []string
	if seg.ETA != nil {
		lines = append(lines, "ETA: "+seg.ETA.Format("Mon 3:04 PM"))
	}
	if seg.Weather != nil {
		if seg.Weather.ConditionText != "" {
			lines = append(lines, seg.Weather.ConditionText)
		}
		if seg.Weather.TemperatureF != nil {
			lines = append(lines, fmt.Sprintf("%.0f°F", *seg.Weather.TemperatureF))
		}
	}
	if seg.SeverityLabel != "" {
		lines = append(lines, fmt.Sprintf("Severity: %s (%d)", seg.SeverityLabel, seg.SeverityScore))
	}
	if seg.RoadConditions != nil && seg.RoadConditions.ChainControl != nil {
		cc := seg.RoadConditions.ChainControl
		lines = append(lines, fmt.Sprintf("Chains: %s on %s", cc.Level, cc.Highway))
	}
	if seg.TurnInstruction != "" {
		lines = append(lines, seg.TurnInstruction)
	}
	return strings.Join(lines, "\n")
}
