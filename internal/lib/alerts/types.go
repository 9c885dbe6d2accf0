package alerts

import "time"

// Alert represents one active NWS alert near a waypoint.
type Alert struct {
	Type             string     `json:"type"`
	Headline         string     `json:"headline"`
	Severity         string     `json:"severity"`
	Description      string     `json:"description"`
	Expires          *time.Time `json:"expires,omitempty"`
	Onset            *time.Time `json:"onset,omitempty"`
	CondensedSummary string     `json:"condensed_summary,omitempty"`

	// AffectedSegments is filled in during per-slot deduplication: the
	// segment indices this alert applies to.
	AffectedSegments []int `json:"affected_segments,omitempty"`
}

// ActiveAt reports whether the alert is still active at the given time. An
// alert with no expiry never expires; one expiring exactly at t is already
// inactive.
func (a Alert) ActiveAt(t time.Time) bool {
	if a.Expires == nil {
		return true
	}
	return a.Expires.After(t)
}

// FilterActive returns the subset of alerts still active at t, preserving
// order.
func FilterActive(list []Alert, t time.Time) []Alert {
	var active []Alert
	for _, a := range list {
		if a.ActiveAt(t) {
			active = append(active, a)
		}
	}
	return active
}
