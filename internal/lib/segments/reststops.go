package segments

import (
	"fmt"
	"sort"
	"time"
)

// ComputeRestStopPositions walks ETAs from the trip start and marks the
// waypoint index where cumulative driving time since the last rest reaches
// the interval, resetting the clock at each stop. The destination is never
// marked; if it is the only remaining candidate, placement stops.
func ComputeRestStopPositions(etas []time.Time, interval time.Duration) []int {
	if len(etas) < 2 {
		return nil
	}

	var positions []int
	lastRest := etas[0]
	for i := 1; i < len(etas); i++ {
		if etas[i].Sub(lastRest) >= interval {
			if i == len(etas)-1 {
				break
			}
			positions = append(positions, i)
			lastRest = etas[i]
		}
	}
	return positions
}

// ApplyRestStopDelays shifts ETAs for rest stops. The rest happens after
// arriving at the indexed waypoint, so the delay applies to every ETA
// strictly after it; multiple stops accumulate. The input is not modified.
func ApplyRestStopDelays(etas []time.Time, restIndices []int, duration time.Duration) []time.Time {
	restSet := make(map[int]bool, len(restIndices))
	for _, idx := range restIndices {
		restSet[idx] = true
	}

	result := make([]time.Time, 0, len(etas))
	delay := time.Duration(0)
	for i, eta := range etas {
		result = append(result, eta.Add(delay))
		if restSet[i] {
			delay += duration
		}
	}
	return result
}

// InsertRestStopSegments splices rest-stop pseudo-segments into an
// already-built segment list, each immediately after its referenced segment.
// Insertion runs in descending index order so earlier insertions do not
// shift later indices. The input slice is not modified.
func InsertRestStopSegments(segs []Segment, stops []RestStop, duration time.Duration) []Segment {
	result := make([]Segment, len(segs))
	copy(result, segs)

	ordered := make([]RestStop, len(stops))
	copy(ordered, stops)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].AfterSegmentIndex > ordered[j].AfterSegmentIndex
	})

	for _, stop := range ordered {
		idx := stop.AfterSegmentIndex
		ref := result[len(result)-1]
		if idx < len(result) {
			ref = result[idx]
		}

		name := stop.PlaceName
		if name == "" {
			name = fmt.Sprintf("Rest stop (mile %.1f)", ref.MileMarker)
		}

		pseudo := Segment{
			Type:                "rest_stop",
			Location:            stop.Location,
			PlaceName:           name,
			RestDurationMinutes: int(duration.Minutes()),
			MileMarker:          ref.MileMarker,
		}
		if ref.ETA != nil {
			arrive := *ref.ETA
			depart := arrive.Add(duration)
			pseudo.ETAArrive = &arrive
			pseudo.ETADepart = &depart
		}

		result = append(result, Segment{})
		copy(result[idx+2:], result[idx+1:])
		result[idx+1] = pseudo
	}
	return result
}
