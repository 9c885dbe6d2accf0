package services

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"driveweather.app/server/internal/clients/google"
	"driveweather.app/server/internal/clients/nws"
	"driveweather.app/server/internal/clients/openmeteo"
	"driveweather.app/server/internal/clients/tomorrowio"
	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
	"driveweather.app/server/internal/lib/routing"
)

// defaultTomorrowSamples caps how many waypoints get their own Tomorrow.io
// timeline call per route when the config does not say otherwise.
const defaultTomorrowSamples = 5

// WeatherForecaster is the per-point hourly forecast + alerts source (NWS).
type WeatherForecaster interface {
	GetHourlyForecast(ctx context.Context, lat, lon float64) ([]nws.ForecastPeriod, error)
	GetActiveAlerts(ctx context.Context, lat, lon float64) ([]alerts.Alert, error)
}

// BatchForecaster is the multi-point forecast source (Open-Meteo). The
// lookup helpers live on the client because hourly timestamps are reported
// in the provider-local timezone.
type BatchForecaster interface {
	GetForecasts(ctx context.Context, lats, lons []float64) ([]*openmeteo.Forecast, error)
	FindSampleForTime(f *openmeteo.Forecast, target time.Time) *conditions.Sample
	FindSunTimes(f *openmeteo.Forecast, target time.Time) *openmeteo.SunTimes
}

// TimelineForecaster is the rate-limited road-risk timeline source
// (Tomorrow.io).
type TimelineForecaster interface {
	GetTimeline(ctx context.Context, lat, lon float64) ([]tomorrowio.Interval, error)
}

// RoadReporter supplies chain controls and roadside sensor stations
// (Caltrans CWWP2 + QuickMap).
type RoadReporter interface {
	GetChainControls(ctx context.Context) ([]roads.ChainControl, error)
	GetStations(ctx context.Context) ([]roads.Station, error)
	GetQuickMapChainControls(ctx context.Context) ([]roads.ChainControl, error)
}

// RoutePlanner computes driving routes and looks up rest stops (Google).
type RoutePlanner interface {
	ComputeRoute(ctx context.Context, origin, destination string, departure time.Time) (*routing.Route, error)
	FindNearbyRestStop(ctx context.Context, location geo.Point) (*google.Place, error)
}

// RawBundle holds everything fetched for one request, indexed by waypoint
// where per-point. It is built once and shared read-only across all
// departure-slot computations.
type RawBundle struct {
	OpenMeteo     []*openmeteo.Forecast
	NWS           [][]nws.ForecastPeriod
	NWSAlerts     [][]alerts.Alert
	Tomorrow      [][]tomorrowio.Interval
	ChainControls []roads.ChainControl
	Stations      []roads.Station
	Sources       []string
}

// Fetcher fans out to every upstream source for a waypoint list.
type Fetcher struct {
	nws        WeatherForecaster
	openMeteo  BatchForecaster
	tomorrow   TimelineForecaster
	roads      RoadReporter
	maxSamples int
}

// NewFetcher creates a Fetcher over the given upstream clients. maxSamples
// bounds the Tomorrow.io timeline calls per route; values below 1 fall back
// to the default.
func NewFetcher(nwsClient WeatherForecaster, openMeteoClient BatchForecaster, tomorrowClient TimelineForecaster, roadClient RoadReporter, maxSamples int) *Fetcher {
	if maxSamples < 1 {
		maxSamples = defaultTomorrowSamples
	}
	return &Fetcher{
		nws:        nwsClient,
		openMeteo:  openMeteoClient,
		tomorrow:   tomorrowClient,
		roads:      roadClient,
		maxSamples: maxSamples,
	}
}

// FetchRaw fetches weather, alert and road data for all waypoints
// concurrently. Any single source failing degrades that source to its empty
// default; FetchRaw itself never fails. If prefetched is non-nil it is used
// as the station list instead of refetching.
//
// Tomorrow.io calls are sampled: at most maxSamples waypoints get their own
// timeline, and every other waypoint borrows the timeline of the nearest
// sampled index.
func (f *Fetcher) FetchRaw(ctx context.Context, waypoints []routing.Waypoint, prefetched []roads.Station) *RawBundle {
	n := len(waypoints)
	bundle := &RawBundle{
		OpenMeteo: make([]*openmeteo.Forecast, n),
		NWS:       make([][]nws.ForecastPeriod, n),
		NWSAlerts: make([][]alerts.Alert, n),
		Tomorrow:  make([][]tomorrowio.Interval, n),
	}

	lats := make([]float64, n)
	lons := make([]float64, n)
	for i, wp := range waypoints {
		lats[i] = wp.Location.Latitude
		lons[i] = wp.Location.Longitude
	}

	sampleIdx := sampleIndices(n, f.maxSamples)
	sampled := make([][]tomorrowio.Interval, len(sampleIdx))

	var quickMap []roads.ChainControl
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		forecasts, err := f.openMeteo.GetForecasts(ctx, lats, lons)
		if err != nil {
			log.Printf("Open-Meteo fetch failed: %v", err)
			return
		}
		for i := 0; i < n && i < len(forecasts); i++ {
			bundle.OpenMeteo[i] = forecasts[i]
		}
	}()

	for i := range waypoints {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			periods, err := f.nws.GetHourlyForecast(ctx, lats[i], lons[i])
			if err != nil {
				log.Printf("NWS forecast fetch failed for waypoint %d: %v", i, err)
				return
			}
			bundle.NWS[i] = periods
		}()
		go func() {
			defer wg.Done()
			active, err := f.nws.GetActiveAlerts(ctx, lats[i], lons[i])
			if err != nil {
				log.Printf("NWS alert fetch failed for waypoint %d: %v", i, err)
				return
			}
			bundle.NWSAlerts[i] = active
		}()
	}

	for s, idx := range sampleIdx {
		s, idx := s, idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			intervals, err := f.tomorrow.GetTimeline(ctx, lats[idx], lons[idx])
			if err != nil {
				log.Printf("Tomorrow.io fetch failed for waypoint %d: %v", idx, err)
				return
			}
			sampled[s] = intervals
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		controls, err := f.roads.GetChainControls(ctx)
		if err != nil {
			log.Printf("Chain control fetch failed: %v", err)
			return
		}
		bundle.ChainControls = controls
	}()

	// QuickMap is a best-effort supplement to the CWWP2 chain control feed.
	wg.Add(1)
	go func() {
		defer wg.Done()
		controls, err := f.roads.GetQuickMapChainControls(ctx)
		if err != nil {
			log.Printf("QuickMap fetch failed: %v", err)
			return
		}
		quickMap = controls
	}()

	if prefetched != nil {
		bundle.Stations = prefetched
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stations, err := f.roads.GetStations(ctx)
			if err != nil {
				log.Printf("Station fetch failed: %v", err)
				return
			}
			bundle.Stations = stations
		}()
	}

	wg.Wait()

	// Broadcast each sampled Tomorrow.io timeline to the waypoints nearest
	// to its index. Ties go to the lower sampled index.
	for i := 0; i < n; i++ {
		best := 0
		for s := 1; s < len(sampleIdx); s++ {
			if math.Abs(float64(sampleIdx[s]-i)) < math.Abs(float64(sampleIdx[best]-i)) {
				best = s
			}
		}
		if len(sampleIdx) > 0 {
			bundle.Tomorrow[i] = sampled[best]
		}
	}

	bundle.ChainControls = mergeChainControls(bundle.ChainControls, quickMap)
	bundle.Sources = collectSources(bundle, sampled)
	return bundle
}

// sampleIndices picks at most limit waypoint indices, evenly spread across
// the route with both endpoints included. Fractional positions round
// half-to-even.
func sampleIndices(n, limit int) []int {
	if n <= limit {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	step := float64(n-1) / float64(limit-1)
	indices := make([]int, limit)
	for i := range indices {
		indices[i] = int(math.RoundToEven(float64(i) * step))
	}
	return indices
}

// mergeChainControls appends QuickMap entries for highways the CWWP2 feed
// did not already report.
func mergeChainControls(primary, supplement []roads.ChainControl) []roads.ChainControl {
	if len(supplement) == 0 {
		return primary
	}
	seen := make(map[string]bool, len(primary))
	for _, cc := range primary {
		seen[cc.Highway] = true
	}
	merged := primary
	for _, cc := range supplement {
		if !seen[cc.Highway] {
			merged = append(merged, cc)
		}
	}
	return merged
}

// collectSources records which named upstreams returned at least one
// non-empty result, sorted for stable output.
func collectSources(bundle *RawBundle, sampledTomorrow [][]tomorrowio.Interval) []string {
	set := make(map[string]bool)
	for _, f := range bundle.OpenMeteo {
		if f != nil {
			set["Open-Meteo"] = true
			break
		}
	}
	for _, periods := range bundle.NWS {
		if periods != nil {
			set["NWS"] = true
			break
		}
	}
	for _, intervals := range sampledTomorrow {
		if len(intervals) > 0 {
			set["Tomorrow.io"] = true
			break
		}
	}
	if len(bundle.ChainControls) > 0 || len(bundle.Stations) > 0 {
		set["Caltrans CWWP2"] = true
	}
	sources := make([]string, 0, len(set))
	for s := range set {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}
