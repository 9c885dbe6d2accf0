package services

import (
	"context"
	"log"
	"time"
)

// RoadFeedRefresher periodically re-fetches the Caltrans feeds so the
// shared cache stays warm between requests. The feeds are route-independent,
// which makes them the one data set worth refreshing ahead of demand.
type RoadFeedRefresher struct {
	roads    RoadReporter
	interval time.Duration

	stopChan chan struct{}
	running  bool
}

// NewRoadFeedRefresher creates a refresher; Start must be called to begin
// the background loop.
func NewRoadFeedRefresher(roadClient RoadReporter, interval time.Duration) *RoadFeedRefresher {
	return &RoadFeedRefresher{
		roads:    roadClient,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background refresh loop. Calling Start twice is a
// no-op.
func (r *RoadFeedRefresher) Start(ctx context.Context) {
	if r.running || r.interval <= 0 {
		return
	}
	r.running = true

	log.Printf("Starting road feed refresh every %v", r.interval)
	go r.loop(ctx)
}

// Stop ends the background loop.
func (r *RoadFeedRefresher) Stop() {
	if !r.running {
		return
	}
	r.running = false
	close(r.stopChan)
}

func (r *RoadFeedRefresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// refresh hits each feed once; the clients write the results through to the
// shared cache. Failures are logged and retried on the next tick.
func (r *RoadFeedRefresher) refresh(ctx context.Context) {
	if _, err := r.roads.GetChainControls(ctx); err != nil {
		log.Printf("Chain control refresh failed: %v", err)
	}
	if _, err := r.roads.GetStations(ctx); err != nil {
		log.Printf("Station refresh failed: %v", err)
	}
	if _, err := r.roads.GetQuickMapChainControls(ctx); err != nil {
		log.Printf("QuickMap refresh failed: %v", err)
	}
}
