package geocode

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"walkumentary/pkg/model"
)

// WalkSpeedMetersPerMinute is the pace used for walk time estimates.
const WalkSpeedMetersPerMinute = 80.0

// importanceFloor separates confident matches from coarse ones.
const importanceFloor = 0.25

var reBackTo = regexp.MustCompile(`(?i)^(back to|return to|returning to|head back to)\s+(the\s+)?`)

// coarse place types get tagged approximate even on a match.
var coarseTypes = map[string]bool{
	"administrative": true,
	"city":           true,
	"town":           true,
	"suburb":         true,
	"neighbourhood":  true,
	"quarter":        true,
}

// Stage geocodes the stops of a tour. Geocoding is best effort: a stop
// that cannot be resolved inherits the tour's main coordinates and the
// tour proceeds.
type Stage struct {
	client      *Client
	concurrency int
}

// NewStage creates a geocoding stage.
func NewStage(client *Client, concurrency int) *Stage {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Stage{client: client, concurrency: concurrency}
}

// ResolveStops geocodes every stop of the tour concurrently, then
// computes leg distances and walk times in stop order.
func (s *Stage) ResolveStops(ctx context.Context, tour *model.Tour) {
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i := range tour.Stops {
		wg.Add(1)
		sem <- struct{}{}
		go func(stop *model.WalkableStop) {
			defer wg.Done()
			defer func() { <-sem }()
			s.resolveStop(ctx, stop, tour)
		}(&tour.Stops[i])
	}
	wg.Wait()

	s.computeLegs(tour)
}

// resolveStop walks the query ladder: "name, city", then "name, city,
// country", then the bare name. Any failure falls back to the parent.
func (s *Stage) resolveStop(ctx context.Context, stop *model.WalkableStop, tour *model.Tour) {
	name := cleanStopName(stop.Name)

	var queries []string
	if tour.City != "" {
		queries = append(queries, name+", "+tour.City)
		if tour.Country != "" {
			queries = append(queries, name+", "+tour.City+", "+tour.Country)
		}
	}
	queries = append(queries, name)

	for _, q := range queries {
		res, err := s.client.Search(ctx, q, tour.Latitude, tour.Longitude)
		if err != nil {
			slog.Warn("Geocoding query failed", "stop", stop.Name, "query", q, "error", err)
			continue
		}
		if res == nil {
			continue
		}

		stop.Latitude = &res.Lat
		stop.Longitude = &res.Lon
		if res.Importance < importanceFloor || coarseTypes[res.Type] {
			stop.Accuracy = model.AccuracyApproximate
		} else {
			stop.Accuracy = model.AccuracyExact
		}
		return
	}

	// Unresolvable stops render at the tour's main marker.
	lat, lon := tour.Latitude, tour.Longitude
	stop.Latitude = &lat
	stop.Longitude = &lon
	stop.Accuracy = model.AccuracyFallbackParent
	slog.Info("Stop fell back to parent location", "stop", stop.Name)
}

// computeLegs fills per-stop distances from the previous stop (the
// main location for the first) and accumulates the tour totals.
func (s *Stage) computeLegs(tour *model.Tour) {
	prev := orb.Point{tour.Longitude, tour.Latitude}
	total := 0.0

	for i := range tour.Stops {
		stop := &tour.Stops[i]
		if stop.Latitude == nil || stop.Longitude == nil {
			continue
		}
		cur := orb.Point{*stop.Longitude, *stop.Latitude}
		d := geo.Distance(prev, cur)
		stop.DistanceMeters = d
		stop.WalkMinutes = d / WalkSpeedMetersPerMinute
		total += d
		prev = cur
	}

	tour.TotalWalkingMeters = total
	tour.EstimatedWalkMinutes = total / WalkSpeedMetersPerMinute
}

// cleanStopName strips narrative prefixes like "back to the hotel"
// that confuse the geocoder.
func cleanStopName(name string) string {
	return strings.TrimSpace(reBackTo.ReplaceAllString(strings.TrimSpace(name), ""))
}
