// Package geocode resolves walking-tour stops to coordinates via
// Nominatim, with a persistent cache and a fallback to the tour's main
// location when a stop cannot be resolved.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"walkumentary/pkg/cache"
	"walkumentary/pkg/config"
	"walkumentary/pkg/request"
)

// cellResolution buckets cache keys by an area a bit larger than the
// search viewbox, so nearby tours share geocoding results.
const cellResolution = 7

// Result is a resolved coordinate from the geocoder.
type Result struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Importance  float64
	Type        string
	Class       string
}

// Client queries the Nominatim search API through the shared request
// client, so lookups are queued per-provider and cached monthly.
type Client struct {
	rc  *request.Client
	cfg config.GeocodeConfig
}

// NewClient creates a new geocoding client.
func NewClient(rc *request.Client, cfg config.GeocodeConfig) *Client {
	return &Client{rc: rc, cfg: cfg}
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	Type        string  `json:"type"`
	Class       string  `json:"class"`
}

// Search looks up a free-form query near the given parent coordinate.
// It returns (nil, nil) when Nominatim has no match; errors are
// transport or decoding failures only.
func (c *Client) Search(ctx context.Context, query string, parentLat, parentLon float64) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("viewbox", viewbox(parentLat, parentLon, float64(c.cfg.RadiusMeters)))
	params.Set("bounded", "1")

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/search?" + params.Encode()
	headers := map[string]string{"User-Agent": c.cfg.UserAgent}

	body, err := c.rc.GetWithHeaders(ctx, u, headers, cacheKey(query, parentLat, parentLon), cache.Monthly)
	if err != nil {
		return nil, fmt.Errorf("nominatim search failed: %w", err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("failed to parse nominatim response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", p.Lon, err)
	}

	return &Result{
		Lat:         lat,
		Lon:         lon,
		DisplayName: p.DisplayName,
		Importance:  p.Importance,
		Type:        p.Type,
		Class:       p.Class,
	}, nil
}

// cacheKey buckets the query by an h3 cell of the parent location, so
// the same stop name in different cities never collides.
func cacheKey(query string, lat, lon float64) string {
	norm := strings.ToLower(strings.Join(strings.Fields(query), " "))

	cell, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, cellResolution)
	if err != nil {
		return fmt.Sprintf("geocode:%s:%.3f,%.3f", norm, lat, lon)
	}
	return fmt.Sprintf("geocode:%s:%s", norm, cell.String())
}

// viewbox returns the Nominatim viewbox (left,top,right,bottom) for a
// box of the given radius around the center.
func viewbox(lat, lon, radiusMeters float64) string {
	dLat := radiusMeters / 111132.0
	dLon := radiusMeters / (111320.0 * math.Cos(lat*math.Pi/180))

	return fmt.Sprintf("%f,%f,%f,%f", lon-dLon, lat+dLat, lon+dLon, lat-dLat)
}
