// Package model defines the core domain types shared across the
// generation pipeline: tours, walkable stops, transcripts and the
// request fingerprinting that drives deduplication.
package model

import "time"

// GeocodeAccuracy tags how a stop's coordinates were resolved.
type GeocodeAccuracy string

const (
	// AccuracyExact means the geocoder returned a confident match.
	AccuracyExact GeocodeAccuracy = "exact"
	// AccuracyApproximate means the geocoder matched something
	// coarser than the stop itself (a street, a district).
	AccuracyApproximate GeocodeAccuracy = "approximate"
	// AccuracyFallbackParent means geocoding failed and the stop
	// inherited the tour's main location marker. A degraded stop
	// still renders; it never fails the tour.
	AccuracyFallbackParent GeocodeAccuracy = "fallback-to-parent-location"
)

// WalkableStop is one stop on a walking tour.
type WalkableStop struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Highlights  []string        `json:"highlights,omitempty"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	Accuracy    GeocodeAccuracy `json:"geocoding_accuracy,omitempty"`
	// Leg from the previous stop (or the main location for the first stop).
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	WalkMinutes    float64 `json:"walk_minutes,omitempty"`
}

// TranscriptSegment is a time-aligned slice of the narration.
// Segments are monotonically non-overlapping and collectively cover
// the full narrative.
type TranscriptSegment struct {
	Start float64 `json:"startTime"`
	End   float64 `json:"endTime"`
	Text  string  `json:"text"`
}

// Tour is the unit of work and the unit of delivery. It is created in
// StatusQueued, mutated only by the stage currently owning it, and
// becomes immutable once ready or error (cache-hit metadata aside).
type Tour struct {
	ID          string `json:"id"`
	Fingerprint string `json:"-"`
	UserID      string `json:"user_id"`
	Status      Status `json:"status"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`

	LocationID   string  `json:"location_id,omitempty"`
	LocationName string  `json:"location_name"`
	City         string  `json:"city,omitempty"`
	Country      string  `json:"country,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`

	Stops                []WalkableStop `json:"walkable_stops,omitempty"`
	TotalWalkingMeters   float64        `json:"total_walking_distance,omitempty"`
	EstimatedWalkMinutes float64        `json:"estimated_walking_time,omitempty"`

	AudioURL    string              `json:"audio_url,omitempty"`
	AudioFormat string              `json:"audio_format,omitempty"`
	Transcript  []TranscriptSegment `json:"transcript,omitempty"`

	DurationMinutes int      `json:"duration_minutes"`
	Interests       []string `json:"interests"`
	Language        string   `json:"language"`
	Voice           string   `json:"voice,omitempty"`

	// Generation metadata, kept even if later stages fail.
	Provider string `json:"llm_provider,omitempty"`
	Model    string `json:"llm_model,omitempty"`

	ErrorCause  string `json:"error_cause,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageRecord is one append-only row of provider usage, the raw
// material for cost and latency reporting.
type UsageRecord struct {
	Provider  string    `json:"provider"`
	Operation string    `json:"operation"` // tour_content, audio_synthesis, geocoding
	Units     int64     `json:"units"`     // tokens, characters or lookups
	Cost      float64   `json:"cost"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}
