package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Duration bounds for a walking tour, in minutes.
const (
	MinTourMinutes = 5
	MaxTourMinutes = 60
)

// MaxInterests caps the interest list; anything beyond it only burns
// prompt tokens without changing the output much.
const MaxInterests = 5

// TourRequest is the normalized input to the generation pipeline.
type TourRequest struct {
	UserID          string   `json:"user_id"`
	LocationID      string   `json:"location_id"`
	LocationName    string   `json:"location_name"`
	City            string   `json:"city,omitempty"`
	Country         string   `json:"country,omitempty"`
	Latitude        float64  `json:"latitude,omitempty"`
	Longitude       float64  `json:"longitude,omitempty"`
	Interests       []string `json:"interests"`
	DurationMinutes int      `json:"duration_minutes"`
	Language        string   `json:"language"`
	Style           string   `json:"narration_style"`
	Voice           string   `json:"voice"`
}

// Normalize canonicalizes the request in place so that semantically
// identical requests produce identical fingerprints: interests are
// lowercased, deduplicated and sorted, the duration is clamped to the
// supported range, and defaults are applied.
func (r *TourRequest) Normalize() {
	seen := make(map[string]bool, len(r.Interests))
	norm := make([]string, 0, len(r.Interests))
	for _, in := range r.Interests {
		in = strings.ToLower(strings.TrimSpace(in))
		if in == "" || seen[in] {
			continue
		}
		seen[in] = true
		norm = append(norm, in)
	}
	sort.Strings(norm)
	if len(norm) > MaxInterests {
		norm = norm[:MaxInterests]
	}
	r.Interests = norm

	if r.DurationMinutes < MinTourMinutes {
		r.DurationMinutes = MinTourMinutes
	}
	if r.DurationMinutes > MaxTourMinutes {
		r.DurationMinutes = MaxTourMinutes
	}

	if r.Language == "" {
		r.Language = "en"
	}
	if r.Style == "" {
		r.Style = "conversational"
	}
}

// Validate checks the request before it enters the pipeline.
// The caller is expected to have called Normalize first.
func (r *TourRequest) Validate() error {
	if r.LocationID == "" && r.LocationName == "" {
		return fmt.Errorf("location is required")
	}
	if r.DurationMinutes < MinTourMinutes || r.DurationMinutes > MaxTourMinutes {
		return fmt.Errorf("duration must be between %d and %d minutes", MinTourMinutes, MaxTourMinutes)
	}
	return nil
}

// fingerprintPayload is the canonical subset of a TourRequest that
// determines content identity. Location name and coordinates are
// deliberately excluded: the location id already pins the place.
type fingerprintPayload struct {
	UserID    string   `json:"user_id"`
	Location  string   `json:"location"`
	Duration  int      `json:"duration"`
	Language  string   `json:"language"`
	Interests []string `json:"interests"`
	Voice     string   `json:"voice"`
}

// Fingerprint returns a deterministic hash of the normalized request.
// Equal normalized requests always yield equal fingerprints; the value
// is the dedup and cache key for the whole pipeline.
func Fingerprint(r *TourRequest) string {
	loc := r.LocationID
	if loc == "" {
		loc = strings.ToLower(strings.TrimSpace(r.LocationName))
	}
	payload := fingerprintPayload{
		UserID:    r.UserID,
		Location:  loc,
		Duration:  r.DurationMinutes,
		Language:  r.Language,
		Interests: r.Interests,
		Voice:     r.Voice,
	}
	// json.Marshal on a struct has a fixed field order, so the
	// encoding is canonical.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
