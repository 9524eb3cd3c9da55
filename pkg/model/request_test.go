package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		req          TourRequest
		wantInts     []string
		wantDuration int
		wantLang     string
	}{
		{
			name:         "SortsAndDedupes",
			req:          TourRequest{LocationID: "l1", Interests: []string{"Food", "art", "food "}, DurationMinutes: 30},
			wantInts:     []string{"art", "food"},
			wantDuration: 30,
			wantLang:     "en",
		},
		{
			name:         "ClampsDurationLow",
			req:          TourRequest{LocationID: "l1", DurationMinutes: 2},
			wantInts:     []string{},
			wantDuration: MinTourMinutes,
			wantLang:     "en",
		},
		{
			name:         "ClampsDurationHigh",
			req:          TourRequest{LocationID: "l1", DurationMinutes: 240, Language: "de"},
			wantInts:     []string{},
			wantDuration: MaxTourMinutes,
			wantLang:     "de",
		},
		{
			name: "CapsInterests",
			req: TourRequest{LocationID: "l1", DurationMinutes: 30,
				Interests: []string{"a", "b", "c", "d", "e", "f", "g"}},
			wantInts:     []string{"a", "b", "c", "d", "e"},
			wantDuration: 30,
			wantLang:     "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			assert.Equal(t, tt.wantInts, tt.req.Interests)
			assert.Equal(t, tt.wantDuration, tt.req.DurationMinutes)
			assert.Equal(t, tt.wantLang, tt.req.Language)
		})
	}
}

func TestFingerprintInterestOrder(t *testing.T) {
	a := TourRequest{UserID: "u1", LocationID: "loc", DurationMinutes: 30, Interests: []string{"food", "art"}, Voice: "nova"}
	b := TourRequest{UserID: "u1", LocationID: "loc", DurationMinutes: 30, Interests: []string{"art", "food"}, Voice: "nova"}
	a.Normalize()
	b.Normalize()

	require.Equal(t, Fingerprint(&a), Fingerprint(&b),
		"interest ordering must not change the fingerprint")
}

func TestFingerprintDiscriminates(t *testing.T) {
	base := TourRequest{UserID: "u1", LocationID: "loc", DurationMinutes: 30, Interests: []string{"history"}, Voice: "nova"}
	base.Normalize()
	fp := Fingerprint(&base)

	variants := []TourRequest{
		{UserID: "u2", LocationID: "loc", DurationMinutes: 30, Interests: []string{"history"}, Voice: "nova"},
		{UserID: "u1", LocationID: "other", DurationMinutes: 30, Interests: []string{"history"}, Voice: "nova"},
		{UserID: "u1", LocationID: "loc", DurationMinutes: 45, Interests: []string{"history"}, Voice: "nova"},
		{UserID: "u1", LocationID: "loc", DurationMinutes: 30, Interests: []string{"nature"}, Voice: "nova"},
		{UserID: "u1", LocationID: "loc", DurationMinutes: 30, Interests: []string{"history"}, Voice: "onyx"},
	}
	for i := range variants {
		variants[i].Normalize()
		assert.NotEqual(t, fp, Fingerprint(&variants[i]), "variant %d should differ", i)
	}
}

func TestValidate(t *testing.T) {
	r := TourRequest{DurationMinutes: 30}
	r.Normalize()
	require.Error(t, r.Validate(), "missing location must be rejected")

	r = TourRequest{LocationName: "Central Park", DurationMinutes: 30}
	r.Normalize()
	require.NoError(t, r.Validate())
}
