package prompts

import (
	"strings"
	"testing"
)

func TestTourPrompt(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	out, err := m.TourPrompt(TourData{
		LocationName:    "Central Park",
		City:            "New York",
		Country:         "USA",
		DurationMinutes: 30,
		Interests:       []string{"architecture", "history"},
		Language:        "en",
		Style:           "conversational",
	})
	if err != nil {
		t.Fatalf("TourPrompt failed: %v", err)
	}

	for _, want := range []string{
		"Central Park, New York, USA",
		"30 minutes",
		"4500 words", // 30 * 150
		"walkable_stops",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "architecture") || !strings.Contains(out, "history") {
		t.Error("prompt missing interests")
	}
}

func TestTourPromptStopBounds(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatal(err)
	}

	out, err := m.TourPrompt(TourData{
		LocationName:    "Rome",
		DurationMinutes: 60,
		Language:        "en",
		Style:           "conversational",
	})
	if err != nil {
		t.Fatal(err)
	}
	// 5 + 60/15 = 9 max stops
	if !strings.Contains(out, "between 3 and 9") {
		t.Errorf("unexpected stop bounds:\n%s", out)
	}
	if !strings.Contains(out, "general history and culture") {
		t.Error("empty interests should fall back to a default")
	}
}
