package llm

import (
	"strings"
	"testing"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"generic fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose before fence", "Here you go:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONBlock(tt.input); got != tt.want {
				t.Errorf("CleanJSONBlock(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDraft(t *testing.T) {
	valid := `{
		"title": "Central Park Highlights",
		"description": "A stroll through the park",
		"content": "` + strings.Repeat("Welcome to Central Park. ", 5) + `",
		"walkable_stops": [
			{"name": "Bethesda Terrace", "description": "The heart of the park"}
		]
	}`

	d, err := ParseDraft(valid)
	if err != nil {
		t.Fatalf("ParseDraft failed: %v", err)
	}
	if d.Title != "Central Park Highlights" || len(d.Stops) != 1 {
		t.Errorf("unexpected draft: %+v", d)
	}

	// Fenced output parses too.
	if _, err := ParseDraft("```json\n" + valid + "\n```"); err != nil {
		t.Errorf("fenced draft rejected: %v", err)
	}
}

func TestParseDraftRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "sorry, I cannot help with that"},
		{"missing title", `{"content":"` + strings.Repeat("x", 60) + `","walkable_stops":[{"name":"a"}]}`},
		{"empty stops", `{"title":"t","content":"` + strings.Repeat("x", 60) + `","walkable_stops":[]}`},
		{"stop without name", `{"title":"t","content":"` + strings.Repeat("x", 60) + `","walkable_stops":[{"description":"d"}]}`},
		{"content too short", `{"title":"t","content":"hi","walkable_stops":[{"name":"a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDraft(tt.input); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty = %d", got)
	}
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("400 chars = %d tokens, want 100", got)
	}
}
