package transcript

import (
	"strings"
	"testing"
)

func TestEstimateDuration(t *testing.T) {
	// 300 words at 150 wpm is two minutes.
	text := strings.Repeat("word ", 300)
	if got := EstimateDuration(text); got != 120 {
		t.Errorf("EstimateDuration = %v, want 120", got)
	}
	if got := EstimateDuration(""); got != 0 {
		t.Errorf("EstimateDuration(empty) = %v, want 0", got)
	}
}

func TestBuildCoversNarrative(t *testing.T) {
	text := strings.Repeat("one two three four five six seven eight nine ten ", 10) +
		"\n\n" +
		strings.Repeat("alpha beta gamma delta epsilon zeta eta theta iota kappa ", 10)

	segments := Build(text)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}

	total := EstimateDuration(text)
	if segments[0].Start != 0 {
		t.Errorf("first segment starts at %v", segments[0].Start)
	}
	if segments[len(segments)-1].End != total {
		t.Errorf("last segment ends at %v, want %v", segments[len(segments)-1].End, total)
	}
	for i, s := range segments {
		if s.End < s.Start {
			t.Errorf("segment %d has End < Start: %+v", i, s)
		}
		if i > 0 && s.Start != segments[i-1].End {
			t.Errorf("segment %d does not continue from previous: %+v", i, s)
		}
	}
}

func TestBuildMinimumSegmentDuration(t *testing.T) {
	// A tiny paragraph followed by a long one. The tiny one gets the
	// two second floor.
	text := "Hi.\n\n" + strings.Repeat("many words fill the remainder of the narration here ", 20)

	segments := Build(text)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if d := segments[0].End - segments[0].Start; d < 2.0 {
		t.Errorf("short segment duration = %v, want >= 2", d)
	}
}

func TestBuildEmpty(t *testing.T) {
	if got := Build("   \n\n  "); got != nil {
		t.Errorf("Build(blank) = %v, want nil", got)
	}
}
