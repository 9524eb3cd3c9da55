// Package transcript turns narration text into time-aligned segments.
// Timing is estimated from a narration pace rather than decoded from
// the audio, so segments are approximate but monotonic and covering.
package transcript

import (
	"strings"

	"walkumentary/pkg/model"
)

const (
	// WordsPerMinute is the narration pace used for duration estimates.
	WordsPerMinute = 150

	// minSegmentSeconds keeps very short paragraphs readable on screen.
	minSegmentSeconds = 2.0
)

// EstimateDuration returns the estimated narration length in seconds.
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return float64(words) / WordsPerMinute * 60
}

// Build splits the narration into paragraph segments with estimated
// timing. Each segment's duration is proportional to its share of the
// text, with a floor of two seconds, and the last segment is clamped
// so End never exceeds the total estimate.
func Build(text string) []model.TranscriptSegment {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	total := EstimateDuration(text)
	if total <= 0 {
		return nil
	}

	totalChars := 0
	for _, p := range paragraphs {
		totalChars += len(p)
	}

	segments := make([]model.TranscriptSegment, 0, len(paragraphs))
	cursor := 0.0
	for i, p := range paragraphs {
		dur := total * float64(len(p)) / float64(totalChars)
		if dur < minSegmentSeconds {
			dur = minSegmentSeconds
		}
		end := cursor + dur
		if i == len(paragraphs)-1 || end > total {
			end = total
		}
		if end < cursor {
			end = cursor
		}
		segments = append(segments, model.TranscriptSegment{
			Start: cursor,
			End:   end,
			Text:  p,
		})
		cursor = end
	}
	return segments
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out = append(out, block)
	}
	return out
}
