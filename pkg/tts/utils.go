package tts

import (
	"regexp"
	"strings"
)

var speakerLabelRegex = regexp.MustCompile(`(?m)^[A-Za-z]+(\s*\([^)]+\))?:\s*`)

// StripSpeakerLabels removes speaker labels like "Luna:" or "Aria (female):" from scripts.
func StripSpeakerLabels(script string) string {
	return speakerLabelRegex.ReplaceAllString(script, "")
}

// PrepareText cleans a narration for synthesis and truncates it to
// maxChars. Truncation backtracks to the last sentence end so the
// audio never cuts off mid-word; if no sentence boundary exists in the
// second half, it falls back to a hard cut.
func PrepareText(text string, maxChars int) string {
	text = strings.TrimSpace(StripSpeakerLabels(text))
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	boundary := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(cut, sep); idx > boundary {
			boundary = idx
		}
	}
	// Also accept a terminal punctuation exactly at the cut.
	if last := strings.LastIndexAny(cut, ".!?"); last > boundary {
		boundary = last
	}

	if boundary > maxChars/2 {
		return strings.TrimSpace(cut[:boundary+1])
	}
	return strings.TrimSpace(cut)
}
