// Package azure implements tts.Provider for Azure Speech.
package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"walkumentary/pkg/config"
	"walkumentary/pkg/tracker"
	"walkumentary/pkg/tts"
)

// Provider implements tts.Provider for Azure Speech.
type Provider struct {
	key     string
	region  string
	voice   string
	client  *http.Client
	url     string
	tracker *tracker.Tracker
}

// NewProvider creates a new Azure Speech TTS provider.
func NewProvider(cfg config.AzureSpeechConfig, t *tracker.Tracker) *Provider {
	url := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	return &Provider{
		key:     cfg.Key,
		region:  cfg.Region,
		voice:   cfg.Voice,
		client:  &http.Client{},
		url:     url,
		tracker: t,
	}
}

func (p *Provider) Name() string { return "azure-speech" }

// Synthesize generates speech from text using Azure Speech.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*tts.Result, error) {
	vid := p.voice
	if voice != "" {
		vid = voice
	}
	if vid == "" {
		return nil, fmt.Errorf("no voice configured for Azure Speech")
	}
	if p.key == "" {
		return nil, tts.NewFatalError(401, "azure speech key is missing")
	}

	ssml := buildSSML(vid, text)

	req, err := http.NewRequestWithContext(ctx, "POST", p.url, bytes.NewBufferString(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-24khz-160kbitrate-mono-mp3")
	req.Header.Set("User-Agent", "Walkumentary")

	resp, err := p.client.Do(req)
	if err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("azure-speech")
		}
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		bodyStr := string(body)
		if readErr != nil {
			bodyStr = fmt.Sprintf("[failed to read body: %v]", readErr)
		}
		if bodyStr == "" {
			bodyStr = "[empty body]"
		}

		if p.tracker != nil {
			p.tracker.TrackAPIFailure("azure-speech")
		}

		// Return FatalError for 4xx/5xx to trigger fallback
		errMsg := fmt.Sprintf("azure speech api error (status %d): %s", resp.StatusCode, bodyStr)
		return nil, tts.NewFatalError(resp.StatusCode, errMsg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("azure-speech")
		}
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	if p.tracker != nil {
		p.tracker.TrackAPISuccess("azure-speech")
	}
	return &tts.Result{Audio: audio, Format: "mp3"}, nil
}

// Voices returns a list of available voices.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{ID: "en-US-AvaMultilingualNeural", Name: "Ava (Multilingual)", Language: "en-US", IsNeural: true},
		{ID: "en-US-AndrewMultilingualNeural", Name: "Andrew (Multilingual)", Language: "en-US", IsNeural: true},
		{ID: "en-GB-SoniaNeural", Name: "Sonia (UK)", Language: "en-GB", IsNeural: true},
	}, nil
}

// voiceLanguage derives the xml:lang attribute from a voice name like
// "en-US-AvaMultilingualNeural".
func voiceLanguage(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

func buildSSML(voice, text string) string {
	text = sanitize(text)

	ssml := fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>`,
		voiceLanguage(voice), voice, text,
	)

	// Validate SSML; a narration with stray angle brackets would
	// otherwise be read out as markup or rejected with a 400.
	if err := validateSSML(ssml); err != nil {
		clean := stripTags(text)
		return fmt.Sprintf(
			`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>`,
			voiceLanguage(voice), voice, clean,
		)
	}
	return ssml
}

var (
	reSpeakTag = regexp.MustCompile(`(?i)</?speak[^>]*>`)
	reVoiceTag = regexp.MustCompile(`(?i)</?voice[^>]*>`)
	reAnyTag   = regexp.MustCompile(`<[^>]*>`)
	xmlEscaper = strings.NewReplacer("&", "&amp;", "\"", "&quot;", "'", "&apos;")
)

// sanitize removes wrapper tags the narration must not contain and
// escapes bare ampersands and quotes.
func sanitize(text string) string {
	text = reSpeakTag.ReplaceAllString(text, "")
	text = reVoiceTag.ReplaceAllString(text, "")
	return xmlEscaper.Replace(text)
}

// validateSSML checks if the SSML string is well-formed XML.
func validateSSML(ssml string) error {
	decoder := xml.NewDecoder(bytes.NewReader([]byte(ssml)))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// stripTags removes all XML/HTML tags from the text.
func stripTags(text string) string {
	return reAnyTag.ReplaceAllString(text, "")
}
