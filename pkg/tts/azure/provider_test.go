package azure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"walkumentary/pkg/config"
	"walkumentary/pkg/tts"
)

func TestVoiceLanguage(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"en-US-AvaMultilingualNeural", "en-US"},
		{"de-DE-SeraphinaNeural", "de-DE"},
		{"weird", "en-US"},
	}
	for _, tt := range tests {
		if got := voiceLanguage(tt.voice); got != tt.want {
			t.Errorf("voiceLanguage(%q) = %q, want %q", tt.voice, got, tt.want)
		}
	}
}

func TestBuildSSML(t *testing.T) {
	ssml := buildSSML("en-US-AvaMultilingualNeural", "Welcome to the park & gardens.")
	if !strings.Contains(ssml, "xml:lang='en-US'") {
		t.Errorf("missing language: %s", ssml)
	}
	if !strings.Contains(ssml, "&amp;") {
		t.Errorf("ampersand not escaped: %s", ssml)
	}
	if err := validateSSML(ssml); err != nil {
		t.Errorf("generated SSML is invalid: %v", err)
	}
}

func TestBuildSSMLStripsWrapperTags(t *testing.T) {
	ssml := buildSSML("en-US-AvaMultilingualNeural", "<speak><voice name='x'>Hello</voice></speak>")
	if strings.Count(ssml, "<speak") != 1 || strings.Count(ssml, "<voice") != 1 {
		t.Errorf("duplicate wrapper tags: %s", ssml)
	}
}

func TestSynthesize(t *testing.T) {
	audio := strings.Repeat("a", 2048)
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			w.WriteHeader(401)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/ssml+xml" {
			t.Errorf("Content-Type = %q", ct)
		}
		_, _ = w.Write([]byte(audio))
	}))
	defer svr.Close()

	p := NewProvider(config.AzureSpeechConfig{
		Key:    "test-key",
		Region: "eastus",
		Voice:  "en-US-AvaMultilingualNeural",
	}, nil)
	p.url = svr.URL

	res, err := p.Synthesize(context.Background(), "Hello city.", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Format != "mp3" || len(res.Audio) != len(audio) {
		t.Errorf("format=%s len=%d", res.Format, len(res.Audio))
	}
}

func TestSynthesizeFatalOnErrorStatus(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
	}))
	defer svr.Close()

	p := NewProvider(config.AzureSpeechConfig{Key: "k", Region: "eastus", Voice: "v"}, nil)
	p.url = svr.URL

	_, err := p.Synthesize(context.Background(), "text", "")
	if !tts.IsFatalError(err) {
		t.Errorf("expected FatalError, got %v", err)
	}
}
