package edgetts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"walkumentary/pkg/config"
)

func TestGenerateSecMSGec(t *testing.T) {
	token := generateSecMSGec("some-token")
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	if token != strings.ToUpper(token) {
		t.Errorf("token not uppercase: %s", token)
	}
	// Within the same 5 minute window the token must be stable.
	if again := generateSecMSGec("some-token"); again != token {
		t.Errorf("token not stable: %s vs %s", token, again)
	}
}

func TestBuildSSMLEscapes(t *testing.T) {
	ssml := buildSSML("en-US-AvaMultilingualNeural", "Fish & chips <here>")
	if !strings.Contains(ssml, "&amp;") || !strings.Contains(ssml, "&lt;here&gt;") {
		t.Errorf("text not escaped: %s", ssml)
	}
	if !strings.Contains(ssml, "name='en-US-AvaMultilingualNeural'") {
		t.Errorf("voice missing: %s", ssml)
	}
}

func TestAppendAudioPayload(t *testing.T) {
	var buf bytes.Buffer

	// 3-byte header followed by payload.
	frame := append([]byte{0x00, 0x03, 'h', 'd', 'r'}, []byte("audio")...)
	appendAudioPayload(frame, &buf)
	if buf.String() != "audio" {
		t.Errorf("payload = %q", buf.String())
	}

	// Truncated frames are dropped silently.
	buf.Reset()
	appendAudioPayload([]byte{0x00}, &buf)
	appendAudioPayload([]byte{0x00, 0x10, 'x'}, &buf)
	if buf.Len() != 0 {
		t.Errorf("expected empty buffer, got %q", buf.String())
	}
}

func TestSynthesize(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	audio := bytes.Repeat([]byte{0xab}, 1500)

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("TrustedClientToken") == "" {
			t.Error("missing TrustedClientToken")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade failed: %v", err)
		}
		defer conn.Close()

		// speech.config then ssml
		for i := 0; i < 2; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("read failed: %v", err)
				return
			}
			if i == 1 && !strings.Contains(string(msg), "Path:ssml") {
				t.Errorf("expected ssml message, got %q", msg)
			}
		}

		frame := append([]byte{0x00, 0x00}, audio...)
		_ = conn.WriteMessage(websocket.BinaryMessage, frame)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("X-RequestId:abc\r\nPath:turn.end\r\n\r\n"))
	}))
	defer svr.Close()

	p := NewProvider(config.EdgeTTSConfig{
		Voice:   "en-US-AvaMultilingualNeural",
		BaseURL: "ws" + strings.TrimPrefix(svr.URL, "http"),
		Token:   "test-token",
	}, nil)

	res, err := p.Synthesize(context.Background(), "Hello town.", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Format != "mp3" || !bytes.Equal(res.Audio, audio) {
		t.Errorf("format=%s len=%d", res.Format, len(res.Audio))
	}
}

func TestSynthesizeRequiresVoice(t *testing.T) {
	p := NewProvider(config.EdgeTTSConfig{BaseURL: "ws://example", Token: "t"}, nil)
	if _, err := p.Synthesize(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error for missing voice")
	}
}
