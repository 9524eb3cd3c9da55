package tts

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

type fakeEngine struct {
	name  string
	err   error
	audio []byte
	calls int
}

func (e *fakeEngine) Name() string { return e.name }

func (e *fakeEngine) Synthesize(_ context.Context, _, _ string) (*Result, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &Result{Audio: e.audio, Format: "mp3"}, nil
}

func (e *fakeEngine) Voices(_ context.Context) ([]Voice, error) { return nil, nil }

func TestFallbackSkipsFatalEngine(t *testing.T) {
	good := bytes.Repeat([]byte{0xff}, MinAudioSize+1)
	first := &fakeEngine{name: "azure", err: NewFatalError(429, "rate limited")}
	second := &fakeEngine{name: "polly", audio: good}

	f, err := NewFallback(first, second)
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.Synthesize(context.Background(), "text", "voice")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Format != "mp3" || len(res.Audio) <= MinAudioSize {
		t.Errorf("unexpected result: format=%s len=%d", res.Format, len(res.Audio))
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d", first.calls, second.calls)
	}
}

func TestFallbackStopsOnNonFatal(t *testing.T) {
	first := &fakeEngine{name: "azure", err: errors.New("bad input")}
	second := &fakeEngine{name: "polly", audio: bytes.Repeat([]byte{1}, MinAudioSize+1)}

	f, _ := NewFallback(first, second)
	if _, err := f.Synthesize(context.Background(), "text", "voice"); err == nil {
		t.Fatal("expected error")
	}
	if second.calls != 0 {
		t.Error("non-fatal errors must not trigger fallback")
	}
}

func TestFallbackRejectsTinyAudio(t *testing.T) {
	first := &fakeEngine{name: "azure", audio: []byte{1, 2, 3}}
	second := &fakeEngine{name: "polly", audio: bytes.Repeat([]byte{1}, MinAudioSize+1)}

	f, _ := NewFallback(first, second)
	res, err := f.Synthesize(context.Background(), "text", "voice")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(res.Audio) <= MinAudioSize {
		t.Error("tiny audio should have been replaced by next engine")
	}
}
