package tour

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"walkumentary/pkg/llm/prompts"
	"walkumentary/pkg/model"
	"walkumentary/pkg/transcript"
	"walkumentary/pkg/tts"
)

// run executes the generation pipeline for one tour. It owns the tour
// row exclusively until it reaches a terminal state; readers only ever
// see committed stage results.
func (s *Service) run(tourID string, req *model.TourRequest) {
	defer s.wg.Done()
	ctx := context.Background()

	t, err := s.runContent(ctx, tourID, req)
	if err != nil {
		s.fail(ctx, tourID, err)
		return
	}

	s.runEnrichment(ctx, t, req)
}

// runContent drives queued → generating → content_ready and returns
// the tour with its narrative and stops persisted.
func (s *Service) runContent(ctx context.Context, tourID string, req *model.TourRequest) (*model.Tour, error) {
	if _, err := s.store.UpdateTourStatus(ctx, tourID, model.StatusGenerating); err != nil {
		return nil, fmt.Errorf("failed to mark tour generating: %w", err)
	}

	prompt, err := s.prompts.TourPrompt(prompts.TourData{
		LocationName:    req.LocationName,
		City:            req.City,
		Country:         req.Country,
		DurationMinutes: req.DurationMinutes,
		Interests:       req.Interests,
		Language:        req.Language,
		Style:           req.Style,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Pipeline.ContentTimeout))
	defer cancel()

	start := time.Now()
	draft, usage, err := s.llm.GenerateTour(cctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(draft.Stops) == 0 {
		return nil, NewError(CauseInvalidResponse, "model returned no walkable stops", nil)
	}

	t, err := s.store.GetTour(ctx, tourID)
	if err != nil || t == nil {
		return nil, fmt.Errorf("tour %s vanished during generation: %w", tourID, err)
	}

	t.Title = draft.Title
	t.Description = draft.Description
	t.Content = draft.Content
	t.Stops = make([]model.WalkableStop, len(draft.Stops))
	for i, sd := range draft.Stops {
		t.Stops[i] = model.WalkableStop{
			Name:        sd.Name,
			Description: sd.Description,
			Highlights:  sd.Highlights,
		}
	}
	if usage != nil {
		t.Provider = usage.Provider
		t.Model = usage.Model
		if s.tracker != nil {
			s.tracker.TrackUsage(ctx, usage.Provider, "tour_content", usage.TotalTokens, s.cfg.LLM.Primary.CostPer1K, time.Since(start))
		}
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveTour(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to persist generated content: %w", err)
	}
	if _, err := s.store.UpdateTourStatus(ctx, tourID, model.StatusContentReady); err != nil {
		return nil, fmt.Errorf("failed to mark content ready: %w", err)
	}
	t.Status = model.StatusContentReady

	slog.Info("Tour content generated", "tour", tourID, "provider", t.Provider, "stops", len(t.Stops))
	return t, nil
}

// runEnrichment geocodes stops and synthesizes audio concurrently,
// then commits both in one write. Geocoding never fails a tour; audio
// failure moves the tour to error while the narrative stays readable.
func (s *Service) runEnrichment(ctx context.Context, t *model.Tour, req *model.TourRequest) {
	narration := tts.PrepareText(t.Content, tts.MaxSynthesisChars)

	var (
		audio    *tts.Result
		audioErr error
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		audio, audioErr = s.synthesize(ctx, narration, req.Voice)
	}()

	if s.geocoder != nil {
		gctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Geocode.Timeout)*6)
		s.geocoder.ResolveStops(gctx, t)
		cancel()
		s.reportDegradedStops(t)
	}
	<-done

	if audio != nil {
		t.AudioURL = fmt.Sprintf("%s/api/tours/%s/audio", s.cfg.Server.BaseURL, t.ID)
		t.AudioFormat = audio.Format
		t.Transcript = transcript.Build(narration)
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveTour(ctx, t); err != nil {
		s.fail(ctx, t.ID, fmt.Errorf("failed to persist enrichment: %w", err))
		return
	}

	if audioErr != nil {
		s.fail(ctx, t.ID, audioErr)
		return
	}

	if err := s.store.SaveAudio(ctx, t.ID, audio.Audio, audio.Format); err != nil {
		s.fail(ctx, t.ID, fmt.Errorf("failed to persist audio: %w", err))
		return
	}
	if _, err := s.store.UpdateTourStatus(ctx, t.ID, model.StatusReady); err != nil {
		slog.Error("Failed to mark tour ready", "tour", t.ID, "error", err)
		return
	}

	slog.Info("Tour ready", "tour", t.ID, "audio_bytes", len(audio.Audio), "walking_meters", int(t.TotalWalkingMeters))
}

// synthesize runs the TTS chain with bounded retries. Retry pacing
// goes through the shared per-provider backoff so a struggling engine
// sees the configured exponential delays.
func (s *Service) synthesize(ctx context.Context, text, voice string) (*tts.Result, error) {
	retries := s.cfg.Pipeline.AudioRetries
	if retries < 1 {
		retries = 1
	}
	provider := s.tts.Name()

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			if err := s.backoff.WaitContext(ctx, provider); err != nil {
				return nil, err
			}
		}

		actx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Pipeline.AudioTimeout))
		start := time.Now()
		res, err := s.tts.Synthesize(actx, text, voice)
		cancel()
		if err == nil {
			s.backoff.RecordSuccess(provider)
			if s.tracker != nil {
				s.tracker.TrackUsage(ctx, provider, "audio_synthesis", int64(len(text)), s.cfg.TTS.CostPer1K, time.Since(start))
			}
			return res, nil
		}
		lastErr = err
		s.backoff.RecordFailure(provider)
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("Audio synthesis attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("audio synthesis exhausted retries: %w", lastErr)
}

// reportDegradedStops logs when geocoding fell back for every stop; a
// tour with nothing but parent markers is technically fine but worth
// surfacing in the logs and stats.
func (s *Service) reportDegradedStops(t *model.Tour) {
	if len(t.Stops) == 0 {
		return
	}
	degraded := 0
	for _, stop := range t.Stops {
		if stop.Accuracy == model.AccuracyFallbackParent {
			degraded++
		}
	}
	if degraded == len(t.Stops) {
		slog.Warn("Geocoding degraded for all stops", "tour", t.ID, "cause", CauseGeocodingDegraded)
		if s.tracker != nil {
			s.tracker.TrackAPIFailure("nominatim")
		}
	}
}

// fail moves the tour to error with a classified cause. A tour already
// terminal is left untouched.
func (s *Service) fail(ctx context.Context, tourID string, err error) {
	cause := Classify(err)
	slog.Error("Tour pipeline failed", "tour", tourID, "cause", cause, "error", err)
	if serr := s.store.SetTourError(ctx, tourID, string(cause), Detail(err)); serr != nil {
		slog.Error("Failed to record tour error", "tour", tourID, "error", serr)
	}
}
