package tour

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"walkumentary/pkg/config"
	"walkumentary/pkg/llm"
	"walkumentary/pkg/llm/prompts"
	"walkumentary/pkg/model"
	"walkumentary/pkg/request"
	"walkumentary/pkg/store"
	"walkumentary/pkg/tracker"
	"walkumentary/pkg/tts"
)

// Cost projection constants, matched to observed generation output:
// roughly 50 output tokens and 200 narration characters per tour
// minute.
const (
	outputTokensPerMinute = 50
	audioCharsPerMinute   = 200
)

// Geocoder resolves stop coordinates in place.
type Geocoder interface {
	ResolveStops(ctx context.Context, tour *model.Tour)
}

// Service is the entry point for tour generation. Submission is
// synchronous up to the queued insert; everything after runs in a
// background goroutine per tour.
type Service struct {
	store    store.Store
	llm      llm.Provider
	tts      tts.Provider
	geocoder Geocoder
	prompts  *prompts.Manager
	tracker  *tracker.Tracker
	cfg      *config.Config

	dedup   *DeduplicationResolver
	locks   *keyedMutex
	backoff *request.ProviderBackoff
	wg      sync.WaitGroup
}

// NewService wires the pipeline stages together.
func NewService(st store.Store, llmProvider llm.Provider, ttsProvider tts.Provider, geocoder Geocoder, pm *prompts.Manager, tr *tracker.Tracker, cfg *config.Config) *Service {
	return &Service{
		store:    st,
		llm:      llmProvider,
		tts:      ttsProvider,
		geocoder: geocoder,
		prompts:  pm,
		tracker:  tr,
		cfg:      cfg,
		dedup:    NewDeduplicationResolver(st),
		locks:    newKeyedMutex(),
		backoff:  request.NewProviderBackoff(time.Duration(cfg.Request.Backoff.BaseDelay), time.Duration(cfg.Request.Backoff.MaxDelay)),
	}
}

// Submit validates and enqueues a generation request. When an
// equivalent request is already known (same fingerprint, not errored)
// the existing tour is returned and nothing new is generated.
func (s *Service) Submit(ctx context.Context, req *model.TourRequest) (*model.Tour, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewError(CauseValidation, err.Error(), err)
	}

	fp := model.Fingerprint(req)

	// The lock spans dedup check + queued insert only, so two racing
	// identical submissions cannot both insert.
	s.locks.Lock(fp)
	defer s.locks.Unlock(fp)

	existing, err := s.dedup.Resolve(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup failed: %w", err)
	}
	if existing != nil {
		if s.tracker != nil {
			s.tracker.TrackCacheHit("tours")
		}
		return existing, nil
	}
	if s.tracker != nil {
		s.tracker.TrackCacheMiss("tours")
	}

	now := time.Now().UTC()
	t := &model.Tour{
		ID:              uuid.New().String(),
		Fingerprint:     fp,
		UserID:          req.UserID,
		Status:          model.StatusQueued,
		LocationID:      req.LocationID,
		LocationName:    req.LocationName,
		City:            req.City,
		Country:         req.Country,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		DurationMinutes: req.DurationMinutes,
		Interests:       req.Interests,
		Language:        req.Language,
		Voice:           req.Voice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.SaveTour(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to persist queued tour: %w", err)
	}

	reqCopy := *req
	s.wg.Add(1)
	go s.run(t.ID, &reqCopy)

	return t, nil
}

// Wait blocks until all in-flight pipelines finish. Used on shutdown
// and in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// StatusView is the polled status contract.
type StatusView struct {
	TourID     string       `json:"tour_id"`
	Status     model.Status `json:"status"`
	Progress   int          `json:"progress"`
	HasAudio   bool         `json:"has_audio"`
	ErrorCause string       `json:"error_cause,omitempty"`
}

var progressByStatus = map[model.Status]int{
	model.StatusQueued:       10,
	model.StatusGenerating:   50,
	model.StatusContentReady: 80,
	model.StatusReady:        100,
	model.StatusError:        100,
}

// GetStatus returns the polling view of a tour, or nil when unknown.
func (s *Service) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	t, err := s.store.GetTour(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	return &StatusView{
		TourID:     t.ID,
		Status:     t.Status,
		Progress:   progressByStatus[t.Status],
		HasAudio:   t.Status == model.StatusReady && t.AudioURL != "",
		ErrorCause: t.ErrorCause,
	}, nil
}

// GetTour returns the full tour, or nil when unknown. Content and
// stops are readable from content_ready onward even if the audio stage
// later failed.
func (s *Service) GetTour(ctx context.Context, id string) (*model.Tour, error) {
	return s.store.GetTour(ctx, id)
}

// GetAudio returns the synthesized audio bytes and format, or nil data
// while the audio is not ready.
func (s *Service) GetAudio(ctx context.Context, id string) ([]byte, string, error) {
	return s.store.GetAudio(ctx, id)
}

// ListTours returns the user's recent tours.
func (s *Service) ListTours(ctx context.Context, userID string, limit int) ([]*model.Tour, error) {
	return s.store.ListToursByUser(ctx, userID, limit)
}

// CostEstimate is the projected cost of generating a tour.
type CostEstimate struct {
	Cached       bool    `json:"cached"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	ContentCost  float64 `json:"content_cost"`
	AudioChars   int     `json:"audio_characters"`
	AudioCost    float64 `json:"audio_cost"`
	TotalCost    float64 `json:"total_cost"`
}

// EstimateCost projects the provider cost of a request without running
// it. A fingerprint that already has a usable tour costs nothing.
func (s *Service) EstimateCost(ctx context.Context, req *model.TourRequest) (*CostEstimate, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewError(CauseValidation, err.Error(), err)
	}

	if existing, err := s.dedup.Resolve(ctx, model.Fingerprint(req)); err == nil && existing != nil {
		return &CostEstimate{Cached: true}, nil
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

	est := &CostEstimate{
		InputTokens:  int(llm.EstimateTokens(prompt)),
		OutputTokens: req.DurationMinutes * outputTokensPerMinute,
		AudioChars:   req.DurationMinutes * audioCharsPerMinute,
	}
	est.ContentCost = float64(est.InputTokens+est.OutputTokens) / 1000.0 * s.cfg.LLM.Primary.CostPer1K
	est.AudioCost = float64(est.AudioChars) / 1000.0 * s.cfg.TTS.CostPer1K
	est.TotalCost = est.ContentCost + est.AudioCost
	return est, nil
}
