package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"walkumentary/pkg/model"
	"walkumentary/pkg/tour"
)

// TourService is the slice of tour.Service the handlers need.
type TourService interface {
	Submit(ctx context.Context, req *model.TourRequest) (*model.Tour, error)
	GetStatus(ctx context.Context, id string) (*tour.StatusView, error)
	GetTour(ctx context.Context, id string) (*model.Tour, error)
	GetAudio(ctx context.Context, id string) ([]byte, string, error)
	EstimateCost(ctx context.Context, req *model.TourRequest) (*tour.CostEstimate, error)
	ListTours(ctx context.Context, userID string, limit int) ([]*model.Tour, error)
}

// TourHandler serves the tour generation endpoints.
type TourHandler struct {
	svc TourService
}

// NewTourHandler creates the handler.
func NewTourHandler(svc TourService) *TourHandler {
	return &TourHandler{svc: svc}
}

// HandleGenerate accepts a generation request and returns 202 with the
// tour id to poll. Duplicate requests return the existing tour.
func (h *TourHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.TourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(tour.CauseValidation), "invalid request body")
		return
	}
	req.UserID = UserID(r)

	t, err := h.svc.Submit(r.Context(), &req)
	if err != nil {
		var te *tour.Error
		if errors.As(err, &te) && te.Cause == tour.CauseValidation {
			writeError(w, http.StatusBadRequest, string(te.Cause), te.Detail)
			return
		}
		slog.Error("Tour submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "tour submission failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"tour_id": t.ID,
		"status":  t.Status,
	})
}

// HandleStatus serves the polling contract.
func (h *TourHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sv, err := h.svc.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Status lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "status lookup failed")
		return
	}
	if sv == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown tour")
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// HandleGet serves the full tour document.
func (h *TourHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTour(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Tour lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "tour lookup failed")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown tour")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleAudio streams the synthesized audio, 404 until it exists.
func (h *TourHandler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	data, format, err := h.svc.GetAudio(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Audio lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "audio lookup failed")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "audio not synthesized yet")
		return
	}

	contentType := "audio/mpeg"
	if format != "" && format != "mp3" {
		contentType = "audio/" + format
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write audio response", "error", err)
	}
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// HandleList returns the authenticated user's recent tours.
func (h *TourHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, string(tour.CauseValidation), "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	ts, err := h.svc.ListTours(r.Context(), UserID(r), limit)
	if err != nil {
		slog.Error("Tour listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "tour listing failed")
		return
	}
	if ts == nil {
		ts = []*model.Tour{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tours": ts,
		"count": len(ts),
	})
}

// HandleEstimateCost serves a cost projection without generating.
func (h *TourHandler) HandleEstimateCost(w http.ResponseWriter, r *http.Request) {
	var req model.TourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(tour.CauseValidation), "invalid request body")
		return
	}
	req.UserID = UserID(r)

	est, err := h.svc.EstimateCost(r.Context(), &req)
	if err != nil {
		var te *tour.Error
		if errors.As(err, &te) && te.Cause == tour.CauseValidation {
			writeError(w, http.StatusBadRequest, string(te.Cause), te.Detail)
			return
		}
		slog.Error("Cost estimate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "cost estimate failed")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, cause, detail string) {
	writeJSON(w, status, map[string]string{
		"error": detail,
		"cause": cause,
	})
}
