package api

import (
	"net/http"

	"walkumentary/pkg/tracker"
)

// StatsHandler serves provider usage counters.
type StatsHandler struct {
	tracker *tracker.Tracker
}

// NewStatsHandler creates the handler.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{tracker: t}
}

// StatsResponse is the GET /api/stats document.
type StatsResponse struct {
	Providers map[string]tracker.StatsView `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{Providers: h.tracker.Snapshot()})
}
