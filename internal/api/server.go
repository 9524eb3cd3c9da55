package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"walkumentary/pkg/version"
)

// NewServer creates and configures the HTTP server. Authenticated
// endpoints go through the middleware; health and version stay open
// for load balancers and deploy checks.
func NewServer(addr string, tours *TourHandler, stats *StatsHandler, auth *AuthMiddleware) *http.Server {
	mux := http.NewServeMux()

	// 1. Health + Version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Tour Endpoints
	mux.Handle("POST /api/tours/generate", auth.Wrap(http.HandlerFunc(tours.HandleGenerate)))
	mux.Handle("GET /api/tours", auth.Wrap(http.HandlerFunc(tours.HandleList)))
	mux.Handle("GET /api/tours/{id}/status", auth.Wrap(http.HandlerFunc(tours.HandleStatus)))
	mux.Handle("GET /api/tours/{id}", auth.Wrap(http.HandlerFunc(tours.HandleGet)))
	mux.Handle("GET /api/tours/{id}/audio", auth.Wrap(http.HandlerFunc(tours.HandleAudio)))
	mux.Handle("POST /api/tours/estimate-cost", auth.Wrap(http.HandlerFunc(tours.HandleEstimateCost)))

	// 3. Stats Endpoint
	mux.Handle("GET /api/stats", auth.Wrap(stats))

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
