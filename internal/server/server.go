package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ATHWatch/internal/collector"
	"ATHWatch/internal/metrics"
	"ATHWatch/internal/model"
	"ATHWatch/internal/recorder"
)

// MetricsSource computes metrics as of a day; the zero date means today.
type MetricsSource interface {
	GetMetrics(ctx context.Context, asOf civil.Date) (*model.MetricsResult, error)
}

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	metrics  MetricsSource
	recorder recorder.Recorder
}

// New creates a configured API server with all routes and middleware.
func New(src MetricsSource, rec recorder.Recorder) *Server {
	s := &Server{metrics: src, recorder: rec}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] http server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[INFO] shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics", s.handleMetrics)
		r.Get("/history", s.handleHistory)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var asOf civil.Date
	if v := r.URL.Query().Get("as_of"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid as_of %q: want YYYY-MM-DD", v))
			return
		}
		asOf = d
	}

	m, err := s.metrics.GetMetrics(r.Context(), asOf)
	if err != nil {
		log.Printf("[ERROR] metrics request: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: m})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	snaps, err := s.recorder.Recent(limit)
	if err != nil {
		log.Printf("[ERROR] history request: %v", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	results := make([]*model.MetricsResult, 0, len(snaps))
	for _, snap := range snaps {
		results = append(results, snap.Metrics)
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, metrics.ErrAsOfBeforeATH):
		return http.StatusBadRequest
	case errors.Is(err, collector.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, metrics.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
