package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal/invocation"
	"github.com/turbolytics/harvester/internal/metrics"
	"github.com/turbolytics/harvester/internal/report"
)

// Server exposes the orchestrator over HTTP the way API Gateway exposes the
// function: the envelope's status code, headers and body become the HTTP
// response.
type Server struct {
	logger       *zap.Logger
	orchestrator *invocation.Orchestrator

	mu      sync.RWMutex
	lastRun *report.Report
}

type HealthInfo struct {
	Status  string         `json:"status"`
	LastRun *report.Report `json:"last_run,omitempty"`
}

func New(o *invocation.Orchestrator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:       logger,
		orchestrator: o,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/harvest", s.harvest)
	r.Post("/harvest", s.harvest)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	info := HealthInfo{
		Status:  "ok",
		LastRun: s.lastRun,
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (s *Server) harvest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := invocation.Params{
		RunType:      q.Get("runtype"),
		FromDateTime: q.Get("fromDateTime"),
	}

	result := s.orchestrator.Handle(r.Context(), params)

	s.mu.Lock()
	s.lastRun = result.Report
	s.mu.Unlock()

	resp, err := result.Response()
	if err != nil {
		s.logger.Error("could not encode response",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, "could not encode response", http.StatusInternalServerError)
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	code, err := strconv.Atoi(resp.StatusCode)
	if err != nil {
		code = http.StatusInternalServerError
	}
	w.WriteHeader(code)
	w.Write([]byte(resp.Body))
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting harvester server", zap.String("addr", addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down harvester server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
