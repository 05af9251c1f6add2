// Package server exposes the backtesting engine over HTTP: chi/v5 routing,
// go-chi/cors, one Handler struct per concern.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/stratbacktest/internal/batch"
	"github.com/aristath/stratbacktest/internal/config"
	"github.com/aristath/stratbacktest/internal/engine"
	"github.com/aristath/stratbacktest/internal/respcache"
)

// Config holds the server's constructor dependencies.
type Config struct {
	Log      zerolog.Logger
	Config   *config.Config
	Cache    *respcache.Cache
	Pool     *batch.Pool
	Bars     engine.BarSource
	Formulas engine.CustomFormulaSource
}

// Server is the HTTP front door onto engine.Run.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	backtest    *BacktestHandler
	diagnostics *DiagnosticsHandler
	progress    *ProgressHub
}

// New builds a Server with routes registered but not yet listening.
func New(cfg Config) *Server {
	s := &Server{
		log:         cfg.Log,
		backtest:    NewBacktestHandler(cfg.Log, cfg.Config, cfg.Cache, cfg.Pool, cfg.Bars, cfg.Formulas),
		diagnostics: NewDiagnosticsHandler(cfg.Log),
		progress:    NewProgressHub(cfg.Log),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/backtest", s.backtest.HandleRun)
		r.Post("/backtest/batch", s.backtest.HandleBatch)
		r.Get("/backtest/progress/{requestId}", s.progress.HandleWebSocket)
		r.Get("/diagnostics", s.diagnostics.Handle)
	})

	s.router = r
	return s
}

// ListenAndServe starts the HTTP server on addr, blocking until it exits.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	s.log.Info().Str("addr", addr).Msg("server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight requests
// to finish until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
