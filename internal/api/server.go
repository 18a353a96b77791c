// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

// Package api serves the HTTP surface: the ranked timeline, trigger
// endpoints, weight and filter settings, and a WebSocket channel that
// announces timeline changes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/coordinator"
	"github.com/rcalloway/fediranker/internal/feed"
	"github.com/rcalloway/fediranker/internal/filters"
	"github.com/rcalloway/fediranker/internal/metrics"
	"github.com/rcalloway/fediranker/internal/scoring"
	"github.com/rcalloway/fediranker/internal/source"
)

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds response writes. WebSocket connections are
	// exempt via the hijacked connection.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownGrace is how long in-flight requests get on shutdown.
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  30 * time.Second,
		ShutdownGrace: 10 * time.Second,
	}
}

// Server is the HTTP API. It implements suture.Service.
type Server struct {
	cfg    Config
	coord  *coordinator.Coordinator
	hub    *Hub
	logger zerolog.Logger
	router chi.Router
}

// NewServer builds the API server and wires the coordinator's timeline
// change notifications into the WebSocket hub.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServer(cfg Config, coord *coordinator.Coordinator, hub *Hub, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		coord:  coord,
		hub:    hub,
		logger: logger.With().Str("component", "api").Logger(),
	}
	s.router = s.routes()

	coord.OnTimelineChanged(func(items []*feed.Item) {
		hub.Broadcast(MessageTypeTimelineChanged, map[string]any{
			"items":     len(items),
			"timestamp": time.Now().UTC(),
		})
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/timeline", s.handleTimeline)
		r.Get("/status", s.handleStatus)

		r.Post("/refresh", s.handleRefresh)
		r.Post("/backfill", s.handleBackfill)
		r.Post("/backfill/tags", s.handleTagBackfill)
		r.Post("/shown", s.handleShown)

		r.Get("/weights", s.handleGetWeights)
		r.Put("/weights", s.handlePutWeights)
		r.Get("/filters", s.handleGetFilters)
		r.Put("/filters", s.handlePutFilters)

		r.Delete("/session", s.handleReset)

		r.Get("/ws", s.hub.ServeWS)
	})

	return r
}

// observe records request durations per route.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

type statusPayload struct {
	Action         coordinator.Action `json:"action"`
	NumTriggers    int                `json:"num_triggers"`
	NumUnscanned   int                `json:"num_unscanned_items"`
	UpdateInFlight bool               `json:"update_in_flight"`
	FeedSize       int                `json:"feed_size"`
	Clients        int                `json:"ws_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, statusPayload{
		Action:         s.coord.CurrentAction(),
		NumTriggers:    s.coord.NumTriggers(),
		NumUnscanned:   s.coord.NumUnscannedItems(),
		UpdateInFlight: s.coord.UpdateInFlight(),
		FeedSize:       len(s.coord.Feed()),
		Clients:        s.hub.ClientCount(),
	})
}

type timelinePayload struct {
	Items []*feed.Item `json:"items"`
	Total int          `json:"total"`
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	items := s.coord.Timeline()
	total := len(items)

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(items) {
			items = items[:limit]
		}
	}

	writeSuccess(w, timelinePayload{Items: items, Total: total})
}

type refreshRequest struct {
	// PromoteOnly installs the pending snapshot without refetching.
	PromoteOnly bool `json:"promote_only"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
			return
		}
	}

	if req.PromoteOnly {
		promoted, err := s.coord.PromotePending()
		if err != nil {
			s.writeCoordError(w, r, err)
			return
		}
		writeSuccess(w, map[string]bool{"promoted": promoted})
		return
	}

	if err := s.coord.TriggerFeedUpdate(r.Context(), false); err != nil {
		s.writeCoordError(w, r, err)
		return
	}
	writeSuccess(w, timelinePayload{Items: s.coord.Timeline(), Total: len(s.coord.Timeline())})
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.TriggerBackfill(r.Context()); err != nil {
		s.writeCoordError(w, r, err)
		return
	}
	writeSuccess(w, map[string]int{"feed_size": len(s.coord.Feed())})
}

func (s *Server) handleTagBackfill(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.TriggerTagBackfill(r.Context()); err != nil {
		s.writeCoordError(w, r, err)
		return
	}
	writeSuccess(w, map[string]int{"feed_size": len(s.coord.Feed())})
}

type shownRequest struct {
	URIs []string `json:"uris"`
}

func (s *Server) handleShown(w http.ResponseWriter, r *http.Request) {
	var req shownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	s.coord.MarkShown(req.URIs)
	writeSuccess(w, map[string]int{"marked": len(req.URIs)})
}

func (s *Server) handleGetWeights(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, s.coord.Weights())
}

func (s *Server) handlePutWeights(w http.ResponseWriter, r *http.Request) {
	var weights scoring.Weights
	if err := json.NewDecoder(r.Body).Decode(&weights); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := s.coord.UpdateWeights(r.Context(), weights); err != nil {
		if errors.Is(err, context.Canceled) {
			// Evicted by a newer trigger; the weights themselves stuck.
			writeSuccess(w, s.coord.Weights())
			return
		}
		writeError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}
	writeSuccess(w, s.coord.Weights())
}

func (s *Server) handleGetFilters(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, s.coord.Filters())
}

func (s *Server) handlePutFilters(w http.ResponseWriter, r *http.Request) {
	var args filters.Args
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := s.coord.UpdateFilters(args, s.logger); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}
	writeSuccess(w, s.coord.Filters())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Reset(); err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w, map[string]string{"status": "reset"})
}

// writeCoordError maps pipeline errors onto HTTP statuses. A rejected
// token is the one error the client must see distinctly.
func (s *Server) writeCoordError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case source.IsAuthError(err):
		writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "instance rejected the access token")
	case errors.Is(err, context.Canceled):
		// The request's update was superseded by a newer trigger.
		writeSuccess(w, map[string]string{"status": "superseded"})
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("pipeline request failed")
		writeError(w, r, http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
	}
}

// Serve implements suture.Service: it runs the HTTP server until the
// context is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("graceful shutdown incomplete, forcing close")
		_ = srv.Close()
	}
	s.logger.Info().Msg("API server stopped")
	return ctx.Err()
}
