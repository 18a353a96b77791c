// Fediranker - Fediverse Timeline Ranking and Filtering Engine
// Copyright 2026 R. Calloway (rcalloway)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rcalloway/fediranker

package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcalloway/fediranker/internal/source"
)

// ServiceConfig sets the cadence of the background services.
type ServiceConfig struct {
	// RefreshInterval is how often the feed refreshes in the background.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"min=1m"`

	// PersistInterval is how often seen-state is flushed to the store.
	PersistInterval time.Duration `koanf:"persist_interval" validate:"min=10s"`

	// UserDataInterval is how often older interaction history is pulled.
	UserDataInterval time.Duration `koanf:"user_data_interval" validate:"min=5m"`
}

// DefaultServiceConfig returns production cadences.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RefreshInterval:  10 * time.Minute,
		PersistInterval:  30 * time.Second,
		UserDataInterval: time.Hour,
	}
}

// RefreshService periodically triggers a background feed update. It
// implements suture.Service and returns on context cancellation. An
// auth error is returned so the supervisor's failure accounting sees
// it; transient errors are logged and the ticker keeps going.
type RefreshService struct {
	coord    *Coordinator
	interval time.Duration
	logger   zerolog.Logger
}

// NewRefreshService creates the background refresh service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefreshService(coord *Coordinator, interval time.Duration, logger zerolog.Logger) *RefreshService {
	return &RefreshService{
		coord:    coord,
		interval: interval,
		logger:   logger.With().Str("component", "refresh-service").Logger(),
	}
}

// Serve implements suture.Service.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("background refresh service started")
	ticker := s.coord.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("background refresh service stopped")
			return ctx.Err()
		case <-ticker.Chan():
			if err := s.coord.TriggerFeedUpdate(ctx, true); err != nil {
				if source.IsAuthError(err) {
					s.logger.Error().Err(err).Msg("access token rejected, stopping background refresh")
					return err
				}
				if errors.Is(err, context.Canceled) && ctx.Err() == nil {
					// Evicted by a newer trigger; the newer pass owns
					// the result.
					continue
				}
				s.logger.Warn().Err(err).Msg("background refresh failed")
			}
		}
	}
}

// PersistService periodically flushes seen-state so item view counts
// survive a crash without a store write per view.
type PersistService struct {
	coord    *Coordinator
	interval time.Duration
	logger   zerolog.Logger
}

// NewPersistService creates the seen-state persister.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPersistService(coord *Coordinator, interval time.Duration, logger zerolog.Logger) *PersistService {
	return &PersistService{
		coord:    coord,
		interval: interval,
		logger:   logger.With().Str("component", "persist-service").Logger(),
	}
}

// Serve implements suture.Service.
func (s *PersistService) Serve(ctx context.Context) error {
	ticker := s.coord.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush on shutdown.
			if err := s.coord.PersistIfShownChanged(); err != nil {
				s.logger.Warn().Err(err).Msg("final seen-state flush failed")
			}
			return ctx.Err()
		case <-ticker.Chan():
			if err := s.coord.PersistIfShownChanged(); err != nil {
				s.logger.Warn().Err(err).Msg("seen-state flush failed")
			}
		}
	}
}

// UserDataService periodically pulls older interaction history so the
// scorers that depend on it keep improving over a long session.
type UserDataService struct {
	coord    *Coordinator
	interval time.Duration
	logger   zerolog.Logger
}

// NewUserDataService creates the interaction-history puller.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewUserDataService(coord *Coordinator, interval time.Duration, logger zerolog.Logger) *UserDataService {
	return &UserDataService{
		coord:    coord,
		interval: interval,
		logger:   logger.With().Str("component", "userdata-service").Logger(),
	}
}

// Serve implements suture.Service.
func (s *UserDataService) Serve(ctx context.Context) error {
	ticker := s.coord.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := s.coord.TriggerMoreUserData(ctx); err != nil {
				if source.IsAuthError(err) {
					s.logger.Error().Err(err).Msg("access token rejected, stopping user data pulls")
					return err
				}
				if errors.Is(err, context.Canceled) && ctx.Err() == nil {
					continue
				}
				s.logger.Warn().Err(err).Msg("user data pull failed")
			}
		}
	}
}
