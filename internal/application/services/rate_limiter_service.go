package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// RateLimiterConfig bounds how often one caller may hit the confirmation endpoints.
type RateLimiterConfig struct {
	RequestsPerWindow int
	// BurstMultiplier scales RequestsPerWindow into the hard per-window ceiling.
	BurstMultiplier float64
	Window          time.Duration
	Now             func() time.Time
}

// RateLimiterService is a fixed-window limiter over ports.RateLimitRepository. Counter
// failures let the request through.
type RateLimiterService struct {
	repo   ports.RateLimitRepository
	limit  int
	burst  int
	window time.Duration
	now    func() time.Time
	logger *logrus.Logger
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	s := &RateLimiterService{repo: repo, limit: 5, window: time.Minute, now: time.Now, logger: logger}
	multiplier := 1.0
	if cfg != nil {
		if cfg.RequestsPerWindow > 0 {
			s.limit = cfg.RequestsPerWindow
		}
		if cfg.BurstMultiplier > 0 {
			multiplier = cfg.BurstMultiplier
		}
		if cfg.Window > 0 {
			s.window = cfg.Window
		}
		if cfg.Now != nil {
			s.now = cfg.Now
		}
	}
	s.burst = int(float64(s.limit) * multiplier)
	if s.burst < 1 {
		s.burst = 1
	}
	return s
}

var _ ports.RateLimiterService = (*RateLimiterService)(nil)

func (s *RateLimiterService) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	now := s.now()
	count, windowStart, err := s.repo.IncrementWindow(ctx, key, s.window, now)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("rate limiter counter unavailable")
		}
		return true, s.burst, s.limit, now.Add(s.window), err
	}

	reset := windowStart.Add(s.window)
	if count > s.burst {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key, "count": count, "burst": s.burst}).Info("confirmation request throttled")
		}
		return false, 0, s.limit, reset, nil
	}
	return true, s.burst - count, s.limit, reset, nil
}
