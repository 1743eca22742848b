package suspension

import (
	"context"
	"log/slog"
	"time"

	"warden/internal/suspension/metrics"
)

// Sweeper runs the auto-lift sweep on a fixed interval. The sweep itself is
// idempotent, so overlapping runs from multiple instances are harmless.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a sweeper. Intervals at or below zero fall back to 15m.
func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled. One sweep runs immediately on
// start so a restarted process does not wait a full interval to release
// overdue suspensions.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-lift sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	lifted, err := s.service.AutoLiftExpired(ctx)
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("auto-lift sweep failed", "error", err)
		return
	}
	if lifted > 0 {
		s.logger.Info("auto-lift sweep", "lifted", lifted)
	}
}
