package service

import (
	"context"
	"time"

	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

// scanSystemUser is recorded as the creator of scheduler-generated requests.
const scanSystemUser = "system"

// ScanScheduler runs the MSL scan periodically in a background goroutine.
type ScanScheduler struct {
	scanner  *MSLScanner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewScanScheduler creates a new scan scheduler
func NewScanScheduler(scanner *MSLScanner, interval time.Duration, log *logger.Logger) *ScanScheduler {
	return &ScanScheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log.WithComponent("scan_scheduler"),
	}
}

// Start starts the scheduler in a background goroutine.
// An initial scan runs immediately, then one per interval.
func (s *ScanScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("MSL scan scheduler started")

		s.runScan(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("MSL scan scheduler stopped")
				return
			case <-ticker.C:
				s.runScan(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *ScanScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ScanScheduler) runScan(ctx context.Context) {
	start := time.Now()

	result, err := s.scanner.Scan(ctx, scanSystemUser)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled MSL scan failed")
		return
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("generated", len(result.Generated)).
		Int("skipped", result.Skipped).
		Msg("scheduled MSL scan completed")
}
