package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Triggerer is the reconciliation surface the scheduler drives.
type Triggerer interface {
	Trigger()
}

// ReconcileScheduler fires the reconciliation engine on a fixed interval.
type ReconcileScheduler struct {
	engine   Triggerer
	logger   *slog.Logger
	stopChan chan struct{}
	interval time.Duration
}

// NewReconcileScheduler creates a new reconcile scheduler
func NewReconcileScheduler(engine Triggerer, interval time.Duration, logger *slog.Logger) *ReconcileScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReconcileScheduler{
		engine:   engine,
		logger:   logger,
		stopChan: make(chan struct{}),
		interval: interval,
	}
}

// Start begins the scheduler loop
func (s *ReconcileScheduler) Start(ctx context.Context) {
	s.logger.Info("[RECONCILE SCHEDULER] Starting", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on start
	s.logger.Info("[RECONCILE SCHEDULER] Triggering initial cycle")
	s.engine.Trigger()

	for {
		select {
		case <-ticker.C:
			s.logger.Debug("[RECONCILE SCHEDULER] Ticker fired, triggering cycle")
			s.engine.Trigger()
		case <-s.stopChan:
			s.logger.Info("[RECONCILE SCHEDULER] Stopped")
			return
		case <-ctx.Done():
			s.logger.Info("[RECONCILE SCHEDULER] Stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *ReconcileScheduler) Stop() {
	close(s.stopChan)
}
