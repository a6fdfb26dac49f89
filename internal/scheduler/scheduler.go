package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/videos"
)

// Sweeper runs one retention pass.
type Sweeper interface {
	Sweep(ctx context.Context) (videos.SweepResult, error)
}

// Scheduler triggers the retention sweep on a fixed interval inside the
// serve process. A trigger that fires while a sweep is still running is skipped.
type Scheduler struct {
	sweeper      Sweeper
	interval     time.Duration
	initialDelay time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
}

// New constructs a Scheduler. A non-positive interval disables it.
func New(sweeper Sweeper, interval, initialDelay time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sweeper:      sweeper,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("sweep scheduler disabled")
		return
	}

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.logger.Info("sweep scheduler starting",
		slog.Duration("delay", s.initialDelay),
		slog.Duration("interval", s.interval),
	)

	select {
	case <-time.After(s.initialDelay):
		s.TryRun(ctx)
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.TryRun(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// TryRun performs a sweep now unless one is already running. It reports
// whether a sweep was started.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if !s.mu.TryLock() {
		s.logger.Warn("sweep already running, skipping trigger")
		return false
	}
	defer s.mu.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	ctx = logging.WithLogger(ctx, s.logger)
	start := time.Now()
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", slog.Any("error", err))
		return true
	}

	s.logger.Info("scheduled sweep completed",
		slog.Int("deleted", result.Deleted),
		slog.Int("failed", result.Failed()),
		slog.Duration("duration", time.Since(start)),
	)
	return true
}

// IsRunning reports whether a sweep is in progress.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.stop.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}
