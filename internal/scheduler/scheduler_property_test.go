package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/clipvault/backend/internal/videos"
)

type mockSweeper struct {
	mu            sync.Mutex
	calls         int32
	concurrent    int32
	maxConcurrent int32
	delay         time.Duration
}

func (m *mockSweeper) Sweep(ctx context.Context) (videos.SweepResult, error) {
	current := atomic.AddInt32(&m.concurrent, 1)
	defer atomic.AddInt32(&m.concurrent, -1)

	m.mu.Lock()
	if current > m.maxConcurrent {
		m.maxConcurrent = current
	}
	m.mu.Unlock()

	atomic.AddInt32(&m.calls, 1)
	time.Sleep(m.delay)
	return videos.SweepResult{}, nil
}

func (m *mockSweeper) max() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxConcurrent
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// However many triggers race, at most one sweep runs at a time.
func TestProperty_SweepsNeverOverlap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent triggers run one sweep at a time", prop.ForAll(
		func(triggers int) bool {
			sweeper := &mockSweeper{delay: 5 * time.Millisecond}
			s := New(sweeper, time.Hour, 0, quietLogger())

			var started int32
			var wg sync.WaitGroup
			wg.Add(triggers)
			for i := 0; i < triggers; i++ {
				go func() {
					defer wg.Done()
					if s.TryRun(context.Background()) {
						atomic.AddInt32(&started, 1)
					}
				}()
			}
			wg.Wait()

			return sweeper.max() == 1 &&
				atomic.LoadInt32(&sweeper.calls) == started &&
				started >= 1 &&
				!s.IsRunning()
		},
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}

func TestSchedulerRunsPeriodicallyAndStops(t *testing.T) {
	sweeper := &mockSweeper{}
	s := New(sweeper, 10*time.Millisecond, 0, quietLogger())

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&sweeper.calls) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected repeated sweeps, got %d", atomic.LoadInt32(&sweeper.calls))
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	calls := atomic.LoadInt32(&sweeper.calls)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&sweeper.calls) != calls {
		t.Fatal("expected no sweeps after Stop")
	}
	s.Stop()
}

func TestSchedulerDisabled(t *testing.T) {
	sweeper := &mockSweeper{}
	s := New(sweeper, 0, 0, quietLogger())
	s.Start(context.Background())
	s.Stop()

	if atomic.LoadInt32(&sweeper.calls) != 0 {
		t.Fatal("disabled scheduler must not sweep")
	}
}
