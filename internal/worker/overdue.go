package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// SweepFunc marks unpaid invoices past their due date as overdue and returns
// how many changed.
type SweepFunc func(ctx context.Context) (int, error)

// OverdueScheduler runs the overdue sweep on a cron schedule. Runs never
// overlap; a tick arriving during a sweep is skipped.
type OverdueScheduler struct {
	cron  *cron.Cron
	sweep SweepFunc
	mu    sync.Mutex
}

// NewOverdueScheduler parses schedule, a standard cron expression or a
// descriptor such as "@every 24h".
func NewOverdueScheduler(schedule string, sweep SweepFunc) (*OverdueScheduler, error) {
	s := &OverdueScheduler{
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweep: sweep,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid overdue schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs a sweep immediately and logs the outcome.
func (s *OverdueScheduler) RunOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.InfoContext(ctx, "Running overdue invoice sweep")
	count, err := s.sweep(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Overdue sweep failed", "error", err)
		return count, err
	}
	slog.InfoContext(ctx, "Overdue sweep complete", "invoices_marked", count)
	return count, nil
}

// Run sweeps once, then on schedule until ctx is done.
func (s *OverdueScheduler) Run(ctx context.Context) {
	_, _ = s.RunOnce(ctx)
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		slog.InfoContext(ctx, "Overdue sweep scheduled", "next_run", e.Next)
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.InfoContext(ctx, "Overdue scheduler stopped")
}
