package scheduler

import (
	"context"
	"sync"
	"time"

	"AttackDash/internal/domain/models"
	"AttackDash/internal/domain/service"
	xlogger "AttackDash/pkg/logger"
)

// Publisher receives every refreshed snapshot.
type Publisher interface {
	BroadcastSnapshot(snap *models.DashboardSnapshot)
}

// Option configures Scheduler.
type Option func(*Scheduler)

// WithHousekeeping runs fn after every refresh.
func WithHousekeeping(fn func()) Option {
	return func(s *Scheduler) { s.housekeeping = append(s.housekeeping, fn) }
}

// Scheduler rebuilds the dashboard snapshot on a fixed interval and publishes it.
type Scheduler struct {
	builder      service.SnapshotBuilder
	publisher    Publisher
	interval     time.Duration
	housekeeping []func()
	log          *xlogger.Logger
	stop         chan struct{}
	stopOnce     sync.Once
}

func New(builder service.SnapshotBuilder, publisher Publisher, interval time.Duration, log *xlogger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		builder:   builder,
		publisher: publisher,
		interval:  interval,
		log:       log,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start refreshes once immediately and then on every tick. Blocks until Stop
// is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", xlogger.Duration("interval", s.interval))
	s.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			s.refresh(ctx)
		case <-s.stop:
			s.log.Info("scheduler stopped")
			return
		case <-ctx.Done():
			s.log.Info("scheduler context cancelled")
			return
		}
	}
}

// Stop signals the scheduler to stop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) refresh(ctx context.Context) {
	start := time.Now()
	snap := s.builder.Snapshot(ctx)
	if ctx.Err() != nil {
		return
	}
	s.publisher.BroadcastSnapshot(snap)
	s.log.Debug("dashboard refreshed",
		xlogger.Duration("took", time.Since(start)),
		xlogger.Int("attacks_last_hour", snap.Attacks.AttacksLastHour),
		xlogger.Int("indices", len(snap.Indices)),
		xlogger.Int("stocks", len(snap.Stocks)),
	)
	for _, fn := range s.housekeeping {
		fn()
	}
}
