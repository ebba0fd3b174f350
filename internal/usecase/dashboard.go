package usecase

import (
	"context"
	"time"

	"AttackDash/internal/domain/models"
	"AttackDash/internal/domain/service"

	"golang.org/x/sync/errgroup"
)

// Dashboard composes every panel into one snapshot.
type Dashboard struct {
	attacks     service.AttackTelemetry
	quotes      service.QuoteProvider
	forecast    service.ForecastProvider
	recentLimit int
	now         func() time.Time
}

// DashboardOption configures Dashboard.
type DashboardOption func(*Dashboard)

// WithDashboardClock replaces time.Now for GeneratedAt.
func WithDashboardClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) { d.now = now }
}

func NewDashboard(
	attacks service.AttackTelemetry,
	quotes service.QuoteProvider,
	forecast service.ForecastProvider,
	recentLimit int,
	opts ...DashboardOption,
) *Dashboard {
	d := &Dashboard{
		attacks:     attacks,
		quotes:      quotes,
		forecast:    forecast,
		recentLimit: recentLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Snapshot runs every panel concurrently. Panels degrade on their own, so the
// snapshot is always complete.
func (d *Dashboard) Snapshot(ctx context.Context) *models.DashboardSnapshot {
	snap := &models.DashboardSnapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Attacks = d.attacks.GetAttackStats(gctx)
		return nil
	})
	g.Go(func() error {
		snap.RecentAttacks = d.attacks.GetRecentAttacks(gctx, d.recentLimit)
		return nil
	})
	g.Go(func() error {
		snap.Indices = d.quotes.GetIndices(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Stocks = d.quotes.GetStocks(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Weather = d.forecast.GetForecast(gctx)
		return nil
	})
	_ = g.Wait()

	snap.GeneratedAt = d.now()
	return snap
}
