package service

import (
	"context"

	"AttackDash/internal/domain/models"
)

// AttackTelemetry aggregates attack log counts into dashboard views.
// Implementations never fail: degraded sources yield zero values.
type AttackTelemetry interface {
	GetAttackStats(ctx context.Context) models.AttackStats
	GetRecentAttacks(ctx context.Context, limit int) []models.RecentAttack
	GetAttacksByCountry(ctx context.Context, timeRange string) []models.CountryAttackCount
}

// QuoteProvider serves cached market quotes.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol, name string) (*models.StockQuote, bool)
	GetIndices(ctx context.Context) []*models.StockQuote
	GetStocks(ctx context.Context) []*models.StockQuote
}

// ForecastProvider serves the cached weather view.
type ForecastProvider interface {
	GetForecast(ctx context.Context) *models.WeatherForecast
}

// SnapshotBuilder composes every panel into one snapshot.
type SnapshotBuilder interface {
	Snapshot(ctx context.Context) *models.DashboardSnapshot
}
