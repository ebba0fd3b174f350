//go:build wireinject
// +build wireinject

package di

import (
	"AttackDash/pkg/config"
	"AttackDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideLocation,
		ProvideMetrics,
		ProvideCache,
		ProvideSources,

		// Use cases
		ProvideAttackTelemetry,
		ProvideQuoteProvider,
		ProvideForecastAggregator,
		ProvideDashboard,

		// Delivery
		ProvideRateLimiter,
		ProvideHub,
		ProvideHTTPServer,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
