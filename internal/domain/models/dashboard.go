package models

import "time"

// DashboardSnapshot is everything the dashboard renders in one refresh.
type DashboardSnapshot struct {
	Attacks       AttackStats      `json:"attacks"`
	RecentAttacks []RecentAttack   `json:"recentAttacks"`
	Indices       []*StockQuote    `json:"indices"`
	Stocks        []*StockQuote    `json:"stocks"`
	Weather       *WeatherForecast `json:"weather"`
	GeneratedAt   time.Time        `json:"generatedAt"`
}
