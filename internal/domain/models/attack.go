package models

import (
	"time"

	"github.com/goccy/go-json"
)

// CountryAttackCount is one row of the breakdown. Before aggregation several
// rows may share a CountryCode, one per source coordinate.
type CountryAttackCount struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Count       int     `json:"count"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// AttackStats is the attack panel view model.
type AttackStats struct {
	TotalAttacks        int                  `json:"totalAttacks"`
	TotalCountries      int                  `json:"totalCountries"`
	AttacksLastHour     int                  `json:"attacksLastHour"`
	AttacksPreviousHour int                  `json:"attacksPreviousHour"`
	TopCountry          string               `json:"topCountry"`
	TopCountryCount     int                  `json:"topCountryCount"`
	CountryBreakdown    []CountryAttackCount `json:"countryBreakdown"`
	MapMarkers          []CountryAttackCount `json:"mapMarkers"`
}

// TrendPercentage is the hour-over-hour change, 0 when the previous hour had no attacks.
func (s AttackStats) TrendPercentage() float64 {
	if s.AttacksPreviousHour <= 0 {
		return 0
	}
	return float64(s.AttacksLastHour-s.AttacksPreviousHour) / float64(s.AttacksPreviousHour) * 100
}

// TrendUp reports a strict increase over the previous hour.
func (s AttackStats) TrendUp() bool {
	return s.AttacksLastHour > s.AttacksPreviousHour
}

func (s AttackStats) MarshalJSON() ([]byte, error) {
	type plain AttackStats
	return json.Marshal(struct {
		plain
		TrendPercentage float64 `json:"trendPercentage"`
		TrendUp         bool    `json:"trendUp"`
	}{plain(s), s.TrendPercentage(), s.TrendUp()})
}

// RecentAttack is a single blocked connection.
type RecentAttack struct {
	Timestamp       time.Time `json:"timestamp"`
	Country         string    `json:"country"`
	CountryCode     string    `json:"countryCode"`
	SourceIP        *string   `json:"sourceIp"`
	DestinationPort int       `json:"destinationPort"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
}

// CountryCount is the trimmed breakdown row of the diagnostic endpoint.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// AttackDiagnostic is the health-check view of AttackStats.
type AttackDiagnostic struct {
	TotalCountries  int            `json:"totalCountries"`
	AttacksLastHour int            `json:"attacksLastHour"`
	TopCountry      string         `json:"topCountry"`
	Countries       []CountryCount `json:"countries"`
}

// NewAttackDiagnostic trims stats to the first top rows of the breakdown.
func NewAttackDiagnostic(s AttackStats, top int) AttackDiagnostic {
	n := min(top, len(s.CountryBreakdown))
	rows := make([]CountryCount, 0, n)
	for _, c := range s.CountryBreakdown[:n] {
		rows = append(rows, CountryCount{Country: c.Country, Count: c.Count})
	}
	return AttackDiagnostic{
		TotalCountries:  s.TotalCountries,
		AttacksLastHour: s.AttacksLastHour,
		TopCountry:      s.TopCountry,
		Countries:       rows,
	}
}
