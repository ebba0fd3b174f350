package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// CurrentWeather is the first forecast step. CloudCover is a percentage.
type CurrentWeather struct {
	Temperature   decimal.Decimal `json:"temperature"`
	WindSpeed     decimal.Decimal `json:"windSpeed"`
	Precipitation decimal.Decimal `json:"precipitation"`
	Humidity      int             `json:"humidity"`
	CloudCover    int             `json:"cloudCover"`
	WeatherCode   int             `json:"weatherCode"`
	Description   string          `json:"description"`
	Icon          string          `json:"icon"`
}

// HourlyForecast is one forecast step. CloudCover is in eighths.
type HourlyForecast struct {
	Time          time.Time       `json:"time"`
	Temperature   decimal.Decimal `json:"temperature"`
	WindSpeed     decimal.Decimal `json:"windSpeed"`
	Precipitation decimal.Decimal `json:"precipitation"`
	CloudCover    int             `json:"cloudCover"`
	WeatherCode   int             `json:"weatherCode"`
	Icon          string          `json:"icon"`
}

// DailyForecast summarizes the steps of one local calendar date.
type DailyForecast struct {
	Date               time.Time       `json:"date"`
	MinTemp            decimal.Decimal `json:"minTemp"`
	MaxTemp            decimal.Decimal `json:"maxTemp"`
	TotalPrecipitation decimal.Decimal `json:"totalPrecipitation"`
	AvgWindSpeed       int             `json:"avgWindSpeed"`
	WeatherCode        int             `json:"weatherCode"`
	Description        string          `json:"description"`
	Icon               string          `json:"icon"`
}

// SunData holds sunrise and sunset in local wall-clock time.
type SunData struct {
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
}

// DayLength is Sunset minus Sunrise.
func (s SunData) DayLength() time.Duration {
	return s.Sunset.Sub(s.Sunrise)
}

func (s SunData) MarshalJSON() ([]byte, error) {
	type plain SunData
	d := s.DayLength()
	return json.Marshal(struct {
		plain
		DayLength        string `json:"dayLength"`
		DayLengthMinutes int64  `json:"dayLengthMinutes"`
	}{plain(s), d.String(), int64(d / time.Minute)})
}

// TemperatureExtremes holds the warmest and coldest reporting stations.
type TemperatureExtremes struct {
	WarmestStation string          `json:"warmestStation"`
	WarmestTemp    decimal.Decimal `json:"warmestTemp"`
	ColdestStation string          `json:"coldestStation"`
	ColdestTemp    decimal.Decimal `json:"coldestTemp"`
}

// WeatherForecast is the weather panel view model.
type WeatherForecast struct {
	Current     CurrentWeather       `json:"current"`
	Hourly      []HourlyForecast     `json:"hourly"`
	Daily       []DailyForecast      `json:"daily"`
	Sun         SunData              `json:"sun"`
	Extremes    *TemperatureExtremes `json:"extremes,omitempty"`
	LastUpdated time.Time            `json:"lastUpdated"`
}
