package usecase

import (
	"AttackDash/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Dominant weather codes used for daily summaries.
const (
	WeatherClear        = 1
	WeatherPartlyCloudy = 3
	WeatherOvercast     = 6
	WeatherRain         = 8
)

const (
	iconSunny        = "\u2600\ufe0f"
	iconPartlyCloudy = "\u26c5"
	iconCloudy       = "\u2601\ufe0f"
	iconFog          = "\U0001F32B\ufe0f"
	iconRain         = "\U0001F327\ufe0f"
	iconThunder      = "\u26c8\ufe0f"
	iconSleet        = "\U0001F328\ufe0f"
	iconSnow         = "\u2744\ufe0f"
	iconFallback     = "\U0001F324\ufe0f"
)

type weatherCondition struct {
	description string
	icon        string
}

// Wsymb2 codes 1..27.
var weatherConditions = map[int]weatherCondition{
	1:  {"Clear sky", iconSunny},
	2:  {"Nearly clear", iconSunny},
	3:  {"Partly cloudy", iconPartlyCloudy},
	4:  {"Partly cloudy", iconPartlyCloudy},
	5:  {"Cloudy", iconCloudy},
	6:  {"Overcast", iconCloudy},
	7:  {"Fog", iconFog},
	8:  {"Light rain", iconRain},
	9:  {"Moderate rain", iconRain},
	10: {"Heavy rain", iconRain},
	11: {"Thunderstorm", iconThunder},
	12: {"Light sleet", iconSleet},
	13: {"Moderate sleet", iconSleet},
	14: {"Heavy sleet", iconSleet},
	15: {"Light snow", iconSnow},
	16: {"Moderate snow", iconSnow},
	17: {"Heavy snow", iconSnow},
	18: {"Light rain", iconRain},
	19: {"Moderate rain", iconRain},
	20: {"Heavy rain", iconRain},
	21: {"Thunder", iconThunder},
	22: {"Light sleet", iconSleet},
	23: {"Moderate sleet", iconSleet},
	24: {"Heavy sleet", iconSleet},
	25: {"Light snow", iconSnow},
	26: {"Moderate snow", iconSnow},
	27: {"Heavy snow", iconSnow},
}

// WeatherCondition maps a Wsymb2 code to its description and icon.
func WeatherCondition(code int) (description, icon string) {
	if c, ok := weatherConditions[code]; ok {
		return c.description, c.icon
	}
	return "Unknown", iconFallback
}

var one = decimal.NewFromInt(1)

// DominantWeather summarizes a day: any step with more than 1 mm of
// precipitation is rain, otherwise the mean cloud cover in eighths picks
// overcast (> 6), partly cloudy (> 3) or clear.
func DominantWeather(hours []models.HourlyForecast) int {
	if len(hours) == 0 {
		return WeatherClear
	}
	sum := 0
	for _, h := range hours {
		if h.Precipitation.GreaterThan(one) {
			return WeatherRain
		}
		sum += h.CloudCover
	}
	mean := float64(sum) / float64(len(hours))
	switch {
	case mean > 6:
		return WeatherOvercast
	case mean > 3:
		return WeatherPartlyCloudy
	default:
		return WeatherClear
	}
}
