package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"AttackDash/internal/domain/models"
	"AttackDash/pkg/cache"
	"AttackDash/pkg/jsonx"
	"AttackDash/pkg/logger"
	"AttackDash/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

func param(name string, v string) string {
	return fmt.Sprintf(`{"name":%q,"levelType":"hl","level":2,"unit":"x","values":[%s]}`, name, v)
}

func step(validTime, t, ws, pmean, tcc, r, sym string) string {
	params := []string{param("msl", "1012"), param("t", t), param("ws", ws), param("pmean", pmean), param("tcc_mean", tcc), param("Wsymb2", sym)}
	if r != "" {
		params = append(params, param("r", r))
	}
	return fmt.Sprintf(`{"validTime":%q,"parameters":[%s]}`, validTime, strings.Join(params, ","))
}

var forecastBody = `{"approvedTime":"2024-05-01T21:00:00Z","timeSeries":[` + strings.Join([]string{
	step("2024-05-01T22:00:00Z", "12.5", "3.4", "0", "4", "81", "3"),
	step("2024-05-01T23:00:00Z", "10.1", "2.6", "1.5", "8", "90", "18"),
	`{"validTime":"not a time","parameters":[]}`,
	step("2024-05-02T00:00:00Z", "9.0", "5.0", "0", "7", "", "6"),
	step("2024-05-02T06:00:00Z", "11.0", "6.0", "0.2", "7", "", "5"),
}, ",") + `]}`

const sunBody = `{"results":{"sunrise":"2024-05-01T02:58:11+00:00","sunset":"2024-05-01T19:02:43+00:00","day_length":57872},"status":"OK"}`

const observationsBody = `{"station":[
 {"name":"Abisko Aut","value":[{"date":1714600800000,"value":"-3.5","quality":"G"}]},
 {"name":"Lund","value":[{"value":"18.0"},{"value":"18.4"}]},
 {"name":"Broken","value":[{"value":""}]},
 {"name":"Comma","value":[{"value":"19,9"}]},
 {"name":"Empty","value":[]},
 {"name":"Null","value":null},
 {"name":"Tie","value":[{"value":"18.4"}]}
]}`

type forecastFake struct {
	forecast, sun, obs *countingTransport
}

func newForecastFake(forecast, sun, obs roundTripper) forecastFake {
	return forecastFake{
		forecast: newCountingTransport(forecast),
		sun:      newCountingTransport(sun),
		obs:      newCountingTransport(obs),
	}
}

func okBody(body string) roundTripper {
	return func(*http.Request) (*http.Response, error) { return newResponse(http.StatusOK, body), nil }
}

func newForecast(fake forecastFake, clock *fakeClock, loc *time.Location) (*ForecastAggregator, *cache.MemoryCache) {
	mem := cache.NewMemoryCache(cache.WithMemoryClock(clock.Now))
	agg := NewForecastAggregator(ForecastSources{
		Forecast:     newTestSource("smhi-forecast", fake.forecast),
		Sun:          newTestSource("sunrise-sunset", fake.sun),
		Observations: newTestSource("smhi-observations", fake.obs),
	}, mem, ForecastSettings{
		Latitude:    59.44,
		Longitude:   18.07,
		CacheTTL:    30 * time.Minute,
		ExtremesTTL: time.Hour,
		Location:    loc,
	}, metrics.Noop{}, logger.Nop(), WithForecastClock(clock.Now))
	return agg, mem
}

func TestGetForecastAssembles(t *testing.T) {
	var forecastURL, sunQuery string
	fake := newForecastFake(func(r *http.Request) (*http.Response, error) {
		forecastURL = r.URL.Path
		return newResponse(http.StatusOK, forecastBody), nil
	}, func(r *http.Request) (*http.Response, error) {
		sunQuery = r.URL.RawQuery
		return newResponse(http.StatusOK, sunBody), nil
	}, okBody(observationsBody))
	clock := &fakeClock{now: time.Date(2024, 5, 1, 21, 30, 0, 0, time.UTC)}
	agg, mem := newForecast(fake, clock, time.UTC)
	defer mem.Close()

	fc := agg.GetForecast(context.Background())

	if forecastURL != "/api/category/pmp3g/version/2/geotype/point/lon/18.07/lat/59.44/data.json" {
		t.Fatalf("forecast path = %s", forecastURL)
	}
	if sunQuery != "formatted=0&lat=59.44&lng=18.07" {
		t.Fatalf("sun query = %s", sunQuery)
	}

	cur := fc.Current
	if !cur.Temperature.Equal(decimal.RequireFromString("12.5")) || cur.Humidity != 81 || cur.CloudCover != 50 {
		t.Fatalf("current = %+v", cur)
	}
	if cur.Description != "Partly cloudy" || cur.WeatherCode != 3 {
		t.Fatalf("current condition = %q %d", cur.Description, cur.WeatherCode)
	}
	if len(fc.Hourly) != 4 {
		t.Fatalf("hourly = %d", len(fc.Hourly))
	}

	if len(fc.Daily) != 2 {
		t.Fatalf("daily = %d", len(fc.Daily))
	}
	d1, d2 := fc.Daily[0], fc.Daily[1]
	if d1.WeatherCode != WeatherRain || d1.Description != "Light rain" || d1.AvgWindSpeed != 3 {
		t.Fatalf("day 1 = %+v", d1)
	}
	if !d1.MinTemp.Equal(decimal.RequireFromString("10.1")) || !d1.MaxTemp.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("day 1 temps = %s..%s", d1.MinTemp, d1.MaxTemp)
	}
	if !d1.TotalPrecipitation.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("day 1 precipitation = %s", d1.TotalPrecipitation)
	}
	if d2.WeatherCode != WeatherOvercast || d2.AvgWindSpeed != 5 || !d2.Date.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day 2 = %+v", d2)
	}

	if got := fc.Sun.DayLength(); got != 16*time.Hour+4*time.Minute+32*time.Second {
		t.Fatalf("day length = %v", got)
	}
	if fc.Extremes == nil || fc.Extremes.WarmestStation != "Lund" || fc.Extremes.ColdestStation != "Abisko Aut" {
		t.Fatalf("extremes = %+v", fc.Extremes)
	}
	if !fc.Extremes.WarmestTemp.Equal(decimal.RequireFromString("18.4")) || !fc.Extremes.ColdestTemp.Equal(decimal.RequireFromString("-3.5")) {
		t.Fatalf("extreme temps = %s / %s", fc.Extremes.WarmestTemp, fc.Extremes.ColdestTemp)
	}
	if !fc.LastUpdated.Equal(clock.Now()) {
		t.Fatalf("last updated = %v", fc.LastUpdated)
	}
}

func TestGetForecastCacheLifetimes(t *testing.T) {
	fake := newForecastFake(okBody(forecastBody), okBody(sunBody), okBody(observationsBody))
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	agg, mem := newForecast(fake, clock, time.UTC)
	defer mem.Close()
	ctx := context.Background()

	first := agg.GetForecast(ctx)
	clock.Advance(29 * time.Minute)
	if again := agg.GetForecast(ctx); again != first {
		t.Fatalf("expected cached forecast")
	}
	if fake.forecast.total.Load() != 1 || fake.sun.total.Load() != 1 || fake.obs.total.Load() != 1 {
		t.Fatalf("unexpected refetch")
	}

	clock.Advance(2 * time.Minute)
	second := agg.GetForecast(ctx)
	if second == first {
		t.Fatalf("forecast should expire after 30 minutes")
	}
	if fake.forecast.total.Load() != 2 || fake.obs.total.Load() != 1 {
		t.Fatalf("extremes should outlive the forecast: forecast=%d obs=%d", fake.forecast.total.Load(), fake.obs.total.Load())
	}
	if second.Extremes != first.Extremes {
		t.Fatalf("extremes should be reused verbatim")
	}

	clock.Advance(31 * time.Minute)
	agg.GetForecast(ctx)
	if fake.obs.count(observationsPath) != 2 {
		t.Fatalf("extremes should refetch after an hour, obs=%d", fake.obs.total.Load())
	}
}

func TestGetForecastDegradesPerSource(t *testing.T) {
	fake := newForecastFake(
		func(*http.Request) (*http.Response, error) { return newResponse(http.StatusInternalServerError, "oops"), nil },
		okBody(`{"results":"","status":"INVALID_REQUEST"}`),
		okBody(`{"station":[{"name":"Nowhere","value":[]}]}`),
	)
	clock := &fakeClock{now: time.Now()}
	agg, mem := newForecast(fake, clock, time.UTC)
	defer mem.Close()

	fc := agg.GetForecast(context.Background())
	if fc == nil || fc.Hourly == nil || fc.Daily == nil || len(fc.Hourly) != 0 {
		t.Fatalf("expected empty but complete forecast: %+v", fc)
	}
	if !fc.Sun.Sunrise.IsZero() || fc.Extremes != nil {
		t.Fatalf("failed parts should stay zero: %+v", fc)
	}
	if _, ok := mem.TTL(extremesCacheKey); ok {
		t.Fatalf("missing extremes must not be cached")
	}
	if _, ok := mem.TTL(forecastCacheKey); !ok {
		t.Fatalf("degraded forecast is still cached")
	}
}

func TestForecastCapsHourlyAndDaily(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	steps := make([]string, 0, 240)
	for i := 0; i < 240; i++ {
		ts := start.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		steps = append(steps, step(ts, "5", "2", "0", "0", "", "1"))
	}
	doc, err := jsonx.Parse([]byte(`{"timeSeries":[` + strings.Join(steps, ",") + `]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := parseForecastSeries(doc, time.UTC)
	if len(s.hourly) != 48 {
		t.Fatalf("hourly = %d", len(s.hourly))
	}
	if len(s.daily) != 7 || !s.daily[6].Date.Equal(start.AddDate(0, 0, 6)) {
		t.Fatalf("daily = %d", len(s.daily))
	}
}

func TestGroupDailyUsesLocalDate(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)
	doc, _ := jsonx.Parse([]byte(forecastBody))
	s := parseForecastSeries(doc, cest)
	if len(s.daily) != 1 {
		t.Fatalf("all steps fall on 2 May local time, got %d groups", len(s.daily))
	}
	if s.hourly[0].Time.Hour() != 0 || s.hourly[0].Time.Location() != cest {
		t.Fatalf("hourly time = %v", s.hourly[0].Time)
	}
}

func TestGroupDailyKeepsFirstSeenOrder(t *testing.T) {
	day := func(d int) models.HourlyForecast {
		return models.HourlyForecast{Time: time.Date(2024, 5, d, 12, 0, 0, 0, time.UTC)}
	}
	days := GroupDaily([]models.HourlyForecast{day(3), day(1), day(3), day(2)})
	if len(days) != 3 || days[0].Date.Day() != 3 || days[1].Date.Day() != 1 || days[2].Date.Day() != 2 {
		t.Fatalf("order = %v %v %v", days[0].Date, days[1].Date, days[2].Date)
	}
}

func TestParseSunDataRejectsBadStatus(t *testing.T) {
	doc, _ := jsonx.Parse([]byte(`{"results":{"sunrise":"2024-05-01T02:58:11+00:00","sunset":"2024-05-01T19:02:43+00:00"},"status":"INVALID_DATE"}`))
	if _, ok := ParseSunData(doc, time.UTC); ok {
		t.Fatalf("expected failure for non-OK status")
	}
}

func TestSunDataJSONIncludesDayLength(t *testing.T) {
	sun := models.SunData{
		Sunrise: time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC),
		Sunset:  time.Date(2024, 5, 1, 21, 30, 0, 0, time.UTC),
	}
	b, err := json.Marshal(sun)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"dayLength":"17h30m0s"`) || !strings.Contains(string(b), `"dayLengthMinutes":1050`) {
		t.Fatalf("json = %s", b)
	}
}

func TestGetForecastIgnoresCallerCancellation(t *testing.T) {
	fake := newForecastFake(
		honourCancel(okBody(forecastBody)),
		honourCancel(okBody(sunBody)),
		honourCancel(okBody(observationsBody)),
	)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 21, 30, 0, 0, time.UTC)}
	agg, mem := newForecast(fake, clock, time.UTC)
	defer mem.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg.GetForecast(ctx)

	clock.Advance(time.Minute)
	fc := agg.GetForecast(context.Background())
	if len(fc.Hourly) != 4 || len(fc.Daily) != 2 || fc.Sun.Sunrise.IsZero() || fc.Extremes == nil {
		t.Fatalf("cancelled caller left an empty forecast in the cache: %+v", fc)
	}
	if fake.forecast.total.Load() != 1 {
		t.Fatalf("forecast fetched %d times, want 1", fake.forecast.total.Load())
	}
}
