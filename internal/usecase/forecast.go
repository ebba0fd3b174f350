package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"AttackDash/internal/domain/models"
	domrepo "AttackDash/internal/domain/repository"
	"AttackDash/internal/service/upstream"
	"AttackDash/pkg/cache"
	"AttackDash/pkg/jsonx"
	"AttackDash/pkg/logger"
	"AttackDash/pkg/util"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	forecastCacheKey = "weather_forecast"
	extremesCacheKey = "sweden_extremes"

	maxHourlySteps = 48
	maxDailyGroups = 7

	observationsPath = "/api/version/1.0/parameter/1/station-set/all/period/latest-hour/data.json"
)

// ForecastSources are the three upstreams behind one forecast.
type ForecastSources struct {
	Forecast     *upstream.Source
	Sun          *upstream.Source
	Observations *upstream.Source
}

// ForecastSettings locate the forecast and bound its cache lifetimes.
type ForecastSettings struct {
	Latitude    float64
	Longitude   float64
	CacheTTL    time.Duration
	ExtremesTTL time.Duration
	Location    *time.Location
}

// ForecastOption configures ForecastAggregator.
type ForecastOption func(*ForecastAggregator)

// WithForecastClock replaces time.Now for LastUpdated stamps.
func WithForecastClock(now func() time.Time) ForecastOption {
	return func(f *ForecastAggregator) { f.now = now }
}

// ForecastAggregator combines the point forecast, sun times and national
// temperature extremes into one cached view.
type ForecastAggregator struct {
	src     ForecastSources
	cache   cache.Service
	cfg     ForecastSettings
	now     func() time.Time
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewForecastAggregator(src ForecastSources, c cache.Service, cfg ForecastSettings, m domrepo.Metrics, log *logger.Logger, opts ...ForecastOption) *ForecastAggregator {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	f := &ForecastAggregator{
		src:     src,
		cache:   c,
		cfg:     cfg,
		now:     time.Now,
		metrics: m,
		log:     log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetForecast returns the cached forecast or assembles a new one from three
// concurrent sub-fetches. A failed sub-fetch leaves its part at zero value;
// the assembled forecast is cached either way, so the sub-fetches ignore the
// caller's cancellation and run to the client timeout.
func (f *ForecastAggregator) GetForecast(ctx context.Context) *models.WeatherForecast {
	ctx = context.WithoutCancel(ctx)
	if fc, ok := cache.Lookup[*models.WeatherForecast](ctx, f.cache, forecastCacheKey); ok && fc != nil {
		f.metrics.RecordCache("forecast", true)
		return fc
	}
	f.metrics.RecordCache("forecast", false)

	var (
		series   forecastSeries
		sun      models.SunData
		extremes *models.TemperatureExtremes
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series = f.fetchSeries(gctx)
		return nil
	})
	g.Go(func() error {
		sun = f.fetchSun(gctx)
		return nil
	})
	g.Go(func() error {
		extremes = f.fetchExtremes(gctx)
		return nil
	})
	_ = g.Wait()

	fc := &models.WeatherForecast{
		Current:     series.current,
		Hourly:      series.hourly,
		Daily:       series.daily,
		Sun:         sun,
		Extremes:    extremes,
		LastUpdated: f.now().In(f.cfg.Location),
	}
	if fc.Hourly == nil {
		fc.Hourly = []models.HourlyForecast{}
	}
	if fc.Daily == nil {
		fc.Daily = []models.DailyForecast{}
	}

	if err := f.cache.Set(ctx, forecastCacheKey, fc, f.cfg.CacheTTL); err != nil {
		f.log.Warn("cache forecast failed", logger.Error(err))
	}
	return fc
}

type forecastSeries struct {
	current models.CurrentWeather
	hourly  []models.HourlyForecast
	daily   []models.DailyForecast
}

func (f *ForecastAggregator) forecastPath() string {
	return fmt.Sprintf("/api/category/pmp3g/version/2/geotype/point/lon/%s/lat/%s/data.json",
		formatCoord(f.cfg.Longitude), formatCoord(f.cfg.Latitude))
}

func (f *ForecastAggregator) fetchSeries(ctx context.Context) forecastSeries {
	doc, err := f.src.Forecast.GetJSON(ctx, f.forecastPath(), nil)
	if err != nil {
		return forecastSeries{}
	}
	return parseForecastSeries(doc, f.cfg.Location)
}

func (f *ForecastAggregator) fetchSun(ctx context.Context) models.SunData {
	doc, err := f.src.Sun.GetJSON(ctx, "/json", url.Values{
		"lat":       {formatCoord(f.cfg.Latitude)},
		"lng":       {formatCoord(f.cfg.Longitude)},
		"formatted": {"0"},
	})
	if err != nil {
		return models.SunData{}
	}
	sun, ok := ParseSunData(doc, f.cfg.Location)
	if !ok {
		f.log.Warn("sun data unusable",
			logger.String("source", f.src.Sun.Name()),
			logger.String("status", doc.Get("status").StringOr("")),
		)
	}
	return sun
}

// fetchExtremes reuses its own longer-lived cache entry across forecast refreshes.
func (f *ForecastAggregator) fetchExtremes(ctx context.Context) *models.TemperatureExtremes {
	if ex, ok := cache.Lookup[*models.TemperatureExtremes](ctx, f.cache, extremesCacheKey); ok && ex != nil {
		f.metrics.RecordCache("extremes", true)
		return ex
	}
	f.metrics.RecordCache("extremes", false)

	doc, err := f.src.Observations.GetJSON(ctx, observationsPath, nil)
	if err != nil {
		return nil
	}
	ex := ParseExtremes(doc)
	if ex == nil {
		f.log.Warn("no station reported a temperature", logger.String("source", f.src.Observations.Name()))
		return nil
	}
	if err := f.cache.Set(ctx, extremesCacheKey, ex, f.cfg.ExtremesTTL); err != nil {
		f.log.Warn("cache extremes failed", logger.Error(err))
	}
	return ex
}

// parseForecastSeries reads timeSeries into hourly steps and daily summaries.
// Steps without a parsable validTime are skipped; unknown parameters are ignored.
func parseForecastSeries(doc jsonx.Node, loc *time.Location) forecastSeries {
	var (
		out      forecastSeries
		all      []models.HourlyForecast
		humidity int
	)

	for _, entry := range doc.Get("timeSeries").Items() {
		validTime, ok := util.ParseTime(entry.Get("validTime").StringOr(""))
		if !ok {
			continue
		}

		step := models.HourlyForecast{Time: validTime.In(loc)}
		for _, p := range entry.Get("parameters").Items() {
			v := p.Get("values").At(0)
			switch p.Get("name").StringOr("") {
			case "t":
				step.Temperature = v.DecimalOr(decimal.Zero)
			case "ws":
				step.WindSpeed = v.DecimalOr(decimal.Zero)
			case "pmean":
				step.Precipitation = v.DecimalOr(decimal.Zero)
			case "tcc_mean":
				step.CloudCover = v.IntOr(0)
			case "r":
				if len(all) == 0 {
					humidity = v.IntOr(0)
				}
			case "Wsymb2":
				step.WeatherCode = v.IntOr(0)
			}
		}
		_, step.Icon = WeatherCondition(step.WeatherCode)
		all = append(all, step)
	}

	if len(all) == 0 {
		return out
	}

	first := all[0]
	desc, icon := WeatherCondition(first.WeatherCode)
	out.current = models.CurrentWeather{
		Temperature:   first.Temperature,
		WindSpeed:     first.WindSpeed,
		Precipitation: first.Precipitation,
		Humidity:      humidity,
		CloudCover:    first.CloudCover * 100 / 8,
		WeatherCode:   first.WeatherCode,
		Description:   desc,
		Icon:          icon,
	}

	out.hourly = all[:min(len(all), maxHourlySteps)]
	out.daily = GroupDaily(all)
	return out
}

// GroupDaily groups steps by their local calendar date in first-seen order and
// summarizes at most seven groups.
func GroupDaily(hours []models.HourlyForecast) []models.DailyForecast {
	type group struct {
		date  time.Time
		hours []models.HourlyForecast
	}
	var groups []*group
	index := map[string]*group{}

	for _, h := range hours {
		key := h.Time.Format(time.DateOnly)
		g, ok := index[key]
		if !ok {
			if len(groups) == maxDailyGroups {
				continue
			}
			y, m, d := h.Time.Date()
			g = &group{date: time.Date(y, m, d, 0, 0, 0, 0, h.Time.Location())}
			index[key] = g
			groups = append(groups, g)
		}
		g.hours = append(g.hours, h)
	}

	days := make([]models.DailyForecast, 0, len(groups))
	for _, g := range groups {
		minT, maxT := g.hours[0].Temperature, g.hours[0].Temperature
		precip, wind := decimal.Zero, decimal.Zero
		for _, h := range g.hours {
			minT = decimal.Min(minT, h.Temperature)
			maxT = decimal.Max(maxT, h.Temperature)
			precip = precip.Add(h.Precipitation)
			wind = wind.Add(h.WindSpeed)
		}
		code := DominantWeather(g.hours)
		desc, icon := WeatherCondition(code)
		days = append(days, models.DailyForecast{
			Date:               g.date,
			MinTemp:            minT,
			MaxTemp:            maxT,
			TotalPrecipitation: precip,
			AvgWindSpeed:       int(wind.Div(decimal.NewFromInt(int64(len(g.hours)))).IntPart()),
			WeatherCode:        code,
			Description:        desc,
			Icon:               icon,
		})
	}
	return days
}

// ParseSunData reads results.sunrise and results.sunset. A status other than
// OK, or a missing instant, reports false.
func ParseSunData(doc jsonx.Node, loc *time.Location) (models.SunData, bool) {
	if status, ok := doc.Get("status").String(); ok && status != "OK" {
		return models.SunData{}, false
	}
	results := doc.Get("results")
	rise, ok1 := util.ParseTime(results.Get("sunrise").StringOr(""))
	set, ok2 := util.ParseTime(results.Get("sunset").StringOr(""))
	if !ok1 || !ok2 {
		return models.SunData{}, false
	}
	return models.SunData{Sunrise: rise.In(loc), Sunset: set.In(loc)}, true
}

// ParseExtremes finds the warmest and coldest station by the last value each
// reported. Stations without a parsable value are skipped; nil means none had one.
func ParseExtremes(doc jsonx.Node) *models.TemperatureExtremes {
	var (
		ex    models.TemperatureExtremes
		found bool
	)
	for _, st := range doc.Get("station").Items() {
		temp, ok := st.Get("value").Last().Get("value").Decimal()
		if !ok {
			continue
		}
		name := st.Get("name").StringOr("")
		if !found || temp.GreaterThan(ex.WarmestTemp) {
			ex.WarmestStation, ex.WarmestTemp = name, temp
		}
		if !found || temp.LessThan(ex.ColdestTemp) {
			ex.ColdestStation, ex.ColdestTemp = name, temp
		}
		found = true
	}
	if !found {
		return nil
	}
	return &ex
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
