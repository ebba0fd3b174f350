package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"AttackDash/internal/domain/models"
	"AttackDash/internal/service/ratelimit"
	xlogger "AttackDash/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type fakeAttacks struct {
	limit     int
	timeRange string
}

func (f *fakeAttacks) GetAttackStats(context.Context) models.AttackStats {
	s := models.AttackStats{TotalCountries: 7, AttacksLastHour: 70, AttacksPreviousHour: 35, TopCountry: "China"}
	for i := 7; i > 0; i-- {
		s.CountryBreakdown = append(s.CountryBreakdown, models.CountryAttackCount{
			Country: fmt.Sprintf("C%d", i), CountryCode: fmt.Sprintf("C%d", i), Count: i * 2,
		})
	}
	return s
}

func (f *fakeAttacks) GetRecentAttacks(_ context.Context, limit int) []models.RecentAttack {
	f.limit = limit
	return []models.RecentAttack{}
}

func (f *fakeAttacks) GetAttacksByCountry(_ context.Context, timeRange string) []models.CountryAttackCount {
	f.timeRange = timeRange
	return []models.CountryAttackCount{}
}

type fakeQuotes struct{}

func (fakeQuotes) GetQuote(_ context.Context, symbol, name string) (*models.StockQuote, bool) {
	return &models.StockQuote{
		Symbol:        symbol,
		Name:          name,
		Price:         decimal.RequireFromString("105"),
		PreviousClose: decimal.RequireFromString("100"),
	}, true
}

func (q fakeQuotes) GetIndices(ctx context.Context) []*models.StockQuote {
	s, _ := q.GetQuote(ctx, "^GDAXI", "DAX")
	return []*models.StockQuote{s}
}

func (fakeQuotes) GetStocks(context.Context) []*models.StockQuote { return []*models.StockQuote{} }

type fakeForecast struct{}

func (fakeForecast) GetForecast(context.Context) *models.WeatherForecast {
	return &models.WeatherForecast{Hourly: []models.HourlyForecast{}, Daily: []models.DailyForecast{}}
}

type fakeSnapshots struct{}

func (fakeSnapshots) Snapshot(context.Context) *models.DashboardSnapshot {
	return &models.DashboardSnapshot{GeneratedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestEcho(attacks *fakeAttacks, opts ...HandlerOption) *echo.Echo {
	e := echo.New()
	NewDashboardHandler(xlogger.Nop(), attacks, fakeQuotes{}, fakeForecast{}, fakeSnapshots{}, opts...).RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v (%s)", target, err, rec.Body.String())
	}
	return rec, env
}

func TestRecentAttacksLimit(t *testing.T) {
	attacks := &fakeAttacks{}
	e := newTestEcho(attacks)

	if rec, _ := get(t, e, "/api/attacks/recent"); rec.Code != http.StatusOK || attacks.limit != 10 {
		t.Fatalf("default: code=%d limit=%d", rec.Code, attacks.limit)
	}
	if rec, _ := get(t, e, "/api/attacks/recent?limit=25"); rec.Code != http.StatusOK || attacks.limit != 25 {
		t.Fatalf("explicit: code=%d limit=%d", rec.Code, attacks.limit)
	}

	rec, env := get(t, e, "/api/attacks/recent?limit=600")
	if rec.Code != http.StatusBadRequest || env.Status != http.StatusBadRequest {
		t.Fatalf("over max: code=%d", rec.Code)
	}
	var verrs []struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(env.Data, &verrs); err != nil || len(verrs) != 1 || verrs[0].Code != "ERR_MAX" {
		t.Fatalf("validation errors = %s", env.Data)
	}

	if rec, _ := get(t, e, "/api/attacks/recent?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric: code=%d", rec.Code)
	}
}

func TestAttacksByCountryRange(t *testing.T) {
	attacks := &fakeAttacks{}
	e := newTestEcho(attacks)

	if rec, _ := get(t, e, "/api/attacks/countries"); rec.Code != http.StatusOK || attacks.timeRange != "1h" {
		t.Fatalf("default: code=%d range=%q", rec.Code, attacks.timeRange)
	}
	if rec, _ := get(t, e, "/api/attacks/countries?range=24h"); rec.Code != http.StatusOK || attacks.timeRange != "24h" {
		t.Fatalf("explicit: code=%d range=%q", rec.Code, attacks.timeRange)
	}

	attacks.timeRange = ""
	rec, env := get(t, e, "/api/attacks/countries?range=1h%7D")
	if rec.Code != http.StatusBadRequest || attacks.timeRange != "" {
		t.Fatalf("injection attempt reached the aggregator: code=%d range=%q", rec.Code, attacks.timeRange)
	}
	var verrs []struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(env.Data, &verrs); err != nil || len(verrs) != 1 || verrs[0].Code != "ERR_TIMERANGE" {
		t.Fatalf("validation errors = %s", env.Data)
	}
}

func TestTestLokiTrimsToTopFive(t *testing.T) {
	_, env := get(t, newTestEcho(&fakeAttacks{}), "/api/test-loki")

	var diag models.AttackDiagnostic
	if err := json.Unmarshal(env.Data, &diag); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diag.TotalCountries != 7 || diag.AttacksLastHour != 70 || diag.TopCountry != "China" {
		t.Fatalf("diag = %+v", diag)
	}
	if len(diag.Countries) != 5 || diag.Countries[0].Country != "C7" || diag.Countries[0].Count != 14 {
		t.Fatalf("countries = %+v", diag.Countries)
	}
}

func TestAttackStatsIncludeTrend(t *testing.T) {
	_, env := get(t, newTestEcho(&fakeAttacks{}), "/api/attacks/stats")

	var body struct {
		TrendPercentage float64 `json:"trendPercentage"`
		TrendUp         bool    `json:"trendUp"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TrendPercentage != 100 || !body.TrendUp {
		t.Fatalf("trend = %+v", body)
	}
}

func TestQuotesIncludeDerivedFields(t *testing.T) {
	rec, env := get(t, newTestEcho(&fakeAttacks{}), "/api/quotes/indices")
	if rec.Header().Get(echo.HeaderCacheControl) == "" {
		t.Fatalf("missing cache-control")
	}
	var quotes []struct {
		Symbol        string `json:"symbol"`
		Change        string `json:"change"`
		ChangePercent string `json:"changePercent"`
		IsPositive    bool   `json:"isPositive"`
	}
	if err := json.Unmarshal(env.Data, &quotes); err != nil {
		t.Fatalf("decode: %v (%s)", err, env.Data)
	}
	if len(quotes) != 1 || quotes[0].Change != "5" || quotes[0].ChangePercent != "5" || !quotes[0].IsPositive {
		t.Fatalf("quotes = %+v", quotes)
	}
}

func TestRateLimitGuardsAPIOnly(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(2, 0, ratelimit.WithClock(func() time.Time { return now }))
	e := newTestEcho(&fakeAttacks{}, WithRateLimit(RateLimit(limiter, xlogger.Nop())))

	for i := 0; i < 2; i++ {
		if rec, _ := get(t, e, "/api/weather"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: code=%d", i, rec.Code)
		}
	}
	if rec, env := get(t, e, "/api/dashboard"); rec.Code != http.StatusTooManyRequests || env.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz should not be limited: %d", rec.Code)
	}
}
