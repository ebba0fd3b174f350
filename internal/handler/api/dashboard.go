package api

import (
	"net/http"

	"AttackDash/internal/domain/models"
	"AttackDash/internal/domain/service"
	xhttp "AttackDash/pkg/http"
	xlogger "AttackDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

const diagnosticTopCountries = 5

// DashboardHandler serves the read-only JSON API over the three aggregators.
type DashboardHandler struct {
	logger    *xlogger.Logger
	attacks   service.AttackTelemetry
	quotes    service.QuoteProvider
	forecast  service.ForecastProvider
	dashboard service.SnapshotBuilder
	limiter   echo.MiddlewareFunc
}

// HandlerOption configures DashboardHandler.
type HandlerOption func(*DashboardHandler)

// WithRateLimit guards /api with mw.
func WithRateLimit(mw echo.MiddlewareFunc) HandlerOption {
	return func(h *DashboardHandler) { h.limiter = mw }
}

func NewDashboardHandler(
	logger *xlogger.Logger,
	attacks service.AttackTelemetry,
	quotes service.QuoteProvider,
	forecast service.ForecastProvider,
	dashboard service.SnapshotBuilder,
	opts ...HandlerOption,
) *DashboardHandler {
	h := &DashboardHandler{
		logger:    logger,
		attacks:   attacks,
		quotes:    quotes,
		forecast:  forecast,
		dashboard: dashboard,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(h.limiter)
	}
	g.GET("/attacks/stats", h.AttackStats)
	g.GET("/attacks/recent", h.RecentAttacks)
	g.GET("/attacks/countries", h.AttacksByCountry)
	g.GET("/quotes/indices", h.Indices)
	g.GET("/quotes/stocks", h.Stocks)
	g.GET("/weather", h.Weather)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/test-loki", h.TestLoki)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) AttackStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.attacks.GetAttackStats(c.Request().Context()))
}

func (h *DashboardHandler) RecentAttacks(c echo.Context) error {
	req := &models.RecentAttacksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.attacks.GetRecentAttacks(c.Request().Context(), req.Limit))
}

func (h *DashboardHandler) AttacksByCountry(c echo.Context) error {
	req := &models.CountryAttacksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.attacks.GetAttacksByCountry(c.Request().Context(), req.Range))
}

func (h *DashboardHandler) Indices(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, h.quotes.GetIndices(c.Request().Context()))
}

func (h *DashboardHandler) Stocks(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, h.quotes.GetStocks(c.Request().Context()))
}

func (h *DashboardHandler) Weather(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.forecast.GetForecast(c.Request().Context()))
}

func (h *DashboardHandler) Dashboard(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dashboard.Snapshot(c.Request().Context()))
}

// TestLoki is the connectivity check: an empty breakdown means Loki returned
// nothing usable.
func (h *DashboardHandler) TestLoki(c echo.Context) error {
	stats := h.attacks.GetAttackStats(c.Request().Context())
	if stats.TotalCountries == 0 {
		h.logger.Warn("loki diagnostic returned no countries")
	}
	return xhttp.SuccessResponse(c, models.NewAttackDiagnostic(stats, diagnosticTopCountries))
}
