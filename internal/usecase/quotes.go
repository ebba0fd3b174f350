package usecase

import (
	"context"
	"net/url"
	"time"

	"AttackDash/internal/domain/models"
	domrepo "AttackDash/internal/domain/repository"
	"AttackDash/internal/service/upstream"
	"AttackDash/pkg/cache"
	"AttackDash/pkg/jsonx"
	"AttackDash/pkg/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const chartPath = "/v8/finance/chart/"

// QuoteOption configures QuoteProvider.
type QuoteOption func(*QuoteProvider)

// WithQuoteClock replaces time.Now for LastUpdated stamps.
func WithQuoteClock(now func() time.Time) QuoteOption {
	return func(q *QuoteProvider) { q.now = now }
}

// QuoteProvider fetches intraday charts and caches quotes per symbol.
type QuoteProvider struct {
	src     *upstream.Source
	cache   cache.Service
	ttl     time.Duration
	indices []models.Symbol
	stocks  []models.Symbol
	loc     *time.Location
	now     func() time.Time
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewQuoteProvider(
	src *upstream.Source,
	c cache.Service,
	ttl time.Duration,
	indices, stocks []models.Symbol,
	loc *time.Location,
	m domrepo.Metrics,
	log *logger.Logger,
	opts ...QuoteOption,
) *QuoteProvider {
	if loc == nil {
		loc = time.Local
	}
	q := &QuoteProvider{
		src:     src,
		cache:   c,
		ttl:     ttl,
		indices: indices,
		stocks:  stocks,
		loc:     loc,
		now:     time.Now,
		metrics: m,
		log:     log,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// GetQuote returns the cached quote for symbol or fetches a fresh one.
// Any failure reports false. A caller going away does not abort the fetch.
func (p *QuoteProvider) GetQuote(ctx context.Context, symbol, name string) (*models.StockQuote, bool) {
	ctx = context.WithoutCancel(ctx)
	key := cache.GenerateKey("quote", symbol)
	if q, ok := cache.Lookup[*models.StockQuote](ctx, p.cache, key); ok && q != nil {
		p.metrics.RecordCache("quote", true)
		return q, true
	}
	p.metrics.RecordCache("quote", false)

	doc, err := p.src.GetJSON(ctx, chartPath+url.PathEscape(symbol), url.Values{
		"range":    {"1d"},
		"interval": {"5m"},
	})
	if err != nil {
		return nil, false
	}

	quote, ok := ParseChart(doc, symbol, name, p.loc)
	if !ok {
		p.log.Warn("chart payload unusable",
			logger.String("symbol", symbol),
			logger.String("error", doc.Path("chart", "error", "description").StringOr("missing price fields")),
		)
		return nil, false
	}
	quote.LastUpdated = p.now().In(p.loc)

	if err := p.cache.Set(ctx, key, quote, p.ttl); err != nil {
		p.log.Warn("cache quote failed", logger.String("symbol", symbol), logger.Error(err))
	}
	return quote, true
}

// GetIndices fetches the index table concurrently, in table order.
func (p *QuoteProvider) GetIndices(ctx context.Context) []*models.StockQuote {
	return p.fetchAll(ctx, p.indices)
}

// GetStocks fetches the stock table concurrently, in table order.
func (p *QuoteProvider) GetStocks(ctx context.Context) []*models.StockQuote {
	return p.fetchAll(ctx, p.stocks)
}

func (p *QuoteProvider) fetchAll(ctx context.Context, symbols []models.Symbol) []*models.StockQuote {
	slots := make([]*models.StockQuote, len(symbols))

	var g errgroup.Group
	for i, s := range symbols {
		g.Go(func() error {
			if q, ok := p.GetQuote(ctx, s.Symbol, s.Name); ok {
				slots[i] = q
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*models.StockQuote, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			out = append(out, q)
		}
	}
	return out
}

// ParseChart builds a quote from a chart payload. regularMarketPrice and
// chartPreviousClose are required; candles with a null close are skipped and
// other null fields read as zero.
func ParseChart(doc jsonx.Node, symbol, name string, loc *time.Location) (*models.StockQuote, bool) {
	result := doc.Path("chart", "result").At(0)
	meta := result.Get("meta")

	price, ok := meta.Get("regularMarketPrice").Decimal()
	if !ok {
		return nil, false
	}
	prev, ok := meta.Get("chartPreviousClose").Decimal()
	if !ok {
		return nil, false
	}

	quote := &models.StockQuote{
		Symbol:        symbol,
		Name:          name,
		Price:         price,
		PreviousClose: prev,
		Currency:      meta.Get("currency").StringOr("USD"),
		Candles:       []models.StockCandle{},
	}

	bars := result.Get("indicators").Get("quote").At(0)
	opens, highs, lows := bars.Get("open"), bars.Get("high"), bars.Get("low")
	closes, volumes := bars.Get("close"), bars.Get("volume")

	for i, ts := range result.Get("timestamp").Items() {
		closeVal, ok := closes.At(i).Decimal()
		if !ok {
			continue
		}
		quote.Candles = append(quote.Candles, models.StockCandle{
			Timestamp: time.Unix(ts.Int64Or(0), 0).In(loc),
			Open:      opens.At(i).DecimalOr(decimal.Zero),
			High:      highs.At(i).DecimalOr(decimal.Zero),
			Low:       lows.At(i).DecimalOr(decimal.Zero),
			Close:     closeVal,
			Volume:    volumes.At(i).Int64Or(0),
		})
	}
	return quote, true
}
