package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Symbol pairs a ticker with its display name.
type Symbol struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Name   string `yaml:"name" json:"name"`
}

// StockCandle is one intraday bar.
type StockCandle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// StockQuote is a quote with its intraday series.
type StockQuote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	Currency      string          `json:"currency"`
	LastUpdated   time.Time       `json:"lastUpdated"`
	Candles       []StockCandle   `json:"candles"`
}

// Change is Price minus PreviousClose.
func (q *StockQuote) Change() decimal.Decimal {
	return q.Price.Sub(q.PreviousClose)
}

// ChangePercent is 0 when PreviousClose is 0.
func (q *StockQuote) ChangePercent() decimal.Decimal {
	if q.PreviousClose.IsZero() {
		return decimal.Zero
	}
	return q.Change().Div(q.PreviousClose).Mul(decimal.NewFromInt(100))
}

func (q *StockQuote) IsPositive() bool {
	return !q.Change().IsNegative()
}

func (q *StockQuote) MarshalJSON() ([]byte, error) {
	type plain StockQuote
	return json.Marshal(struct {
		plain
		Change        decimal.Decimal `json:"change"`
		ChangePercent decimal.Decimal `json:"changePercent"`
		IsPositive    bool            `json:"isPositive"`
	}{plain(*q), q.Change(), q.ChangePercent().Round(2), q.IsPositive()})
}
