// Package models defines the core data structures used throughout krxvalue.
package models

import "time"

// Quote is the market-data snapshot a valuation needs.
type Quote struct {
	Ticker            string    `json:"ticker"`
	Name              string    `json:"name"`
	LastPrice         float64   `json:"last_price"`
	PrevClose         float64   `json:"prev_close,omitempty"`
	ChangePct         float64   `json:"change_pct,omitempty"`
	SharesOutstanding int64     `json:"shares_outstanding"`
	MarketCap         float64   `json:"market_cap"` // in KRW (raw value, not 억)
	Timestamp         time.Time `json:"timestamp"`
}

// HasPrice reports whether a usable last price is present.
func (q *Quote) HasPrice() bool {
	return q != nil && q.LastPrice > 0
}

// StockProfile aggregates everything fetched for a single query.
type StockProfile struct {
	Ticker     string          `json:"ticker"`
	Name       string          `json:"name"`
	Overview   string          `json:"overview,omitempty"`
	Quote      *Quote          `json:"quote,omitempty"`
	Financials FinancialSeries `json:"financials"`
	FetchedAt  time.Time       `json:"fetched_at"`
}
