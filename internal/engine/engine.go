// Package engine runs valuation queries: it fetches a stock profile through
// the data source aggregator and turns it into a fundamental.Analysis.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/internal/config"
	"github.com/seenimoa/krxvalue/internal/datasource"
	"github.com/seenimoa/krxvalue/pkg/models"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

// ErrNoTickers is returned by AnalyzeBatch when called without tickers.
var ErrNoTickers = errors.New("no tickers given")

// Fetcher is the data access the engine needs. *datasource.Aggregator
// implements it.
type Fetcher interface {
	FetchProfile(ctx context.Context, ticker string) (*models.StockProfile, error)
	FetchQuote(ctx context.Context, ticker string) (*models.Quote, error)
	FetchFinancials(ctx context.Context, ticker string) models.FinancialSeries
}

// Engine answers valuation queries.
type Engine struct {
	fetcher Fetcher
	cfg     *config.Config
}

// New creates an engine over the given fetcher. A nil cfg uses the built-in
// defaults.
func New(f Fetcher, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{fetcher: f, cfg: cfg}
}

// FromConfig wires the Naver and WiseReport sources described by cfg into an
// engine.
func FromConfig(cfg *config.Config) *Engine {
	return New(NewAggregator(cfg.Sources), cfg)
}

// NewAggregator builds the data source aggregator for the sources section.
func NewAggregator(sc config.SourcesConfig) *datasource.Aggregator {
	common := []datasource.Option{
		datasource.WithTimeout(sc.Timeout),
		datasource.WithRateLimit(sc.RateLimit, sc.RateBurst),
		datasource.WithCacheTTL(sc.CacheTTL),
	}

	naver := datasource.NewNaver(append(common,
		datasource.WithBaseURL(sc.Naver.BaseURL),
		datasource.WithAPIURL(sc.Naver.PollingURL),
	)...)

	var wise *datasource.WiseReport
	if sc.WiseReport.Enabled {
		wise = datasource.NewWiseReport(append(common,
			datasource.WithBaseURL(sc.WiseReport.BaseURL),
		)...)
	}
	return datasource.NewAggregator(naver, wise)
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// DefaultOptions returns the analysis options from the valuation section.
func (e *Engine) DefaultOptions() fundamental.Options {
	v := e.cfg.Valuation
	basis, err := fundamental.ParseBasis(v.Basis)
	if err != nil {
		basis = fundamental.BasisAnnual
	}
	return fundamental.Options{
		RequiredReturn: v.RequiredReturn,
		AveragePeriods: v.AveragePeriods,
		AmountUnit:     v.AmountUnit,
		Basis:          basis,
	}
}

// Analyze fetches one stock and values it.
func (e *Engine) Analyze(ctx context.Context, ticker string, opts fundamental.Options) (*fundamental.Analysis, error) {
	symbol := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(symbol) {
		return nil, fmt.Errorf("%q: %w", ticker, datasource.ErrTickerNotFound)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	profile, err := e.fetcher.FetchProfile(ctx, symbol)
	if err != nil {
		return nil, err
	}

	a := fundamental.Analyze(profile, opts)
	log.Info().
		Str("query_id", a.QueryID).
		Str("ticker", a.Ticker).
		Str("basis", string(a.Basis)).
		Int("annual", len(a.Financials.Annual)).
		Int("quarterly", len(a.Financials.Quarterly)).
		Dur("took", time.Since(start)).
		Msg("analysis complete")
	return a, nil
}

// Quote returns the latest quote of a ticker.
func (e *Engine) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(symbol) {
		return nil, fmt.Errorf("%q: %w", ticker, datasource.ErrTickerNotFound)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.fetcher.FetchQuote(ctx, symbol)
}

// Financials returns the resolved statement series of a ticker, enriched
// with per-share metrics when a quote is available.
func (e *Engine) Financials(ctx context.Context, ticker string) (models.FinancialSeries, error) {
	symbol := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(symbol) {
		return models.FinancialSeries{}, fmt.Errorf("%q: %w", ticker, datasource.ErrTickerNotFound)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	series := e.fetcher.FetchFinancials(ctx, symbol)
	q, err := e.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		log.Debug().Err(err).Str("ticker", symbol).Msg("no quote, per-share metrics skipped")
		return series, nil
	}
	return fundamental.EnrichSeries(series, q.LastPrice, q.SharesOutstanding, e.cfg.Valuation.AmountUnit), nil
}

// BatchResult is the outcome of one ticker in a batch.
type BatchResult struct {
	Ticker   string                `json:"ticker"`
	Analysis *fundamental.Analysis `json:"analysis,omitempty"`
	Err      error                 `json:"-"`
	Error    string                `json:"error,omitempty"`
}

// AnalyzeBatch values several tickers with at most analysis.concurrent_fetches
// in flight. Per-ticker failures are recorded in the result; results keep the
// input order.
func (e *Engine) AnalyzeBatch(ctx context.Context, tickers []string, opts fundamental.Options) ([]BatchResult, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}

	results := make([]BatchResult, len(tickers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Analysis.ConcurrentFetches, 1))

	for i, t := range tickers {
		g.Go(func() error {
			a, err := e.Analyze(gctx, t, opts)
			r := BatchResult{Ticker: utils.NormalizeTicker(t), Analysis: a, Err: err}
			if err != nil {
				r.Error = err.Error()
				log.Warn().Err(err).Str("ticker", r.Ticker).Msg("batch entry failed")
			}
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := e.cfg.Analysis.QueryTimeout; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
