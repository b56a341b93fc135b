package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/krxvalue/pkg/models"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

const overviewFailed = "기업 개요 로딩 실패"

// Aggregator fetches and merges data from the configured sources concurrently.
type Aggregator struct {
	naver    *Naver
	wise     *WiseReport
	resolver *Resolver
}

// NewAggregator creates an aggregator over the given sources. WiseReport is
// the primary statement source and Naver the fallback. A nil wise disables
// the primary and Naver serves statements alone.
func NewAggregator(naver *Naver, wise *WiseReport) *Aggregator {
	var primary StatementSource
	if wise != nil {
		primary = wise
	}
	return &Aggregator{
		naver:    naver,
		wise:     wise,
		resolver: NewResolver(primary, naver),
	}
}

// Sources returns all registered data sources.
func (a *Aggregator) Sources() []DataSource {
	out := []DataSource{a.naver}
	if a.wise != nil {
		out = append(out, a.wise)
	}
	return out
}

// Naver returns the Naver Finance source for direct access.
func (a *Aggregator) Naver() *Naver { return a.naver }

// Resolver returns the statement resolver.
func (a *Aggregator) Resolver() *Resolver { return a.resolver }

// FetchQuote fetches the latest quote of a ticker.
func (a *Aggregator) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return a.naver.GetQuote(ctx, utils.NormalizeTicker(ticker))
}

// FetchFinancials resolves the statement series of a ticker. It never fails;
// an empty series means no source had data.
func (a *Aggregator) FetchFinancials(ctx context.Context, ticker string) models.FinancialSeries {
	return a.resolver.Resolve(ctx, utils.NormalizeTicker(ticker))
}

// FetchProfile fetches a stock profile by querying the quote, the overview and
// the statements concurrently. A quote failure fails the profile; an overview
// failure degrades to a placeholder text; missing statements leave the series
// empty.
func (a *Aggregator) FetchProfile(ctx context.Context, ticker string) (*models.StockProfile, error) {
	symbol := utils.NormalizeTicker(ticker)

	profile := &models.StockProfile{
		Ticker:    symbol,
		FetchedAt: utils.NowKST(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	// 1. Quote (required).
	g.Go(func() error {
		quote, err := a.naver.GetQuote(gctx, symbol)
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
		mu.Lock()
		profile.Quote = quote
		profile.Name = quote.Name
		mu.Unlock()
		return nil
	})

	// 2. Overview.
	g.Go(func() error {
		text, err := a.naver.GetOverview(gctx, symbol)
		if err != nil {
			log.Debug().Err(err).Str("ticker", symbol).Msg("overview unavailable")
			text = overviewFailed
		}
		mu.Lock()
		profile.Overview = text
		mu.Unlock()
		return nil
	})

	// 3. Statements, primary then fallback.
	g.Go(func() error {
		series := a.resolver.Resolve(gctx, symbol)
		mu.Lock()
		profile.Financials = series
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", symbol, err)
	}
	return profile, nil
}
