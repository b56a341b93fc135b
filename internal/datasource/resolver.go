package datasource

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/seenimoa/krxvalue/internal/statement"
	"github.com/seenimoa/krxvalue/pkg/models"
)

// ResolverState is the source the resolver is currently trying.
type ResolverState int

const (
	StatePrimary ResolverState = iota
	StateFallback
	stateDone
)

func (s ResolverState) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateFallback:
		return "fallback"
	default:
		return "done"
	}
}

// Resolver picks statement data from a primary source and, when that yields
// nothing, from a fallback source. Each source is tried exactly once.
type Resolver struct {
	primary  StatementSource
	fallback StatementSource
}

// NewResolver creates a resolver. Either source may be nil.
func NewResolver(primary, fallback StatementSource) *Resolver {
	return &Resolver{primary: primary, fallback: fallback}
}

// Resolve returns the first non-empty series of the primary and fallback
// sources. When both fail it returns an empty series; it never returns an
// error. The output does not record which source produced it.
func (r *Resolver) Resolve(ctx context.Context, ticker string) models.FinancialSeries {
	for state := StatePrimary; state != stateDone; state = r.next(state) {
		src := r.source(state)
		if src == nil {
			continue
		}

		series, err := src.GetFinancials(ctx, ticker)
		if err == nil && series.Empty() {
			err = statement.ErrNoAnnualColumns
		}
		if err == nil {
			log.Debug().
				Str("ticker", ticker).
				Str("source", src.Name()).
				Str("state", state.String()).
				Int("annual", len(series.Annual)).
				Int("quarterly", len(series.Quarterly)).
				Msg("statements resolved")
			return series
		}

		ev := log.Warn()
		if errors.Is(err, context.Canceled) {
			ev = log.Debug()
		}
		ev.Err(err).
			Str("ticker", ticker).
			Str("source", src.Name()).
			Str("state", state.String()).
			Msg("statement source failed, trying next")
	}

	log.Warn().Str("ticker", ticker).Msg("no statement source produced data")
	return models.FinancialSeries{Ticker: ticker}
}

func (r *Resolver) next(s ResolverState) ResolverState {
	if s == StatePrimary {
		return StateFallback
	}
	return stateDone
}

func (r *Resolver) source(s ResolverState) StatementSource {
	switch s {
	case StatePrimary:
		return r.primary
	case StateFallback:
		return r.fallback
	default:
		return nil
	}
}
