package fundamental

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// Basis selects which period series feeds the valuation.
type Basis string

const (
	BasisAnnual    Basis = "annual"
	BasisQuarterly Basis = "quarterly"
)

// ParseBasis parses a basis name; the empty string means annual.
func ParseBasis(s string) (Basis, error) {
	switch Basis(s) {
	case "", BasisAnnual:
		return BasisAnnual, nil
	case BasisQuarterly:
		return BasisQuarterly, nil
	default:
		return "", fmt.Errorf("unknown valuation basis %q (want annual or quarterly)", s)
	}
}

// Options configures one analysis.
type Options struct {
	RequiredReturn float64 // K in percent
	AveragePeriods int
	AmountUnit     float64 // KRW per statement amount unit
	Basis          Basis
}

// DefaultOptions returns K = 8%, a 3-period average, 억원 amounts and the
// annual basis.
func DefaultOptions() Options {
	return Options{
		RequiredReturn: 8,
		AveragePeriods: DefaultAveragePeriods,
		AmountUnit:     DefaultAmountUnit,
		Basis:          BasisAnnual,
	}
}

// Analysis is the complete valuation of one stock for one query.
type Analysis struct {
	QueryID        string                 `json:"query_id"`
	Ticker         string                 `json:"ticker"`
	Name           string                 `json:"name"`
	Overview       string                 `json:"overview,omitempty"`
	Price          float64                `json:"price"`
	Shares         int64                  `json:"shares_outstanding"`
	MarketCap      float64                `json:"market_cap"`
	Basis          Basis                  `json:"basis"`
	RequiredReturn float64                `json:"required_return"`
	AveragePeriods int                    `json:"average_periods"`
	Financials     models.FinancialSeries `json:"financials"`
	Growth         Growth                 `json:"growth"`
	Health         FinancialHealth        `json:"health"`
	Valuations     []ModeResult           `json:"valuations"`
	GrahamNumber   float64                `json:"graham_number,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// Valuation returns the result of the given mode.
func (a *Analysis) Valuation(m Mode) (ModeResult, bool) {
	for _, v := range a.Valuations {
		if v.Mode == m {
			return v, true
		}
	}
	return ModeResult{}, false
}

// Analyze enriches the profile's statements with derived metrics and runs
// both valuation modes on the selected basis. A profile without statements
// still yields an Analysis whose valuations are undetermined.
func Analyze(p *models.StockProfile, opts Options) *Analysis {
	if opts.AveragePeriods <= 0 {
		opts.AveragePeriods = DefaultAveragePeriods
	}
	if opts.AmountUnit <= 0 {
		opts.AmountUnit = DefaultAmountUnit
	}
	if opts.Basis == "" {
		opts.Basis = BasisAnnual
	}

	a := &Analysis{
		QueryID:        uuid.NewString(),
		Ticker:         p.Ticker,
		Name:           p.Name,
		Overview:       p.Overview,
		Basis:          opts.Basis,
		RequiredReturn: opts.RequiredReturn,
		AveragePeriods: opts.AveragePeriods,
		GeneratedAt:    time.Now(),
	}
	if p.Quote != nil {
		a.Price = p.Quote.LastPrice
		a.Shares = p.Quote.SharesOutstanding
		a.MarketCap = p.Quote.MarketCap
		if a.Name == "" {
			a.Name = p.Quote.Name
		}
	}

	a.Financials = EnrichSeries(p.Financials, a.Price, a.Shares, opts.AmountUnit)
	a.Growth = ComputeGrowth(a.Financials)
	a.Health = AssessFinancialHealth(a.Financials)

	periods := a.Financials.Annual
	if opts.Basis == BasisQuarterly {
		periods = a.Financials.Quarterly
	}
	a.Valuations = Evaluate(periods, opts.RequiredReturn, a.Price, opts.AveragePeriods)

	if latest, ok := a.Financials.LatestAnnual(); ok {
		a.GrahamNumber = GrahamNumber(latest.Value(models.MetricEPS), latest.Value(models.MetricBPS))
	}
	return a
}
