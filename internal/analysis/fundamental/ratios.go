package fundamental

import (
	"math"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// DefaultAmountUnit is the KRW value of one statement amount unit (1억원).
// Statement tables report revenue and cash flow in 억원 while the share count
// is a raw number, so per-share figures scale amounts by this constant.
const DefaultAmountUnit = 1e8

// DeriveMetrics returns a copy of rec with the per-share and multiple metrics
// that statement tables often lack:
//
//	SPS = revenue × unit / shares
//	CPS = operating_cash_flow × unit / shares
//	PSR = price / SPS
//	PCR = price / CPS
//
// A metric is skipped when its inputs are missing, shares <= 0, the price is
// unknown (multiples only) or the per-share figure is zero or not finite.
// Metrics already present in rec are kept. rec itself is never modified.
func DeriveMetrics(rec models.PeriodRecord, price float64, shares int64, unit float64) models.PeriodRecord {
	out := rec.Clone()
	if unit <= 0 {
		unit = DefaultAmountUnit
	}

	derive := func(amount, perShare, multiple models.MetricKey) {
		ps, ok := out.Get(perShare)
		if !ok {
			v, has := out.Get(amount)
			if !has || shares <= 0 {
				return
			}
			ps = v * unit / float64(shares)
			if !finite(ps) {
				return
			}
			out.Set(perShare, ps)
		}
		if out.Has(multiple) || price <= 0 || ps == 0 || !finite(ps) {
			return
		}
		if m := price / ps; finite(m) {
			out.Set(multiple, m)
		}
	}

	derive(models.MetricRevenue, models.MetricSPS, models.MetricPSR)
	derive(models.MetricOperatingCashFlow, models.MetricCPS, models.MetricPCR)
	return out
}

// EnrichSeries applies DeriveMetrics to every record of s.
func EnrichSeries(s models.FinancialSeries, price float64, shares int64, unit float64) models.FinancialSeries {
	out := models.FinancialSeries{Ticker: s.Ticker}
	for _, r := range s.Annual {
		out.Annual = append(out.Annual, DeriveMetrics(r, price, shares, unit))
	}
	for _, r := range s.Quarterly {
		out.Quarterly = append(out.Quarterly, DeriveMetrics(r, price, shares, unit))
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
