package models

import "sort"

// MetricKey is a canonical financial line item identifier.
// The set is closed; new keys need a matching rule in the statement mapper.
type MetricKey string

const (
	MetricRevenue              MetricKey = "revenue"
	MetricOperatingIncome      MetricKey = "operating_income"
	MetricOperatingMargin      MetricKey = "operating_margin"
	MetricNetIncome            MetricKey = "net_income"
	MetricControllingNetIncome MetricKey = "controlling_net_income"
	MetricNetMargin            MetricKey = "net_margin"
	MetricDebtRatio            MetricKey = "debt_ratio"
	MetricQuickRatio           MetricKey = "quick_ratio"
	MetricReserveRatio         MetricKey = "reserve_ratio"
	MetricROE                  MetricKey = "roe"
	MetricROA                  MetricKey = "roa"
	MetricEPS                  MetricKey = "eps"
	MetricBPS                  MetricKey = "bps"
	MetricDPS                  MetricKey = "dps"
	MetricPER                  MetricKey = "per"
	MetricPBR                  MetricKey = "pbr"
	MetricDividendYield        MetricKey = "dividend_yield"
	MetricPayoutRatio          MetricKey = "payout_ratio"
	MetricInterestCoverage     MetricKey = "interest_coverage_ratio"
	MetricOperatingCashFlow    MetricKey = "operating_cash_flow"
	MetricTotalAssets          MetricKey = "total_assets"
	MetricTotalLiabilities     MetricKey = "total_liabilities"
	MetricTotalEquity          MetricKey = "total_equity"
	MetricSPS                  MetricKey = "sps" // sales per share
	MetricCPS                  MetricKey = "cps" // operating cash flow per share
	MetricPSR                  MetricKey = "psr"
	MetricPCR                  MetricKey = "pcr"
)

var allMetricKeys = []MetricKey{
	MetricRevenue, MetricOperatingIncome, MetricOperatingMargin,
	MetricNetIncome, MetricControllingNetIncome, MetricNetMargin,
	MetricDebtRatio, MetricQuickRatio, MetricReserveRatio,
	MetricROE, MetricROA,
	MetricEPS, MetricBPS, MetricDPS, MetricPER, MetricPBR,
	MetricDividendYield, MetricPayoutRatio, MetricInterestCoverage,
	MetricOperatingCashFlow, MetricTotalAssets, MetricTotalLiabilities, MetricTotalEquity,
	MetricSPS, MetricCPS, MetricPSR, MetricPCR,
}

// AllMetricKeys returns every canonical metric key in display order.
func AllMetricKeys() []MetricKey {
	out := make([]MetricKey, len(allMetricKeys))
	copy(out, allMetricKeys)
	return out
}

// Valid reports whether k belongs to the canonical set.
func (k MetricKey) Valid() bool {
	for _, m := range allMetricKeys {
		if m == k {
			return true
		}
	}
	return false
}

// PeriodKind classifies a data column by reporting period length.
type PeriodKind string

const (
	PeriodUnknown   PeriodKind = ""
	PeriodAnnual    PeriodKind = "annual"
	PeriodQuarterly PeriodKind = "quarterly"
)

// ColumnDescriptor describes one data column of a statement table.
type ColumnDescriptor struct {
	Index      int        `json:"index"`       // position in the date header row
	Label      string     `json:"label"`       // date label, annotations stripped, e.g. "2023.12"
	Kind       PeriodKind `json:"kind"`
	IsEstimate bool       `json:"is_estimate"` // forecast column, never used as an input
}

// PeriodRecord holds the metrics of one reporting period.
// A metric missing from the source is missing from Metrics, not zero.
type PeriodRecord struct {
	Date    string                `json:"date"`
	Metrics map[MetricKey]float64 `json:"metrics"`
}

// NewPeriodRecord creates an empty record for the given date label.
func NewPeriodRecord(date string) PeriodRecord {
	return PeriodRecord{Date: date, Metrics: make(map[MetricKey]float64)}
}

// Get returns the metric value and whether it is present.
func (r PeriodRecord) Get(k MetricKey) (float64, bool) {
	v, ok := r.Metrics[k]
	return v, ok
}

// Has reports whether the metric is present.
func (r PeriodRecord) Has(k MetricKey) bool {
	_, ok := r.Metrics[k]
	return ok
}

// Value returns the metric value, or 0 when absent (display default).
func (r PeriodRecord) Value(k MetricKey) float64 {
	return r.Metrics[k]
}

// Set stores a metric value.
func (r *PeriodRecord) Set(k MetricKey, v float64) {
	if r.Metrics == nil {
		r.Metrics = make(map[MetricKey]float64)
	}
	r.Metrics[k] = v
}

// Keys returns the present metric keys in canonical order.
func (r PeriodRecord) Keys() []MetricKey {
	keys := make([]MetricKey, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	order := make(map[MetricKey]int, len(allMetricKeys))
	for i, k := range allMetricKeys {
		order[k] = i
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })
	return keys
}

// Clone returns a deep copy of the record.
func (r PeriodRecord) Clone() PeriodRecord {
	out := NewPeriodRecord(r.Date)
	for k, v := range r.Metrics {
		out.Metrics[k] = v
	}
	return out
}

// FinancialSeries is the resolved statement history of one stock.
// Annual and Quarterly are in chronological order (oldest first).
type FinancialSeries struct {
	Ticker    string         `json:"ticker"`
	Annual    []PeriodRecord `json:"annual"`
	Quarterly []PeriodRecord `json:"quarterly"`
}

// Empty reports whether no annual data was resolved.
func (s FinancialSeries) Empty() bool {
	return len(s.Annual) == 0
}

// LatestAnnual returns the most recent annual record.
func (s FinancialSeries) LatestAnnual() (PeriodRecord, bool) {
	if len(s.Annual) == 0 {
		return PeriodRecord{}, false
	}
	return s.Annual[len(s.Annual)-1], true
}

// LatestQuarter returns the most recent quarterly record.
func (s FinancialSeries) LatestQuarter() (PeriodRecord, bool) {
	if len(s.Quarterly) == 0 {
		return PeriodRecord{}, false
	}
	return s.Quarterly[len(s.Quarterly)-1], true
}
