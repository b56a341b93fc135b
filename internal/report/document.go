package report

import (
	"time"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/pkg/models"
)

// Document is the machine-readable report used by the JSON and YAML formats.
// Absent metrics are omitted, not zeroed.
type Document struct {
	QueryID        string         `json:"query_id"        yaml:"query_id"`
	Ticker         string         `json:"ticker"          yaml:"ticker"`
	Name           string         `json:"name"            yaml:"name"`
	Price          float64        `json:"price"           yaml:"price"`
	MarketCap      float64        `json:"market_cap"      yaml:"market_cap"`
	Basis          string         `json:"basis"           yaml:"basis"`
	RequiredReturn float64        `json:"required_return" yaml:"required_return"`
	AveragePeriods int            `json:"average_periods" yaml:"average_periods"`
	Annual         []PeriodDoc    `json:"annual"          yaml:"annual"`
	Quarterly      []PeriodDoc    `json:"quarterly"       yaml:"quarterly"`
	Growth         GrowthDoc      `json:"growth"          yaml:"growth"`
	HealthGrade    string         `json:"health_grade"    yaml:"health_grade"`
	HealthScore    float64        `json:"health_score"    yaml:"health_score"`
	Valuations     []ValuationDoc `json:"valuations"      yaml:"valuations"`
	GrahamNumber   float64        `json:"graham_number,omitempty" yaml:"graham_number,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"    yaml:"generated_at"`
}

// PeriodDoc is one period with its present metrics.
type PeriodDoc struct {
	Date    string                       `json:"date"    yaml:"date"`
	Metrics map[models.MetricKey]float64 `json:"metrics" yaml:"metrics"`
}

// GrowthDoc mirrors fundamental.Growth.
type GrowthDoc struct {
	From               string   `json:"from,omitempty"                 yaml:"from,omitempty"`
	To                 string   `json:"to,omitempty"                   yaml:"to,omitempty"`
	RevenueYoY         *float64 `json:"revenue_yoy,omitempty"          yaml:"revenue_yoy,omitempty"`
	OperatingIncomeYoY *float64 `json:"operating_income_yoy,omitempty" yaml:"operating_income_yoy,omitempty"`
	NetIncomeYoY       *float64 `json:"net_income_yoy,omitempty"       yaml:"net_income_yoy,omitempty"`
}

// ValuationDoc is one valuation mode with its inputs.
type ValuationDoc struct {
	Mode           string   `json:"mode"            yaml:"mode"`
	BPS            float64  `json:"bps"             yaml:"bps"`
	BPSDate        string   `json:"bps_date"        yaml:"bps_date"`
	AppliedROE     float64  `json:"applied_roe"     yaml:"applied_roe"`
	RequiredReturn float64  `json:"required_return" yaml:"required_return"`
	ROEs           []ROEDoc `json:"roes"            yaml:"roes"`
	FairValue      float64  `json:"fair_value"      yaml:"fair_value"`
	ExcessReturn   float64  `json:"excess_return"   yaml:"excess_return"`
	DeviationPct   *float64 `json:"deviation_pct"   yaml:"deviation_pct"`
	Verdict        string   `json:"verdict"         yaml:"verdict"`
}

// ROEDoc is one ROE observation.
type ROEDoc struct {
	Date string  `json:"date" yaml:"date"`
	ROE  float64 `json:"roe"  yaml:"roe"`
}

// NewDocument converts an analysis into its document form.
func NewDocument(a *fundamental.Analysis) Document {
	doc := Document{
		QueryID:        a.QueryID,
		Ticker:         a.Ticker,
		Name:           a.Name,
		Price:          a.Price,
		MarketCap:      a.MarketCap,
		Basis:          string(a.Basis),
		RequiredReturn: a.RequiredReturn,
		AveragePeriods: a.AveragePeriods,
		Annual:         PeriodDocs(a.Financials.Annual),
		Quarterly:      PeriodDocs(a.Financials.Quarterly),
		Growth: GrowthDoc{
			From:               a.Growth.From,
			To:                 a.Growth.To,
			RevenueYoY:         a.Growth.RevenueYoY,
			OperatingIncomeYoY: a.Growth.OperatingIncomeYoY,
			NetIncomeYoY:       a.Growth.NetIncomeYoY,
		},
		HealthGrade:  a.Health.Grade,
		HealthScore:  a.Health.Score,
		Valuations:   make([]ValuationDoc, 0, len(a.Valuations)),
		GrahamNumber: a.GrahamNumber,
		GeneratedAt:  a.GeneratedAt,
	}

	for _, v := range a.Valuations {
		vd := ValuationDoc{
			Mode:           string(v.Mode),
			BPS:            v.Input.BookValuePerShare,
			BPSDate:        v.BPSDate,
			AppliedROE:     v.Input.AppliedROE,
			RequiredReturn: v.Input.RequiredReturnPct,
			ROEs:           make([]ROEDoc, len(v.Observations)),
			FairValue:      v.Result.FairValue,
			ExcessReturn:   v.Result.ExcessReturnPct,
			DeviationPct:   v.Result.DeviationPct,
			Verdict:        string(v.Result.Verdict),
		}
		for i, o := range v.Observations {
			vd.ROEs[i] = ROEDoc{Date: o.Date, ROE: o.ROE}
		}
		doc.Valuations = append(doc.Valuations, vd)
	}
	return doc
}

// PeriodDocs converts period records into their document form.
func PeriodDocs(records []models.PeriodRecord) []PeriodDoc {
	out := make([]PeriodDoc, len(records))
	for i, r := range records {
		m := make(map[models.MetricKey]float64, len(r.Metrics))
		for _, k := range r.Keys() {
			m[k] = r.Value(k)
		}
		out[i] = PeriodDoc{Date: r.Date, Metrics: m}
	}
	return out
}
