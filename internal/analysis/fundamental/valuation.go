package fundamental

import (
	"math"
	"strconv"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// DefaultAveragePeriods is the number of recent periods averaged by ModeAverage.
const DefaultAveragePeriods = 3

// Verdict compares the fair value with the market price.
type Verdict string

const (
	VerdictUndervalued  Verdict = "undervalued"
	VerdictOvervalued   Verdict = "overvalued"
	VerdictUndetermined Verdict = "cannot be determined"
)

// Label returns the Korean display label of the verdict.
func (v Verdict) Label() string {
	switch v {
	case VerdictUndervalued:
		return "저평가"
	case VerdictOvervalued:
		return "고평가"
	default:
		return "산출 불가"
	}
}

// ValuationInput holds the S-RIM inputs. Returns are in percent.
type ValuationInput struct {
	BookValuePerShare float64 `json:"bps"`
	AppliedROE        float64 `json:"applied_roe"`
	RequiredReturnPct float64 `json:"required_return"`
}

// ValuationResult is the outcome of one S-RIM evaluation.
type ValuationResult struct {
	FairValue       float64  `json:"fair_value"`
	ExcessReturnPct float64  `json:"excess_return_pct"` // ROE - K, percentage points
	DeviationPct    *float64 `json:"deviation_pct"`     // (P-V)/V*100, nil when undetermined
	Verdict         Verdict  `json:"verdict"`
}

// SRIM computes the excess-return fair value per share:
//
//	V = B + B * ((R-K)/100) / (K/100)
//
// with B the book value per share, R the applied ROE and K the required
// return, both in percent. The result is 0 when K <= 0 or B <= 0.
func SRIM(bps, roe, k float64) float64 {
	if k <= 0 || bps <= 0 {
		return 0
	}
	v := bps + bps*((roe-k)/100)/(k/100)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Value evaluates in against the market price. A price <= 0 means unknown.
func Value(in ValuationInput, price float64) ValuationResult {
	r := ValuationResult{
		FairValue:       SRIM(in.BookValuePerShare, in.AppliedROE, in.RequiredReturnPct),
		ExcessReturnPct: in.AppliedROE - in.RequiredReturnPct,
		Verdict:         VerdictUndetermined,
	}
	if r.FairValue <= 0 || price <= 0 {
		return r
	}

	dev := (price - r.FairValue) / r.FairValue * 100
	r.DeviationPct = &dev
	if r.FairValue > price {
		r.Verdict = VerdictUndervalued
	} else {
		r.Verdict = VerdictOvervalued
	}
	return r
}

// Mode selects how the applied ROE is derived from the period history.
type Mode string

const (
	// ModeAverage applies the mean ROE of the most recent periods.
	ModeAverage Mode = "average"
	// ModeLatest applies the ROE of the most recent period.
	ModeLatest Mode = "latest"
)

// Title returns the Korean display title of the mode for n periods.
func (m Mode) Title(n int) string {
	if m == ModeAverage {
		return "최근 " + strconv.Itoa(n) + "기 평균 ROE 기준"
	}
	return "최근 1기 실적 기준"
}

// ROEObservation is one ROE value that fed a valuation.
type ROEObservation struct {
	Date string  `json:"date"`
	ROE  float64 `json:"roe"`
}

// ModeResult is a valuation with the audit trail of the data it used.
type ModeResult struct {
	Mode         Mode             `json:"mode"`
	BPSDate      string           `json:"bps_date"`
	Observations []ROEObservation `json:"observations"`
	Input        ValuationInput   `json:"input"`
	Result       ValuationResult  `json:"result"`
}

// Evaluate runs both valuation modes over chronologically ordered periods.
// B is the BPS of the most recent period (0 when absent). The average mode
// uses up to n of the most recent periods that report ROE; the latest mode
// uses the most recent period's ROE, 0 when absent. n <= 0 means
// DefaultAveragePeriods. The first result is ModeAverage, the second
// ModeLatest.
func Evaluate(periods []models.PeriodRecord, k, price float64, n int) []ModeResult {
	if n <= 0 {
		n = DefaultAveragePeriods
	}

	var (
		bps     float64
		bpsDate string
		latest  []ROEObservation
	)
	if len(periods) > 0 {
		last := periods[len(periods)-1]
		bps, bpsDate = last.Value(models.MetricBPS), last.Date
		if roe, ok := last.Get(models.MetricROE); ok {
			latest = []ROEObservation{{Date: last.Date, ROE: roe}}
		}
	}

	var recent []ROEObservation
	for i := len(periods) - 1; i >= 0 && len(recent) < n; i-- {
		if roe, ok := periods[i].Get(models.MetricROE); ok {
			recent = append(recent, ROEObservation{Date: periods[i].Date, ROE: roe})
		}
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return []ModeResult{
		evaluateMode(ModeAverage, bps, bpsDate, recent, k, price),
		evaluateMode(ModeLatest, bps, bpsDate, latest, k, price),
	}
}

func evaluateMode(mode Mode, bps float64, bpsDate string, obs []ROEObservation, k, price float64) ModeResult {
	in := ValuationInput{
		BookValuePerShare: bps,
		AppliedROE:        meanROE(obs),
		RequiredReturnPct: k,
	}
	if obs == nil {
		obs = []ROEObservation{}
	}
	return ModeResult{
		Mode:         mode,
		BPSDate:      bpsDate,
		Observations: obs,
		Input:        in,
		Result:       Value(in, price),
	}
}

func meanROE(obs []ROEObservation) float64 {
	if len(obs) == 0 {
		return 0
	}
	var sum float64
	for _, o := range obs {
		sum += o.ROE
	}
	return sum / float64(len(obs))
}

// GrahamNumber computes the classic Benjamin Graham intrinsic value,
// sqrt(22.5 × EPS × BPS). It is reported next to S-RIM as a cross-check.
func GrahamNumber(eps, bps float64) float64 {
	if eps <= 0 || bps <= 0 {
		return 0
	}
	return math.Sqrt(22.5 * eps * bps)
}
