package fundamental

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/krxvalue/pkg/models"
)

func record(date string, kv map[models.MetricKey]float64) models.PeriodRecord {
	r := models.NewPeriodRecord(date)
	for k, v := range kv {
		r.Set(k, v)
	}
	return r
}

func sampleSeries() models.FinancialSeries {
	return models.FinancialSeries{
		Ticker: "005930",
		Annual: []models.PeriodRecord{
			record("2021.12", map[models.MetricKey]float64{
				models.MetricRevenue: 2796048, models.MetricOperatingIncome: 516339, models.MetricNetIncome: 399074,
				models.MetricROE: 13.92, models.MetricBPS: 39406, models.MetricEPS: 5777, models.MetricDebtRatio: 39.92,
			}),
			record("2022.12", map[models.MetricKey]float64{
				models.MetricRevenue: 3022314, models.MetricOperatingIncome: 433766, models.MetricNetIncome: 556541,
				models.MetricROE: 17.07, models.MetricBPS: 50817, models.MetricEPS: 8057, models.MetricDebtRatio: 26.41,
			}),
			record("2023.12", map[models.MetricKey]float64{
				models.MetricRevenue: 2589355, models.MetricOperatingIncome: 65670, models.MetricNetIncome: 154871,
				models.MetricROE: 4.15, models.MetricBPS: 52002, models.MetricEPS: 2131, models.MetricDebtRatio: 25.36,
				models.MetricOperatingMargin: 2.54, models.MetricOperatingCashFlow: 441374,
			}),
		},
		Quarterly: []models.PeriodRecord{
			record("2024.06", map[models.MetricKey]float64{
				models.MetricRevenue: 740683, models.MetricROE: 9.1, models.MetricBPS: 54914,
			}),
		},
	}
}

func TestSRIMScenario(t *testing.T) {
	assert.InDelta(t, 75000, SRIM(50000, 12, 8), 1e-9)
}

func TestSRIMDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, SRIM(50000, 12, 0))
	assert.Equal(t, 0.0, SRIM(50000, 12, -1))
	assert.Equal(t, 0.0, SRIM(0, 12, 8))
	assert.Equal(t, 0.0, SRIM(-100, 12, 8))
}

func TestSRIMEqualReturnsIsBook(t *testing.T) {
	for _, b := range []float64{1, 39406, 52002.5, 1e7} {
		for _, k := range []float64{1, 6.5, 8, 20} {
			assert.Equal(t, b, SRIM(b, k, k), "B=%v K=%v", b, k)
		}
	}
}

func TestSRIMLinearInBook(t *testing.T) {
	for _, c := range []float64{0.5, 2, 3, 10} {
		for _, r := range []float64{-5, 0, 4.15, 13.92, 25} {
			b := 41234.0
			assert.InDelta(t, c*SRIM(b, r, 8), SRIM(c*b, r, 8), 1e-6*c*b)
		}
	}
}

func TestValueScenario(t *testing.T) {
	r := Value(ValuationInput{BookValuePerShare: 50000, AppliedROE: 12, RequiredReturnPct: 8}, 60000)

	assert.InDelta(t, 75000, r.FairValue, 1e-9)
	assert.InDelta(t, 4, r.ExcessReturnPct, 1e-12)
	require.NotNil(t, r.DeviationPct)
	assert.InDelta(t, -20, *r.DeviationPct, 1e-9)
	assert.Equal(t, VerdictUndervalued, r.Verdict)
	assert.Equal(t, "저평가", r.Verdict.Label())
}

func TestValueVerdicts(t *testing.T) {
	in := ValuationInput{BookValuePerShare: 50000, AppliedROE: 12, RequiredReturnPct: 8}

	over := Value(in, 90000)
	assert.Equal(t, VerdictOvervalued, over.Verdict)
	assert.InDelta(t, 20, *over.DeviationPct, 1e-9)

	// Price equal to fair value is not undervalued.
	eq := Value(in, SRIM(50000, 12, 8))
	assert.Equal(t, VerdictOvervalued, eq.Verdict)
	assert.InDelta(t, 0, *eq.DeviationPct, 1e-9)

	unknown := Value(in, 0)
	assert.Equal(t, VerdictUndetermined, unknown.Verdict)
	assert.Nil(t, unknown.DeviationPct)
	assert.InDelta(t, 75000, unknown.FairValue, 1e-9)

	// ROE far below K drives the fair value negative.
	neg := Value(ValuationInput{BookValuePerShare: 50000, AppliedROE: -10, RequiredReturnPct: 8}, 60000)
	assert.Less(t, neg.FairValue, 0.0)
	assert.Equal(t, VerdictUndetermined, neg.Verdict)
	assert.Nil(t, neg.DeviationPct)
}

func TestEvaluateModes(t *testing.T) {
	s := sampleSeries()
	results := Evaluate(s.Annual, 8, 60000, 3)
	require.Len(t, results, 2)

	avg, latest := results[0], results[1]
	assert.Equal(t, ModeAverage, avg.Mode)
	assert.Equal(t, ModeLatest, latest.Mode)

	assert.Equal(t, "2023.12", avg.BPSDate)
	assert.Equal(t, 52002.0, avg.Input.BookValuePerShare)
	assert.InDelta(t, (13.92+17.07+4.15)/3, avg.Input.AppliedROE, 1e-9)
	assert.Equal(t, []ROEObservation{{"2021.12", 13.92}, {"2022.12", 17.07}, {"2023.12", 4.15}}, avg.Observations)
	assert.InDelta(t, SRIM(52002, avg.Input.AppliedROE, 8), avg.Result.FairValue, 1e-9)

	assert.Equal(t, 4.15, latest.Input.AppliedROE)
	assert.Equal(t, []ROEObservation{{"2023.12", 4.15}}, latest.Observations)
	assert.Equal(t, VerdictOvervalued, latest.Result.Verdict)
}

func TestEvaluateSkipsPeriodsWithoutROE(t *testing.T) {
	periods := []models.PeriodRecord{
		record("2019", map[models.MetricKey]float64{models.MetricROE: 10}),
		record("2020", map[models.MetricKey]float64{models.MetricROE: 20}),
		record("2021", nil),
		record("2022", map[models.MetricKey]float64{models.MetricROE: 30}),
		record("2023", map[models.MetricKey]float64{models.MetricBPS: 10000}),
	}
	results := Evaluate(periods, 8, 0, 3)
	avg, latest := results[0], results[1]

	assert.Equal(t, []string{"2019", "2020", "2022"}, []string{avg.Observations[0].Date, avg.Observations[1].Date, avg.Observations[2].Date})
	assert.InDelta(t, 20, avg.Input.AppliedROE, 1e-12)

	// The latest period has no ROE: applied ROE is 0 and nothing is observed.
	assert.Empty(t, latest.Observations)
	assert.Equal(t, 0.0, latest.Input.AppliedROE)
	assert.InDelta(t, 0, latest.Result.FairValue, 1e-6)
	assert.Equal(t, VerdictUndetermined, latest.Result.Verdict)
}

func TestEvaluateEmpty(t *testing.T) {
	results := Evaluate(nil, 8, 60000, 0)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 0.0, r.Result.FairValue)
		assert.Equal(t, VerdictUndetermined, r.Result.Verdict)
		assert.NotNil(t, r.Observations)
	}
}

func TestDeriveMetrics(t *testing.T) {
	rec := record("2023.12", map[models.MetricKey]float64{
		models.MetricRevenue:           2589355,
		models.MetricOperatingCashFlow: 441374,
	})
	const shares = 5969782550
	out := DeriveMetrics(rec, 60000, shares, DefaultAmountUnit)

	sps := 2589355 * 1e8 / shares
	assert.InDelta(t, sps, out.Value(models.MetricSPS), 1e-6)
	assert.InDelta(t, 60000/sps, out.Value(models.MetricPSR), 1e-9)
	cps := 441374 * 1e8 / shares
	assert.InDelta(t, cps, out.Value(models.MetricCPS), 1e-6)
	assert.InDelta(t, 60000/cps, out.Value(models.MetricPCR), 1e-9)

	assert.False(t, rec.Has(models.MetricSPS), "input is not mutated")
}

func TestDeriveMetricsPreconditions(t *testing.T) {
	rec := record("2023.12", map[models.MetricKey]float64{models.MetricRevenue: 1000})

	out := DeriveMetrics(rec, 60000, 0, DefaultAmountUnit)
	assert.False(t, out.Has(models.MetricSPS))
	assert.False(t, out.Has(models.MetricPSR))

	out = DeriveMetrics(rec, 0, 1000, DefaultAmountUnit)
	assert.True(t, out.Has(models.MetricSPS))
	assert.False(t, out.Has(models.MetricPSR), "unknown price")

	zero := record("2023.12", map[models.MetricKey]float64{models.MetricRevenue: 0})
	out = DeriveMetrics(zero, 60000, 1000, DefaultAmountUnit)
	assert.Equal(t, 0.0, out.Value(models.MetricSPS))
	assert.False(t, out.Has(models.MetricPSR), "zero SPS")

	out = DeriveMetrics(record("x", nil), 60000, 1000, DefaultAmountUnit)
	assert.Empty(t, out.Keys())

	kept := record("2023.12", map[models.MetricKey]float64{models.MetricRevenue: 1000, models.MetricPSR: 1.5})
	out = DeriveMetrics(kept, 60000, 1000, DefaultAmountUnit)
	assert.Equal(t, 1.5, out.Value(models.MetricPSR))
}

func TestEnrichSeries(t *testing.T) {
	s := sampleSeries()
	out := EnrichSeries(s, 60000, 5969782550, 0)

	require.Len(t, out.Annual, 3)
	require.Len(t, out.Quarterly, 1)
	for _, r := range out.Annual {
		assert.True(t, r.Has(models.MetricSPS))
		assert.False(t, math.IsInf(r.Value(models.MetricPSR), 0))
	}
	assert.True(t, out.Annual[2].Has(models.MetricPCR))
	assert.False(t, s.Annual[0].Has(models.MetricSPS))
}

func TestComputeGrowth(t *testing.T) {
	g := ComputeGrowth(sampleSeries())
	assert.Equal(t, "2022.12", g.From)
	assert.Equal(t, "2023.12", g.To)
	require.NotNil(t, g.RevenueYoY)
	assert.InDelta(t, (2589355.0-3022314)/3022314*100, *g.RevenueYoY, 1e-9)
	require.NotNil(t, g.OperatingIncomeYoY)
	assert.Less(t, *g.OperatingIncomeYoY, 0.0)

	loss := models.FinancialSeries{Annual: []models.PeriodRecord{
		record("2022", map[models.MetricKey]float64{models.MetricNetIncome: -100}),
		record("2023", map[models.MetricKey]float64{models.MetricNetIncome: 50}),
	}}
	g = ComputeGrowth(loss)
	require.NotNil(t, g.NetIncomeYoY)
	assert.InDelta(t, 150, *g.NetIncomeYoY, 1e-9)
	assert.Nil(t, g.RevenueYoY)

	assert.Equal(t, Growth{}, ComputeGrowth(models.FinancialSeries{}))
}

func TestAssessFinancialHealth(t *testing.T) {
	h := AssessFinancialHealth(sampleSeries())
	assert.GreaterOrEqual(t, h.Score, 0.0)
	assert.LessOrEqual(t, h.Score, 100.0)
	assert.NotEmpty(t, h.Grade)
	assert.Contains(t, h.Components, "profitability")
	assert.Contains(t, h.Weaknesses, "매출 감소")

	empty := AssessFinancialHealth(models.FinancialSeries{})
	assert.Equal(t, "D", empty.Grade)
	assert.Equal(t, 0.0, empty.Score)
}

func TestFormatFinancialSummary(t *testing.T) {
	s := sampleSeries()
	out := FormatFinancialSummary(s, ComputeGrowth(s), AssessFinancialHealth(s))
	assert.Contains(t, out, "Financial Health:")
	assert.Contains(t, out, "[2023.12]")
	assert.Contains(t, out, "2022.12 → 2023.12")
}

func TestGrahamNumber(t *testing.T) {
	assert.InDelta(t, math.Sqrt(22.5*50*350), GrahamNumber(50, 350), 1e-9)
	assert.Equal(t, 0.0, GrahamNumber(-10, 350))
}

func TestParseBasis(t *testing.T) {
	b, err := ParseBasis("")
	require.NoError(t, err)
	assert.Equal(t, BasisAnnual, b)

	b, err = ParseBasis("quarterly")
	require.NoError(t, err)
	assert.Equal(t, BasisQuarterly, b)

	_, err = ParseBasis("monthly")
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	p := &models.StockProfile{
		Ticker:     "005930",
		Name:       "삼성전자",
		Quote:      &models.Quote{Ticker: "005930", LastPrice: 60000, SharesOutstanding: 5969782550},
		Financials: sampleSeries(),
	}
	a := Analyze(p, DefaultOptions())

	_, err := uuid.Parse(a.QueryID)
	assert.NoError(t, err)
	assert.Equal(t, "삼성전자", a.Name)
	assert.Equal(t, 60000.0, a.Price)
	assert.Equal(t, BasisAnnual, a.Basis)
	require.Len(t, a.Valuations, 2)

	avg, ok := a.Valuation(ModeAverage)
	require.True(t, ok)
	assert.Len(t, avg.Observations, 3)
	assert.True(t, a.Financials.Annual[0].Has(models.MetricSPS))
	assert.Greater(t, a.GrahamNumber, 0.0)

	// Each query gets its own identifier.
	assert.NotEqual(t, a.QueryID, Analyze(p, DefaultOptions()).QueryID)
}

func TestAnalyzeQuarterlyBasis(t *testing.T) {
	p := &models.StockProfile{
		Ticker:     "005930",
		Quote:      &models.Quote{Name: "삼성전자", LastPrice: 60000},
		Financials: sampleSeries(),
	}
	opts := DefaultOptions()
	opts.Basis = BasisQuarterly
	a := Analyze(p, opts)

	assert.Equal(t, "삼성전자", a.Name)
	latest, ok := a.Valuation(ModeLatest)
	require.True(t, ok)
	assert.Equal(t, "2024.06", latest.BPSDate)
	assert.Equal(t, 9.1, latest.Input.AppliedROE)
}

func TestAnalyzeWithoutData(t *testing.T) {
	a := Analyze(&models.StockProfile{Ticker: "000000"}, Options{RequiredReturn: 8})
	assert.Equal(t, DefaultAveragePeriods, a.AveragePeriods)
	for _, v := range a.Valuations {
		assert.Equal(t, VerdictUndetermined, v.Result.Verdict)
	}
	_, ok := a.Valuation(Mode("other"))
	assert.False(t, ok)
}
