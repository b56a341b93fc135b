package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/internal/config"
	"github.com/seenimoa/krxvalue/internal/datasource"
	"github.com/seenimoa/krxvalue/pkg/models"
)

// stubFetcher serves canned profiles keyed by ticker.
type stubFetcher struct {
	profiles map[string]*models.StockProfile
	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *stubFetcher) FetchProfile(ctx context.Context, ticker string) (*models.StockProfile, error) {
	s.calls.Add(1)
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p, ok := s.profiles[ticker]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", ticker, datasource.ErrTickerNotFound)
	}
	return p, nil
}

func (s *stubFetcher) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	p, err := s.FetchProfile(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return p.Quote, nil
}

func (s *stubFetcher) FetchFinancials(ctx context.Context, ticker string) models.FinancialSeries {
	p, err := s.FetchProfile(ctx, ticker)
	if err != nil {
		return models.FinancialSeries{Ticker: ticker}
	}
	return p.Financials
}

func period(date string, bps, roe float64) models.PeriodRecord {
	r := models.NewPeriodRecord(date)
	r.Set(models.MetricBPS, bps)
	r.Set(models.MetricROE, roe)
	r.Set(models.MetricRevenue, 1000)
	return r
}

func scenarioProfile(ticker string) *models.StockProfile {
	return &models.StockProfile{
		Ticker: ticker,
		Name:   "테스트" + ticker,
		Quote:  &models.Quote{Ticker: ticker, LastPrice: 60000, SharesOutstanding: 1_000_000},
		Financials: models.FinancialSeries{
			Ticker: ticker,
			Annual: []models.PeriodRecord{
				period("2021.12", 40000, 10),
				period("2022.12", 45000, 12),
				period("2023.12", 50000, 14),
			},
		},
	}
}

func TestDefaultOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Valuation.RequiredReturn = 9
	cfg.Valuation.AveragePeriods = 5
	cfg.Valuation.Basis = "quarterly"

	opts := New(&stubFetcher{}, cfg).DefaultOptions()
	assert.Equal(t, 9.0, opts.RequiredReturn)
	assert.Equal(t, 5, opts.AveragePeriods)
	assert.Equal(t, 1e8, opts.AmountUnit)
	assert.Equal(t, fundamental.BasisQuarterly, opts.Basis)
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	e := New(&stubFetcher{}, nil)
	require.NotNil(t, e.Config())
	assert.Equal(t, 8.0, e.DefaultOptions().RequiredReturn)
}

func TestAnalyze(t *testing.T) {
	f := &stubFetcher{profiles: map[string]*models.StockProfile{"005930": scenarioProfile("005930")}}
	e := New(f, nil)

	a, err := e.Analyze(context.Background(), "A005930", e.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "005930", a.Ticker)
	assert.NotEmpty(t, a.QueryID)
	require.Len(t, a.Valuations, 2)

	avg, ok := a.Valuation(fundamental.ModeAverage)
	require.True(t, ok)
	// mean ROE 12, K 8: 50000 * (1 + 4/8)
	assert.InDelta(t, 75000, avg.Result.FairValue, 1e-6)
	assert.Equal(t, fundamental.VerdictUndervalued, avg.Result.Verdict)
	require.NotNil(t, avg.Result.DeviationPct)
	assert.InDelta(t, -20, *avg.Result.DeviationPct, 1e-9)

	latest, ok := a.Valuation(fundamental.ModeLatest)
	require.True(t, ok)
	// ROE 14: 50000 * (1 + 6/8)
	assert.InDelta(t, 87500, latest.Result.FairValue, 1e-6)
}

func TestAnalyzeInvalidTicker(t *testing.T) {
	f := &stubFetcher{}
	_, err := New(f, nil).Analyze(context.Background(), "not-a-code", fundamental.DefaultOptions())
	assert.ErrorIs(t, err, datasource.ErrTickerNotFound)
	assert.Zero(t, f.calls.Load(), "no fetch for an invalid code")
}

func TestAnalyzeQueryTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.QueryTimeout = 20 * time.Millisecond
	f := &stubFetcher{
		profiles: map[string]*models.StockProfile{"005930": scenarioProfile("005930")},
		delay:    time.Second,
	}

	_, err := New(f, cfg).Analyze(context.Background(), "005930", fundamental.DefaultOptions())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFinancialsEnrichedWithQuote(t *testing.T) {
	f := &stubFetcher{profiles: map[string]*models.StockProfile{"005930": scenarioProfile("005930")}}

	s, err := New(f, nil).Financials(context.Background(), "005930")
	require.NoError(t, err)
	require.Len(t, s.Annual, 3)

	// revenue 1000 억원 over 1,000,000 shares = 100,000 KRW per share
	sps, ok := s.Annual[2].Get(models.MetricSPS)
	require.True(t, ok)
	assert.InDelta(t, 100000, sps, 1e-6)
	psr, ok := s.Annual[2].Get(models.MetricPSR)
	require.True(t, ok)
	assert.InDelta(t, 0.6, psr, 1e-9)
}

func TestAnalyzeBatch(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.ConcurrentFetches = 2
	f := &stubFetcher{
		profiles: map[string]*models.StockProfile{
			"005930": scenarioProfile("005930"),
			"000660": scenarioProfile("000660"),
			"035420": scenarioProfile("035420"),
			"051910": scenarioProfile("051910"),
		},
		delay: 10 * time.Millisecond,
	}

	tickers := []string{"005930", "000660", "999999", "035420", "051910"}
	results, err := New(f, cfg).AnalyzeBatch(context.Background(), tickers, fundamental.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, len(tickers))

	for i, r := range results {
		assert.Equal(t, tickers[i], r.Ticker, "input order kept")
	}
	assert.ErrorIs(t, results[2].Err, datasource.ErrTickerNotFound)
	assert.NotEmpty(t, results[2].Error)
	assert.Nil(t, results[2].Analysis)
	for _, i := range []int{0, 1, 3, 4} {
		assert.NoError(t, results[i].Err)
		assert.NotNil(t, results[i].Analysis)
	}
	assert.LessOrEqual(t, f.peak.Load(), int32(2))
}

func TestAnalyzeBatchEmpty(t *testing.T) {
	_, err := New(&stubFetcher{}, nil).AnalyzeBatch(context.Background(), nil, fundamental.DefaultOptions())
	assert.ErrorIs(t, err, ErrNoTickers)
}

func TestAnalyzeBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &stubFetcher{profiles: map[string]*models.StockProfile{"005930": scenarioProfile("005930")}, delay: time.Second}

	results, err := New(f, nil).AnalyzeBatch(ctx, []string{"005930"}, fundamental.DefaultOptions())
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

// ── Wired against fake sites ──

// newFakeSites serves the Naver and WiseReport fixtures of the datasource
// package from one server.
func newFakeSites(t *testing.T, wiseStatus int) *httptest.Server {
	t.Helper()
	read := func(name string) []byte {
		b, err := os.ReadFile("../datasource/testdata/" + name)
		require.NoError(t, err)
		return b
	}
	main, polling, wise := read("naver_main.html"), read("naver_polling.json"), read("wisereport_summary.html")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/item/main.naver":
			w.Header().Set("Content-Type", "text/html;charset=EUC-KR")
			_, _ = w.Write(main)
		case strings.HasPrefix(r.URL.Path, "/api/realtime/domestic/stock/"):
			w.Header().Set("Content-Type", "application/json;charset=UTF-8")
			_, _ = w.Write(polling)
		case r.URL.Path == "/v2/company/c1010001.aspx":
			if wiseStatus != http.StatusOK {
				w.WriteHeader(wiseStatus)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(wise)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wiredConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Sources.Naver.BaseURL = url
	cfg.Sources.Naver.PollingURL = url
	cfg.Sources.WiseReport.BaseURL = url
	cfg.Sources.RateLimit = 0
	return cfg
}

func TestFromConfigPrimarySource(t *testing.T) {
	srv := newFakeSites(t, http.StatusOK)
	e := FromConfig(wiredConfig(srv.URL))

	a, err := e.Analyze(context.Background(), "005930", e.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "삼성전자", a.Name)
	assert.Equal(t, 71500.0, a.Price)
	require.Len(t, a.Financials.Annual, 5)

	avg, _ := a.Valuation(fundamental.ModeAverage)
	assert.Equal(t, "2023/12", avg.BPSDate)
	require.Len(t, avg.Observations, 3)
	// BPS 52,002; mean ROE (13.92 + 17.07 + 4.15) / 3
	assert.InDelta(t, 52002*(1+(35.14/3-8)/8), avg.Result.FairValue, 1e-6)
	assert.Equal(t, fundamental.VerdictUndervalued, avg.Result.Verdict)

	latest, _ := a.Valuation(fundamental.ModeLatest)
	assert.InDelta(t, 52002*(1+(4.15-8)/8), latest.Result.FairValue, 1e-6)
	assert.Equal(t, fundamental.VerdictOvervalued, latest.Result.Verdict)
}

func TestFromConfigWiseReportDisabled(t *testing.T) {
	srv := newFakeSites(t, http.StatusOK)
	cfg := wiredConfig(srv.URL)
	cfg.Sources.WiseReport.Enabled = false

	s, err := FromConfig(cfg).Financials(context.Background(), "005930")
	require.NoError(t, err)
	assert.Len(t, s.Annual, 3, "Naver summary only")
}

func TestFromConfigFallbackSource(t *testing.T) {
	srv := newFakeSites(t, http.StatusBadGateway)
	e := FromConfig(wiredConfig(srv.URL))

	a, err := e.Analyze(context.Background(), "005930", e.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, a.Financials.Annual, 3)

	// The Naver summary has no BPS row, so no fair value can be derived.
	for _, v := range a.Valuations {
		assert.Equal(t, fundamental.VerdictUndetermined, v.Result.Verdict, v.Mode)
	}
}
