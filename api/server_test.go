package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/krxvalue/internal/config"
	"github.com/seenimoa/krxvalue/internal/datasource"
	"github.com/seenimoa/krxvalue/internal/engine"
	"github.com/seenimoa/krxvalue/internal/report"
	"github.com/seenimoa/krxvalue/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// stubFetcher serves canned profiles keyed by ticker.
type stubFetcher struct {
	profiles map[string]*models.StockProfile
}

func (s *stubFetcher) FetchProfile(_ context.Context, ticker string) (*models.StockProfile, error) {
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

// scenarioProfile is priced at 60,000 with BPS 50,000 and ROE 10/12/14.
func scenarioProfile(ticker string) *models.StockProfile {
	return &models.StockProfile{
		Ticker: ticker,
		Name:   "테스트" + ticker,
		Quote:  &models.Quote{Ticker: ticker, Name: "테스트" + ticker, LastPrice: 60000, SharesOutstanding: 1_000_000},
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

func testServer(t *testing.T) *Server {
	t.Helper()
	f := &stubFetcher{profiles: map[string]*models.StockProfile{
		"005930": scenarioProfile("005930"),
		"000660": scenarioProfile("000660"),
	}}
	return NewServer(engine.New(f, config.Default()),
		WithVersion("1.2.3"),
		WithConfigFile("/etc/krxvalue/config.yaml"),
	)
}

// envelope mirrors APIResponse with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// ════════════════════════════════════════════════════════════════════
// Health
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var data map[string]string
		env := decode(t, rec, &data)
		assert.True(t, env.Success)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "1.2.3", data["version"])
		assert.NotEmpty(t, data["market_status"])
		assert.NotEmpty(t, data["time_kst"])
	}
}

// ════════════════════════════════════════════════════════════════════
// Quote / Financials
// ════════════════════════════════════════════════════════════════════

func TestQuote(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/quote/A005930", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var q models.Quote
	env := decode(t, rec, &q)
	assert.True(t, env.Success)
	assert.Equal(t, "005930", q.Ticker)
	assert.Equal(t, 60000.0, q.LastPrice)
}

func TestQuoteNotFound(t *testing.T) {
	srv := testServer(t)
	for _, ticker := range []string{"999999", "abc"} {
		rec := do(t, srv, http.MethodGet, "/api/v1/quote/"+ticker, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, ticker)
		env := decode(t, rec, nil)
		assert.False(t, env.Success)
		assert.Contains(t, env.Error, "ticker not found")
	}
}

func TestFinancials(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/financials/005930", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Ticker    string             `json:"ticker"`
		Annual    []report.PeriodDoc `json:"annual"`
		Quarterly []report.PeriodDoc `json:"quarterly"`
	}
	decode(t, rec, &data)
	assert.Equal(t, "005930", data.Ticker)
	require.Len(t, data.Annual, 3)
	assert.Empty(t, data.Quarterly)

	m := data.Annual[2].Metrics
	assert.Equal(t, 14.0, m[models.MetricROE])
	// 1000억 / 1,000,000 shares = 100,000원; 60,000 / 100,000 = 0.6
	assert.InDelta(t, 100000, m[models.MetricSPS], 1e-6)
	assert.InDelta(t, 0.6, m[models.MetricPSR], 1e-9)
	_, hasPER := m[models.MetricPER]
	assert.False(t, hasPER)
}

// ════════════════════════════════════════════════════════════════════
// Valuation
// ════════════════════════════════════════════════════════════════════

func TestValuationDefaults(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/valuation/005930", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc report.Document
	env := decode(t, rec, &doc)
	assert.True(t, env.Success)
	assert.NotEmpty(t, doc.QueryID)
	assert.Equal(t, 8.0, doc.RequiredReturn)
	assert.Equal(t, 3, doc.AveragePeriods)
	assert.Equal(t, "annual", doc.Basis)

	require.Len(t, doc.Valuations, 2)
	avg, latest := doc.Valuations[0], doc.Valuations[1]
	assert.Equal(t, "average", avg.Mode)
	assert.InDelta(t, 75000, avg.FairValue, 1e-6)
	require.NotNil(t, avg.DeviationPct)
	assert.InDelta(t, -20, *avg.DeviationPct, 1e-9)
	assert.Equal(t, "undervalued", avg.Verdict)
	assert.Equal(t, "latest", latest.Mode)
	assert.InDelta(t, 87500, latest.FairValue, 1e-6)
}

func TestValuationQueryParams(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name     string
		query    string
		avgValue float64
		verdict  string
	}{
		// V = 50,000 + 50,000 × (12-10)/10 = 60,000 = price
		{"rrr 10", "?rrr=10", 60000, "overvalued"},
		{"rrr with percent", "?rrr=10%25", 60000, "overvalued"},
		{"single period", "?periods=1", 87500, "undervalued"},
		{"two periods", "?periods=2", 81250, "undervalued"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/v1/valuation/005930"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var doc report.Document
			decode(t, rec, &doc)
			require.Len(t, doc.Valuations, 2)
			assert.InDelta(t, tt.avgValue, doc.Valuations[0].FairValue, 1e-6)
			assert.Equal(t, tt.verdict, doc.Valuations[0].Verdict)
		})
	}
}

func TestValuationQuarterlyWithoutData(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/valuation/005930?basis=quarterly", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc report.Document
	decode(t, rec, &doc)
	assert.Equal(t, "quarterly", doc.Basis)
	for _, v := range doc.Valuations {
		assert.Equal(t, "cannot be determined", v.Verdict)
		assert.Nil(t, v.DeviationPct)
	}
}

func TestValuationRejectsBadParams(t *testing.T) {
	srv := testServer(t)
	for _, q := range []string{"?rrr=abc", "?rrr=0", "?rrr=150", "?periods=0", "?periods=11", "?periods=x", "?basis=monthly"} {
		rec := do(t, srv, http.MethodGet, "/api/v1/valuation/005930"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		env := decode(t, rec, nil)
		assert.False(t, env.Success, q)
		assert.NotEmpty(t, env.Error, q)
	}
}

func TestValuationNotFound(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/valuation/123456", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ════════════════════════════════════════════════════════════════════
// Batch
// ════════════════════════════════════════════════════════════════════

func TestBatch(t *testing.T) {
	body := `{"tickers":["005930","999999","A000660"],"required_return":10}`
	rec := do(t, testServer(t), http.MethodPost, "/api/v1/valuation/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []struct {
		Ticker    string           `json:"ticker"`
		Valuation *report.Document `json:"valuation"`
		Error     string           `json:"error"`
	}
	decode(t, rec, &entries)
	require.Len(t, entries, 3)

	assert.Equal(t, "005930", entries[0].Ticker)
	require.NotNil(t, entries[0].Valuation)
	assert.Equal(t, 10.0, entries[0].Valuation.RequiredReturn)
	assert.InDelta(t, 60000, entries[0].Valuation.Valuations[0].FairValue, 1e-6)

	assert.Equal(t, "999999", entries[1].Ticker)
	assert.Nil(t, entries[1].Valuation)
	assert.Contains(t, entries[1].Error, "ticker not found")

	assert.Equal(t, "000660", entries[2].Ticker)
	assert.NotNil(t, entries[2].Valuation)
}

func TestBatchRejectsBadRequests(t *testing.T) {
	srv := testServer(t)
	for _, body := range []string{
		`not json`,
		`{}`,
		`{"tickers":[]}`,
		`{"tickers":[""]}`,
		`{"tickers":["005930"],"periods":20}`,
		`{"tickers":["005930"],"basis":"monthly"}`,
	} {
		rec := do(t, srv, http.MethodPost, "/api/v1/valuation/batch", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

// ════════════════════════════════════════════════════════════════════
// Report
// ════════════════════════════════════════════════════════════════════

func TestReportFormats(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"", "text/plain; charset=utf-8", "테스트005930 (005930) 적정주가 분석"},
		{"md", "text/markdown; charset=utf-8", "# 테스트005930 (005930) 적정주가 분석"},
		{"html", "text/html; charset=utf-8", "<!DOCTYPE html>"},
		{"yaml", "application/yaml; charset=utf-8", "fair_value: 75000"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/v1/report/005930?format="+tt.format, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Query-ID"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestReportJSON(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/report/005930?format=json&rrr=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc report.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.Equal(t, rec.Header().Get("X-Query-ID"), doc.QueryID)
	assert.Equal(t, 10.0, doc.RequiredReturn)
}

func TestReportErrors(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/report/005930?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/report/005930?basis=weekly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/report/999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ════════════════════════════════════════════════════════════════════
// Config
// ════════════════════════════════════════════════════════════════════

func TestGetConfig(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConfigResponse
	decode(t, rec, &resp)
	assert.Equal(t, "/etc/krxvalue/config.yaml", resp.ConfigFile)
	assert.Equal(t, 8.0, resp.Config.Valuation.RequiredReturn)
	assert.Equal(t, "annual", resp.Config.Valuation.Basis)
	assert.Equal(t, 8080, resp.Config.API.Port)
}

func TestUpdateConfigChangesDefaults(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPut, "/api/v1/config", `{"required_return":10,"average_periods":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConfigResponse
	decode(t, rec, &resp)
	assert.Equal(t, 10.0, resp.Config.Valuation.RequiredReturn)
	assert.Equal(t, 2, resp.Config.Valuation.AveragePeriods)
	assert.Equal(t, "annual", resp.Config.Valuation.Basis, "unset fields are kept")

	rec = do(t, srv, http.MethodGet, "/api/v1/valuation/005930", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc report.Document
	decode(t, rec, &doc)
	assert.Equal(t, 10.0, doc.RequiredReturn)
	assert.Equal(t, 2, doc.AveragePeriods)
	// mean(12, 14) = 13; V = 50,000 + 50,000 × 3/10
	assert.InDelta(t, 65000, doc.Valuations[0].FairValue, 1e-6)
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	srv := testServer(t)
	for _, body := range []string{`{"required_return":500}`, `{"basis":"monthly"}`, `{"average_periods":-1}`, `[`} {
		rec := do(t, srv, http.MethodPut, "/api/v1/config", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	assert.Equal(t, 8.0, srv.configSnapshot().Config.Valuation.RequiredReturn)
	assert.Equal(t, 3, srv.configSnapshot().Config.Valuation.AveragePeriods)
}

// ════════════════════════════════════════════════════════════════════
// Middleware and error mapping
// ════════════════════════════════════════════════════════════════════

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/valuation/005930", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/valuation/005930", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, testServer(t), http.MethodGet, "/api/v1/analyze", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("x: %w", datasource.ErrTickerNotFound), http.StatusNotFound},
		{"no tickers", engine.ErrNoTickers, http.StatusBadRequest},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"rate limited", datasource.ErrRateLimited, http.StatusBadGateway},
		{"upstream status", fmt.Errorf("naver: %w", &datasource.ErrHTTP{StatusCode: 503, Status: "503 Service Unavailable"}), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeFetchError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			env := decode(t, rec, nil)
			assert.False(t, env.Success)
			assert.Equal(t, tt.err.Error(), env.Error)
		})
	}
}
