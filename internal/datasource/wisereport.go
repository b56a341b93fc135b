package datasource

import (
	"context"
	"fmt"

	"github.com/seenimoa/krxvalue/internal/statement"
	"github.com/seenimoa/krxvalue/pkg/models"
)

const (
	wiseReportBaseURL = "https://navercomp.wisereport.co.kr"

	// WiseReportSummaryPath is the company summary page, formatted with the
	// stock code.
	WiseReportSummaryPath = "/v2/company/c1010001.aspx?cmp_cd=%s"

	// WiseReportStatementSelector locates the "Financial Summary" table.
	WiseReportStatementSelector = "#cTB26 table, table.gHead01"
)

// WiseReportLayout describes the company summary table: annual and quarterly
// blocks each followed by estimate columns, up to 5 years and 4 quarters.
func WiseReportLayout() statement.Layout {
	return statement.Layout{
		AnnualMarkers:     []string{"연간", "Annual"},
		QuarterlyMarkers:  []string{"분기", "Quarter"},
		EstimateMarker:    "(E)",
		DefaultAnnualSpan: 5,
		MaxAnnual:         5,
		MaxQuarterly:      4,
	}
}

// WiseReport implements the statement side of DataSource by scraping the
// WiseReport company summary that backs Naver's "종목분석" tab.
type WiseReport struct {
	settings
	path      string
	selector  string
	series    *Cache[models.FinancialSeries]
	extractor *statement.Extractor
}

// NewWiseReport creates a new WiseReport data source.
func NewWiseReport(opts ...Option) *WiseReport {
	s := newSettings(wiseReportBaseURL, "", opts)
	return &WiseReport{
		settings:  s,
		path:      WiseReportSummaryPath,
		selector:  WiseReportStatementSelector,
		series:    NewCache[models.FinancialSeries](s.cacheTTL),
		extractor: statement.NewExtractor(WiseReportLayout(), statement.StrategyGrouped),
	}
}

// Name returns the data source name.
func (w *WiseReport) Name() string { return "WiseReport" }

// GetFinancials reads the company summary table, classifying each column by
// the group header above it.
func (w *WiseReport) GetFinancials(ctx context.Context, ticker string) (models.FinancialSeries, error) {
	code, err := krxCode(ticker)
	if err != nil {
		return models.FinancialSeries{}, err
	}

	if cached, ok := w.series.Get(code); ok {
		return cached, nil
	}

	doc, err := w.getDocument(ctx, w.baseURL+fmt.Sprintf(w.path, code))
	if err != nil {
		return models.FinancialSeries{}, err
	}

	tbl, err := statement.FindTable(doc, w.selector)
	if err != nil {
		return models.FinancialSeries{}, fmt.Errorf("wisereport %s: %w", code, err)
	}
	annual, quarterly, err := w.extractor.Extract(tbl)
	if err != nil {
		return models.FinancialSeries{}, fmt.Errorf("wisereport %s: %w", code, err)
	}

	s := models.FinancialSeries{Ticker: code, Annual: annual, Quarterly: quarterly}
	w.series.Set(code, s)
	return s, nil
}

// GetQuote is not supported; prices come from Naver.
func (w *WiseReport) GetQuote(context.Context, string) (*models.Quote, error) {
	return nil, ErrNotSupported
}

// GetOverview is not supported; the overview comes from Naver.
func (w *WiseReport) GetOverview(context.Context, string) (string, error) {
	return "", ErrNotSupported
}
