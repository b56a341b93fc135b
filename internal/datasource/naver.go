package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/krxvalue/internal/statement"
	"github.com/seenimoa/krxvalue/pkg/models"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

const (
	naverBaseURL    = "https://finance.naver.com"
	naverPollingURL = "https://polling.finance.naver.com"

	// NaverStatementSelector locates the "기업실적분석" summary table.
	NaverStatementSelector = "div.section.cop_analysis > div.sub_section > table"

	noOverview = "기업 개요 정보 없음"
)

// Naver implements the DataSource interface by scraping the Naver Finance
// item page and reading its realtime polling API.
type Naver struct {
	settings
	pages     *Cache[*goquery.Document]
	pageCalls singleflight.Group // one in-flight main-page fetch per code
	quotes    *Cache[*models.Quote]
	extractor *statement.Extractor
}

// NewNaver creates a new Naver Finance data source.
func NewNaver(opts ...Option) *Naver {
	s := newSettings(naverBaseURL, naverPollingURL, opts)
	return &Naver{
		settings:  s,
		pages:     NewCache[*goquery.Document](s.cacheTTL),
		quotes:    NewCache[*models.Quote](s.cacheTTL),
		extractor: statement.NewExtractor(statement.DefaultLayout(), statement.StrategyContiguous),
	}
}

// Name returns the data source name.
func (n *Naver) Name() string { return "Naver Finance" }

// --- Public methods ---

// GetFinancials reads the main-page summary table: the three latest
// realized years and the latest realized quarter.
func (n *Naver) GetFinancials(ctx context.Context, ticker string) (models.FinancialSeries, error) {
	code, err := krxCode(ticker)
	if err != nil {
		return models.FinancialSeries{}, err
	}

	doc, err := n.mainPage(ctx, code)
	if err != nil {
		return models.FinancialSeries{}, err
	}

	tbl, err := statement.FindTable(doc, NaverStatementSelector)
	if err != nil {
		return models.FinancialSeries{}, fmt.Errorf("naver %s: %w", code, err)
	}
	annual, quarterly, err := n.extractor.Extract(tbl)
	if err != nil {
		return models.FinancialSeries{}, fmt.Errorf("naver %s: %w", code, err)
	}

	return models.FinancialSeries{Ticker: code, Annual: annual, Quarterly: quarterly}, nil
}

// GetQuote returns the latest price from the polling API and the share count
// from the main page. The main-page price is used when the API is down.
func (n *Naver) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	code, err := krxCode(ticker)
	if err != nil {
		return nil, err
	}

	if cached, ok := n.quotes.Get(code); ok {
		cp := *cached
		return &cp, nil
	}

	q, pollErr := n.pollQuote(ctx, code)
	if pollErr != nil {
		log.Debug().Err(pollErr).Str("source", n.Name()).Str("ticker", code).Msg("polling quote failed, using main page")
		q = &models.Quote{Ticker: code, Timestamp: utils.NowKST()}
	}

	doc, err := n.mainPage(ctx, code)
	if err != nil {
		if pollErr != nil {
			return nil, fmt.Errorf("naver quote %s: %w", code, err)
		}
		log.Debug().Err(err).Str("source", n.Name()).Str("ticker", code).Msg("main page unavailable, quote has no share count")
	} else {
		parseMainPageQuote(doc, q)
	}

	if !q.HasPrice() {
		return nil, fmt.Errorf("naver quote %s: no price: %w", code, ErrTickerNotFound)
	}
	if q.SharesOutstanding > 0 {
		q.MarketCap = q.LastPrice * float64(q.SharesOutstanding)
	}

	cp := *q
	n.quotes.Set(code, &cp)
	return q, nil
}

// GetOverview returns the "기업개요" paragraphs of the main page.
func (n *Naver) GetOverview(ctx context.Context, ticker string) (string, error) {
	code, err := krxCode(ticker)
	if err != nil {
		return "", err
	}

	doc, err := n.mainPage(ctx, code)
	if err != nil {
		return "", err
	}

	var parts []string
	doc.Find("#summary_info p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return noOverview, nil
	}
	return strings.Join(parts, "\n"), nil
}

// --- Internal helpers ---

// mainPage fetches (or reuses) the item main page. Concurrent callers for
// the same code share one request.
func (n *Naver) mainPage(ctx context.Context, code string) (*goquery.Document, error) {
	if doc, ok := n.pages.Get(code); ok {
		return doc, nil
	}

	v, err, _ := n.pageCalls.Do(code, func() (interface{}, error) {
		// A flight that finished just before this one started has filled the cache.
		if doc, ok := n.pages.Get(code); ok {
			return doc, nil
		}

		url := fmt.Sprintf("%s/item/main.naver?code=%s", n.baseURL, code)
		doc, err := n.getDocument(ctx, url)
		if err != nil {
			return nil, err
		}

		// Unknown codes get a 200 error page without the company header.
		if doc.Find("div.wrap_company").Length() == 0 {
			return nil, fmt.Errorf("naver %s: %w", code, ErrTickerNotFound)
		}

		n.pages.Set(code, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*goquery.Document), nil
}

// pollQuote reads the realtime polling API.
func (n *Naver) pollQuote(ctx context.Context, code string) (*models.Quote, error) {
	url := fmt.Sprintf("%s/api/realtime/domestic/stock/%s", n.apiURL, code)
	body, err := n.get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("naver polling %s: invalid JSON", code)
	}

	data := gjson.GetBytes(body, "datas.0")
	if !data.Exists() {
		return nil, fmt.Errorf("naver polling %s: %w", code, ErrTickerNotFound)
	}

	price, ok := statement.ParseNumber(data.Get("closePrice").String())
	if !ok || price <= 0 {
		return nil, fmt.Errorf("naver polling %s: no close price", code)
	}

	q := &models.Quote{
		Ticker:    code,
		Name:      data.Get("stockName").String(),
		LastPrice: price,
		Timestamp: utils.NowKST(),
	}
	if change, ok := statement.ParseNumber(data.Get("compareToPreviousClosePrice").String()); ok {
		// Some responses carry an unsigned change; the direction is in the price code.
		if dir := data.Get("compareToPreviousPrice.name").String(); dir == "FALLING" || dir == "LOWER_LIMIT" {
			if change > 0 {
				change = -change
			}
		}
		q.PrevClose = price - change
	}
	if pct, ok := statement.ParseNumber(data.Get("fluctuationsRatio").String()); ok {
		q.ChangePct = pct
	}
	if ts, err := time.Parse(time.RFC3339, data.Get("localTradedAt").String()); err == nil {
		q.Timestamp = ts
	}
	return q, nil
}

// parseMainPageQuote fills the name, share count and (when missing) the price
// from the main page.
func parseMainPageQuote(doc *goquery.Document, q *models.Quote) {
	if q.Name == "" {
		q.Name = strings.TrimSpace(doc.Find("div.wrap_company h2 a").First().Text())
	}
	if !q.HasPrice() {
		if v, ok := statement.ParseNumber(doc.Find("p.no_today span.blind").First().Text()); ok {
			q.LastPrice = v
		}
	}
	doc.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if !strings.Contains(th.Text(), "상장주식수") {
			return true
		}
		if v, ok := statement.ParseNumber(th.Next().Text()); ok {
			q.SharesOutstanding = int64(v)
		}
		return false
	})
}

// krxCode normalizes and validates a ticker.
func krxCode(ticker string) (string, error) {
	code := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(code) {
		return "", fmt.Errorf("%q: %w", ticker, ErrTickerNotFound)
	}
	return code, nil
}
