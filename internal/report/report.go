// Package report renders a fundamental.Analysis as a research report: plain
// text for terminals, markdown, a self-contained HTML page with inline SVG
// charts, and JSON or YAML documents for machines.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/pkg/models"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Formats and options
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// AllFormats returns every supported format.
func AllFormats() []Format {
	return []Format{FormatText, FormatMarkdown, FormatHTML, FormatJSON, FormatYAML}
}

// ParseFormat parses a format name; the empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// ContentType returns the HTTP content type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Options controls report generation.
type Options struct {
	Title    string      // custom report title (optional)
	Author   string      // author line (optional)
	Charts   bool        // embed SVG charts in HTML
	ChartCfg ChartConfig // chart rendering config
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Author:   "krxvalue",
		Charts:   true,
		ChartCfg: DefaultChartConfig(),
	}
}

// ════════════════════════════════════════════════════════════════════
// Financial highlight table
// ════════════════════════════════════════════════════════════════════

// HighlightItem is one row of the financial highlight table.
type HighlightItem struct {
	Label  string
	Key    models.MetricKey
	Amount bool // 억원 or 원: rendered without decimals
}

// HighlightItems lists the highlight rows in display order.
var HighlightItems = []HighlightItem{
	{"매출액(억)", models.MetricRevenue, true},
	{"영업이익(억)", models.MetricOperatingIncome, true},
	{"순이익(억)", models.MetricNetIncome, true},
	{"ROE(%)", models.MetricROE, false},
	{"부채비율(%)", models.MetricDebtRatio, false},
	{"BPS(원)", models.MetricBPS, true},
	{"PER(배)", models.MetricPER, false},
	{"PBR(배)", models.MetricPBR, false},
	{"PSR(배)", models.MetricPSR, false},
}

// latestQuarterLabel heads the latest quarter column.
const latestQuarterLabel = "최근분기"

// formatCell renders a metric value. Absent metrics show as 0.
func formatCell(r models.PeriodRecord, it HighlightItem) string {
	v := r.Value(it.Key)
	if it.Amount {
		return utils.FormatNumber(v, 0)
	}
	return utils.FormatNumber(v, 2)
}

// ════════════════════════════════════════════════════════════════════
// Report Data — Flattened for rendering
// ════════════════════════════════════════════════════════════════════

// Data is the view model shared by the text, markdown and HTML renderers.
type Data struct {
	// Header
	Title       string
	QueryID     string
	Ticker      string
	CompanyName string
	Overview    string
	Author      string
	GeneratedAt string // KST formatted

	// Quote
	LastPrice string
	MarketCap string
	HasPrice  bool

	// Highlights
	Columns       []string
	Rows          []TableRow
	HasFinancials bool
	Summary       string

	// Valuation
	Basis          string
	RequiredReturn string
	BPS            string
	BPSDate        string
	Valuations     []ValuationRow
	GrahamNumber   string

	// Charts (embedded SVG strings)
	FairValueChart template.HTML
	ROEChart       template.HTML
}

// TableRow is one label with its per-column values.
type TableRow struct {
	Label  string
	Values []string
}

// ValuationRow is the display form of one valuation mode.
type ValuationRow struct {
	Title        string
	FairValue    string
	AppliedROE   string
	Observations string // "2021.12 13.92%, 2022.12 17.07%"
	Verdict      string
	VerdictClass string // CSS class: under, over, none
	Message      string
}

// Build flattens an analysis into the report view model.
func Build(a *fundamental.Analysis, opts Options) Data {
	d := Data{
		Title:          opts.Title,
		QueryID:        a.QueryID,
		Ticker:         a.Ticker,
		CompanyName:    a.Name,
		Overview:       a.Overview,
		Author:         opts.Author,
		GeneratedAt:    utils.FormatDateTimeKST(a.GeneratedAt),
		HasPrice:       a.Price > 0,
		Basis:          basisLabel(a.Basis),
		RequiredReturn: fmt.Sprintf("%g%%", a.RequiredReturn),
		HasFinancials:  len(a.Financials.Annual) > 0,
	}
	if d.Title == "" {
		d.Title = fmt.Sprintf("%s (%s) 적정주가 분석", a.Name, a.Ticker)
	}
	if d.HasPrice {
		d.LastPrice = utils.FormatKRW(a.Price)
	}
	if a.MarketCap > 0 {
		d.MarketCap = utils.FormatNumber(utils.ToEok(a.MarketCap), 0) + " 억원"
	}

	if d.HasFinancials {
		d.Columns, d.Rows = highlightTable(a.Financials)
		d.Summary = strings.TrimSpace(fundamental.FormatFinancialSummary(a.Financials, a.Growth, a.Health))
	}

	for _, v := range a.Valuations {
		if d.BPSDate == "" && v.BPSDate != "" {
			d.BPSDate = v.BPSDate
			d.BPS = utils.FormatKRW(v.Input.BookValuePerShare)
		}
		d.Valuations = append(d.Valuations, valuationRow(v, a.Price, a.AveragePeriods))
	}
	if a.GrahamNumber > 0 {
		d.GrahamNumber = utils.FormatKRW(a.GrahamNumber)
	}

	if opts.Charts {
		periods := a.Financials.Annual
		if a.Basis == fundamental.BasisQuarterly {
			periods = a.Financials.Quarterly
		}
		cfg := opts.ChartCfg
		d.ROEChart = template.HTML(ROETrendChart(periods, a.RequiredReturn, cfg))
		if d.HasPrice {
			d.FairValueChart = template.HTML(FairValueChart(a.Price, a.Valuations, a.AveragePeriods, cfg))
		}
	}
	return d
}

// highlightTable lays out the annual periods plus the latest quarter.
func highlightTable(s models.FinancialSeries) ([]string, []TableRow) {
	cols := []string{"구분"}
	for _, r := range s.Annual {
		cols = append(cols, r.Date)
	}
	quarter, hasQuarter := s.LatestQuarter()
	if hasQuarter {
		cols = append(cols, latestQuarterLabel)
	}

	rows := make([]TableRow, 0, len(HighlightItems))
	for _, it := range HighlightItems {
		row := TableRow{Label: it.Label}
		for _, r := range s.Annual {
			row.Values = append(row.Values, formatCell(r, it))
		}
		if hasQuarter {
			row.Values = append(row.Values, formatCell(quarter, it))
		}
		rows = append(rows, row)
	}
	return cols, rows
}

func valuationRow(v fundamental.ModeResult, price float64, n int) ValuationRow {
	row := ValuationRow{
		Title:        v.Mode.Title(n),
		FairValue:    utils.FormatKRW(v.Result.FairValue),
		AppliedROE:   fmt.Sprintf("%.2f%%", v.Input.AppliedROE),
		Observations: observations(v.Observations),
		Verdict:      v.Result.Verdict.Label(),
	}

	switch v.Result.Verdict {
	case fundamental.VerdictUndervalued, fundamental.VerdictOvervalued:
		row.VerdictClass = "under"
		if v.Result.Verdict == fundamental.VerdictOvervalued {
			row.VerdictClass = "over"
		}
		dev := 0.0
		if v.Result.DeviationPct != nil {
			dev = *v.Result.DeviationPct
		}
		if dev < 0 {
			dev = -dev
		}
		row.Message = fmt.Sprintf("현재가(%s)는 적정주가(%s) 대비 %.1f%% %s 상태입니다.",
			utils.FormatKRW(price), row.FairValue, dev, row.Verdict)
	default:
		row.VerdictClass = "none"
		row.Message = "적정주가를 산출할 수 없습니다."
	}
	return row
}

func observations(obs []fundamental.ROEObservation) string {
	if len(obs) == 0 {
		return "없음"
	}
	parts := make([]string, len(obs))
	for i, o := range obs {
		parts[i] = fmt.Sprintf("%s %.2f%%", o.Date, o.ROE)
	}
	return strings.Join(parts, ", ")
}

func basisLabel(b fundamental.Basis) string {
	if b == fundamental.BasisQuarterly {
		return "분기"
	}
	return "연간"
}

// ════════════════════════════════════════════════════════════════════
// Generate
// ════════════════════════════════════════════════════════════════════

// Render writes the analysis in the given format to w.
func Render(w io.Writer, a *fundamental.Analysis, f Format, opts Options) error {
	if a == nil {
		return fmt.Errorf("analysis is nil")
	}

	switch f {
	case FormatText:
		_, err := io.WriteString(w, renderText(Build(a, opts)))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, renderMarkdown(Build(a, opts)))
		return err
	case FormatHTML:
		return renderHTML(w, Build(a, opts))
	case FormatJSON, FormatYAML:
		return encodeDoc(w, NewDocument(a), f)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// Generate renders the analysis into a string.
func Generate(a *fundamental.Analysis, f Format, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, a, f, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderText(d Data) string {
	var sb strings.Builder
	line := strings.Repeat("═", 64)
	thinLine := strings.Repeat("─", 64)

	sb.WriteString("\n" + line + "\n")
	fmt.Fprintf(&sb, "  %s\n", d.Title)
	fmt.Fprintf(&sb, "  기준: %s | %s\n", d.GeneratedAt, d.Author)
	sb.WriteString(line + "\n")

	if d.HasPrice {
		fmt.Fprintf(&sb, "  현재주가: %s", d.LastPrice)
		if d.MarketCap != "" {
			fmt.Fprintf(&sb, " | 시가총액: %s", d.MarketCap)
		}
		sb.WriteString("\n" + thinLine + "\n")
	}

	if d.Overview != "" {
		sb.WriteString("\n  ■ 기업 개요\n")
		for _, l := range strings.Split(d.Overview, "\n") {
			fmt.Fprintf(&sb, "  %s\n", l)
		}
		sb.WriteString(thinLine + "\n")
	}

	if !d.HasFinancials {
		sb.WriteString("\n  재무 데이터를 불러올 수 없어 분석할 수 없습니다.\n")
		sb.WriteString(line + "\n")
		return sb.String()
	}

	sb.WriteString("\n  ■ 재무 하이라이트\n")
	sb.WriteString(textTable(d.Columns, d.Rows))
	if d.Summary != "" {
		sb.WriteString("\n")
		for _, l := range strings.Split(d.Summary, "\n") {
			fmt.Fprintf(&sb, "  %s\n", l)
		}
	}
	sb.WriteString(thinLine + "\n")

	fmt.Fprintf(&sb, "\n  ■ 적정주가 분석 (S-RIM, %s 기준)\n", d.Basis)
	for _, v := range d.Valuations {
		fmt.Fprintf(&sb, "\n  [%s]\n", v.Title)
		fmt.Fprintf(&sb, "    적정주가: %-16s 적용 ROE: %s\n", v.FairValue, v.AppliedROE)
		fmt.Fprintf(&sb, "    %s\n", v.Message)
	}
	sb.WriteString(thinLine + "\n")

	sb.WriteString("\n  ■ 산출 근거\n")
	sb.WriteString("    적정주가 = BPS + (BPS × (ROE - 요구수익률) / 요구수익률)\n")
	fmt.Fprintf(&sb, "    BPS: %s (%s)\n", d.BPS, d.BPSDate)
	fmt.Fprintf(&sb, "    요구수익률: %s\n", d.RequiredReturn)
	for _, v := range d.Valuations {
		fmt.Fprintf(&sb, "    %s: %s\n", v.Title, v.Observations)
	}
	if d.GrahamNumber != "" {
		fmt.Fprintf(&sb, "    참고 Graham Number: %s\n", d.GrahamNumber)
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  본 자료는 투자 판단의 참고용이며 투자 권유가 아닙니다.\n")
	sb.WriteString(line + "\n")
	return sb.String()
}

// textTable right-aligns the value columns by display width.
func textTable(cols []string, rows []TableRow) string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = displayWidth(c)
	}
	for _, r := range rows {
		widths[0] = max(widths[0], displayWidth(r.Label))
		for i, v := range r.Values {
			widths[i+1] = max(widths[i+1], displayWidth(v))
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("  ")
		for i, c := range cells {
			pad := strings.Repeat(" ", widths[i]-displayWidth(c))
			if i == 0 {
				sb.WriteString(c + pad)
			} else {
				sb.WriteString("  " + pad + c)
			}
		}
		sb.WriteString("\n")
	}
	writeRow(cols)
	for _, r := range rows {
		writeRow(append([]string{r.Label}, r.Values...))
	}
	return sb.String()
}

// displayWidth counts Hangul and other wide runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r >= 0x1100 && (r <= 0x115F || (r >= 0x2E80 && r <= 0xA4CF) || (r >= 0xAC00 && r <= 0xD7A3) || (r >= 0xF900 && r <= 0xFAFF) || (r >= 0xFF00 && r <= 0xFF60)) {
			w += 2
			continue
		}
		w++
	}
	return w
}

// ════════════════════════════════════════════════════════════════════
// Markdown renderer
// ════════════════════════════════════════════════════════════════════

func renderMarkdown(d Data) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Title)
	fmt.Fprintf(&sb, "_기준: %s · %s_\n\n", d.GeneratedAt, d.Author)

	if d.HasPrice {
		fmt.Fprintf(&sb, "- **현재주가**: %s\n", d.LastPrice)
		if d.MarketCap != "" {
			fmt.Fprintf(&sb, "- **시가총액**: %s\n", d.MarketCap)
		}
		sb.WriteString("\n")
	}
	if d.Overview != "" {
		sb.WriteString("## 기업 개요\n\n")
		sb.WriteString(d.Overview + "\n\n")
	}
	if !d.HasFinancials {
		sb.WriteString("> 재무 데이터를 불러올 수 없어 분석할 수 없습니다.\n")
		return sb.String()
	}

	sb.WriteString("## 📊 재무 하이라이트\n\n")
	sb.WriteString(markdownTable(d.Columns, d.Rows))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## 💰 적정주가 분석 (S-RIM, %s 기준)\n\n", d.Basis)
	for _, v := range d.Valuations {
		fmt.Fprintf(&sb, "### %s\n\n", v.Title)
		fmt.Fprintf(&sb, "- 적정주가: **%s**\n", v.FairValue)
		fmt.Fprintf(&sb, "- 적용 ROE: %s\n\n", v.AppliedROE)
		fmt.Fprintf(&sb, "%s\n\n", v.Message)
	}

	sb.WriteString("## 🧮 산출 근거\n\n")
	sb.WriteString("> `적정주가 = BPS + (BPS × (ROE - 요구수익률) / 요구수익률)`\n\n")
	fmt.Fprintf(&sb, "* **BPS**: %s (%s)\n", d.BPS, d.BPSDate)
	fmt.Fprintf(&sb, "* **요구수익률**: %s\n", d.RequiredReturn)
	for _, v := range d.Valuations {
		fmt.Fprintf(&sb, "* **%s**: %s\n", v.Title, v.Observations)
	}
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// HTML renderer
// ════════════════════════════════════════════════════════════════════

var htmlTemplate = template.Must(template.New("report").Parse(ReportTemplate))

func renderHTML(w io.Writer, d Data) error {
	if err := htmlTemplate.Execute(w, d); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	return nil
}
