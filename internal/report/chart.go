package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/pkg/models"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Inline SVG charts for the HTML report
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 720)
	Height       int    // SVG height in pixels (default: 320)
	MarginTop    int    // top margin
	MarginRight  int    // right margin
	MarginBottom int    // bottom margin
	MarginLeft   int    // left margin
	BgColor      string // background color
	GridColor    string // grid line color
	TextColor    string // axis label color
	FontSize     int    // axis label font size
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        720,
		Height:       320,
		MarginTop:    40,
		MarginRight:  40,
		MarginBottom: 40,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// ROE trend
// ════════════════════════════════════════════════════════════════════

// ROETrendChart plots the ROE of each period against the required return K.
// Periods without ROE leave a gap in the line.
func ROETrendChart(periods []models.PeriodRecord, k float64, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.Title == "" {
		cfg.Title = "ROE vs 요구수익률"
	}

	roe := make([]float64, len(periods))
	labels := make([]string, len(periods))
	present := 0
	for i, p := range periods {
		labels[i] = p.Date
		roe[i] = math.NaN()
		if v, ok := p.Get(models.MetricROE); ok {
			roe[i] = v
			present++
		}
	}
	if present == 0 {
		return emptySVG(cfg, "ROE 데이터 없음")
	}

	required := make([]float64, len(periods))
	for i := range required {
		required[i] = k
	}

	return lineChart([]chartSeries{
		{Name: "ROE(%)", Values: roe, Color: "#2563eb"},
		{Name: fmt.Sprintf("K %.1f%%", k), Values: required, Color: "#dc2626", Dashed: true},
	}, labels, cfg)
}

// chartSeries is one named line.
type chartSeries struct {
	Name   string
	Values []float64 // NaN = gap
	Color  string
	Dashed bool
}

func lineChart(series []chartSeries, labels []string, cfg ChartConfig) string {
	px, py, pw, ph := cfg.plotArea()

	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	n := 0
	for _, s := range series {
		n = max(n, len(s.Values))
		for _, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if n == 0 || minVal > maxVal {
		return emptySVG(cfg, "데이터 없음")
	}

	vRange := maxVal - minVal
	if vRange < 0.001 {
		vRange = 1
	}
	minVal -= vRange * 0.1
	maxVal += vRange * 0.1
	vRange = maxVal - minVal

	// x position of point i; a single point sits in the middle.
	xAt := func(i int) float64 {
		if n == 1 {
			return float64(px) + float64(pw)/2
		}
		return float64(px) + float64(i)*float64(pw)/float64(n-1)
	}
	yAt := func(v float64) float64 {
		return float64(py+ph) - (v-minVal)/vRange*float64(ph)
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, cfg.Width, cfg.Height, cfg.BgColor)
	fmt.Fprintf(&sb, `<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))

	const gridLines = 4
	for i := 0; i <= gridLines; i++ {
		val := minVal + vRange*float64(i)/gridLines
		y := yAt(val)
		fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor)
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%.1f</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, val)
	}

	for si, s := range series {
		var path []string
		for i, v := range s.Values {
			if math.IsNaN(v) {
				path = append(path, "") // break the line
				continue
			}
			cmd := "L"
			if len(path) == 0 || path[len(path)-1] == "" {
				cmd = "M"
			}
			path = append(path, fmt.Sprintf("%s%.1f,%.1f", cmd, xAt(i), yAt(v)))
			if !s.Dashed {
				fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`, xAt(i), yAt(v), s.Color)
			}
		}
		dash := ""
		if s.Dashed {
			dash = ` stroke-dasharray="6,4"`
		}
		fmt.Fprintf(&sb, `<path d="%s" fill="none" stroke="%s" stroke-width="2"%s/>`,
			strings.Join(strings.Fields(strings.Join(path, " ")), " "), s.Color, dash)

		ly := py + 10 + si*16
		fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"%s/>`,
			px+10, ly, px+30, ly, s.Color, dash)
		fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, cfg.TextColor, escapeXML(s.Name))
	}

	for i := 0; i < len(labels) && i < n; i++ {
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			xAt(i), py+ph+18, cfg.FontSize-1, cfg.TextColor, escapeXML(labels[i]))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Price vs fair value
// ════════════════════════════════════════════════════════════════════

// barItem is a single bar in a horizontal bar chart.
type barItem struct {
	Label string
	Value float64
	Color string
}

// FairValueChart compares the current price with the fair value of each
// valuation mode. Undetermined fair values are drawn as empty bars.
func FairValueChart(price float64, valuations []fundamental.ModeResult, n int, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.Title == "" {
		cfg.Title = "현재가 vs 적정주가"
	}
	cfg.Height = cfg.MarginTop + cfg.MarginBottom + 40*(len(valuations)+1)

	items := []barItem{{Label: "현재가", Value: price, Color: "#6b7280"}}
	for _, v := range valuations {
		color := "#16a34a"
		if v.Result.Verdict != fundamental.VerdictUndervalued {
			color = "#dc2626"
		}
		items = append(items, barItem{Label: v.Mode.Title(n), Value: v.Result.FairValue, Color: color})
	}
	return horizontalBarChart(items, cfg)
}

func horizontalBarChart(items []barItem, cfg ChartConfig) string {
	cfg.MarginLeft = 170 // wider for labels
	px, py, pw, ph := cfg.plotArea()

	maxVal := 0.0
	for _, item := range items {
		maxVal = math.Max(maxVal, item.Value)
	}
	if maxVal <= 0 {
		return emptySVG(cfg, "가격 정보 없음")
	}

	barH := math.Min(float64(ph)/float64(len(items))*0.7, 26)
	gap := (float64(ph) - barH*float64(len(items))) / float64(len(items)+1)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, cfg.Width, cfg.Height, cfg.BgColor)
	fmt.Fprintf(&sb, `<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))

	for i, item := range items {
		by := float64(py) + gap + float64(i)*(barH+gap)
		bw := math.Max(item.Value, 0) / maxVal * float64(pw) * 0.85

		fmt.Fprintf(&sb, `<rect x="%d" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			px, by, bw, barH, item.Color)
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, by+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(item.Label))

		value := "산출 불가"
		if item.Value > 0 {
			value = utils.FormatKRW(item.Value)
		}
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-size="%d" fill="%s">%s</text>`,
			float64(px)+bw+5, by+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(value))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
