package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/krxvalue/internal/analysis/fundamental"
	"github.com/seenimoa/krxvalue/pkg/models"
	"github.com/seenimoa/krxvalue/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Statement series
// ════════════════════════════════════════════════════════════════════

// FinancialsDoc is the document form of a resolved statement series.
type FinancialsDoc struct {
	Ticker    string      `json:"ticker"    yaml:"ticker"`
	Annual    []PeriodDoc `json:"annual"    yaml:"annual"`
	Quarterly []PeriodDoc `json:"quarterly" yaml:"quarterly"`
}

// NewFinancialsDoc converts a series into its document form.
func NewFinancialsDoc(s models.FinancialSeries) FinancialsDoc {
	return FinancialsDoc{
		Ticker:    s.Ticker,
		Annual:    PeriodDocs(s.Annual),
		Quarterly: PeriodDocs(s.Quarterly),
	}
}

// RenderFinancials writes every metric of a statement series. Text and
// markdown show one table per period kind with absent metrics as 0; JSON and
// YAML omit them.
func RenderFinancials(w io.Writer, s models.FinancialSeries, f Format) error {
	switch f {
	case FormatJSON, FormatYAML:
		return encodeDoc(w, NewFinancialsDoc(s), f)
	case FormatText, FormatMarkdown:
	default:
		return fmt.Errorf("format %q is not supported for financials", f)
	}

	if s.Empty() {
		_, err := io.WriteString(w, "재무 데이터를 불러올 수 없습니다.\n")
		return err
	}

	var sb strings.Builder
	for _, part := range []struct {
		title   string
		records []models.PeriodRecord
	}{
		{"연간", s.Annual},
		{"분기", s.Quarterly},
	} {
		if len(part.records) == 0 {
			continue
		}
		cols, rows := metricTable(part.records)
		if f == FormatMarkdown {
			fmt.Fprintf(&sb, "## %s %s\n\n", s.Ticker, part.title)
			sb.WriteString(markdownTable(cols, rows))
			sb.WriteString("\n")
			continue
		}
		fmt.Fprintf(&sb, "\n  ■ %s %s\n", s.Ticker, part.title)
		sb.WriteString(textTable(cols, rows))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// metricTable lays out every metric present in at least one record.
func metricTable(records []models.PeriodRecord) ([]string, []TableRow) {
	cols := []string{"항목"}
	present := map[models.MetricKey]bool{}
	for _, r := range records {
		cols = append(cols, r.Date)
		for _, k := range r.Keys() {
			present[k] = true
		}
	}

	var rows []TableRow
	for _, k := range models.AllMetricKeys() {
		if !present[k] {
			continue
		}
		row := TableRow{Label: string(k)}
		for _, r := range records {
			row.Values = append(row.Values, utils.FormatNumber(r.Value(k), 2))
		}
		rows = append(rows, row)
	}
	return cols, rows
}

// ════════════════════════════════════════════════════════════════════
// Batch summary
// ════════════════════════════════════════════════════════════════════

// BatchEntry is one ticker of a batch valuation.
type BatchEntry struct {
	Ticker   string
	Analysis *fundamental.Analysis // nil when the query failed
	Error    string
}

// BatchDoc is the document form of a BatchEntry.
type BatchDoc struct {
	Ticker    string    `json:"ticker"              yaml:"ticker"`
	Valuation *Document `json:"valuation,omitempty" yaml:"valuation,omitempty"`
	Error     string    `json:"error,omitempty"     yaml:"error,omitempty"`
}

// NewBatchDocs converts batch entries into their document form.
func NewBatchDocs(entries []BatchEntry) []BatchDoc {
	out := make([]BatchDoc, len(entries))
	for i, e := range entries {
		out[i] = BatchDoc{Ticker: e.Ticker, Error: e.Error}
		if e.Analysis != nil {
			doc := NewDocument(e.Analysis)
			out[i].Valuation = &doc
		}
	}
	return out
}

// RenderBatch writes a one-line-per-ticker summary of a batch valuation.
func RenderBatch(w io.Writer, entries []BatchEntry, f Format) error {
	switch f {
	case FormatJSON, FormatYAML:
		return encodeDoc(w, NewBatchDocs(entries), f)
	case FormatText, FormatMarkdown:
	default:
		return fmt.Errorf("format %q is not supported for batch results", f)
	}

	cols := []string{"종목", "현재가", "평균 ROE 적정가", "판정", "최근 ROE 적정가", "판정"}
	rows := make([]TableRow, 0, len(entries))
	for _, e := range entries {
		if e.Analysis == nil {
			rows = append(rows, TableRow{Label: e.Ticker, Values: []string{"-", "-", "오류", "-", e.Error}})
			continue
		}
		a := e.Analysis
		row := TableRow{Label: fmt.Sprintf("%s %s", a.Ticker, a.Name), Values: []string{utils.FormatKRW(a.Price)}}
		for _, m := range []fundamental.Mode{fundamental.ModeAverage, fundamental.ModeLatest} {
			v, ok := a.Valuation(m)
			if !ok || v.Result.Verdict == fundamental.VerdictUndetermined {
				row.Values = append(row.Values, "-", fundamental.VerdictUndetermined.Label())
				continue
			}
			row.Values = append(row.Values, utils.FormatKRW(v.Result.FairValue), v.Result.Verdict.Label())
		}
		rows = append(rows, row)
	}

	out := textTable(cols, rows)
	if f == FormatMarkdown {
		out = markdownTable(cols, rows)
	}
	_, err := io.WriteString(w, out)
	return err
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func markdownTable(cols []string, rows []TableRow) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	sb.WriteString("|---" + strings.Repeat("|---:", len(cols)-1) + "|\n")
	for _, r := range rows {
		sb.WriteString("| " + r.Label + " | " + strings.Join(r.Values, " | ") + " |\n")
	}
	return sb.String()
}

func encodeDoc(w io.Writer, v interface{}, f Format) error {
	if f == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
