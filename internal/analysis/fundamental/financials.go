package fundamental

import (
	"fmt"
	"strings"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// Growth holds year-over-year changes between the two latest annual periods.
// A rate is nil when either period lacks the metric or the base is zero.
type Growth struct {
	From               string   `json:"from,omitempty"`
	To                 string   `json:"to,omitempty"`
	RevenueYoY         *float64 `json:"revenue_yoy,omitempty"`
	OperatingIncomeYoY *float64 `json:"operating_income_yoy,omitempty"`
	NetIncomeYoY       *float64 `json:"net_income_yoy,omitempty"`
}

// ComputeGrowth compares the last two annual records of s.
func ComputeGrowth(s models.FinancialSeries) Growth {
	var g Growth
	if len(s.Annual) < 2 {
		return g
	}
	prev, curr := s.Annual[len(s.Annual)-2], s.Annual[len(s.Annual)-1]
	g.From, g.To = prev.Date, curr.Date
	g.RevenueYoY = yoy(prev, curr, models.MetricRevenue)
	g.OperatingIncomeYoY = yoy(prev, curr, models.MetricOperatingIncome)
	g.NetIncomeYoY = yoy(prev, curr, models.MetricNetIncome)
	return g
}

// yoy divides by the absolute base; a move from loss to profit is positive.
func yoy(prev, curr models.PeriodRecord, k models.MetricKey) *float64 {
	p, ok1 := prev.Get(k)
	c, ok2 := curr.Get(k)
	if !ok1 || !ok2 || p == 0 {
		return nil
	}
	base := p
	if base < 0 {
		base = -base
	}
	v := (c - p) / base * 100
	return &v
}

// FinancialHealth scores the robustness of a company from its latest annual
// record.
type FinancialHealth struct {
	Score      float64            `json:"score"` // 0-100
	Grade      string             `json:"grade"` // "A+", "A", "B+", "B", "C", "D"
	Strengths  []string           `json:"strengths,omitempty"`
	Weaknesses []string           `json:"weaknesses,omitempty"`
	Components map[string]float64 `json:"components"`
}

// AssessFinancialHealth evaluates profitability, solvency and growth.
// Components whose metrics are absent score zero without a remark.
func AssessFinancialHealth(s models.FinancialSeries) FinancialHealth {
	h := FinancialHealth{Components: make(map[string]float64)}
	latest, ok := s.LatestAnnual()
	if !ok {
		h.Grade = grade(0)
		return h
	}

	// Profitability (40 points).
	prof := 0.0
	if roe, ok := latest.Get(models.MetricROE); ok {
		switch {
		case roe > 15:
			prof += 20
			h.Strengths = append(h.Strengths, fmt.Sprintf("높은 ROE: %.1f%%", roe))
		case roe > 8:
			prof += 12
		case roe > 0:
			prof += 5
		default:
			h.Weaknesses = append(h.Weaknesses, "ROE 0 이하")
		}
	}
	if opm, ok := latest.Get(models.MetricOperatingMargin); ok {
		switch {
		case opm > 15:
			prof += 20
			h.Strengths = append(h.Strengths, fmt.Sprintf("높은 영업이익률: %.1f%%", opm))
		case opm > 5:
			prof += 12
		case opm > 0:
			prof += 5
		default:
			h.Weaknesses = append(h.Weaknesses, "영업적자")
		}
	}
	h.Components["profitability"] = prof

	// Solvency (30 points).
	solv := 0.0
	if dr, ok := latest.Get(models.MetricDebtRatio); ok {
		switch {
		case dr < 50:
			solv += 20
			h.Strengths = append(h.Strengths, fmt.Sprintf("낮은 부채비율: %.1f%%", dr))
		case dr < 100:
			solv += 14
		case dr < 200:
			solv += 6
		default:
			h.Weaknesses = append(h.Weaknesses, fmt.Sprintf("높은 부채비율: %.1f%%", dr))
		}
	}
	if qr, ok := latest.Get(models.MetricQuickRatio); ok {
		switch {
		case qr > 150:
			solv += 10
		case qr > 100:
			solv += 6
		default:
			h.Weaknesses = append(h.Weaknesses, fmt.Sprintf("낮은 당좌비율: %.1f%%", qr))
		}
	}
	h.Components["solvency"] = solv

	// Growth (30 points).
	gs := 0.0
	g := ComputeGrowth(s)
	if g.RevenueYoY != nil {
		switch {
		case *g.RevenueYoY > 10:
			gs += 15
			h.Strengths = append(h.Strengths, fmt.Sprintf("매출 성장: %.1f%% YoY", *g.RevenueYoY))
		case *g.RevenueYoY > 0:
			gs += 8
		default:
			h.Weaknesses = append(h.Weaknesses, "매출 감소")
		}
	}
	if g.OperatingIncomeYoY != nil {
		switch {
		case *g.OperatingIncomeYoY > 10:
			gs += 15
		case *g.OperatingIncomeYoY > 0:
			gs += 8
		default:
			h.Weaknesses = append(h.Weaknesses, "영업이익 감소")
		}
	}
	h.Components["growth"] = gs

	h.Score = prof + solv + gs
	h.Grade = grade(h.Score)
	return h
}

func grade(score float64) string {
	switch {
	case score >= 85:
		return "A+"
	case score >= 70:
		return "A"
	case score >= 55:
		return "B+"
	case score >= 40:
		return "B"
	case score >= 25:
		return "C"
	default:
		return "D"
	}
}

// FormatFinancialSummary generates a readable summary of the latest figures.
func FormatFinancialSummary(s models.FinancialSeries, growth Growth, health FinancialHealth) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Financial Health: %s (%.0f/100)\n", health.Grade, health.Score))
	if latest, ok := s.LatestAnnual(); ok {
		b.WriteString(fmt.Sprintf("[%s] PER: %.2f | PBR: %.2f | ROE: %.2f%% | 부채비율: %.2f%%\n",
			latest.Date,
			latest.Value(models.MetricPER), latest.Value(models.MetricPBR),
			latest.Value(models.MetricROE), latest.Value(models.MetricDebtRatio)))
	}
	if growth.RevenueYoY != nil || growth.OperatingIncomeYoY != nil {
		b.WriteString(fmt.Sprintf("매출 YoY: %s | 영업이익 YoY: %s (%s → %s)\n",
			pctOrNA(growth.RevenueYoY), pctOrNA(growth.OperatingIncomeYoY), growth.From, growth.To))
	}

	if len(health.Strengths) > 0 {
		b.WriteString("Strengths: ")
		b.WriteString(strings.Join(health.Strengths, "; "))
		b.WriteString("\n")
	}
	if len(health.Weaknesses) > 0 {
		b.WriteString("Weaknesses: ")
		b.WriteString(strings.Join(health.Weaknesses, "; "))
		b.WriteString("\n")
	}

	return b.String()
}

func pctOrNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
