package statement

import (
	"strings"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// Layout holds the markers and limits that describe a statement table shape.
type Layout struct {
	AnnualMarkers     []string // group header text of the annual block, e.g. "연간"
	QuarterlyMarkers  []string // group header text of the quarterly block, e.g. "분기"
	EstimateMarker    string   // date label annotation of forecast columns
	DefaultAnnualSpan int      // annual span used when the header span is unreadable
	MaxAnnual         int
	MaxQuarterly      int
}

// DefaultLayout returns the layout of the Naver Finance "기업실적분석" table:
// one annual block followed by one quarterly block, 3 annual periods and the
// latest quarter retained.
func DefaultLayout() Layout {
	return Layout{
		AnnualMarkers:     []string{"연간"},
		QuarterlyMarkers:  []string{"분기"},
		EstimateMarker:    "(E)",
		DefaultAnnualSpan: 4,
		MaxAnnual:         3,
		MaxQuarterly:      1,
	}
}

func (l Layout) isAnnual(header string) bool    { return containsAny(compact(header), l.AnnualMarkers) }
func (l Layout) isQuarterly(header string) bool { return containsAny(compact(header), l.QuarterlyMarkers) }

func (l Layout) isEstimate(label string) bool {
	return l.EstimateMarker != "" && strings.Contains(compact(label), compact(l.EstimateMarker))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, compact(m)) {
			return true
		}
	}
	return false
}

// Columns is the output of column selection.
type Columns struct {
	Offset    int
	Annual    []models.ColumnDescriptor
	Quarterly []models.ColumnDescriptor
}

// Empty reports whether the table yielded no usable annual column.
func (c Columns) Empty() bool {
	return len(c.Annual) == 0
}

// ParseColumns locates the annual and quarterly columns of a table laid out as
// one contiguous annual block followed by the quarterly block.
//
// The annual block starts at the cell offset and spans the colspan of the
// annual group header. At most l.MaxAnnual (never more than 3) of its
// non-estimate columns are kept, preferring the rightmost. The quarterly
// column is the rightmost non-estimate column past the annual block.
// A table that cannot be partitioned yields an empty Columns.
func ParseColumns(t Table, l Layout) Columns {
	descs, offset, ok := ContiguousColumns(t, l)
	if !ok {
		return Columns{Offset: offset}
	}
	maxAnnual := l.MaxAnnual
	if maxAnnual <= 0 || maxAnnual > 3 {
		maxAnnual = 3
	}
	maxQuarterly := l.MaxQuarterly
	if maxQuarterly <= 0 {
		maxQuarterly = 1
	}
	cols := SelectPeriods(descs, maxAnnual, maxQuarterly)
	cols.Offset = offset
	return cols
}

// ContiguousColumns classifies every data column under the two-block
// assumption. ok is false when the annual block does not fit the table.
func ContiguousColumns(t Table, l Layout) (descs []models.ColumnDescriptor, offset int, ok bool) {
	offset = t.CellOffset()
	if offset < 0 {
		return nil, offset, false
	}

	span := l.DefaultAnnualSpan
	for _, h := range t.GroupHeaders {
		if l.isAnnual(h.Text) {
			if h.ColSpan > 0 {
				span = h.ColSpan
			}
			break
		}
	}
	if span <= 0 {
		return nil, offset, false
	}

	annualEnd := offset + span
	if len(t.DateLabels) < annualEnd {
		return nil, offset, false
	}

	descs = make([]models.ColumnDescriptor, 0, len(t.DateLabels)-offset)
	for i := offset; i < len(t.DateLabels); i++ {
		kind := models.PeriodQuarterly
		if i < annualEnd {
			kind = models.PeriodAnnual
		}
		descs = append(descs, describe(i, t.DateLabels[i], kind, l))
	}
	return descs, offset, true
}

// ClassifyColumns classifies every data column by the group header above it,
// so annual and quarterly blocks may appear in any number and order.
//
// Group headers are walked left to right; the run that starts at the first
// period group (annual or quarterly) is right-aligned with the date row, and
// each header covers ColSpan columns of it. Columns under headers that carry
// neither marker are PeriodUnknown. ok is false when the headers cover more
// columns than the table has or no period group exists.
func ClassifyColumns(t Table, l Layout) (descs []models.ColumnDescriptor, offset int, ok bool) {
	offset = t.CellOffset()
	if offset < 0 {
		return nil, offset, false
	}

	first := -1
	for i, h := range t.GroupHeaders {
		if l.isAnnual(h.Text) || l.isQuarterly(h.Text) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, offset, false
	}

	groups := t.GroupHeaders[first:]
	covered := 0
	for _, h := range groups {
		covered += spanOf(h)
	}
	start := len(t.DateLabels) - covered
	if start < 0 || start < offset {
		return nil, offset, false
	}

	descs = make([]models.ColumnDescriptor, 0, covered)
	pos := start
	for _, h := range groups {
		kind := models.PeriodUnknown
		switch {
		case l.isAnnual(h.Text):
			kind = models.PeriodAnnual
		case l.isQuarterly(h.Text):
			kind = models.PeriodQuarterly
		}
		for n := spanOf(h); n > 0; n-- {
			descs = append(descs, describe(pos, t.DateLabels[pos], kind, l))
			pos++
		}
	}
	return descs, offset, true
}

func spanOf(h HeaderCell) int {
	if h.ColSpan <= 0 {
		return 1
	}
	return h.ColSpan
}

func describe(index int, raw string, kind models.PeriodKind, l Layout) models.ColumnDescriptor {
	return models.ColumnDescriptor{
		Index:      index,
		Label:      trimDateLabel(raw),
		Kind:       kind,
		IsEstimate: l.isEstimate(raw),
	}
}

// SelectPeriods keeps, per kind, the rightmost non-estimate columns up to the
// given limits and returns them in left-to-right (chronological) order.
// Columns with an empty label are skipped since a record needs a date.
func SelectPeriods(descs []models.ColumnDescriptor, maxAnnual, maxQuarterly int) Columns {
	var cols Columns
	for i := len(descs) - 1; i >= 0; i-- {
		d := descs[i]
		if d.IsEstimate || d.Label == "" {
			continue
		}
		switch d.Kind {
		case models.PeriodAnnual:
			if len(cols.Annual) < maxAnnual {
				cols.Annual = append(cols.Annual, d)
			}
		case models.PeriodQuarterly:
			if len(cols.Quarterly) < maxQuarterly {
				cols.Quarterly = append(cols.Quarterly, d)
			}
		}
	}
	reverse(cols.Annual)
	reverse(cols.Quarterly)
	return cols
}

func reverse(s []models.ColumnDescriptor) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
