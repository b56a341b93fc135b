package statement

import (
	"fmt"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// Strategy selects how data columns are classified.
type Strategy int

const (
	// StrategyContiguous assumes one annual block followed by quarterly columns.
	StrategyContiguous Strategy = iota
	// StrategyGrouped classifies each column by the group header above it.
	StrategyGrouped
)

func (s Strategy) String() string {
	switch s {
	case StrategyContiguous:
		return "contiguous"
	case StrategyGrouped:
		return "grouped"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Extractor runs column classification, selection and record building.
type Extractor struct {
	Layout   Layout
	Mapper   *Mapper
	Strategy Strategy
}

// NewExtractor creates an extractor with the default mapper.
func NewExtractor(l Layout, s Strategy) *Extractor {
	return &Extractor{Layout: l, Mapper: NewMapper(), Strategy: s}
}

// Columns classifies and selects the data columns of t. The contiguous
// parser keeps at most 3 annual periods; the grouped path takes the
// layout's MaxAnnual so richer tables keep their longer history.
func (e *Extractor) Columns(t Table) Columns {
	if e.Strategy == StrategyContiguous {
		return ParseColumns(t, e.Layout)
	}
	descs, offset, ok := ClassifyColumns(t, e.Layout)
	if !ok {
		return Columns{Offset: offset}
	}
	cols := SelectPeriods(descs, e.Layout.MaxAnnual, e.Layout.MaxQuarterly)
	cols.Offset = offset
	return cols
}

// Extract returns the annual and quarterly records of t, oldest first.
// It fails with ErrNoAnnualColumns when the table has no usable annual column.
func (e *Extractor) Extract(t Table) (annual, quarterly []models.PeriodRecord, err error) {
	cols := e.Columns(t)
	if cols.Empty() {
		return nil, nil, ErrNoAnnualColumns
	}
	m := e.Mapper
	if m == nil {
		m = NewMapper()
	}
	annual = BuildRecords(t, cols.Annual, cols.Offset, m)
	quarterly = BuildRecords(t, cols.Quarterly, cols.Offset, m)
	return annual, quarterly, nil
}
