// Package statement turns a two-row-header financial statement table into
// typed per-period metric records.
//
// The work is split into passes: ReadTable lifts an HTML table into a Table,
// a classifier materializes one ColumnDescriptor per data column, SelectPeriods
// picks the retained columns, and BuildRecords reads the body through a Mapper
// and the numeric cleaner.
package statement

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrMalformedTable is returned when a table lacks the two header rows.
	ErrMalformedTable = errors.New("statement: malformed table")

	// ErrNoAnnualColumns is returned when no usable annual column was found.
	ErrNoAnnualColumns = errors.New("statement: no annual columns resolved")
)

// HeaderCell is one cell of the group header row.
// ColSpan is 0 when the attribute was missing or unreadable.
type HeaderCell struct {
	Text    string
	ColSpan int
}

// Row is one body row: a leading label cell and its data cells.
type Row struct {
	Label string
	Cells []string
}

// Table is the raw shape of a statement table.
type Table struct {
	GroupHeaders []HeaderCell // header row 1
	DateLabels   []string     // header row 2, one per column
	Rows         []Row
}

// CellOffset is the number of leading date-header columns with no matching
// body cell. It aligns DateLabels indices with Row.Cells indices.
func (t Table) CellOffset() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.DateLabels) - len(t.Rows[0].Cells)
}

// compact removes all whitespace and upper-cases ASCII letters.
func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// trimDateLabel cuts a date label at its first parenthesis, dropping
// annotations such as "(E)" or "(IFRS연결)".
func trimDateLabel(label string) string {
	if i := strings.IndexByte(label, '('); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}
