package statement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrTableNotFound is returned when a selector matches no table.
var ErrTableNotFound = errors.New("statement: table not found")

// FindTable locates the first table matching selector in doc and reads it.
func FindTable(doc *goquery.Document, selector string) (Table, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, selector)
	}
	if !sel.Is("table") {
		sel = sel.Find("table").First()
		if sel.Length() == 0 {
			return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, selector)
		}
	}
	return ReadTable(sel)
}

// ReadTable lifts an HTML table with a two-row thead into a Table.
// The first header row becomes GroupHeaders (text and colspan), the second
// DateLabels. Each tbody row contributes its th (or first td) as the label
// and its remaining td cells as data.
func ReadTable(table *goquery.Selection) (Table, error) {
	headerRows := table.Find("thead > tr")
	if headerRows.Length() < 2 {
		return Table{}, fmt.Errorf("%w: want 2 header rows, got %d", ErrMalformedTable, headerRows.Length())
	}

	var t Table
	headerRows.Eq(0).Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		t.GroupHeaders = append(t.GroupHeaders, HeaderCell{
			Text:    cellText(cell),
			ColSpan: colSpan(cell),
		})
	})
	headerRows.Eq(1).Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		t.DateLabels = append(t.DateLabels, cellText(cell))
	})

	table.Find("tbody > tr").Each(func(_ int, tr *goquery.Selection) {
		var row Row
		if th := tr.Find("th").First(); th.Length() > 0 {
			row.Label = cellText(th)
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				row.Cells = append(row.Cells, cellText(td))
			})
		} else {
			tr.Find("td").Each(func(i int, td *goquery.Selection) {
				if i == 0 {
					row.Label = cellText(td)
					return
				}
				row.Cells = append(row.Cells, cellText(td))
			})
		}
		t.Rows = append(t.Rows, row)
	})

	return t, nil
}

// cellText returns the trimmed text of a cell with internal runs of
// whitespace collapsed to one space.
func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}

// colSpan returns the colspan attribute, or 0 when missing or unreadable.
func colSpan(cell *goquery.Selection) int {
	v, ok := cell.Attr("colspan")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
