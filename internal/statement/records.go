package statement

import "github.com/seenimoa/krxvalue/pkg/models"

// BuildRecords reads the body of t into one record per descriptor, in the
// order of descs. Rows whose label does not map are skipped. Cells that are
// out of bounds, hold a placeholder token or carry no number leave the metric
// absent. When two rows map to the same key the first one wins.
func BuildRecords(t Table, descs []models.ColumnDescriptor, offset int, m *Mapper) []models.PeriodRecord {
	records := make([]models.PeriodRecord, len(descs))
	for i, d := range descs {
		records[i] = models.NewPeriodRecord(d.Label)
	}

	for _, row := range t.Rows {
		key, ok := m.Map(row.Label)
		if !ok {
			continue
		}
		for i, d := range descs {
			idx := d.Index - offset
			if idx < 0 || idx >= len(row.Cells) {
				continue
			}
			if records[i].Has(key) {
				continue
			}
			if v, ok := ParseNumber(row.Cells[idx]); ok {
				records[i].Set(key, v)
			}
		}
	}
	return records
}
