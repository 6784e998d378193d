package sheets

import "strings"

// Record is one data row keyed by header name.
type Record struct {
	// Row is the 1-based sheet row number, usable with UpdateRow.
	Row    int
	Fields map[string]string
}

func (r Record) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// RowsToObjects zips every row below the header against the header names.
// The header is the first row with a non-empty cell; missing cells map to "".
func RowsToObjects(rows [][]string) []Record {
	headerIdx := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	header := rows[headerIdx]
	records := make([]Record, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		fields := make(map[string]string, len(header))
		for col, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if col < len(row) {
				fields[name] = row[col]
			} else {
				fields[name] = ""
			}
		}
		records = append(records, Record{Row: i + 1, Fields: fields})
	}
	return records
}

// FindByID scans records for the given value in the ID column.
func FindByID(records []Record, id string) (Record, bool) {
	id = strings.TrimSpace(id)
	for _, rec := range records {
		if strings.EqualFold(rec.Get("ID"), id) {
			return rec, true
		}
	}
	return Record{}, false
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
