package store

import "slices"

// Sheet is an in-memory table: an ordered header and one value map per row.
type Sheet struct {
	Columns []string
	Rows    []map[string]string
}

// Clone returns a copy that shares no slices with s.
func (s *Sheet) Clone() *Sheet {
	out := &Sheet{
		Columns: slices.Clone(s.Columns),
		Rows:    make([]map[string]string, len(s.Rows), len(s.Rows)+1),
	}
	copy(out.Rows, s.Rows)
	return out
}

// MergeColumns appends every column of cols not already in the header.
func (s *Sheet) MergeColumns(cols []string) {
	for _, c := range cols {
		if !slices.Contains(s.Columns, c) {
			s.Columns = append(s.Columns, c)
		}
	}
}

// Records returns the rows as string slices in header order. Missing cells are empty.
func (s *Sheet) Records() [][]string {
	out := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		rec := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			rec[i] = row[c]
		}
		out = append(out, rec)
	}
	return out
}

// newSheet builds a sheet from a header line and raw records.
func newSheet(header []string, records [][]string) *Sheet {
	s := &Sheet{Columns: slices.Clone(header), Rows: make([]map[string]string, 0, len(records))}
	for _, rec := range records {
		row := make(map[string]string, len(header))
		for i, c := range header {
			if i < len(rec) {
				row[c] = rec[i]
			} else {
				row[c] = ""
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}
