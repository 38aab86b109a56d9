package schema

// Record is a field mapping keyed by canonical column name.
// Absent keys read as the empty string.
type Record map[string]string

// NewRecord returns a record with every canonical field present and empty.
func NewRecord() Record {
	r := make(Record, len(columns))
	for _, c := range columns {
		r[c] = ""
	}
	return r
}

// Get returns the value of field, or "" if it is absent.
func (r Record) Get(field string) string {
	if r == nil {
		return ""
	}
	return r[field]
}

// Clone returns a copy of r carrying every canonical field.
// Keys outside the schema are dropped.
func (r Record) Clone() Record {
	out := NewRecord()
	for _, c := range columns {
		out[c] = r.Get(c)
	}
	return out
}

// Row converts r to a row in canonical column order.
func (r Record) Row() Row {
	row := make(Row, len(columns))
	for i, c := range columns {
		row[i] = r.Get(c)
	}
	return row
}

// Row is one table row in canonical column order.
type Row []string

// Get returns the value of the named column, or "" if the column is unknown
// or the row is short.
func (r Row) Get(field string) string {
	i, ok := IndexOf(field)
	if !ok || i >= len(r) {
		return ""
	}
	return r[i]
}

// Record converts the row back to a field mapping.
func (r Row) Record() Record {
	rec := NewRecord()
	for i, c := range columns {
		if i < len(r) {
			rec[c] = r[i]
		}
	}
	return rec
}

// Table is an in-memory snapshot of the mistake log.
// Every row has exactly ColumnCount values.
type Table struct {
	Rows []Row
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Header returns the canonical header.
func (t Table) Header() []string {
	return Columns()
}

// Records returns every row as a field mapping.
func (t Table) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Record()
	}
	return out
}

// Concat returns a new table holding the rows of t followed by the rows of
// each other table, in order.
func (t Table) Concat(others ...Table) Table {
	n := len(t.Rows)
	for _, o := range others {
		n += len(o.Rows)
	}
	rows := make([]Row, 0, n)
	rows = append(rows, t.Rows...)
	for _, o := range others {
		rows = append(rows, o.Rows...)
	}
	return Table{Rows: rows}
}

// Normalized returns a copy of t whose rows all have exactly ColumnCount
// values: short rows are padded with "" and long rows are truncated.
func (t Table) Normalized() Table {
	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		out := make(Row, len(columns))
		copy(out, row)
		rows[i] = out
	}
	return Table{Rows: rows}
}
