package store

// csv.go parses stored and imported tables and writes fully quoted rows.
//
// Reading is strict: a row whose field count differs from the header, or a
// stray quote inside an unquoted field, fails the whole table rather than
// yielding a partial result. Writing quotes every field so free text with
// commas, quotes or newlines round-trips unchanged.

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/mistakelog/internal/schema"
)

// nullMarker is the placeholder older logs wrote for missing cells.
const nullMarker = "nan"

// parsedTable is a table plus what the parser learned about the file.
type parsedTable struct {
	table     schema.Table
	header    []string // Header as found in the file, cleaned
	canonical bool     // Header matched the canonical schema exactly
}

// parseTable parses decoded CSV text into a canonical table.
// Columns outside the schema are dropped; missing columns are filled with "".
func parseTable(text string) (parsedTable, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = 0 // header length fixes the width

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return parsedTable{}, nil
	}
	if err != nil {
		return parsedTable{}, fmt.Errorf("header: %w", err)
	}

	cleaned := make([]string, len(header))
	for i, h := range header {
		cleaned[i] = cleanHeaderCell(h)
	}
	positions := headerPositions(cleaned)

	var rows []schema.Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return parsedTable{}, err
		}

		row := make(schema.Row, schema.ColumnCount())
		for src, dst := range positions {
			if dst < 0 {
				continue
			}
			row[dst] = normalizeCell(record[src])
		}
		rows = append(rows, row)
	}

	return parsedTable{
		table:     schema.Table{Rows: rows},
		header:    cleaned,
		canonical: schema.IsCanonicalHeader(cleaned),
	}, nil
}

// headerPositions maps each source column to its canonical position, or -1
// when the column is not part of the schema. When a column name repeats, the
// last occurrence wins.
func headerPositions(header []string) []int {
	positions := make([]int, len(header))
	seen := make(map[int]int, len(header))
	for i, h := range header {
		positions[i] = -1
		dst, ok := schema.IndexOf(h)
		if !ok {
			continue
		}
		if prev, dup := seen[dst]; dup {
			positions[prev] = -1
		}
		seen[dst] = i
		positions[i] = dst
	}
	return positions
}

// cleanHeaderCell trims whitespace and any byte-order mark left on the first
// header cell.
func cleanHeaderCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(s)
}

// normalizeCell maps missing-value placeholders to "" and leaves everything
// else untouched.
func normalizeCell(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), nullMarker) {
		return ""
	}
	return s
}

// writeTable writes the canonical header followed by every row. transform,
// when set, is applied to each row before it is written.
func writeTable(w io.Writer, t schema.Table, transform func(schema.Row) schema.Row) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, schema.Columns()); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if transform != nil {
			row = transform(row)
		}
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeRows writes rows without a header.
func writeRows(w io.Writer, rows []schema.Row) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// newlineReplacer folds "\r\n" and lone "\r" to "\n". encoding/csv drops a
// carriage return before a newline even inside quotes, so a stored "\r\n"
// would not survive a reload.
var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

// writeRow writes one record with every field quoted, terminated by "\n".
// encoding/csv only quotes fields that need it, so quoting is done here.
func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		f = normalizeNewlines(f)
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(f, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
