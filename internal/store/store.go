// Package store persists the mistake log as a single CSV file.
//
// A Store owns one file and one lock. Every mutation (Append, Delete, Merge)
// holds the write lock for the whole read-modify-write; reads hold the read
// lock. Full rewrites go to a temporary file in the same directory which is
// then renamed over the table, so no reader ever sees a partial file.
//
// Row identity for deletion is positional: indices refer to the snapshot the
// store reads under the lock at the start of Delete.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/mistakelog/internal/schema"
)

// Store is a CSV-backed mistake log. It is safe for concurrent use.
// Independent Store values over different paths share no state.
type Store struct {
	path   string
	now    func() time.Time
	logger *slog.Logger

	mu sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp appended records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger for store operations.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a store over the CSV file at path. The file is created on the
// first append.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the table file path.
func (s *Store) Path() string {
	return s.path
}

// ReadAll loads the table. A missing file yields an empty table.
func (s *Store) ReadAll(ctx context.Context) (schema.Table, error) {
	if err := ctx.Err(); err != nil {
		return schema.Table{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.readLocked("read")
	if err != nil {
		return schema.Table{}, err
	}
	return snap.table, nil
}

// snapshot is the table as read from disk plus facts needed for appends.
type snapshot struct {
	parsedTable
	exists   bool
	encoding string
	endsLF   bool
}

func (s *Store) readLocked(op string) (snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot{}, nil
	}
	if err != nil {
		return snapshot{}, unavailable(op, s.path, err)
	}

	text, enc, err := decodeText(data)
	if err != nil {
		return snapshot{}, unreadable(op, s.path, err)
	}

	parsed, err := parseTable(text)
	if err != nil {
		return snapshot{}, unreadable(op, s.path, err)
	}

	return snapshot{
		parsedTable: parsed,
		exists:      len(data) > 0,
		encoding:    enc,
		endsLF:      len(data) == 0 || data[len(data)-1] == '\n',
	}, nil
}

// Append adds rec as one new row and returns the row as written.
//
// A missing Timestamp is stamped with the store clock. Prior rows are never
// rewritten, except once to repair a file whose header is not the canonical
// schema or whose encoding is not UTF-8; that repair rewrites the file in
// canonical form before the new row is added.
func (s *Store) Append(ctx context.Context, rec schema.Record) (schema.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec = rec.Clone()
	for k, v := range rec {
		rec[k] = normalizeNewlines(v)
	}
	if strings.TrimSpace(rec[schema.Timestamp]) == "" {
		rec[schema.Timestamp] = s.now().Format(schema.TimestampLayout)
	}
	row := rec.Row()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readLocked("append")
	if err != nil {
		return nil, err
	}

	if snap.exists && (!snap.canonical || !appendSafe(snap.encoding)) {
		s.logger.Warn("repairing table before append",
			"path", s.path,
			"header", snap.header,
			"encoding", snap.encoding,
			"rows", snap.table.Len(),
		)
		repaired := snap.table.Concat(schema.Table{Rows: []schema.Row{row}})
		if err := s.replaceLocked("append", repaired); err != nil {
			return nil, err
		}
		return row, nil
	}

	if err := s.appendLocked(row, !snap.exists, !snap.endsLF); err != nil {
		return nil, unavailable("append", s.path, err)
	}

	s.logger.Debug("row appended", "path", s.path, "rows", snap.table.Len()+1)
	return row, nil
}

func (s *Store) appendLocked(row schema.Row, withHeader, needLF bool) (err error) {
	if withHeader {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var b strings.Builder
	rows := []schema.Row{row}
	if withHeader {
		err = writeTable(&b, schema.Table{Rows: rows}, nil)
	} else {
		if needLF {
			b.WriteByte('\n')
		}
		err = writeRows(&b, rows)
	}
	if err != nil {
		return err
	}

	if _, err := io.WriteString(f, b.String()); err != nil {
		return err
	}
	return f.Sync()
}

// Delete removes the rows at the given positions of the current table and
// returns how many rows were removed. Out-of-range and repeated indices are
// ignored. When nothing is removed the file is left untouched.
func (s *Store) Delete(ctx context.Context, indices []int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readLocked("delete")
	if err != nil {
		return 0, err
	}

	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < snap.table.Len() {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	kept := make([]schema.Row, 0, snap.table.Len()-len(drop))
	for i, row := range snap.table.Rows {
		if !drop[i] {
			kept = append(kept, row)
		}
	}

	if err := s.replaceLocked("delete", schema.Table{Rows: kept}); err != nil {
		return 0, err
	}

	s.logger.Debug("rows deleted", "path", s.path, "deleted", len(drop), "rows", len(kept))
	return len(drop), nil
}

// MergeResult describes the outcome of a Merge.
type MergeResult struct {
	Table    schema.Table // The table as persisted
	Existing int          // Rows in the table before the merge
	Incoming int          // Rows across all incoming tables
	Replaced int          // Rows dropped because a later row shared their Timestamp
}

// Merge appends the incoming tables to the current table, in order, and
// keeps only the last row for each Timestamp. The result replaces the stored
// table. An empty Timestamp is a key like any other.
func (s *Store) Merge(ctx context.Context, incoming ...schema.Table) (MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return MergeResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readLocked("merge")
	if err != nil {
		return MergeResult{}, err
	}

	normalized := make([]schema.Table, len(incoming))
	for i, t := range incoming {
		normalized[i] = t.Normalized()
	}
	combined := snap.table.Concat(normalized...)
	merged := DedupByTimestamp(combined)

	if err := s.replaceLocked("merge", merged); err != nil {
		return MergeResult{}, err
	}

	result := MergeResult{
		Table:    merged,
		Existing: snap.table.Len(),
		Incoming: combined.Len() - snap.table.Len(),
		Replaced: combined.Len() - merged.Len(),
	}
	s.logger.Debug("tables merged",
		"path", s.path,
		"existing", result.Existing,
		"incoming", result.Incoming,
		"replaced", result.Replaced,
		"rows", merged.Len(),
	)
	return result, nil
}

// DedupByTimestamp keeps, for every Timestamp value including the empty one,
// only the row that appears last. Surviving rows keep their relative order.
func DedupByTimestamp(t schema.Table) schema.Table {
	ts, _ := schema.IndexOf(schema.Timestamp)

	last := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		last[row[ts]] = i
	}

	rows := make([]schema.Row, 0, len(last))
	for i, row := range t.Rows {
		if last[row[ts]] == i {
			rows = append(rows, row)
		}
	}
	return schema.Table{Rows: rows}
}

// Export writes the table in canonical form to w. With bom set, the output is
// prefixed with a UTF-8 byte-order mark for spreadsheet tools. Error types are
// written without their display icons.
func (s *Store) Export(ctx context.Context, w io.Writer, bom bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snap, err := s.readLocked("export")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if bom {
		if _, err := w.Write(bomUTF8); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	et, _ := schema.IndexOf(schema.ErrorType)
	err = writeTable(w, snap.table, func(row schema.Row) schema.Row {
		out := make(schema.Row, len(row))
		copy(out, row)
		out[et] = schema.CleanErrorType(out[et])
		return out
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// replaceLocked writes t to a temporary file beside the table and renames it
// into place.
func (s *Store) replaceLocked(op string, t schema.Table) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailable(op, s.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return unavailable(op, s.path, err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return unavailable(op, s.path, err)
	}

	if err := writeTable(tmp, t, nil); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return unavailable(op, s.path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return unavailable(op, s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return unavailable(op, s.path, err)
	}
	return nil
}

// ParseTable decodes and parses an imported CSV file with the same rules
// ReadAll applies to the stored table.
func ParseTable(r io.Reader) (schema.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return schema.Table{}, unavailable("parse", "", err)
	}
	text, _, err := decodeText(data)
	if err != nil {
		return schema.Table{}, unreadable("parse", "", err)
	}
	parsed, err := parseTable(text)
	if err != nil {
		return schema.Table{}, unreadable("parse", "", err)
	}
	return parsed.table, nil
}

// Recent returns the positions of up to limit rows, most recent Timestamp
// first. Rows with equal Timestamps are ordered by position, later first.
// A limit of zero or less returns every row.
func Recent(t schema.Table, limit int) []int {
	ts, _ := schema.IndexOf(schema.Timestamp)

	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := t.Rows[idx[a]][ts], t.Rows[idx[b]][ts]
		if ta != tb {
			return ta > tb
		}
		return idx[a] > idx[b]
	})

	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	return idx
}
