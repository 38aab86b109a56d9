package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/mistakelog/internal/schema"
	"github.com/JonMunkholm/mistakelog/internal/store"
)

const samplePaste = "Category: Fixed Income\nQuestion 5 of 60\nResult: Incorrect\nTime Spent: 01:36\nDifficulty Level: Hard\n"

var testNow = time.Date(2026, 3, 7, 9, 30, 0, 0, time.Local)

func newTestService(t *testing.T, cfg Config) (*Service, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "mistake_log.csv"))
	return NewService(st, cfg, WithClock(func() time.Time { return testNow })), st
}

func csvFile(name string, rows ...string) ImportFile {
	return ImportFile{Name: name, Data: []byte(strings.Join(rows, "\n") + "\n")}
}

func TestService_Extract(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	res := svc.Extract(samplePaste)
	if !res.Usable {
		t.Fatal("Usable = false, want true")
	}
	if got := res.Record[schema.Category]; got != "Fixed Income" {
		t.Errorf("Category = %q, want %q", got, "Fixed Income")
	}
	if got := res.Record[schema.Result]; got != "Incorrect" {
		t.Errorf("Result = %q, want %q", got, "Incorrect")
	}

	empty := svc.Extract("   ")
	if empty.Usable {
		t.Error("Usable = true for blank input")
	}
	if len(empty.Record) != schema.ColumnCount() {
		t.Errorf("blank input record has %d fields, want %d", len(empty.Record), schema.ColumnCount())
	}
	if len(empty.Missing) == 0 {
		t.Error("Missing is empty for blank input")
	}
}

func TestService_Log(t *testing.T) {
	svc, st := newTestService(t, Config{})
	ctx := context.Background()

	saved, err := svc.Log(ctx, LogRequest{
		Text:      samplePaste,
		ErrorType: "⚠️ Calculation error",
		Notes:     "forgot to annualize",
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	if saved[schema.ErrorType] != "Calculation error" {
		t.Errorf("ErrorType = %q, want icon stripped", saved[schema.ErrorType])
	}
	if saved[schema.Timestamp] == "" {
		t.Error("Timestamp was not assigned")
	}

	table, err := st.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("table has %d rows, want 1", table.Len())
	}
	row := table.Rows[0]
	if got := row.Get(schema.Category); got != "Fixed Income" {
		t.Errorf("stored Category = %q, want %q", got, "Fixed Income")
	}
	if got := row.Get(schema.Notes); got != "forgot to annualize" {
		t.Errorf("stored Notes = %q", got)
	}
}

func TestService_LogEditedRecord(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	rec := schema.Record{
		schema.Category:  "Ethics",
		schema.Timestamp: "2020-01-01 00:00:00",
		"Unknown":        "dropped",
	}
	saved, err := svc.Log(context.Background(), LogRequest{Record: rec, ErrorType: "uncertain"})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if saved[schema.ErrorType] != "Uncertain" {
		t.Errorf("ErrorType = %q, want %q", saved[schema.ErrorType], "Uncertain")
	}
	if saved[schema.Timestamp] == "2020-01-01 00:00:00" {
		t.Error("new entry reused the caller's Timestamp")
	}
	if _, ok := saved["Unknown"]; ok {
		t.Error("non-schema field was stored")
	}
	if rec[schema.ErrorType] != "" {
		t.Error("Log modified the caller's record")
	}
}

func TestService_LogRejects(t *testing.T) {
	tests := []struct {
		name    string
		req     LogRequest
		wantErr error
	}{
		{"blank paste", LogRequest{Text: "  \n ", ErrorType: "Uncertain"}, ErrNotUsable},
		{"no identifying fields", LogRequest{Text: "Result: Correct", ErrorType: "Uncertain"}, ErrNotUsable},
		{"unknown error type", LogRequest{Text: samplePaste, ErrorType: "Bad luck"}, ErrInvalidErrorType},
		{"missing error type", LogRequest{Text: samplePaste}, ErrInvalidErrorType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService(t, Config{})

			_, err := svc.Log(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Log() error = %v, want %v", err, tt.wantErr)
			}
			if _, statErr := os.Stat(st.Path()); !os.IsNotExist(statErr) {
				t.Error("rejected entry created the log file")
			}
		})
	}
}

func TestService_History(t *testing.T) {
	svc, st := newTestService(t, Config{HistoryLimit: 2})
	ctx := context.Background()

	for i, ts := range []string{"2026-01-01 00:00:01", "2026-01-03 00:00:00", "2026-01-02 00:00:00"} {
		rec := schema.Record{schema.Category: fmt.Sprintf("c%d", i), schema.Timestamp: ts}
		if _, err := st.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	page, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(page.Entries))
	}
	if page.Entries[0].Index != 1 || page.Entries[1].Index != 2 {
		t.Errorf("indices = %d,%d, want 1,2", page.Entries[0].Index, page.Entries[1].Index)
	}
	if got := page.Entries[0].Record[schema.Category]; got != "c1" {
		t.Errorf("first entry Category = %q, want c1", got)
	}

	all, err := svc.History(ctx, 50)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(all.Entries) != 3 {
		t.Errorf("got %d entries, want 3", len(all.Entries))
	}
}

func TestService_DeleteRowsFromHistory(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()

	for _, c := range []string{"keep", "drop"} {
		rec := schema.Record{schema.Category: c}
		if _, err := svc.Log(ctx, LogRequest{Record: rec, ErrorType: "Uncertain"}); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	page, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	var target int = -1
	for _, e := range page.Entries {
		if e.Record[schema.Category] == "drop" {
			target = e.Index
		}
	}
	if target < 0 {
		t.Fatal("entry to delete not found in history")
	}

	n, err := svc.DeleteRows(ctx, []int{target, 99})
	if err != nil {
		t.Fatalf("DeleteRows() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteRows() = %d, want 1", n)
	}

	table, err := svc.Table(ctx)
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	if table.Len() != 1 || table.Rows[0].Get(schema.Category) != "keep" {
		t.Errorf("remaining rows = %v", table.Rows)
	}
}

func TestService_Import(t *testing.T) {
	svc, st := newTestService(t, Config{})
	ctx := context.Background()

	if _, err := st.Append(ctx, schema.Record{schema.Category: "V1", schema.Timestamp: "T"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	result, err := svc.Import(ctx, []ImportFile{
		csvFile("a.csv", "Timestamp,Category", "T,V2", "U,other"),
		csvFile("b.csv", "Category,Notes", "no stamp,n"),
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.ID == "" {
		t.Error("import id is empty")
	}
	if result.Existing != 1 || result.Incoming != 3 || result.Replaced != 1 || result.Total != 3 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Files) != 2 || result.Files[0].Rows != 2 || result.Files[1].Rows != 1 {
		t.Errorf("files = %+v", result.Files)
	}

	table, err := st.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	var cats []string
	for _, row := range table.Rows {
		cats = append(cats, row.Get(schema.Category))
	}
	if got, want := strings.Join(cats, ","), "V2,other,no stamp"; got != want {
		t.Errorf("categories = %s, want %s", got, want)
	}
}

func TestService_ImportRejects(t *testing.T) {
	tests := []struct {
		name    string
		files   []ImportFile
		wantErr error
	}{
		{"no files", nil, ErrNoFiles},
		{"too many files", []ImportFile{csvFile("a", "Category"), csvFile("b", "Category"), csvFile("c", "Category")}, ErrTooManyFiles},
		{"empty file", []ImportFile{{Name: "empty.csv"}}, ErrEmptyFile},
		{"too large", []ImportFile{{Name: "big.csv", Data: bytes.Repeat([]byte("x"), 65)}}, ErrFileTooLarge},
		{"broken csv", []ImportFile{csvFile("ok.csv", "Category", "a"), csvFile("bad.csv", "Category,Notes", "a,b,c")}, ErrInvalidCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService(t, Config{MaxFiles: 2, MaxFileSize: 64})

			_, err := svc.Import(context.Background(), tt.files)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Import() error = %v, want %v", err, tt.wantErr)
			}
			if _, statErr := os.Stat(st.Path()); !os.IsNotExist(statErr) {
				t.Error("rejected import touched the log")
			}
		})
	}
}

func TestService_ImportBusy(t *testing.T) {
	svc, _ := newTestService(t, Config{MaxConcurrentImports: 1, ImportWait: 20 * time.Millisecond})

	if !svc.limiter.TryAcquire() {
		t.Fatal("could not take the only import slot")
	}
	defer svc.limiter.Release()

	_, err := svc.Import(context.Background(), []ImportFile{csvFile("a.csv", "Category", "x")})
	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("Import() error = %v, want ErrTooManyImports", err)
	}
	if MapError(err).Code != "IMP001" {
		t.Errorf("code = %q, want IMP001", MapError(err).Code)
	}
}

func TestService_ConcurrentImportsAndLogs(t *testing.T) {
	svc, st := newTestService(t, Config{MaxConcurrentImports: 2, ImportWait: 5 * time.Second})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Import(ctx, []ImportFile{csvFile("f.csv", "Timestamp,Category", fmt.Sprintf("imp-%d,imported %d", i, i))})
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := st.Append(ctx, schema.Record{schema.Category: "logged", schema.Timestamp: fmt.Sprintf("log-%d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent operation failed: %v", err)
		}
	}

	table, err := st.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if table.Len() != 20 {
		t.Errorf("table has %d rows, want 20", table.Len())
	}
}

func TestService_Export(t *testing.T) {
	svc, _ := newTestService(t, Config{ExportPrefix: "cfa"})
	ctx := context.Background()

	if _, err := svc.Log(ctx, LogRequest{Text: samplePaste, ErrorType: "❌ Misread the question"}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf, true); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("excel export is missing the byte-order mark")
	}
	if !strings.Contains(buf.String(), `"Misread the question"`) {
		t.Errorf("export missing error type: %s", buf.String())
	}

	if got := svc.ExportFilename(false); got != "cfa_0307.csv" {
		t.Errorf("ExportFilename(false) = %q, want %q", got, "cfa_0307.csv")
	}
	if got := svc.ExportFilename(true); got != "cfa_0307_excel.csv" {
		t.Errorf("ExportFilename(true) = %q, want %q", got, "cfa_0307_excel.csv")
	}
}

func TestService_UnreadableLog(t *testing.T) {
	svc, st := newTestService(t, Config{})
	if err := os.WriteFile(st.Path(), []byte("Category\n\"broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := svc.History(context.Background(), 0)
	if MapError(err).Code != "STORE001" {
		t.Errorf("History() code = %q, want STORE001 (err = %v)", MapError(err).Code, err)
	}

	_, err = svc.Log(context.Background(), LogRequest{Text: samplePaste, ErrorType: "Uncertain"})
	if MapError(err).Code != "STORE001" {
		t.Errorf("Log() code = %q, want STORE001 (err = %v)", MapError(err).Code, err)
	}
}

func TestConfigDefaults(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	cfg := svc.Config()
	if cfg.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("HistoryLimit = %d, want %d", cfg.HistoryLimit, DefaultHistoryLimit)
	}
	if cfg.ExportPrefix != DefaultExportPrefix {
		t.Errorf("ExportPrefix = %q, want %q", cfg.ExportPrefix, DefaultExportPrefix)
	}
	if svc.ImportStatus().MaxConcurrent != DefaultMaxConcurrentImports {
		t.Errorf("MaxConcurrent = %d, want %d", svc.ImportStatus().MaxConcurrent, DefaultMaxConcurrentImports)
	}
}
