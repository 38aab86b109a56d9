package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/mistakelog/internal/extract"
	"github.com/JonMunkholm/mistakelog/internal/logging"
	"github.com/JonMunkholm/mistakelog/internal/schema"
	"github.com/JonMunkholm/mistakelog/internal/store"
)

// Config holds the service limits. Zero values fall back to the defaults
// below.
type Config struct {
	HistoryLimit int    // Entries shown by History when no limit is given
	ExportPrefix string // Export file name prefix
	MaxFileSize  int64  // Largest accepted import file, in bytes
	MaxFiles     int    // Most files accepted in one import

	MaxConcurrentImports int
	ImportWait           time.Duration
}

const (
	DefaultHistoryLimit = 10
	DefaultExportPrefix = "mistake_log"
	DefaultMaxFileSize  = 10 << 20
	DefaultMaxFiles     = 20
)

func (c Config) withDefaults() Config {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.ExportPrefix == "" {
		c.ExportPrefix = DefaultExportPrefix
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = DefaultMaxFiles
	}
	return c
}

// Service is the entry point for every mistake log operation. It holds no
// state of its own beyond its collaborators and is safe for concurrent use.
type Service struct {
	store     *store.Store
	extractor *extract.Extractor
	limiter   *ImportLimiter
	cfg       Config
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor replaces the default extraction rules.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithClock sets the clock used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over st.
func NewService(st *store.Store, cfg Config, opts ...Option) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		store:     st,
		extractor: extract.Default(),
		limiter:   NewImportLimiter(cfg.MaxConcurrentImports, cfg.ImportWait),
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// ExtractResult is the outcome of parsing a paste.
type ExtractResult struct {
	Record  schema.Record `json:"record"`
	Usable  bool          `json:"usable"`
	Missing []string      `json:"missing,omitempty"`
}

// Extract parses raw text into a record without saving anything.
func (s *Service) Extract(raw string) ExtractResult {
	rec := s.extractor.Extract(raw)
	return ExtractResult{
		Record:  rec,
		Usable:  extract.Usable(rec),
		Missing: extract.Missing(rec),
	}
}

// LogRequest describes one mistake to save.
type LogRequest struct {
	// Text is the pasted question. It is extracted when Record is nil.
	Text string

	// Record carries fields already extracted, possibly corrected by the user.
	Record schema.Record

	ErrorType string // One of schema.ErrorTypes, with or without its icon
	Notes     string
}

// Log classifies an extracted record and appends it to the log. The stored
// record is returned with its assigned Timestamp.
func (s *Service) Log(ctx context.Context, req LogRequest) (schema.Record, error) {
	rec := req.Record
	if rec == nil {
		rec = s.extractor.Extract(req.Text)
	}
	rec = rec.Clone()

	if !extract.Usable(rec) {
		return nil, ErrNotUsable
	}

	errorType := schema.CanonicalErrorType(req.ErrorType)
	if errorType == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidErrorType, req.ErrorType)
	}

	rec[schema.ErrorType] = errorType
	rec[schema.Notes] = req.Notes
	rec[schema.Timestamp] = ""

	row, err := s.store.Append(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("log mistake: %w", err)
	}

	saved := row.Record()
	s.logger(ctx, "log").Info("mistake logged",
		"category", saved[schema.Category],
		"error_type", errorType,
		"timestamp", saved[schema.Timestamp],
	)
	return saved, nil
}

// Entry is one row of the history view. Index is the row's position in the
// table and is what DeleteRows expects.
type Entry struct {
	Index  int           `json:"index"`
	Record schema.Record `json:"record"`
}

// HistoryPage is a window of the most recent entries.
type HistoryPage struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}

// History returns up to limit entries, most recent Timestamp first. A limit
// of zero or less uses the configured history limit.
func (s *Service) History(ctx context.Context, limit int) (HistoryPage, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}

	table, err := s.store.ReadAll(ctx)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("read history: %w", err)
	}

	idx := store.Recent(table, limit)
	entries := make([]Entry, len(idx))
	for i, pos := range idx {
		entries[i] = Entry{Index: pos, Record: table.Rows[pos].Record()}
	}
	return HistoryPage{Entries: entries, Total: table.Len()}, nil
}

// Table returns the whole log in stored order.
func (s *Service) Table(ctx context.Context) (schema.Table, error) {
	table, err := s.store.ReadAll(ctx)
	if err != nil {
		return schema.Table{}, fmt.Errorf("read table: %w", err)
	}
	return table, nil
}

// DeleteRows removes the rows at the given positions and returns how many
// were removed. Indices that do not name a row are ignored.
func (s *Service) DeleteRows(ctx context.Context, indices []int) (int, error) {
	n, err := s.store.Delete(ctx, indices)
	if err != nil {
		return 0, fmt.Errorf("delete rows: %w", err)
	}
	s.logger(ctx, "delete").Info("rows deleted", "requested", len(indices), "deleted", n)
	return n, nil
}

// Export writes the log as CSV. The excel variant starts with a UTF-8
// byte-order mark so spreadsheet tools detect the encoding.
func (s *Service) Export(ctx context.Context, w io.Writer, excel bool) error {
	if err := s.store.Export(ctx, w, excel); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// ExportFilename returns the download name for an export made now:
// <prefix>_MMDD.csv, or <prefix>_MMDD_excel.csv for the spreadsheet variant.
func (s *Service) ExportFilename(excel bool) string {
	name := s.cfg.ExportPrefix + "_" + s.now().Format("0102")
	if excel {
		name += "_excel"
	}
	return name + ".csv"
}

// ErrorTypes returns the classification choices with their display icons.
func (s *Service) ErrorTypes() []string {
	return schema.DisplayErrorTypes()
}

// ImportStatus reports the import limiter state.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// Drain waits for running imports to finish, for graceful shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// logger returns an operation logger carrying the client address and user
// agent when the caller recorded them.
func (s *Service) logger(ctx context.Context, op string, args ...any) *slog.Logger {
	args = append([]any{"op", op}, args...)
	if ip := IPAddressFromContext(ctx); ip != "" {
		args = append(args, "ip", ip)
	}
	if ua := UserAgentFromContext(ctx); ua != "" {
		args = append(args, "user_agent", ua)
	}
	return logging.WithFields(ctx, args...)
}
