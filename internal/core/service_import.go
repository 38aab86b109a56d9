package core

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/mistakelog/internal/schema"
	"github.com/JonMunkholm/mistakelog/internal/store"
)

// ImportFile is one uploaded table.
type ImportFile struct {
	Name string
	Data []byte
}

// ImportedFile reports how many rows one file contributed.
type ImportedFile struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// ImportResult describes a completed import.
type ImportResult struct {
	ID       string         `json:"id"`
	Files    []ImportedFile `json:"files"`
	Existing int            `json:"existing"` // Rows before the import
	Incoming int            `json:"incoming"` // Rows across all files
	Replaced int            `json:"replaced"` // Rows superseded by a later row with the same Timestamp
	Total    int            `json:"total"`    // Rows after the import
}

// Import merges the uploaded tables into the log, in upload order. For every
// Timestamp only the last row survives, so re-importing an edited export
// replaces the rows it came from.
//
// Files are checked and parsed before the log is touched: if any file is
// rejected, the log is left unchanged.
func (s *Service) Import(ctx context.Context, files []ImportFile) (ImportResult, error) {
	if err := s.checkImport(files); err != nil {
		return ImportResult{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	id := uuid.NewString()
	log := s.logger(ctx, "import", "import_id", id)
	log.Info("import started", "files", len(files))

	tables, err := parseImports(ctx, files)
	if err != nil {
		log.Warn("import rejected", "error", err)
		return ImportResult{}, err
	}

	merged, err := s.store.Merge(ctx, tables...)
	if err != nil {
		log.Error("import merge failed", "error", err)
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	result := ImportResult{
		ID:       id,
		Files:    make([]ImportedFile, len(files)),
		Existing: merged.Existing,
		Incoming: merged.Incoming,
		Replaced: merged.Replaced,
		Total:    merged.Table.Len(),
	}
	for i, f := range files {
		result.Files[i] = ImportedFile{Name: f.Name, Rows: tables[i].Len()}
	}

	log.Info("import completed",
		"existing", result.Existing,
		"incoming", result.Incoming,
		"replaced", result.Replaced,
		"total", result.Total,
	)
	return result, nil
}

func (s *Service) checkImport(files []ImportFile) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	if len(files) > s.cfg.MaxFiles {
		return fmt.Errorf("%w: %d files, at most %d", ErrTooManyFiles, len(files), s.cfg.MaxFiles)
	}
	for _, f := range files {
		if len(f.Data) == 0 {
			return fmt.Errorf("%s: %w", f.Name, ErrEmptyFile)
		}
		if int64(len(f.Data)) > s.cfg.MaxFileSize {
			return fmt.Errorf("%s: %w: %d bytes, at most %d", f.Name, ErrFileTooLarge, len(f.Data), s.cfg.MaxFileSize)
		}
	}
	return nil
}

// parseImports decodes every file concurrently. The result keeps upload order.
func parseImports(ctx context.Context, files []ImportFile) ([]schema.Table, error) {
	tables := make([]schema.Table, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := store.ParseTable(bytes.NewReader(f.Data))
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidCSV, f.Name, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}
