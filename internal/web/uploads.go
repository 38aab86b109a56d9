package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/mistakelog/internal/core"
)

// multipartMemory is how much of a multipart form is held in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

// readUploads reads every part named "file" from a multipart request. The
// body is capped at MaxFiles full-size files; the per-file limit is enforced
// by the service, so each part is read one byte past it.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]core.ImportFile, error) {
	cfg := s.service.Config()
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxFileSize*int64(cfg.MaxFiles)+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return nil, fmt.Errorf("%w: request over %d bytes", core.ErrFileTooLarge, tooBig.Limit)
		case errors.Is(err, http.ErrNotMultipart):
			return nil, core.ErrNoFiles
		default:
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
		}
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	files := make([]core.ImportFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" && fh.Size == 0 {
			// Browsers send an empty part when no file was chosen.
			continue
		}
		data, err := readPart(fh, cfg.MaxFileSize+1)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, core.ImportFile{Name: fh.Filename, Data: data})
	}
	if len(files) == 0 {
		return nil, core.ErrNoFiles
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}
