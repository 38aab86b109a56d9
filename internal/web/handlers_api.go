package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/mistakelog/internal/core"
	"github.com/JonMunkholm/mistakelog/internal/schema"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type errorTypeJSON struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type extractRequest struct {
	Text string `json:"text"`
}

type logRequest struct {
	Text      string        `json:"text"`
	Record    schema.Record `json:"record,omitempty"`
	ErrorType string        `json:"error_type"`
	Notes     string        `json:"notes"`
}

type deleteRequest struct {
	Indices []int `json:"indices"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.ImportStatus(),
	})
}

func (s *Server) handleErrorTypes(w http.ResponseWriter, r *http.Request) {
	labels := s.service.ErrorTypes()
	out := make([]errorTypeJSON, len(labels))
	for i, label := range labels {
		out[i] = errorTypeJSON{Value: schema.CleanErrorType(label), Label: label}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExtract returns the fields found in the posted text without saving.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Extract(req.Text))
}

// handleLog saves one mistake. A record in the body takes precedence over
// text, so a client can correct a preview before logging it.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	rec, err := s.service.Log(WithRequestMetadata(r.Context(), r), core.LogRequest{
		Text:      req.Text,
		Record:    req.Record,
		ErrorType: req.ErrorType,
		Notes:     req.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleHistory returns the most recent entries; ?limit= overrides the
// configured count.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, r, fmt.Errorf("%w: limit %q", core.ErrInvalidRequest, v))
			return
		}
		limit = n
	}

	page, err := s.service.History(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	n, err := s.service.DeleteRows(WithRequestMetadata(r.Context(), r), req.Indices)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.Import(WithRequestMetadata(r.Context(), r), files)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExport downloads the log as CSV; ?excel=1 adds a byte-order mark.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	excel, _ := strconv.ParseBool(r.URL.Query().Get("excel"))

	// Buffer so a read failure can still be reported as an error response.
	var buf bytes.Buffer
	if err := s.service.Export(r.Context(), &buf, excel); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.service.ExportFilename(excel)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	return nil
}
