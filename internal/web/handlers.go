package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/mistakelog/internal/core"
	"github.com/JonMunkholm/mistakelog/internal/logging"
	"github.com/JonMunkholm/mistakelog/internal/schema"
	"github.com/JonMunkholm/mistakelog/internal/web/templates"
)

// handlePage renders the log form and recent history.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, templates.PageParams{})
}

// handleLogForm previews or logs the pasted text, depending on which button
// submitted the form.
func (s *Server) handleLogForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderPageError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err), templates.PageParams{})
		return
	}

	p := templates.PageParams{
		Text:      r.PostForm.Get("text"),
		ErrorType: r.PostForm.Get("error_type"),
		Notes:     r.PostForm.Get("notes"),
	}

	if r.PostForm.Get("action") == "preview" {
		res := s.service.Extract(p.Text)
		p.Preview = &res
		s.renderPage(w, r, http.StatusOK, p)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	rec, err := s.service.Log(ctx, core.LogRequest{
		Text:      p.Text,
		ErrorType: p.ErrorType,
		Notes:     p.Notes,
	})
	if err != nil {
		s.renderPageError(w, r, err, p)
		return
	}

	s.renderPage(w, r, http.StatusOK, templates.PageParams{
		Flash: templates.Flash{Text: "Mistake logged at " + rec.Get(schema.Timestamp)},
	})
}

// handleDeleteForm removes the checked history rows.
func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderPageError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err), templates.PageParams{})
		return
	}

	indices, err := parseIndices(r.PostForm["index"])
	if err != nil {
		s.renderPageError(w, r, err, templates.PageParams{})
		return
	}

	n, err := s.service.DeleteRows(WithRequestMetadata(r.Context(), r), indices)
	if err != nil {
		s.renderPageError(w, r, err, templates.PageParams{})
		return
	}

	text := "No rows selected"
	if n > 0 {
		text = fmt.Sprintf("Deleted %d %s", n, plural(n, "row", "rows"))
	}
	s.renderPage(w, r, http.StatusOK, templates.PageParams{Flash: templates.Flash{Text: text}})
}

// handleImportForm merges uploaded CSV files into the log.
func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.renderPageError(w, r, err, templates.PageParams{})
		return
	}

	res, err := s.service.Import(WithRequestMetadata(r.Context(), r), files)
	if err != nil {
		s.renderPageError(w, r, err, templates.PageParams{})
		return
	}

	text := fmt.Sprintf("Imported %d %s from %d %s; %d replaced, %d total",
		res.Incoming, plural(res.Incoming, "row", "rows"),
		len(res.Files), plural(len(res.Files), "file", "files"),
		res.Replaced, res.Total)
	s.renderPage(w, r, http.StatusOK, templates.PageParams{Flash: templates.Flash{Text: text}})
}

// renderPageError shows err above the page, keeping the submitted form values.
func (s *Server) renderPageError(w http.ResponseWriter, r *http.Request, err error, p templates.PageParams) {
	msg := core.MapError(err)
	status := statusFor(msg)
	logging.FromContext(r.Context()).Warn("form rejected",
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)
	p.Flash = templates.Flash{Error: &msg}
	s.renderPage(w, r, status, p)
}

// renderPage fills in history and form choices and writes the page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, p templates.PageParams) {
	history, err := s.service.History(r.Context(), 0)
	if err != nil {
		logging.FromContext(r.Context()).Error("load history", "error", err)
		if p.Flash.Error == nil {
			msg := core.MapError(err)
			p.Flash = templates.Flash{Error: &msg}
			status = statusFor(msg)
		}
	}

	p.History = history
	p.ErrorTypes = s.service.ErrorTypes()
	p.Columns = templates.HistoryColumns
	p.MaxFiles = s.service.Config().MaxFiles

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Page(p).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// parseIndices converts form or query values to row positions.
func parseIndices(values []string) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: row index %q", core.ErrInvalidRequest, v)
		}
		out = append(out, i)
	}
	return out, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
