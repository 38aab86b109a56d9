package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to a user message and code
//  4. Technical error is logged with the request ID for correlation
//  5. User message is written as JSON for API clients, or as HTML

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/mistakelog/internal/core"
	"github.com/JonMunkholm/mistakelog/internal/logging"
	"github.com/JonMunkholm/mistakelog/internal/web/templates"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusCodes maps user message codes to HTTP status codes.
var statusCodes = map[string]int{
	"EXT001":   http.StatusBadRequest,
	"VAL001":   http.StatusBadRequest,
	"VAL002":   http.StatusBadRequest,
	"FILE001":  http.StatusRequestEntityTooLarge,
	"FILE002":  http.StatusBadRequest,
	"FILE003":  http.StatusBadRequest,
	"FILE004":  http.StatusBadRequest,
	"FILE005":  http.StatusBadRequest,
	"IMP001":   http.StatusServiceUnavailable,
	"RATE001":  http.StatusTooManyRequests,
	"UPL004":   http.StatusBadRequest,
	"UPL005":   http.StatusRequestTimeout,
	"STORE001": http.StatusInternalServerError,
	"STORE002": http.StatusInternalServerError,
}

// statusFor returns the HTTP status for a mapped error.
func statusFor(msg core.UserMessage) int {
	if code, ok := statusCodes[msg.Code]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes its user message with the matching status.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, statusFor(core.MapError(err)), err)
}

// writeError logs err and writes its user message with the given status.
func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if msg.Code == "IMP001" {
		w.Header().Set("Retry-After", "10")
	}

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	body := templates.ErrorAlert(msg.Message, msg.Action, msg.Code)
	if !isHTMX(r) {
		body = templates.ErrorPage(msg.Message, msg.Action, msg.Code)
	}
	if err := body.Render(r.Context(), w); err != nil {
		slog.Error("render error response", "error", err)
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json response", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
