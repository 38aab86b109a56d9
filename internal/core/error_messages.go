package core

// error_messages.go maps technical errors to messages a user can act on.
//
// Every message carries a code users can quote when reporting a problem:
//
//	STORE001  log file exists but cannot be read (bad encoding or broken CSV)
//	STORE002  log file could not be read or written
//	EXT001    pasted text had no category or question text
//	VAL001    error type is not one of the offered choices
//	VAL002    request body or parameter is malformed
//	FILE001   uploaded file exceeds the size limit
//	FILE002   uploaded file is not a valid CSV table
//	FILE003   too many files in one import
//	FILE004   no file selected
//	FILE005   uploaded file is empty
//	IMP001    too many imports running
//	UPL004    request cancelled
//	UPL005    request timed out
//	RATE001   too many requests
//	ERR000    anything else; the technical error is in the server log
//
// Known sentinel errors are matched with errors.Is first, so wrapping never
// changes the code. Errors that only exist as text (from net/http or a
// third-party library) fall through to case-insensitive substring patterns.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/mistakelog/internal/store"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked in order; the first errors.Is match wins.
// ErrInvalidCSV precedes store.ErrUnreadable because an unparsable upload
// wraps both and is the user's file, not the log.
var sentinelMessages = []sentinelMessage{
	{ErrInvalidCSV, UserMessage{
		Message: "The uploaded file is not a valid CSV table",
		Action:  "Check that every row has the same number of columns as the header",
		Code:    "FILE002",
	}},
	{store.ErrUnreadable, UserMessage{
		Message: "The mistake log file could not be read",
		Action:  "Repair or move the file aside; it will not be changed until it can be read",
		Code:    "STORE001",
	}},
	{store.ErrUnavailable, UserMessage{
		Message: "The mistake log file could not be accessed",
		Action:  "Check that the file is not open in another program and the disk is writable",
		Code:    "STORE002",
	}},
	{ErrNotUsable, UserMessage{
		Message: "Could not extract question details",
		Action:  "Paste the full question including its category or text",
		Code:    "EXT001",
	}},
	{ErrInvalidErrorType, UserMessage{
		Message: "Unknown error type",
		Action:  "Choose one of the listed error types",
		Code:    "VAL001",
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "The request could not be understood",
		Action:  "Check the request body and parameters",
		Code:    "VAL002",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{ErrTooManyFiles, UserMessage{
		Message: "Too many files in one import",
		Action:  "Import the files in smaller groups",
		Code:    "FILE003",
	}},
	{ErrNoFiles, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to import",
		Code:    "FILE004",
	}},
	{ErrEmptyFile, UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "Another import is still running",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}},
	{context.Canceled, cancelledMessage},
	{context.DeadlineExceeded, timeoutMessage},
}

var (
	cancelledMessage = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	timeoutMessage = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
)

// errorPattern matches errors that are only known by their text.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is matched in order against the lowercased error text.
var errorPatterns = []errorPattern{
	{"request body too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{"no such file", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to import",
		Code:    "FILE004",
	}},
	{"context canceled", cancelledMessage},
	{"context deadline exceeded", timeoutMessage},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server log",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. A nil error
// maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns the
// user message; Unwrap returns the technical error for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError, or returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
