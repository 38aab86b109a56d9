package core

import "errors"

var (
	// ErrNotUsable means extraction found neither a category nor question text.
	ErrNotUsable = errors.New("could not extract details: no category or question text found")

	// ErrInvalidErrorType means the error type is not one of schema.ErrorTypes.
	ErrInvalidErrorType = errors.New("invalid error type")

	// ErrNoFiles means an import was requested without any files.
	ErrNoFiles = errors.New("no file provided")

	// ErrEmptyFile means an uploaded file has no content.
	ErrEmptyFile = errors.New("empty file")

	// ErrFileTooLarge means an uploaded file exceeds the configured size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyFiles means an import carries more files than allowed.
	ErrTooManyFiles = errors.New("too many files")

	// ErrInvalidCSV means an uploaded file could not be parsed as a table.
	ErrInvalidCSV = errors.New("invalid csv")

	// ErrInvalidRequest means a request body or parameter could not be decoded.
	ErrInvalidRequest = errors.New("invalid request")
)
