package store

import (
	"errors"
	"fmt"
)

// ErrUnreadable means the table file exists but could not be decoded under
// any supported encoding or is not a well-formed delimited file. The table
// must be treated as inaccessible until the file is repaired.
var ErrUnreadable = errors.New("store unreadable")

// ErrUnavailable means the underlying file could not be read or written.
var ErrUnavailable = errors.New("store unavailable")

// Error describes a failed store operation.
//
// Kind is ErrUnreadable or ErrUnavailable; Err is the underlying cause.
// errors.Is matches both.
type Error struct {
	Op   string // read, append, delete, merge, export, parse
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func unreadable(op, path string, err error) error {
	return &Error{Op: op, Path: path, Kind: ErrUnreadable, Err: err}
}

func unavailable(op, path string, err error) error {
	return &Error{Op: op, Path: path, Kind: ErrUnavailable, Err: err}
}

// IsUnreadable reports whether err means the stored table cannot be decoded.
func IsUnreadable(err error) bool {
	return errors.Is(err, ErrUnreadable)
}

// IsUnavailable reports whether err means the store file could not be accessed.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
