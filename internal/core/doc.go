// Package core provides the mistake log operations a front end calls.
//
// It joins the extractor and the CSV store and adds what neither knows
// about: classification of a new entry, history windows, bounded concurrent
// imports and user-facing error messages. It has no UI dependencies; the
// web server and the command line both drive the same [Service].
//
// # Flows
//
//   - Log: pasted text → [Service.Extract] → user picks an error type and
//     notes → [Service.Log] appends one row.
//   - Import: uploaded tables → [Service.Import] merges them, keeping the
//     last row for each Timestamp.
//   - Delete: positions from [Service.History] → [Service.DeleteRows].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
package core
