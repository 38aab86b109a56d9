// Package templates renders the mistake log pages as templ components.
//
// Components live in the .templ files; run `templ generate` after editing
// them to refresh the *_templ.go files.
package templates

import (
	"github.com/JonMunkholm/mistakelog/internal/core"
	"github.com/JonMunkholm/mistakelog/internal/schema"
)

// Flash is a one-line status shown above the page content.
type Flash struct {
	Text  string
	Error *core.UserMessage
}

// PageParams carries everything the main page shows.
type PageParams struct {
	History    core.HistoryPage
	ErrorTypes []string // Display labels, with icons
	Columns    []string // Columns shown in the history table
	Flash      Flash
	Text       string // Form values kept after a preview or a rejected submit
	ErrorType  string
	Notes      string
	Preview    *core.ExtractResult // Set after a preview request
	MaxFiles   int
}

// HistoryColumns are the columns shown in the history table. The full row is
// in the export.
var HistoryColumns = []string{
	schema.Timestamp,
	schema.Category,
	schema.QuestionNumber,
	schema.Result,
	schema.ErrorType,
	schema.TimeSpent,
	schema.Notes,
}

// isSelected reports whether the option label et is the submitted error type.
func isSelected(submitted, et string) bool {
	selected := schema.CanonicalErrorType(submitted)
	return selected != "" && schema.CleanErrorType(et) == selected
}

// extractedFields lists the fields the extractor fills, in column order.
func extractedFields() []string {
	var out []string
	for _, spec := range schema.FieldSpecs {
		if spec.Extracted {
			out = append(out, spec.Name)
		}
	}
	return out
}
