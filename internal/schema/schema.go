// Package schema defines the canonical mistake-log columns and the record and
// table types shared by the extractor, the store and the service layer.
package schema

import "strings"

// Canonical column names, in on-disk order.
const (
	Category        = "Category"
	QuestionNumber  = "Question Number"
	Result          = "Result"
	QuestionText    = "Question Text"
	ErrorType       = "Error Type"
	ConfidenceLevel = "Confidence Level"
	TimeSpent       = "Time Spent"
	DifficultyLevel = "Difficulty Level"
	Notes           = "Notes"
	Timestamp       = "Timestamp"
)

// FieldType describes how a column is treated when it is displayed or cleaned.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldTimestamp
)

// FieldSpec describes a single canonical column.
type FieldSpec struct {
	Name       string    // Header name as written to the CSV file
	Type       FieldType // How the value is interpreted
	Extracted  bool      // Populated by the extractor from pasted text
	Identifies bool      // Counts toward a usable extraction
	EnumValues []string  // Allowed values for FieldEnum (empty string always allowed)
}

// FieldSpecs is the canonical schema. Column order is the order of this slice.
var FieldSpecs = []FieldSpec{
	{Name: Category, Type: FieldText, Extracted: true, Identifies: true},
	{Name: QuestionNumber, Type: FieldText, Extracted: true},
	{Name: Result, Type: FieldEnum, Extracted: true, EnumValues: ResultValues},
	{Name: QuestionText, Type: FieldText, Extracted: true, Identifies: true},
	{Name: ErrorType, Type: FieldEnum, EnumValues: ErrorTypes},
	{Name: ConfidenceLevel, Type: FieldText, Extracted: true},
	{Name: TimeSpent, Type: FieldText, Extracted: true},
	{Name: DifficultyLevel, Type: FieldText, Extracted: true},
	{Name: Notes, Type: FieldText},
	{Name: Timestamp, Type: FieldTimestamp},
}

// ResultValues are the recognized values of the Result column.
var ResultValues = []string{"Correct", "Incorrect", "Uncertain"}

// ErrorTypes is the fixed error classification offered to the user.
var ErrorTypes = []string{
	"Misread the question",
	"Wrong formula/concept",
	"Calculation error",
	"Uncertain",
}

// errorTypeIcons are the display prefixes shown next to each error type.
var errorTypeIcons = []string{"❌ ", "🔄 ", "⚠️ ", "❓ "}

// TimestampLayout is the layout of the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	columns     []string
	columnIndex map[string]int
)

func init() {
	columns = make([]string, len(FieldSpecs))
	columnIndex = make(map[string]int, len(FieldSpecs))
	for i, spec := range FieldSpecs {
		columns[i] = spec.Name
		columnIndex[strings.ToLower(spec.Name)] = i
	}
}

// Columns returns a copy of the canonical header.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// ColumnCount is the number of canonical columns.
func ColumnCount() int {
	return len(columns)
}

// IndexOf returns the canonical position of a column name, matched
// case-insensitively after trimming whitespace.
func IndexOf(name string) (int, bool) {
	i, ok := columnIndex[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// IsCanonicalHeader reports whether header is exactly the canonical header.
func IsCanonicalHeader(header []string) bool {
	if len(header) != len(columns) {
		return false
	}
	for i, h := range header {
		if h != columns[i] {
			return false
		}
	}
	return true
}

// DisplayErrorTypes returns the error types with their display icons.
func DisplayErrorTypes() []string {
	out := make([]string, len(ErrorTypes))
	for i, et := range ErrorTypes {
		out[i] = errorTypeIcons[i] + et
	}
	return out
}

// CleanErrorType strips display icons from an error type label.
func CleanErrorType(s string) string {
	for _, icon := range errorTypeIcons {
		s = strings.ReplaceAll(s, icon, "")
	}
	return strings.TrimSpace(s)
}

// ValidErrorType reports whether s (after icon cleanup) is a known error type.
func ValidErrorType(s string) bool {
	s = CleanErrorType(s)
	for _, et := range ErrorTypes {
		if strings.EqualFold(et, s) {
			return true
		}
	}
	return false
}

// CanonicalErrorType returns the enumeration spelling of s, or "" if s is not
// a known error type.
func CanonicalErrorType(s string) string {
	s = CleanErrorType(s)
	for _, et := range ErrorTypes {
		if strings.EqualFold(et, s) {
			return et
		}
	}
	return ""
}
