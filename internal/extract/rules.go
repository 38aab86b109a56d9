package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/mistakelog/internal/schema"
)

// DefaultRules are the parsing rules for pasted practice-question pages.
//
// Patterns for a field are ordered most specific first. The first pattern
// that matches supplies the value; later ones are not consulted. Where a
// pattern has to stop at a terminator, the terminator sits in a trailing
// non-capturing group so only group 1 is used.
var DefaultRules = []RuleSpec{
	{
		Field: schema.Category,
		Patterns: []string{
			`Application of the Code and Standards: Level II`,
			`^[ \t]*Category[ \t]*:[ \t]*([^\n]+)`,
			`([A-Z][a-zA-Z\s:]+Level\s+[IVX]+\b)`,
			`Review Category[:\s]+(.*?)(?:\n|Question)`,
			`Done Practicing\s*([A-Z][a-zA-Z\s]+?)(?:\s*Question|\s*\d+\s+of\s+\d+|\n|$)`,
			// Category name printed at the end of the page, above the LOS line.
			`\n\s*([A-Z][a-zA-Z\s]+?)\s*\n\s*demonstrate the use`,
			`^(.*?)\n`,
		},
	},
	{
		Field: schema.QuestionNumber,
		Patterns: []string{
			`Question\s+(\d+\s+of\s+\d+)`,
			`Question[:\s]+(\d+ of \d+)`,
			`(\d+\s+of\s+\d+)`,
		},
	},
	{
		Field: schema.Result,
		Patterns: []string{
			`Your result is (\w+)\.`,
			`^[ \t]*Result[ \t]*:[ \t]*(Correct|Incorrect|Uncertain)\b`,
			`✓.*?(Correct)`,
			`\b(Correct|Incorrect)\b`,
			`Correct Answer.*?Your Answer.*?([A-Z])\s*✓`,
		},
		Normalize: capitalize,
	},
	{
		Field: schema.QuestionText,
		Patterns: []string{
			`^[ \t]*Question Text[ \t]*:[ \t]*([^\n]+)`,
			`Question\s*\n(.*?)(?:\s*A\.\s*$|\s*A\.\s*\n|\s*Solution)`,
			// Ethics vignettes end with "Did X violate ...".
			`Question\s*\n\s*(.*?)(?:\s*Did.*violate)`,
			`Question\s*\n(.*?)(?:\s*A\.|Solution)`,
			`(?:^|\n)\s*Question\s*\n(.*?)(?:\nSolution|\nA\.)`,
			`Question\s+(.*?)(?:\nA\.|\nSolution)`,
			`Question\s+(.*?)(?:\s*A\.\s*lower|\s*Solution)`,
		},
	},
	{
		Field: schema.ConfidenceLevel,
		Patterns: []string{
			`Confidence Level:\s*([^\n]*?)(?:\n|$|Continue)`,
			`Confidence Level:[^\n]*?\n([^\n]*?)(?:\n|$|Continue)`,
		},
	},
	{
		Field: schema.TimeSpent,
		Patterns: []string{
			`Total:\s*(\d{2}:\d{2})`,
			`This Question:\s*(\d{2}:\d{2})`,
			`Time Spent:\s*(\d+ secs?)`,
			`Time Spent:\s*([^\n]*?)(?:\n|$)`,
		},
		Normalize: humanizeDuration,
	},
	{
		Field: schema.DifficultyLevel,
		Patterns: []string{
			`Difficulty Level:\s*([^\n]*?)(?:\n|$)`,
		},
	},
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// humanizeDuration rewrites a MM:SS clock reading as "S secs" or
// "M mins S secs". Values already in seconds, and anything that does not
// parse as a sane clock reading, are returned unchanged.
func humanizeDuration(s string) string {
	if strings.Contains(strings.ToLower(s), "sec") || !strings.Contains(s, ":") {
		return s
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return s
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return s
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return s
	}
	if minutes < 0 || minutes > 999 || seconds < 0 || seconds > 59 {
		return s
	}

	if minutes == 0 {
		return fmt.Sprintf("%d secs", seconds)
	}
	return fmt.Sprintf("%d mins %d secs", minutes, seconds)
}
