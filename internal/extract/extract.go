// Package extract turns pasted practice-question text into a mistake record.
//
// Each recognized field owns an ordered list of regular expressions. The
// first expression that matches the text supplies the field's value; a field
// with no matching expression is left empty. Extraction never fails: any
// input, including empty or binary text, yields a record carrying every
// canonical field.
//
// All expressions are compiled case-insensitive, with "." matching newlines
// and "^"/"$" matching at line boundaries.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/mistakelog/internal/schema"
)

// patternFlags is prepended to every rule pattern.
const patternFlags = "(?ims)"

// RuleSpec is the uncompiled form of a Rule.
type RuleSpec struct {
	Field     string              // Canonical column the rule fills
	Patterns  []string            // Ordered most specific first
	Normalize func(string) string // Optional post-processing of the matched value
}

// Rule is a compiled field rule.
type Rule struct {
	Field     string
	Patterns  []*regexp.Regexp
	Normalize func(string) string
}

// Extractor applies a fixed set of rules. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	rules []Rule
}

var defaultExtractor = MustNew(DefaultRules)

// New compiles specs into an Extractor.
// Returns an error naming the field and pattern position of the first
// pattern that fails to compile, or of a rule for an unknown field.
func New(specs []RuleSpec) (*Extractor, error) {
	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		if _, ok := schema.IndexOf(spec.Field); !ok {
			return nil, fmt.Errorf("extract: rule for unknown field %q", spec.Field)
		}
		rule := Rule{Field: spec.Field, Normalize: spec.Normalize}
		for i, p := range spec.Patterns {
			re, err := regexp.Compile(patternFlags + p)
			if err != nil {
				return nil, fmt.Errorf("extract: %s pattern %d: %w", spec.Field, i+1, err)
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		rules = append(rules, rule)
	}
	return &Extractor{rules: rules}, nil
}

// MustNew is like New but panics on error. Intended for package-level rule sets.
func MustNew(specs []RuleSpec) *Extractor {
	e, err := New(specs)
	if err != nil {
		panic(err)
	}
	return e
}

// Default returns the extractor built from DefaultRules.
func Default() *Extractor {
	return defaultExtractor
}

// Extract parses raw with the default rules.
func Extract(raw string) schema.Record {
	return defaultExtractor.Extract(raw)
}

// Extract maps raw text to a record. Every canonical field is present in the
// result; fields without a matching pattern, and fields no rule covers, are "".
func (e *Extractor) Extract(raw string) schema.Record {
	rec := schema.NewRecord()

	text := normalizeNewlines(raw)
	if strings.TrimSpace(text) == "" {
		return rec
	}

	for _, rule := range e.rules {
		rec[rule.Field] = rule.apply(text)
	}
	return rec
}

// apply returns the value supplied by the first matching pattern, or "".
func (r Rule) apply(text string) string {
	for _, re := range r.Patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		value := m[0]
		if len(m) > 1 {
			value = m[1]
		}
		value = strings.TrimSpace(value)

		if r.Normalize != nil {
			value = r.Normalize(value)
		}
		return value
	}
	return ""
}

// normalizeNewlines converts CRLF and lone CR line endings to LF so line
// anchored patterns behave the same for text pasted from any platform.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Usable reports whether rec carries enough to be worth saving: at least one
// identifying field (Category or Question Text) must be non-empty.
func Usable(rec schema.Record) bool {
	for _, spec := range schema.FieldSpecs {
		if spec.Identifies && strings.TrimSpace(rec.Get(spec.Name)) != "" {
			return true
		}
	}
	return false
}

// Missing returns the extracted fields that came back empty, in schema order.
// Callers use it to tell the user which parts of the paste were not recognized.
func Missing(rec schema.Record) []string {
	var out []string
	for _, spec := range schema.FieldSpecs {
		if spec.Extracted && strings.TrimSpace(rec.Get(spec.Name)) == "" {
			out = append(out, spec.Name)
		}
	}
	return out
}
