package extract

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/mistakelog/internal/schema"
)

func assertCanonical(t *testing.T, rec schema.Record) {
	t.Helper()
	require.Len(t, rec, schema.ColumnCount())
	for _, c := range schema.Columns() {
		_, ok := rec[c]
		assert.True(t, ok, "field %q missing", c)
	}
}

func TestExtract_LabeledPaste(t *testing.T) {
	raw := "Category: Fixed Income\nQuestion 5 of 60\nResult: Incorrect\nTime Spent: 01:36\nDifficulty Level: Hard\n"

	rec := Extract(raw)

	assertCanonical(t, rec)
	assert.Equal(t, "Fixed Income", rec[schema.Category])
	assert.Equal(t, "5 of 60", rec[schema.QuestionNumber])
	assert.Equal(t, "Incorrect", rec[schema.Result])
	assert.Equal(t, "1 mins 36 secs", rec[schema.TimeSpent])
	assert.Equal(t, "Hard", rec[schema.DifficultyLevel])
	assert.Empty(t, rec[schema.ErrorType])
	assert.Empty(t, rec[schema.Notes])
	assert.Empty(t, rec[schema.Timestamp])
}

func TestExtract_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n\t", "\r\n"} {
		rec := Extract(raw)
		assertCanonical(t, rec)
		for field, v := range rec {
			assert.Empty(t, v, "field %q for input %q", field, raw)
		}
	}
}

func TestExtract_NeverPanicsOnArbitraryInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []byte("Question of 0123456789 ACDQ:.\n\r\t✓\xff\xfeLevel IVX Solution Correct")

	for i := 0; i < 500; i++ {
		buf := make([]byte, rng.Intn(200))
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}

		var rec schema.Record
		require.NotPanics(t, func() { rec = Extract(string(buf)) })
		assertCanonical(t, rec)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	raw := "Done Practicing Equity Investments Question 3 of 73\nYour result is correct.\nTotal: 00:42"
	first := Extract(raw)
	second := Extract(raw)
	assert.Equal(t, first, second)
}

func TestExtract_FirstPatternWins(t *testing.T) {
	e, err := New([]RuleSpec{{
		Field:    schema.Category,
		Patterns: []string{`alpha (\w+)`, `(\w+) beta`},
	}})
	require.NoError(t, err)

	// Both patterns match; the first one supplies the value.
	rec := e.Extract("alpha one two beta")
	assert.Equal(t, "one", rec[schema.Category])

	// Only the second matches.
	rec = e.Extract("zero two beta")
	assert.Equal(t, "two", rec[schema.Category])
}

func TestExtract_PatternWithoutGroupUsesWholeMatch(t *testing.T) {
	raw := "Application of the Code and Standards: Level II\nQuestion 1 of 1\n"
	rec := Extract(raw)
	assert.Equal(t, "Application of the Code and Standards: Level II", rec[schema.Category])
	assert.Equal(t, "1 of 1", rec[schema.QuestionNumber])
}

func TestExtract_Category(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "level pattern",
			raw:  "Quantitative Methods Level II\nQuestion 1 of 5",
			want: "Quantitative Methods Level II",
		},
		{
			name: "level numeral must end at a word boundary",
			raw:  "Practice Level Index\nReview Category: Derivatives\nQuestion 2 of 9",
			want: "Derivatives",
		},
		{
			name: "level followed by a word is not a numeral",
			raw:  "Practice Level is easy\nReview Category: Ethics\nQuestion 3 of 9",
			want: "Ethics",
		},
		{
			name: "review category",
			raw:  "Review Category: Derivatives\nQuestion 2 of 9",
			want: "Derivatives",
		},
		{
			name: "done practicing",
			raw:  "Done Practicing Portfolio Management Question 4 of 12",
			want: "Portfolio Management",
		},
		{
			name: "first line fallback",
			raw:  "Economics\nsomething else",
			want: "Economics",
		},
		{
			name: "single line has no category",
			raw:  "no newline here",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw)[schema.Category])
		})
	}
}

func TestExtract_QuestionNumberFallback(t *testing.T) {
	assert.Equal(t, "3 of 73", Extract("Header\nQuestion: 3 of 73\n")[schema.QuestionNumber])
	assert.Equal(t, "7 of 8", Extract("Header\nitem 7 of 8\n")[schema.QuestionNumber])
}

func TestExtract_Result(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"your result sentence", "x\nYour result is incorrect.", "Incorrect"},
		{"labeled uncertain", "x\nResult: uncertain\n", "Uncertain"},
		{"checkmark", "x\n✓ You answered Correct", "Correct"},
		{"bare word", "x\nthat was INCORRECT sadly", "Incorrect"},
		{"no result", "x\nnothing to see", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw)[schema.Result])
		})
	}
}

func TestExtract_QuestionText(t *testing.T) {
	raw := "Ethics\nQuestion\nWhat is the duration of the bond?\nA.\n5 years\nSolution\nB is correct."
	assert.Equal(t, "What is the duration of the bond?", Extract(raw)[schema.QuestionText])

	labeled := "Category: Ethics\nQuestion Text: Is this a violation?\n"
	assert.Equal(t, "Is this a violation?", Extract(labeled)[schema.QuestionText])
}

func TestExtract_ConfidenceAndDifficulty(t *testing.T) {
	raw := "Header\nConfidence Level: Medium\nContinue\nDifficulty Level: Easy"
	rec := Extract(raw)
	assert.Equal(t, "Medium", rec[schema.ConfidenceLevel])
	assert.Equal(t, "Easy", rec[schema.DifficultyLevel])
}

func TestExtract_TimeSpentVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"x\nTotal: 00:03", "3 secs"},
		{"x\nThis Question:01:36", "1 mins 36 secs"},
		{"x\nTime Spent: 3 secs", "3 secs"},
		{"x\nTime Spent: about a minute\n", "about a minute"},
		{"x\nTotal: 00:03\nThis Question:01:36", "3 secs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Extract(tt.raw)[schema.TimeSpent], "input %q", tt.raw)
	}
}

func TestExtract_CRLF(t *testing.T) {
	rec := Extract("Category: Ethics\r\nQuestion 2 of 10\r\nResult: Correct\r\n")
	assert.Equal(t, "Ethics", rec[schema.Category])
	assert.Equal(t, "2 of 10", rec[schema.QuestionNumber])
	assert.Equal(t, "Correct", rec[schema.Result])
}

func TestHumanizeDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"00:03", "3 secs"},
		{"02:05", "2 mins 5 secs"},
		{"00:75", "00:75"},
		{"1:2:3", "1:2:3"},
		{"ab:cd", "ab:cd"},
		{"45 secs", "45 secs"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanizeDuration(tt.in), "humanizeDuration(%q)", tt.in)
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Incorrect", capitalize("iNCORRECT"))
	assert.Equal(t, "", capitalize(""))
}

func TestUsable(t *testing.T) {
	assert.False(t, Usable(nil))
	assert.False(t, Usable(schema.NewRecord()))
	assert.False(t, Usable(schema.Record{schema.Result: "Correct", schema.QuestionNumber: "1 of 2"}))
	assert.True(t, Usable(schema.Record{schema.Category: "Ethics"}))
	assert.True(t, Usable(schema.Record{schema.QuestionText: "Why?"}))
	assert.False(t, Usable(schema.Record{schema.Category: "   "}))
}

func TestMissing(t *testing.T) {
	rec := schema.Record{schema.Category: "Ethics", schema.Result: "Correct"}
	missing := Missing(rec)
	assert.NotContains(t, missing, schema.Category)
	assert.NotContains(t, missing, schema.Result)
	assert.Contains(t, missing, schema.QuestionText)
	// Fields the extractor never fills are not reported.
	assert.NotContains(t, missing, schema.Notes)
	assert.NotContains(t, missing, schema.ErrorType)
}

func TestNew_Errors(t *testing.T) {
	_, err := New([]RuleSpec{{Field: "Score", Patterns: []string{`x`}}})
	assert.Error(t, err)

	_, err = New([]RuleSpec{{Field: schema.Category, Patterns: []string{`ok`, `(unclosed`}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern 2")
}
