package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSections_SplitsOnBlankLines(t *testing.T) {
	content := "First paragraph.\n\nSecond paragraph.\n\n\n\nThird paragraph."

	sections := FormatSections(content, nil)
	require.Len(t, sections, 3)
	assert.Equal(t, "First paragraph.", sections[0].Text)
	assert.Equal(t, "Second paragraph.", sections[1].Text)
	assert.Equal(t, "Third paragraph.", sections[2].Text)
}

func TestFormatSections_DropsWhitespaceOnlySections(t *testing.T) {
	content := "One.\n\n   \t \n\nTwo."

	sections := FormatSections(content, nil)
	require.Len(t, sections, 2)
	assert.Equal(t, "One.", sections[0].Text)
	assert.Equal(t, "Two.", sections[1].Text)
}

func TestFormatSections_EmptyContent(t *testing.T) {
	assert.Empty(t, FormatSections("", nil))
	assert.Empty(t, FormatSections("   \n \n  ", nil))
}

// The header heuristic is intentionally crude; these cases pin down the
// exact patterns, including a known false negative for mixed-case numbered
// headings.
func TestFormatSections_HeaderHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		section  string
		isHeader bool
	}{
		{"numbered all caps", "1. DEFINITIONS", true},
		{"nested numbered all caps", "1.1. SCOPE OF WORK", true},
		{"nested number without trailing dot", "2.3 PAYMENT TERMS", true},
		{"all caps with colon", "TERMS AND CONDITIONS:", true},
		{"single all caps word with colon", "WHEREAS:", true},
		{"numbered mixed case is not a header", "1. Definitions", false},
		{"mixed case with colon is not a header", "Note:", false},
		{"plain body paragraph", "This Agreement is entered into by the parties.", false},
		{"number without heading text", "1. a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections := FormatSections(tt.section, nil)
			require.Len(t, sections, 1)
			assert.Equal(t, tt.isHeader, sections[0].IsHeader)
		})
	}
}

func TestFormatSections_HighlightMatching(t *testing.T) {
	content := "The tenant shall pay rent monthly.\n\nThe landlord may terminate the lease."

	sections := FormatSections(content, []string{"pay rent"})
	require.Len(t, sections, 2)
	assert.True(t, sections[0].IsHighlighted)
	assert.False(t, sections[1].IsHighlighted)
}

func TestFormatSections_HighlightIsCaseSensitive(t *testing.T) {
	sections := FormatSections("The Tenant shall pay rent.", []string{"tenant"})
	require.Len(t, sections, 1)
	assert.False(t, sections[0].IsHighlighted)
}

func TestFormatSections_EmptyHighlightIsIgnored(t *testing.T) {
	sections := FormatSections("Some text.", []string{""})
	require.Len(t, sections, 1)
	assert.False(t, sections[0].IsHighlighted)
}
