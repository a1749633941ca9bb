package extract

import (
	"regexp"
	"strings"
)

// Section is one display unit of an extracted document.
type Section struct {
	Text          string `json:"text"`
	IsHeader      bool   `json:"isHeader"`
	IsHighlighted bool   `json:"isHighlighted"`
}

var (
	sectionBoundary = regexp.MustCompile(`\n\s*\n`)

	// Header heuristics: a numeric outline marker followed by capitalized
	// words, or an all-caps run ending in a colon. False positives and
	// negatives are acceptable; the tests pin down the exact patterns.
	numberedHeader = regexp.MustCompile(`^(\d+\.|\d+\.\d+\.?)\s+[A-Z\s]{2,}`)
	capsHeader     = regexp.MustCompile(`^[A-Z\s]{2,}:`)
)

// FormatSections splits extracted text on blank-line boundaries, tags each
// section as header or body, and flags sections containing any of the
// highlight strings as a literal case-sensitive substring. Whitespace-only
// sections are dropped.
func FormatSections(content string, highlights []string) []Section {
	sections := make([]Section, 0)
	if content == "" {
		return sections
	}

	for _, raw := range sectionBoundary.Split(content, -1) {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		sections = append(sections, Section{
			Text:          trimmed,
			IsHeader:      numberedHeader.MatchString(trimmed) || capsHeader.MatchString(trimmed),
			IsHighlighted: containsAny(trimmed, highlights),
		})
	}
	return sections
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
