package core

import (
	"encoding/json"
	"fmt"

	"github.com/veridocs/docchat/internal/domain"
)

// malformedAnswerPrefix introduces the raw completion when it could not be
// decoded as JSON. Malformed model output degrades, it never crashes a
// request.
const malformedAnswerPrefix = "I encountered an issue formatting my response. Here's what I found: "

// ParseAnalysis decodes and validates a raw model completion.
//
// Decode failure is fail-soft: the raw text becomes the answer and the
// references are empty. A completion that decodes but carries no answer is
// a hard validation failure; a syntactically valid but incomplete response
// points at a prompt or model problem worth surfacing.
func ParseAnalysis(raw string) (*domain.Analysis, error) {
	var payload struct {
		Answer     string          `json:"answer"`
		References json.RawMessage `json:"references"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return &domain.Analysis{
			Answer:     malformedAnswerPrefix + raw,
			References: []domain.Reference{},
		}, nil
	}

	if payload.Answer == "" {
		return nil, fmt.Errorf("%w: missing 'answer' field in model completion", domain.ErrEmptyModelAnswer)
	}

	return &domain.Analysis{
		Answer:     payload.Answer,
		References: normalizeReferences(payload.References),
	}, nil
}

// normalizeReferences coerces the references field into a well-formed
// slice: anything that is not an array of objects becomes empty, and a
// missing text or location on an item defaults to "".
func normalizeReferences(raw json.RawMessage) []domain.Reference {
	refs := []domain.Reference{}
	if len(raw) == 0 {
		return refs
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return refs
	}

	for _, item := range items {
		var ref domain.Reference
		if text, ok := item["text"].(string); ok {
			ref.Text = text
		}
		if location, ok := item["location"].(string); ok {
			ref.Location = location
		}
		refs = append(refs, ref)
	}
	return refs
}
