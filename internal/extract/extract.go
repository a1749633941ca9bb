// Package extract turns uploaded file payloads into plain text plus
// structural metadata, dispatching on the declared MIME type.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/veridocs/docchat/internal/domain"
)

const (
	MIMEPlainText = "text/plain"
	MIMEPDF       = "application/pdf"
	MIMEDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// SupportedMIMEType reports whether the upload boundary should accept the
// declared type at all. DOCX is accepted here and rejected by Extract with
// a "not implemented" error, matching the upload flow this replaces.
func SupportedMIMEType(mimeType string) bool {
	switch mimeType {
	case MIMEPlainText, MIMEPDF, MIMEDocx:
		return true
	}
	return false
}

// Result is the extracted plain text plus whatever structural metadata the
// format carries. PageCount is zero for formats without pages.
type Result struct {
	Text      string
	PageCount int
	Info      map[string]any
}

// Extract is a pure transform over bytes; it performs no I/O and mutates
// nothing.
func Extract(data []byte, mimeType string) (*Result, error) {
	switch mimeType {
	case MIMEPlainText:
		return &Result{Text: string(data)}, nil
	case MIMEPDF:
		return extractPDF(data)
	case MIMEDocx:
		return nil, fmt.Errorf("%w: DOCX support is not implemented yet", domain.ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mimeType)
	}
}

func extractPDF(data []byte) (result *Result, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty or invalid PDF buffer", domain.ErrExtraction)
	}

	// The pdf package panics on some malformed inputs; surface those as
	// extraction errors instead of crashing the request.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: failed to parse PDF: %v", domain.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse PDF: %v", domain.ErrExtraction, err)
	}

	var text strings.Builder
	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to extract text from page %d: %v", domain.ErrExtraction, i, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return &Result{
		Text:      text.String(),
		PageCount: pageCount,
		Info:      documentInfo(reader),
	}, nil
}

// documentInfo pulls string entries (Title, Author, Producer, ...) from the
// PDF trailer's Info dictionary.
func documentInfo(reader *pdf.Reader) map[string]any {
	info := map[string]any{}
	dict := reader.Trailer().Key("Info")
	if dict.Kind() != pdf.Dict {
		return info
	}
	for _, key := range dict.Keys() {
		value := dict.Key(key)
		if value.Kind() == pdf.String {
			info[key] = value.RawString()
		}
	}
	return info
}
