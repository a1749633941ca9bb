package domain

import "errors"

var (
	ErrValidation           = errors.New("invalid request")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUnsupportedFormat    = errors.New("unsupported file format")
	ErrExtraction           = errors.New("text extraction failed")
	ErrModelInvocation      = errors.New("model invocation failed")
	ErrEmptyModelAnswer     = errors.New("model response missing answer")
)
