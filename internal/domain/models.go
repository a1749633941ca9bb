package domain

import "time"

// Reference is a quoted span from the source document attached to an
// assistant message, with an optional human-readable location label.
type Reference struct {
	Text     string `json:"text"`
	Location string `json:"location"`
}

type Document struct {
	ID         int64          `json:"id"`
	FileName   string         `json:"fileName"`
	FileType   string         `json:"fileType"`
	FileSize   int64          `json:"fileSize"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	UploadedAt time.Time      `json:"uploadedAt"`
}

type Conversation struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"documentId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversationId"`
	Content        string      `json:"content"`
	IsUserMessage  bool        `json:"isUserMessage"`
	References     []Reference `json:"references"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// DocumentSummary is the document projection embedded in a conversation view.
type DocumentSummary struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
}

// MessageView is the message shape returned inside a conversation view.
// The synthesized greeting uses ID 0, which no stored message ever has.
type MessageView struct {
	ID            int64       `json:"id"`
	Content       string      `json:"content"`
	IsUserMessage bool        `json:"isUserMessage"`
	References    []Reference `json:"references"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// ConversationWithMessages joins a conversation with its owning document
// projection and all messages in creation order.
type ConversationWithMessages struct {
	ID       int64           `json:"id"`
	Document DocumentSummary `json:"document"`
	Messages []MessageView   `json:"messages"`
}

// Analysis is the validated result of a document analysis completion.
type Analysis struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
}

// MessageRequest is an incoming question to process against a document.
// A nil ConversationID means "start a new conversation".
type MessageRequest struct {
	Content        string `json:"content" validate:"required"`
	DocumentID     int64  `json:"documentId" validate:"required,gt=0"`
	ConversationID *int64 `json:"conversationId" validate:"omitempty,gt=0"`
}
