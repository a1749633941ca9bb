package store

import "github.com/veridocs/docchat/internal/domain"

// Store is the conversation ledger: documents, conversations and messages
// with monotonic identifier assignment and creation-order message retrieval.
// Both backends implement the same contract; which one runs is a deployment
// decision made at startup.
//
// Create methods assign the identifier and creation timestamp in place.
// The store does not enforce cross-entity references beyond
// GetConversationWithMessages; the chat service owns that invariant.
type Store interface {
	CreateDocument(doc *domain.Document) error
	GetDocument(id int64) (*domain.Document, error)
	GetAllDocuments() ([]domain.Document, error)

	CreateConversation(conv *domain.Conversation) error
	GetConversation(id int64) (*domain.Conversation, error)
	GetConversationsByDocumentID(documentID int64) ([]domain.Conversation, error)

	// GetConversationWithMessages joins the conversation with its owning
	// document's {id, fileName} projection and all messages in creation
	// order. A missing conversation or a dangling document reference both
	// return ErrConversationNotFound.
	GetConversationWithMessages(id int64) (*domain.ConversationWithMessages, error)

	CreateMessage(msg *domain.Message) error

	// GetMessagesByConversationID returns messages sorted ascending by
	// creation time, ties broken by identifier.
	GetMessagesByConversationID(conversationID int64) ([]domain.Message, error)

	Close() error
}
