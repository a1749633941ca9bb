package store

import (
	"sort"
	"sync"
	"time"

	"github.com/veridocs/docchat/internal/domain"
)

// Ensure MemStore implements the interface.
var _ Store = (*MemStore)(nil)

// MemStore is a process-lifetime implementation of Store. Identifier
// allocation and append happen under one mutex, so concurrent writers
// cannot interleave ids out of order.
type MemStore struct {
	mu            sync.RWMutex
	documents     map[int64]domain.Document
	conversations map[int64]domain.Conversation
	messages      map[int64]domain.Message

	documentID     int64
	conversationID int64
	messageID      int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		documents:      make(map[int64]domain.Document),
		conversations:  make(map[int64]domain.Conversation),
		messages:       make(map[int64]domain.Message),
		documentID:     1,
		conversationID: 1,
		messageID:      1,
	}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) CreateDocument(doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = s.documentID
	s.documentID++
	doc.UploadedAt = time.Now()
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	s.documents[doc.ID] = *doc
	return nil
}

func (s *MemStore) GetDocument(id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &doc, nil
}

func (s *MemStore) GetAllDocuments() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemStore) CreateConversation(conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv.ID = s.conversationID
	s.conversationID++
	conv.CreatedAt = time.Now()
	s.conversations[conv.ID] = *conv
	return nil
}

func (s *MemStore) GetConversation(id int64) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return &conv, nil
}

func (s *MemStore) GetConversationsByDocumentID(documentID int64) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]domain.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.DocumentID == documentID {
			convs = append(convs, conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].ID < convs[j].ID })
	return convs, nil
}

func (s *MemStore) CreateMessage(msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = s.messageID
	s.messageID++
	msg.CreatedAt = time.Now()
	if msg.References == nil {
		msg.References = []domain.Reference{}
	}
	stored := *msg
	stored.References = copyReferences(msg.References)
	s.messages[msg.ID] = stored
	return nil
}

// copyReferences clones a references slice, keeping empty distinct from nil
// so the JSON shape stays an array rather than null.
func copyReferences(refs []domain.Reference) []domain.Reference {
	out := make([]domain.Reference, len(refs))
	copy(out, refs)
	return out
}

func (s *MemStore) GetMessagesByConversationID(conversationID int64) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messagesLocked(conversationID), nil
}

// messagesLocked collects a conversation's messages in creation order.
// Callers must hold at least a read lock.
func (s *MemStore) messagesLocked(conversationID int64) []domain.Message {
	msgs := make([]domain.Message, 0)
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs
}

func (s *MemStore) GetConversationWithMessages(id int64) (*domain.ConversationWithMessages, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	// A dangling document reference is a broken-reference condition, not a
	// partial result.
	doc, ok := s.documents[conv.DocumentID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}

	msgs := s.messagesLocked(id)
	views := make([]domain.MessageView, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, domain.MessageView{
			ID:            msg.ID,
			Content:       msg.Content,
			IsUserMessage: msg.IsUserMessage,
			References:    copyReferences(msg.References),
			CreatedAt:     msg.CreatedAt,
		})
	}

	return &domain.ConversationWithMessages{
		ID:       conv.ID,
		Document: domain.DocumentSummary{ID: doc.ID, FileName: doc.FileName},
		Messages: views,
	}, nil
}
