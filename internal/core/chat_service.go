package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/veridocs/docchat/internal/domain"
	"github.com/veridocs/docchat/internal/extract"
	"github.com/veridocs/docchat/internal/store"
)

// ChatService orchestrates the document-grounded QA pipeline: uploads feed
// the extractor and the store, questions flow through prompt, model and
// validation before both halves of the turn are persisted.
type ChatService struct {
	store    store.Store
	analyzer DocumentAnalyzer
}

func NewChatService(st store.Store, analyzer DocumentAnalyzer) *ChatService {
	return &ChatService{
		store:    st,
		analyzer: analyzer,
	}
}

// UploadDocument extracts text from the payload and persists the document.
// Extraction metadata (page count, PDF info) is filled in before the write;
// the document is immutable afterwards.
func (s *ChatService) UploadDocument(fileName, mimeType string, data []byte) (*domain.Document, error) {
	result, err := extract.Extract(data, mimeType)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{}
	if result.PageCount > 0 {
		metadata["pageCount"] = result.PageCount
	}
	if len(result.Info) > 0 {
		metadata["info"] = result.Info
	}

	doc := &domain.Document{
		FileName: fileName,
		FileType: mimeType,
		FileSize: int64(len(data)),
		Content:  result.Text,
		Metadata: metadata,
	}
	if err := s.store.CreateDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return doc, nil
}

func (s *ChatService) GetDocument(id int64) (*domain.Document, error) {
	return s.store.GetDocument(id)
}

func (s *ChatService) ListDocuments() ([]domain.Document, error) {
	return s.store.GetAllDocuments()
}

// DocumentSections formats a document's extracted text for display,
// highlighting sections containing any of the given strings.
func (s *ChatService) DocumentSections(id int64, highlights []string) ([]extract.Section, error) {
	doc, err := s.store.GetDocument(id)
	if err != nil {
		return nil, err
	}
	return extract.FormatSections(doc.Content, highlights), nil
}

func (s *ChatService) ListConversations(documentID int64) ([]domain.Conversation, error) {
	if _, err := s.store.GetDocument(documentID); err != nil {
		return nil, err
	}
	return s.store.GetConversationsByDocumentID(documentID)
}

// greeting is the synthesized first render of an empty conversation. It is
// never persisted; it exists only in the returned view, with id 0.
func greeting(fileName string) domain.MessageView {
	return domain.MessageView{
		ID: 0,
		Content: fmt.Sprintf(
			"Hello! I'm your legal document assistant. I've analyzed your %s. How can I help you with this document?",
			fileName,
		),
		IsUserMessage: false,
		References:    []domain.Reference{},
	}
}

// ThreadView returns the conversation joined with its document and ordered
// messages. An empty conversation gets the canned greeting prepended to the
// view without being written to the store.
func (s *ChatService) ThreadView(conversationID int64) (*domain.ConversationWithMessages, error) {
	view, err := s.store.GetConversationWithMessages(conversationID)
	if err != nil {
		return nil, err
	}
	if len(view.Messages) == 0 {
		view.Messages = []domain.MessageView{greeting(view.Document.FileName)}
	}
	return view, nil
}

// ProcessMessage runs one question through the pipeline:
// validate, resolve the document, resolve or create the conversation,
// persist the user message, invoke and validate the model, persist the
// assistant message, then re-read the full thread for a consistent view.
//
// The user message is written before the model is invoked; a model failure
// after that point surfaces as an error while the user's half of the turn
// stays durable.
func (s *ChatService) ProcessMessage(ctx context.Context, req domain.MessageRequest) (*domain.ConversationWithMessages, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", domain.ErrValidation)
	}
	if req.DocumentID <= 0 {
		return nil, fmt.Errorf("%w: invalid document id", domain.ErrValidation)
	}

	doc, err := s.store.GetDocument(req.DocumentID)
	if err != nil {
		return nil, err
	}

	var conv *domain.Conversation
	if req.ConversationID == nil {
		conv = &domain.Conversation{DocumentID: doc.ID}
		if err := s.store.CreateConversation(conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	} else {
		conv, err = s.store.GetConversation(*req.ConversationID)
		if err != nil {
			return nil, err
		}
		// The store does not check this binding; it is enforced here.
		if conv.DocumentID != doc.ID {
			return nil, fmt.Errorf("%w: conversation does not belong to the specified document", domain.ErrValidation)
		}
	}

	userMsg := &domain.Message{
		ConversationID: conv.ID,
		Content:        req.Content,
		IsUserMessage:  true,
		References:     []domain.Reference{},
	}
	if err := s.store.CreateMessage(userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	analysis, err := s.analyzer.AnalyzeDocument(ctx, doc.Content, req.Content)
	if err != nil {
		// The user message is already durable; only the assistant turn is
		// lost.
		return nil, err
	}

	assistantMsg := &domain.Message{
		ConversationID: conv.ID,
		Content:        analysis.Answer,
		IsUserMessage:  false,
		References:     analysis.References,
	}
	if err := s.store.CreateMessage(assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	return s.store.GetConversationWithMessages(conv.ID)
}
