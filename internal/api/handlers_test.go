package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veridocs/docchat/internal/core"
	"github.com/veridocs/docchat/internal/domain"
	"github.com/veridocs/docchat/internal/store"
)

type analyzerFunc func(ctx context.Context, documentText, query string) (*domain.Analysis, error)

func (f analyzerFunc) AnalyzeDocument(ctx context.Context, documentText, query string) (*domain.Analysis, error) {
	return f(ctx, documentText, query)
}

var okAnalyzer = analyzerFunc(func(context.Context, string, string) (*domain.Analysis, error) {
	return &domain.Analysis{
		Answer:     "The rent is due on the first of each month.",
		References: []domain.Reference{{Text: "rent is due on the first", Location: "Section 3.2"}},
	}, nil
})

func newTestServer(analyzer core.DocumentAnalyzer) (http.Handler, *store.MemStore) {
	st := store.NewMemStore()
	chatService := core.NewChatService(st, analyzer)
	handler := NewAPIHandler(chatService, 10*1024*1024)
	return NewRouter(handler), st
}

func multipartUpload(t *testing.T, fieldName, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func uploadDocument(t *testing.T, router http.Handler, fileName, contentType string, data []byte) DocumentUploadResponse {
	t.Helper()
	body, formContentType := multipartUpload(t, "file", fileName, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", formContentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp DocumentUploadResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestUploadDocument_PlainText(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	resp := uploadDocument(t, router, "note.txt", "text/plain", []byte("Hi.\n\n"))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "note.txt", resp.FileName)
	assert.Equal(t, "text/plain", resp.FileType)
	assert.Equal(t, int64(5), resp.FileSize)
	assert.False(t, resp.UploadedAt.IsZero())

	// Fetch by id: content must round-trip byte for byte.
	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/documents/%d", resp.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc domain.Document
	decodeBody(t, rec, &doc)
	assert.Equal(t, "Hi.\n\n", doc.Content)
}

func TestUploadDocument_NoFile(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "No file provided", resp["message"])
}

func TestUploadDocument_UnsupportedType(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	body, formContentType := multipartUpload(t, "file", "cat.png", "image/png", []byte("fake png"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", formContentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp["message"], "Unsupported file format")
}

func TestUploadDocument_DocxRejected(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	docxMIME := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	body, formContentType := multipartUpload(t, "file", "contract.docx", docxMIME, []byte("PK"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", formContentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp["message"], "not implemented")
}

func TestUploadDocument_ExtractionFailureIs500(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	body, formContentType := multipartUpload(t, "file", "broken.pdf", "application/pdf", []byte("not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", formContentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Failed to process document upload", resp["message"])
	assert.NotEmpty(t, resp["error"])
}

func TestGetDocument_InvalidID(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodGet, "/api/documents/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocument_NotFound(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodGet, "/api/documents/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocuments_SummariesOnly(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)
	uploadDocument(t, router, "a.txt", "text/plain", []byte("first"))
	uploadDocument(t, router, "b.txt", "text/plain", []byte("second"))

	rec := doJSON(t, router, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw []map[string]any
	decodeBody(t, rec, &raw)
	require.Len(t, raw, 2)
	assert.Equal(t, "a.txt", raw[0]["fileName"])
	assert.NotContains(t, raw[0], "content")
}

func TestPostMessage_FullExchange(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)
	doc := uploadDocument(t, router, "lease.txt", "text/plain", []byte("The rent is due on the first of each month."))

	rec := doJSON(t, router, http.MethodPost, "/api/messages", map[string]any{
		"content":    "When is rent due?",
		"documentId": doc.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var thread domain.ConversationWithMessages
	decodeBody(t, rec, &thread)
	assert.Equal(t, doc.ID, thread.Document.ID)
	assert.Equal(t, "lease.txt", thread.Document.FileName)
	require.Len(t, thread.Messages, 2)
	assert.True(t, thread.Messages[0].IsUserMessage)
	assert.False(t, thread.Messages[1].IsUserMessage)
	require.Len(t, thread.Messages[1].References, 1)
	assert.Equal(t, "Section 3.2", thread.Messages[1].References[0].Location)
}

func TestPostMessage_EmptyContentFieldError(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)
	doc := uploadDocument(t, router, "lease.txt", "text/plain", []byte("text"))

	rec := doJSON(t, router, http.MethodPost, "/api/messages", map[string]any{
		"content":    "",
		"documentId": doc.ID,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Invalid request data", resp.Message)
	assert.Contains(t, resp.Errors, "content")
}

func TestPostMessage_MissingDocumentIDFieldError(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodPost, "/api/messages", map[string]any{"content": "hello"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Errors, "documentId")
}

func TestPostMessage_DocumentNotFound(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodPost, "/api/messages", map[string]any{
		"content":    "hello",
		"documentId": 42,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessage_CrossDocumentMismatch(t *testing.T) {
	router, st := newTestServer(okAnalyzer)
	uploadDocument(t, router, "a.txt", "text/plain", []byte("doc a"))
	docB := uploadDocument(t, router, "b.txt", "text/plain", []byte("doc b"))

	conv := &domain.Conversation{DocumentID: 1}
	require.NoError(t, st.CreateConversation(conv))

	rec := doJSON(t, router, http.MethodPost, "/api/messages", map[string]any{
		"content":        "hello",
		"documentId":     docB.ID,
		"conversationId": conv.ID,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp["message"], "does not belong")

	// Nothing was persisted for the mismatched request.
	msgs, err := st.GetMessagesByConversationID(conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPostMessage_ModelFailureAfterUserMessage(t *testing.T) {
	failing := analyzerFunc(func(context.Context, string, string) (*domain.Analysis, error) {
		return nil, fmt.Errorf("%w: upstream unavailable", domain.ErrModelInvocation)
	})
	router, st := newTestServer(failing)
	doc := uploadDocument(t, router, "lease.txt", "text/plain", []byte("text"))

	rec := doJSON(t, router, http.MethodPost, "/api/messages", map[string]any{
		"content":    "hello",
		"documentId": doc.ID,
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	convs, err := st.GetConversationsByDocumentID(doc.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	msgs, err := st.GetMessagesByConversationID(convs[0].ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsUserMessage)
}

func TestGetConversation_GreetingForEmptyConversation(t *testing.T) {
	router, st := newTestServer(okAnalyzer)
	uploadDocument(t, router, "lease.txt", "text/plain", []byte("text"))

	conv := &domain.Conversation{DocumentID: 1}
	require.NoError(t, st.CreateConversation(conv))

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/conversations/%d", conv.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var thread domain.ConversationWithMessages
	decodeBody(t, rec, &thread)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, int64(0), thread.Messages[0].ID)
	assert.Contains(t, thread.Messages[0].Content, "lease.txt")

	msgs, err := st.GetMessagesByConversationID(conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "greeting must not be persisted")
}

func TestGetConversation_NotFound(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodGet, "/api/conversations/5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConversation_InvalidID(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodGet, "/api/conversations/xyz", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListConversationsByDocument(t *testing.T) {
	router, st := newTestServer(okAnalyzer)
	doc := uploadDocument(t, router, "lease.txt", "text/plain", []byte("text"))
	require.NoError(t, st.CreateConversation(&domain.Conversation{DocumentID: doc.ID}))
	require.NoError(t, st.CreateConversation(&domain.Conversation{DocumentID: doc.ID}))

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/documents/%d/conversations", doc.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var convs []domain.Conversation
	decodeBody(t, rec, &convs)
	assert.Len(t, convs, 2)
}

func TestListConversations_DocumentNotFound(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodGet, "/api/documents/77/conversations", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDocumentSections_WithHighlights(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)
	content := "1. TERM\n\nThe lease runs for one year.\n\nThe deposit is refundable."
	doc := uploadDocument(t, router, "lease.txt", "text/plain", []byte(content))

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/documents/%d/sections?highlight=%s", doc.ID, "one+year"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sections []struct {
		Text          string `json:"text"`
		IsHeader      bool   `json:"isHeader"`
		IsHighlighted bool   `json:"isHighlighted"`
	}
	decodeBody(t, rec, &sections)
	require.Len(t, sections, 3)
	assert.True(t, sections[0].IsHeader)
	assert.True(t, sections[1].IsHighlighted)
	assert.False(t, sections[2].IsHighlighted)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}

func TestRequestIDHeaderSet(t *testing.T) {
	router, _ := newTestServer(okAnalyzer)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
