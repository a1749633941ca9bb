package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/veridocs/docchat/internal/core"
	"github.com/veridocs/docchat/internal/domain"
	"github.com/veridocs/docchat/internal/extract"
)

type APIHandler struct {
	chatService    *core.ChatService
	validate       *validator.Validate
	maxUploadBytes int64
}

func NewAPIHandler(cs *core.ChatService, maxUploadBytes int64) *APIHandler {
	validate := validator.New()
	// Report field errors under their JSON names, not Go struct names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &APIHandler{
		chatService:    cs,
		validate:       validate,
		maxUploadBytes: maxUploadBytes,
	}
}

type DocumentUploadResponse struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	FileSize   int64     `json:"fileSize"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid multipart request or file exceeds size limit"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No file provided"})
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !extract.SupportedMIMEType(mimeType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Unsupported file format. Please upload PDF, DOCX, or TXT files only.",
		})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, r, fmt.Errorf("failed to read upload: %w", err), "Failed to process document upload")
		return
	}

	doc, err := h.chatService.UploadDocument(header.Filename, mimeType, data)
	if err != nil {
		h.respondError(w, r, err, "Failed to process document upload")
		return
	}

	writeJSON(w, http.StatusCreated, DocumentUploadResponse{
		ID:         doc.ID,
		FileName:   doc.FileName,
		FileType:   doc.FileType,
		FileSize:   doc.FileSize,
		UploadedAt: doc.UploadedAt,
	})
}

func (h *APIHandler) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid document ID"})
		return
	}

	doc, err := h.chatService.GetDocument(id)
	if err != nil {
		h.respondError(w, r, err, "Failed to retrieve document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.chatService.ListDocuments()
	if err != nil {
		h.respondError(w, r, err, "Failed to retrieve documents")
		return
	}

	summaries := make([]DocumentUploadResponse, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, DocumentUploadResponse{
			ID:         doc.ID,
			FileName:   doc.FileName,
			FileType:   doc.FileType,
			FileSize:   doc.FileSize,
			UploadedAt: doc.UploadedAt,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetDocumentSectionsHandler formats a document for display. Repeatable
// "highlight" query params mark sections containing those strings.
func (h *APIHandler) GetDocumentSectionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid document ID"})
		return
	}

	sections, err := h.chatService.DocumentSections(id, r.URL.Query()["highlight"])
	if err != nil {
		h.respondError(w, r, err, "Failed to format document sections")
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid document ID"})
		return
	}

	convs, err := h.chatService.ListConversations(id)
	if err != nil {
		h.respondError(w, r, err, "Failed to retrieve conversations")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "Invalid request data",
				"errors":  fieldErrorDetail(fieldErrs),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request data"})
		return
	}

	thread, err := h.chatService.ProcessMessage(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err, "Failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid conversation ID"})
		return
	}

	thread, err := h.chatService.ThreadView(id)
	if err != nil {
		h.respondError(w, r, err, "Failed to retrieve conversation")
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// fieldErrorDetail turns validator errors into per-field messages keyed by
// JSON field name.
func fieldErrorDetail(errs validator.ValidationErrors) map[string]string {
	detail := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			detail[fe.Field()] = fe.Field() + " is required and cannot be empty"
		case "gt":
			detail[fe.Field()] = fe.Field() + " must be greater than " + fe.Param()
		default:
			detail[fe.Field()] = fe.Field() + " is invalid"
		}
	}
	return detail
}

// respondError maps service errors onto the HTTP taxonomy: validation and
// unsupported formats are 400, dangling references 404, extraction and
// model failures 500 with the underlying error attached.
func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Document not found"})
	case errors.Is(err, domain.ErrConversationNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Conversation not found"})
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedFormat):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
	default:
		log.Printf("request %s: %s: %v", requestIDFrom(r.Context()), fallback, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": fallback,
			"error":   err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
