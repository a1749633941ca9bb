package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes live under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Document routes
		r.Post("/documents", apiHandler.UploadDocumentHandler)
		r.Get("/documents", apiHandler.ListDocumentsHandler)
		r.Get("/documents/{documentID}", apiHandler.GetDocumentHandler)
		r.Get("/documents/{documentID}/sections", apiHandler.GetDocumentSectionsHandler)
		r.Get("/documents/{documentID}/conversations", apiHandler.ListConversationsHandler)

		// Conversation routes
		r.Post("/messages", apiHandler.PostMessageHandler)
		r.Get("/conversations/{conversationID}", apiHandler.GetConversationHandler)
	})

	return r
}
