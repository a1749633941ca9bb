package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/veridocs/docchat/internal/domain"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the durable implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Sequential id allocation plus append must behave as one critical
	// section under concurrent requests; a single connection serializes
	// writes through SQLite itself.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        file_name TEXT NOT NULL,
        file_type TEXT NOT NULL,
        file_size INTEGER NOT NULL,
        content TEXT NOT NULL,
        metadata_json TEXT NOT NULL DEFAULT '{}',
        uploaded_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        document_id INTEGER NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (document_id) REFERENCES documents (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        conversation_id INTEGER NOT NULL,
        content TEXT NOT NULL,
        is_user_message BOOLEAN NOT NULL,
        references_json TEXT NOT NULL DEFAULT '[]',
        created_at DATETIME NOT NULL,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Document methods

func (s *SQLiteStore) CreateDocument(doc *domain.Document) error {
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	metadataBytes, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal document metadata: %w", err)
	}

	doc.UploadedAt = time.Now()
	res, err := s.db.Exec(
		"INSERT INTO documents (file_name, file_type, file_size, content, metadata_json, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)",
		doc.FileName, doc.FileType, doc.FileSize, doc.Content, string(metadataBytes), doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	doc.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted document id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(id int64) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string
	err := s.db.QueryRow(
		"SELECT id, file_name, file_type, file_size, content, metadata_json, uploaded_at FROM documents WHERE id = ?", id,
	).Scan(&doc.ID, &doc.FileName, &doc.FileType, &doc.FileSize, &doc.Content, &metadataJSON, &doc.UploadedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for document %d: %w", doc.ID, err)
	}
	return &doc, nil
}

func (s *SQLiteStore) GetAllDocuments() ([]domain.Document, error) {
	rows, err := s.db.Query("SELECT id, file_name, file_type, file_size, content, metadata_json, uploaded_at FROM documents ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var doc domain.Document
		var metadataJSON string
		if err := rows.Scan(&doc.ID, &doc.FileName, &doc.FileType, &doc.FileSize, &doc.Content, &metadataJSON, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for document %d: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Conversation methods

func (s *SQLiteStore) CreateConversation(conv *domain.Conversation) error {
	conv.CreatedAt = time.Now()
	res, err := s.db.Exec(
		"INSERT INTO conversations (document_id, created_at) VALUES (?, ?)",
		conv.DocumentID, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	conv.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted conversation id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetConversation(id int64) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := s.db.QueryRow(
		"SELECT id, document_id, created_at FROM conversations WHERE id = ?", id,
	).Scan(&conv.ID, &conv.DocumentID, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return &conv, nil
}

func (s *SQLiteStore) GetConversationsByDocumentID(documentID int64) ([]domain.Conversation, error) {
	rows, err := s.db.Query("SELECT id, document_id, created_at FROM conversations WHERE document_id = ? ORDER BY id ASC", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]domain.Conversation, 0)
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.DocumentID, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (s *SQLiteStore) GetConversationWithMessages(id int64) (*domain.ConversationWithMessages, error) {
	conv, err := s.GetConversation(id)
	if err != nil {
		return nil, err
	}

	var summary domain.DocumentSummary
	err = s.db.QueryRow("SELECT id, file_name FROM documents WHERE id = ?", conv.DocumentID).
		Scan(&summary.ID, &summary.FileName)
	if err != nil {
		if err == sql.ErrNoRows {
			// Dangling document reference: treat the conversation as gone.
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to query conversation document: %w", err)
	}

	msgs, err := s.GetMessagesByConversationID(id)
	if err != nil {
		return nil, err
	}

	views := make([]domain.MessageView, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, domain.MessageView{
			ID:            msg.ID,
			Content:       msg.Content,
			IsUserMessage: msg.IsUserMessage,
			References:    msg.References,
			CreatedAt:     msg.CreatedAt,
		})
	}

	return &domain.ConversationWithMessages{
		ID:       conv.ID,
		Document: summary,
		Messages: views,
	}, nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *domain.Message) error {
	if msg.References == nil {
		msg.References = []domain.Reference{}
	}
	referencesBytes, err := json.Marshal(msg.References)
	if err != nil {
		return fmt.Errorf("failed to marshal message references: %w", err)
	}

	msg.CreatedAt = time.Now()
	res, err := s.db.Exec(
		"INSERT INTO messages (conversation_id, content, is_user_message, references_json, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ConversationID, msg.Content, msg.IsUserMessage, string(referencesBytes), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted message id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessagesByConversationID(conversationID int64) ([]domain.Message, error) {
	rows, err := s.db.Query(
		"SELECT id, conversation_id, content, is_user_message, references_json, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		var referencesJSON string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.IsUserMessage, &referencesJSON, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if err := json.Unmarshal([]byte(referencesJSON), &msg.References); err != nil {
			return nil, fmt.Errorf("failed to unmarshal references for message %d: %w", msg.ID, err)
		}
		if msg.References == nil {
			msg.References = []domain.Reference{}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
