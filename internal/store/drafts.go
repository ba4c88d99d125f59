package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveDraft stores the composer text for a conversation. An empty draft is
// deleted instead of stored.
func (s *Store) SaveDraft(conversationID, content string) error {
	if content == "" {
		return s.DeleteDraft(conversationID)
	}

	_, err := s.db.Exec(`
		INSERT INTO drafts (conversation_id, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (conversation_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`, conversationID, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// GetDraft returns the saved composer text for a conversation, empty if none.
func (s *Store) GetDraft(conversationID string) (string, error) {
	var content string
	err := s.db.QueryRow(`
		SELECT content FROM drafts WHERE conversation_id = ?
	`, conversationID).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get draft: %w", err)
	}
	return content, nil
}

// DeleteDraft removes a conversation's draft.
func (s *Store) DeleteDraft(conversationID string) error {
	_, err := s.db.Exec(`DELETE FROM drafts WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
