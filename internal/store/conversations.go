package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Conversation is a stored conversation summary. The list drives the
// sidebar, ordered by last activity so a just-advanced conversation floats
// to the top across restarts.
type Conversation struct {
	ID           string
	Title        string
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// UpsertConversation records a conversation seen from the backend, keeping
// the newest title and activity time.
func (s *Store) UpsertConversation(id, title string, lastActiveAt time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO conversations (id, title, last_active_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			last_active_at = excluded.last_active_at
	`, id, title, lastActiveAt.UTC(), now)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// TouchConversation bumps a conversation's activity time to now. Called when
// a send advances the conversation.
func (s *Store) TouchConversation(id string) error {
	_, err := s.db.Exec(`
		UPDATE conversations SET last_active_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(id string) (*Conversation, error) {
	row := s.db.QueryRow(`
		SELECT id, title, last_active_at, created_at
		FROM conversations WHERE id = ?
	`, id)

	var c Conversation
	if err := row.Scan(&c.ID, &c.Title, &c.LastActiveAt, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns all conversations, most recently active first.
func (s *Store) ListConversations() ([]*Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, title, last_active_at, created_at
		FROM conversations ORDER BY last_active_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.LastActiveAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, &c)
	}
	return conversations, rows.Err()
}

// DeleteConversation removes a conversation and its draft.
func (s *Store) DeleteConversation(id string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation draft: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}
