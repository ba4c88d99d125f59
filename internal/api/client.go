// Package api provides the HTTP client for the Copperline assistant backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a conversation message as returned by the backend.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is a conversation summary for the sidebar.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SendRequest is the payload for sending a message to an existing conversation.
type SendRequest struct {
	Message        string    `json:"message"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"requestId"`
}

// SendResponse is the backend's reply to a send. Older deployments return the
// assistant text under "message" instead of "response".
type SendResponse struct {
	Response string `json:"response"`
	Message  string `json:"message"`
}

// Text returns the assistant reply regardless of which field carried it.
func (r *SendResponse) Text() string {
	if r.Response != "" {
		return r.Response
	}
	return r.Message
}

// CreateRequest starts a new conversation with a first message.
type CreateRequest struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// CreateResponse is the backend's reply to a conversation creation.
type CreateResponse struct {
	ConversationID string `json:"conversationId"`
	Response       string `json:"response"`
}

// Client talks to the portal's assistant REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the given endpoint. A nil limiter disables
// client-side rate limiting.
func NewClient(endpoint, token string, limiter *rate.Limiter, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// ListConversations fetches the conversation summaries for the sidebar.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	if err := c.get(ctx, "/conversations", &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// ListMessages fetches the full message history for a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var messages []Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.get(ctx, path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a message to an existing conversation.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*SendResponse, error) {
	path := "/conversations/" + url.PathEscape(req.ConversationID) + "/send"
	var resp SendResponse
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateConversation starts a new conversation from a first message.
func (c *Client) CreateConversation(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	var resp CreateResponse
	if err := c.post(ctx, "/conversations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &FetchError{Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &FetchError{Err: err}
	}
	c.setHeaders(req)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("GET transport failure")
		return &FetchError{Err: err}
	}
	defer resp.Body.Close()

	log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", time.Since(started)).Msg("GET")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return &FetchError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(payload))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &SendError{Err: err}
		}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return &SendError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &SendError{Err: err}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("POST transport failure")
		return &SendError{Err: err}
	}
	defer resp.Body.Close()

	log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", time.Since(started)).Msg("POST")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return &SendError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(payload))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &SendError{Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}
