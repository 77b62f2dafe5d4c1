package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopchat/go-client/pkg/models"
)

const defaultRequestTimeout = 10 * time.Second

// TokenFunc supplies the bearer token of an authenticated visitor; it returns
// "" for anonymous and guest sessions.
type TokenFunc func() string

type Options struct {
	BaseURL string
	Timeout time.Duration
	Token   TokenFunc
	Logger  *slog.Logger
}

// Client talks to the support backend's conversation endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	logger  *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		token:   opts.Token,
		logger:  logger,
	}, nil
}

// LookupConversationByUser resolves the authenticated visitor's existing
// conversation, if any.
func (c *Client) LookupConversationByUser(ctx context.Context) (models.Conversation, error) {
	var rec models.ConversationRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/support/conversations/me", nil, &rec, "lookup conversation by user"); err != nil {
		return models.Conversation{}, err
	}
	return models.NormalizeConversation(rec), nil
}

// LookupConversationByGuestContact resolves a guest conversation by the
// contact details that were persisted alongside it.
func (c *Client) LookupConversationByGuestContact(ctx context.Context, email, phone string) (models.Conversation, error) {
	query := url.Values{}
	if strings.TrimSpace(email) != "" {
		query.Set("email", strings.TrimSpace(email))
	}
	if strings.TrimSpace(phone) != "" {
		query.Set("phone", strings.TrimSpace(phone))
	}
	if len(query) == 0 {
		return models.Conversation{}, errors.New("guest lookup requires an email or phone")
	}
	var rec models.ConversationRecord
	path := "/api/v1/support/conversations/lookup?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &rec, "lookup conversation by guest contact"); err != nil {
		return models.Conversation{}, err
	}
	return models.NormalizeConversation(rec), nil
}

// CreatePayload is the create-conversation request body. All fields are empty
// for authenticated visitors.
type CreatePayload struct {
	GuestName  string `json:"guestName,omitempty"`
	GuestEmail string `json:"guestEmail,omitempty"`
	GuestPhone string `json:"guestPhone,omitempty"`
}

func (c *Client) CreateConversation(ctx context.Context, payload CreatePayload) (models.Conversation, error) {
	var rec models.ConversationRecord
	if err := c.do(ctx, http.MethodPost, "/api/v1/support/conversations", payload, &rec, "create conversation"); err != nil {
		return models.Conversation{}, err
	}
	return models.NormalizeCreatedConversation(rec), nil
}

// ListMessages fetches the full history. The backend answers either with a
// bare array or with a {"content": [...]} page wrapper.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var raw json.RawMessage
	path := "/api/v1/support/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &raw, "list messages"); err != nil {
		return nil, err
	}
	records, err := decodeMessageList(raw)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]models.Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, rec.toModel())
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (models.Message, error) {
	body := struct {
		Content string `json:"content"`
	}{Content: content}
	var rec messageRecord
	path := "/api/v1/support/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, body, &rec, "send message"); err != nil {
		return models.Message{}, err
	}
	msg := rec.toModel()
	if msg.ID == "" {
		// Some backends ack without echoing an id; a local one keeps the
		// store dedup working for the optimistic insert.
		msg.ID = uuid.NewString()
	}
	if msg.SenderKind == "" {
		msg.SenderKind = models.SenderCustomer
	}
	if msg.Content == "" {
		msg.Content = content
	}
	return msg, nil
}

func (c *Client) CloseConversation(ctx context.Context, conversationID string) error {
	path := "/api/v1/support/conversations/" + url.PathEscape(conversationID) + "/close"
	return c.do(ctx, http.MethodPost, path, nil, nil, "close conversation")
}

// ReopenConversation asks the backend to transition a completed or closed
// conversation back to an open state and returns the resulting status.
func (c *Client) ReopenConversation(ctx context.Context, conversationID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	path := "/api/v1/support/conversations/" + url.PathEscape(conversationID) + "/reopen"
	if err := c.do(ctx, http.MethodPost, path, nil, &out, "reopen conversation"); err != nil {
		return "", err
	}
	return models.NormalizeStatus(out.Status), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, op string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &APIError{Op: op, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var decoded struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &decoded) == nil {
		if decoded.Message != "" {
			return decoded.Message
		}
		if decoded.Error != "" {
			return decoded.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

type messageRecord struct {
	ID        models.RawID `json:"id"`
	Sender    string       `json:"sender"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (r messageRecord) toModel() models.Message {
	return models.Message{
		ID:         r.ID.String(),
		SenderKind: normalizeSender(r.Sender),
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
	}
}

func normalizeSender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case models.SenderAdmin, "agent", "staff":
		return models.SenderAdmin
	case models.SenderGuest:
		return models.SenderGuest
	case models.SenderSystem:
		return models.SenderSystem
	case models.SenderCustomer, "user":
		return models.SenderCustomer
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

func decodeMessageList(raw json.RawMessage) ([]messageRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []messageRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var page struct {
		Content []messageRecord `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	return page.Content, nil
}
