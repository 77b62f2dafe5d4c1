package models

import (
	"strings"
	"time"
)

const (
	IdentityAnonymous     = "anonymous"
	IdentityAuthenticated = "authenticated"
	IdentityGuest         = "guest"
)

// Identity describes who the visitor is for the lifetime of a session.
// Guest info is only populated when Kind is IdentityGuest.
type Identity struct {
	Kind   string    `json:"kind"`
	UserID string    `json:"user_id,omitempty"`
	Guest  GuestInfo `json:"guest,omitempty"`
}

func (i Identity) IsAuthenticated() bool {
	return i.Kind == IdentityAuthenticated
}

// GuestInfo carries the contact details an unauthenticated visitor submitted.
// Exactly one of Phone/Email is expected to be set.
type GuestInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (g GuestInfo) HasContact() bool {
	return strings.TrimSpace(g.Phone) != "" || strings.TrimSpace(g.Email) != ""
}

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusClosed    = "closed"
	StatusUnknown   = "unknown"
)

const (
	OwnerAuthenticated = "authenticated"
	OwnerGuest         = "guest"
)

// Conversation is the local view of a support conversation. ID is always the
// canonical identifier used for network calls; OriginalID retains a legacy
// numeric identifier when the backend still returns one, and is never used
// for lookups.
type Conversation struct {
	ID         string `json:"id"`
	OriginalID int64  `json:"original_id,omitempty"`
	Status     string `json:"status"`
	OwnerKind  string `json:"owner_kind,omitempty"`
}

// StatusNeedsReopen reports whether sending into a conversation with this
// status requires a reopen attempt first.
func StatusNeedsReopen(status string) bool {
	return status == StatusCompleted || status == StatusClosed
}

func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StatusPending:
		return StatusPending
	case StatusActive, "open":
		return StatusActive
	case StatusCompleted, "resolved":
		return StatusCompleted
	case StatusClosed:
		return StatusClosed
	default:
		return StatusUnknown
	}
}

const (
	SenderAdmin    = "admin"
	SenderCustomer = "customer"
	SenderGuest    = "guest"
	SenderSystem   = "system"
)

// Message is immutable once stored.
type Message struct {
	ID         string    `json:"id"`
	SenderKind string    `json:"sender_kind"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromVisitor reports whether the message came from the customer side of the
// conversation (authenticated customer or guest).
func (m Message) FromVisitor() bool {
	return m.SenderKind == SenderCustomer || m.SenderKind == SenderGuest
}

// GuestRecord is the locally persisted link between a guest visitor and their
// conversation, keyed by the canonical conversation id.
type GuestRecord struct {
	ConversationID string    `json:"conversation_id"`
	Guest          GuestInfo `json:"guest"`
}
