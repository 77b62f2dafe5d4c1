package session

import (
	"context"

	"shopchat/go-client/internal/backend"
	"shopchat/go-client/internal/transport"
	"shopchat/go-client/pkg/models"
)

// SupportBackend is the slice of the support API the session consumes.
// *backend.Client satisfies it.
type SupportBackend interface {
	LookupConversationByUser(ctx context.Context) (models.Conversation, error)
	LookupConversationByGuestContact(ctx context.Context, email, phone string) (models.Conversation, error)
	CreateConversation(ctx context.Context, payload backend.CreatePayload) (models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, content string) (models.Message, error)
	CloseConversation(ctx context.Context, conversationID string) error
	ReopenConversation(ctx context.Context, conversationID string) (string, error)
}

// GuestStateRepository persists the guest contact record between visits.
// *storage.GuestStateStore satisfies it.
type GuestStateRepository interface {
	Get() (models.GuestRecord, bool, error)
	Set(record models.GuestRecord) error
	Clear() error
}

// IdentityProvider is the external identity context; it reports who the
// visitor is at session start.
type IdentityProvider interface {
	CurrentIdentity() models.Identity
}

// Transport is one single-use delivery transport instance bound to a
// conversation. *transport.Manager satisfies it.
type Transport interface {
	Start()
	Stop()
	State() string
}

// TransportFactory builds a fresh transport for a conversation. The sink
// receives that instance's events; the session binds a generation to it so
// stale instances cannot mutate state after teardown.
type TransportFactory func(conversationID string, sink transport.EventSink) Transport
