package transport

import (
	"context"

	"shopchat/go-client/pkg/models"
)

const (
	EventNewMessage         = "NEW_MESSAGE"
	EventConversationClosed = "CONVERSATION_CLOSED"
)

// PushEvent is one typed notification delivered over the push channel.
type PushEvent struct {
	Type    string
	Message models.Message
}

// PushChannel is a live server-initiated delivery stream bound to a single
// conversation. The events channel is closed when the stream ends, whether by
// error or by Close.
type PushChannel interface {
	Events() <-chan PushEvent
	Close() error
}

type PushDialer interface {
	OpenPushChannel(ctx context.Context, conversationID string) (PushChannel, error)
}

type MessageLister interface {
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// EventSink receives transport notifications. Calls arrive from the
// manager's goroutines; implementations synchronize internally. No call is
// made after Stop has returned.
type EventSink interface {
	PushMessage(msg models.Message)
	ConversationClosed()
	PollResult(msgs []models.Message)
	Invalidated()
}
