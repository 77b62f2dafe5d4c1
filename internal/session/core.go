package session

import (
	"context"

	"shopchat/go-client/pkg/models"
)

// API is the single surface the embedding UI talks to. All methods are safe
// for concurrent use; state-changing calls serialize on the session mutex.
type API interface {
	// Activate resolves the visitor's conversation (once per session) and
	// brings the transport up when one exists. Resolution failures degrade
	// silently; they never surface here.
	Activate(ctx context.Context)
	// Deactivate tears the transport down completely. The session state and
	// message store survive so a later Activate resumes where it left off.
	Deactivate()
	// SetOpen records chat panel visibility. Transitioning to open resets
	// the unread counter.
	SetOpen(open bool)

	StartConversation(ctx context.Context, guest *models.GuestInfo) (models.Conversation, error)
	Send(ctx context.Context, content string) (models.Message, error)
	CloseConversation(ctx context.Context) error

	Conversation() (models.Conversation, bool)
	Messages() []models.Message
	Display() []models.Message
	UnreadCount() int
	TransportState() string
	Identity() models.Identity
	LastError() string
	ClearError()
}
