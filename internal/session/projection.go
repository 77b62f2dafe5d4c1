package session

import (
	"time"

	"shopchat/go-client/pkg/models"
)

// DefaultAutoReplyContent is the acknowledgement shown to a visitor who is
// still waiting for a first human reply.
const DefaultAutoReplyContent = "Thanks for reaching out! Our support team has been notified and will get back to you shortly."

// autoReplyMessageID is stable so repeated projections render the same row.
const autoReplyMessageID = "auto-reply"

// AutoResponseMarker reports whether the synthetic acknowledgement belongs in
// the display: the visitor has written at least once and no admin has replied
// yet. It is a pure derivation of the stored history; the marker disappears
// on its own as soon as an admin message lands.
func AutoResponseMarker(messages []models.Message) bool {
	visitor := false
	for _, msg := range messages {
		switch msg.SenderKind {
		case models.SenderAdmin:
			return false
		case models.SenderCustomer, models.SenderGuest:
			visitor = true
		}
	}
	return visitor
}

// ProjectDisplay splices the synthetic acknowledgement into the stored
// history when marker is set. The acknowledgement goes right after the last
// visitor message and is never part of the store itself.
func ProjectDisplay(messages []models.Message, marker bool, now time.Time, content string) []models.Message {
	if !marker {
		return messages
	}
	if content == "" {
		content = DefaultAutoReplyContent
	}
	auto := models.Message{
		ID:         autoReplyMessageID,
		SenderKind: models.SenderSystem,
		Content:    content,
		CreatedAt:  now,
	}
	at := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].FromVisitor() {
			at = i + 1
			break
		}
	}
	out := make([]models.Message, 0, len(messages)+1)
	out = append(out, messages[:at]...)
	out = append(out, auto)
	out = append(out, messages[at:]...)
	return out
}
