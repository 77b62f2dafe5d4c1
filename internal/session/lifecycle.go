package session

import (
	"context"
	"fmt"
	"strings"

	"shopchat/go-client/internal/backend"
	"shopchat/go-client/pkg/models"
)

// StartConversation creates a fresh conversation. Guests pass their contact
// details; authenticated visitors pass nil and the bearer token identifies
// them. On success the new conversation replaces whatever the session held
// and the transport is rebuilt against it.
func (s *Session) StartConversation(ctx context.Context, guest *models.GuestInfo) (models.Conversation, error) {
	s.ClearError()

	var payload backend.CreatePayload
	var guestInfo models.GuestInfo
	if guest != nil {
		guestInfo = normalizeGuest(*guest)
		if !guestInfo.HasContact() {
			s.setLastError("please provide a phone number or an email")
			return models.Conversation{}, ErrMissingGuestContact
		}
		payload.GuestName = guestInfo.Name
		// Exactly one contact channel goes out; phone wins when the caller
		// filled in both.
		if guestInfo.Phone != "" {
			payload.GuestPhone = guestInfo.Phone
			guestInfo.Email = ""
		} else {
			payload.GuestEmail = guestInfo.Email
		}
	}

	conv, err := s.backend.CreateConversation(ctx, payload)
	if err != nil {
		s.setLastError("could not start the conversation, please try again")
		return models.Conversation{}, fmt.Errorf("start conversation: %w", err)
	}
	// A create ack without a status still means a conversation waiting for
	// its first agent.
	if conv.Status == "" || conv.Status == models.StatusUnknown {
		conv.Status = models.StatusPending
	}

	s.mu.Lock()
	s.conversation = &conv
	s.resolved = true
	s.store.Clear()
	s.unread.Reset()
	if guest != nil {
		s.ident = models.Identity{Kind: models.IdentityGuest, Guest: guestInfo}
	}
	s.mu.Unlock()

	if guest != nil {
		record := models.GuestRecord{ConversationID: conv.ID, Guest: guestInfo}
		if err := s.guestStore.Set(record); err != nil {
			s.logger.Warn("persisting guest record failed", "conversation_id", conv.ID, "error", err)
		}
	}

	s.rebuildTransport()
	return conv, nil
}

// Send delivers one visitor message. Blank content and overlapping sends are
// rejected up front; a completed or closed conversation gets a best-effort
// reopen first, and the echoed message joins the store idempotently.
func (s *Session) Send(ctx context.Context, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrBlankMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return models.Message{}, ErrSendInFlight
	}
	if s.conversation == nil || s.conversation.ID == "" {
		s.mu.Unlock()
		return models.Message{}, ErrNoConversation
	}
	s.sending = true
	s.lastError = ""
	convID := s.conversation.ID
	needsReopen := models.StatusNeedsReopen(s.conversation.Status)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	if !s.limiter.Allow(convID, s.now()) {
		s.setLastError("you are sending messages too quickly")
		return models.Message{}, ErrRateLimited
	}

	if needsReopen {
		if _, err := s.backend.ReopenConversation(ctx, convID); err != nil {
			// The backend may still reopen implicitly when the message
			// arrives, so a failed reopen never blocks the send.
			s.logger.Warn("reopen before send failed", "conversation_id", convID, "error", err)
		}
	}

	msg, err := s.backend.SendMessage(ctx, convID, content)
	if err != nil {
		s.setLastError("your message could not be sent")
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	s.mu.Lock()
	s.store.Insert(msg)
	if needsReopen && s.conversation != nil && s.conversation.ID == convID {
		s.conversation.Status = models.StatusPending
	}
	s.mu.Unlock()
	return msg, nil
}

// CloseConversation resolves the conversation server-side and wipes every
// local trace of it: history, unread count, guest record, guest identity.
func (s *Session) CloseConversation(ctx context.Context) error {
	s.mu.Lock()
	s.lastError = ""
	if s.conversation == nil || s.conversation.ID == "" {
		s.mu.Unlock()
		return ErrNoConversation
	}
	convID := s.conversation.ID
	s.mu.Unlock()

	if err := s.backend.CloseConversation(ctx, convID); err != nil {
		s.setLastError("could not close the conversation")
		return fmt.Errorf("close conversation: %w", err)
	}

	s.mu.Lock()
	s.conversation = nil
	s.store.Clear()
	s.unread.Reset()
	if s.ident.Kind == models.IdentityGuest {
		s.ident = models.Identity{Kind: models.IdentityAnonymous}
	}
	s.mu.Unlock()

	if err := s.guestStore.Clear(); err != nil {
		s.logger.Warn("clearing guest record failed", "error", err)
	}

	s.rebuildTransport()
	return nil
}

func normalizeGuest(g models.GuestInfo) models.GuestInfo {
	return models.GuestInfo{
		Name:  strings.TrimSpace(g.Name),
		Phone: strings.TrimSpace(g.Phone),
		Email: strings.TrimSpace(g.Email),
	}
}
