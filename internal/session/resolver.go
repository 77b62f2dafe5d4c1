package session

import (
	"context"
	"strings"

	"shopchat/go-client/pkg/models"
)

// resolveConversation finds the visitor's existing conversation at session
// start. It is called without the session mutex held and never fails hard:
// any lookup problem just means the session starts without a conversation,
// except for a guest with a persisted record, who keeps a degraded
// conversation handle so history polling can still identify it.
func (s *Session) resolveConversation(ctx context.Context) (*models.Conversation, *models.Identity) {
	if s.ident.IsAuthenticated() {
		conv, err := s.backend.LookupConversationByUser(ctx)
		if err != nil || conv.ID == "" {
			if err != nil {
				s.logger.Debug("conversation lookup by user failed", "error", err)
			}
			return nil, nil
		}
		conv.OwnerKind = models.OwnerAuthenticated
		return &conv, nil
	}

	record, ok, err := s.guestStore.Get()
	if err != nil {
		s.logger.Warn("reading guest record failed", "error", err)
		return nil, nil
	}
	if !ok || strings.TrimSpace(record.ConversationID) == "" {
		return nil, nil
	}

	ident := models.Identity{Kind: models.IdentityGuest, Guest: record.Guest}
	conv, err := s.backend.LookupConversationByGuestContact(ctx, record.Guest.Email, record.Guest.Phone)
	if err != nil || conv.ID == "" {
		if err != nil {
			s.logger.Warn("guest conversation lookup failed", "conversation_id", record.ConversationID, "error", err)
		}
		// Degraded resolution: keep the persisted id with an unknown status
		// so the transport can still fetch history for it.
		return &models.Conversation{
			ID:        record.ConversationID,
			Status:    models.StatusUnknown,
			OwnerKind: models.OwnerGuest,
		}, &ident
	}
	conv.OwnerKind = models.OwnerGuest
	return &conv, &ident
}
