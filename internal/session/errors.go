package session

import "errors"

var (
	// ErrBlankMessage rejects sends whose content is empty after trimming.
	ErrBlankMessage = errors.New("message content is blank")
	// ErrSendInFlight rejects a send while a previous one has not finished.
	ErrSendInFlight = errors.New("a send is already in flight")
	// ErrNoConversation means the operation needs a resolved conversation.
	ErrNoConversation = errors.New("no conversation")
	// ErrRateLimited means the local send pacing rejected the message.
	ErrRateLimited = errors.New("sending too fast")
	// ErrMissingGuestContact means the guest payload lacked a usable contact.
	ErrMissingGuestContact = errors.New("guest contact details are required")
)
