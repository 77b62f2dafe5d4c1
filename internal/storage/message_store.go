package storage

import (
	"sync"

	"shopchat/go-client/pkg/models"
)

// MessageStore keeps the conversation history in arrival order with
// id-level deduplication. Entries are immutable once inserted; batches from
// different sources are merged, never reordered.
type MessageStore struct {
	mu    sync.RWMutex
	order []models.Message
	seen  map[string]struct{}
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		seen: make(map[string]struct{}),
	}
}

// Insert appends the message unless its id is already present. Reports
// whether the store changed.
func (s *MessageStore) Insert(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(msg)
}

// MergeBatch appends the messages whose ids are not yet present, preserving
// the batch's internal order. Returns the count of newly added messages.
func (s *MessageStore) MergeBatch(msgs []models.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, msg := range msgs {
		if s.insertLocked(msg) {
			added++
		}
	}
	return added
}

func (s *MessageStore) insertLocked(msg models.Message) bool {
	if msg.ID == "" {
		return false
	}
	if _, ok := s.seen[msg.ID]; ok {
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.order = append(s.order, msg)
	return true
}

// Clear drops the full history. Used on conversation teardown.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.seen = make(map[string]struct{})
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns a copy of the history in insertion order.
func (s *MessageStore) List() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.order...)
}
