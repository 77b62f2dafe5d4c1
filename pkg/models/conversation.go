package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ConversationRecord is the raw shape the support backend returns. Older
// records carry a numeric legacy identifier in "id" next to the canonical
// "conversationId"; newer ones return the canonical value in "id" directly.
type ConversationRecord struct {
	ID             RawID  `json:"id,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Status         string `json:"status,omitempty"`
	OwnerKind      string `json:"ownerKind,omitempty"`
}

// RawID accepts either a JSON number or a JSON string identifier.
type RawID struct {
	text string
}

func (r *RawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		r.text = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		r.text = strings.TrimSpace(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	r.text = n.String()
	return nil
}

func (r RawID) MarshalJSON() ([]byte, error) {
	if r.text == "" {
		return []byte(`""`), nil
	}
	if n, err := strconv.ParseInt(r.text, 10, 64); err == nil {
		return json.Marshal(n)
	}
	return json.Marshal(r.text)
}

func (r RawID) String() string {
	return r.text
}

// Int64 reports the numeric value when the identifier was a legacy number.
func (r RawID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(r.text, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r RawID) IsZero() bool {
	return r.text == ""
}

// NormalizeConversation applies the canonical-identifier rule: when a record
// carries both a legacy numeric id and a canonical conversation id, the
// canonical one becomes ID and the legacy one is kept as OriginalID only.
func NormalizeConversation(rec ConversationRecord) Conversation {
	conv := Conversation{
		Status:    NormalizeStatus(rec.Status),
		OwnerKind: strings.TrimSpace(rec.OwnerKind),
	}
	canonical := strings.TrimSpace(rec.ConversationID)
	if canonical != "" {
		conv.ID = canonical
		if legacy, ok := rec.ID.Int64(); ok {
			conv.OriginalID = legacy
		}
		return conv
	}
	conv.ID = rec.ID.String()
	return conv
}

// NormalizeCreatedConversation normalizes a create-conversation response. A
// backend that acks creation without a status means the conversation is
// waiting for its first agent, so the status defaults to pending rather than
// unknown.
func NormalizeCreatedConversation(rec ConversationRecord) Conversation {
	conv := NormalizeConversation(rec)
	if conv.Status == StatusUnknown {
		conv.Status = StatusPending
	}
	return conv
}
