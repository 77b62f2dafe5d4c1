package session

// UnreadTracker counts messages that arrived while the chat panel was not
// open. It is not safe for concurrent use; the session serializes access.
type UnreadTracker struct {
	count int
}

// Note records added newly stored messages. Arrivals while the panel is open
// are considered read immediately and never counted.
func (u *UnreadTracker) Note(added int, open bool) {
	if open || added <= 0 {
		return
	}
	u.count += added
}

func (u *UnreadTracker) Reset() { u.count = 0 }

func (u *UnreadTracker) Count() int { return u.count }
