package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shopchat/go-client/internal/platform/ratelimiter"
	"shopchat/go-client/internal/storage"
	"shopchat/go-client/internal/transport"
	"shopchat/go-client/pkg/models"
)

type Options struct {
	Backend    SupportBackend
	GuestStore GuestStateRepository
	Identity   IdentityProvider
	Transport  TransportFactory
	// SendLimiter paces outgoing messages per conversation; nil disables
	// pacing.
	SendLimiter *ratelimiter.MapLimiter
	Logger      *slog.Logger
	// Now is the clock for pacing and the auto-reply timestamp.
	Now func() time.Time
	// AutoReplyContent overrides DefaultAutoReplyContent when set.
	AutoReplyContent string
}

// Session is the facade owning all conversation state for one visitor. One
// mutex guards the aggregate; network calls happen outside it.
type Session struct {
	backend    SupportBackend
	guestStore GuestStateRepository
	factory    TransportFactory
	limiter    *ratelimiter.MapLimiter
	logger     *slog.Logger
	now        func() time.Time
	autoReply  string

	mu           sync.Mutex
	ident        models.Identity
	conversation *models.Conversation
	store        *storage.MessageStore
	unread       UnreadTracker
	active       bool
	open         bool
	resolved     bool
	sending      bool
	lastError    string
	transport    Transport
	// transportGen invalidates sink callbacks from torn-down transports.
	transportGen int
}

var _ API = (*Session)(nil)

func New(opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, errors.New("session: backend is required")
	}
	if opts.GuestStore == nil {
		return nil, errors.New("session: guest store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ident := models.Identity{Kind: models.IdentityAnonymous}
	if opts.Identity != nil {
		ident = opts.Identity.CurrentIdentity()
	}
	return &Session{
		backend:    opts.Backend,
		guestStore: opts.GuestStore,
		factory:    opts.Transport,
		limiter:    opts.SendLimiter,
		logger:     logger,
		now:        now,
		autoReply:  opts.AutoReplyContent,
		ident:      ident,
		store:      storage.NewMessageStore(),
	}, nil
}

func (s *Session) Activate(ctx context.Context) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	resolved := s.resolved
	s.mu.Unlock()

	if !resolved {
		conv, ident := s.resolveConversation(ctx)
		s.mu.Lock()
		s.resolved = true
		if s.conversation == nil {
			s.conversation = conv
		}
		if ident != nil {
			s.ident = *ident
		}
		s.mu.Unlock()
	}
	s.rebuildTransport()
}

func (s *Session) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	old := s.detachTransportLocked()
	s.mu.Unlock()

	// Stop blocks until the transport's goroutines are drained; calling it
	// under the session mutex would deadlock against in-flight sink events.
	if old != nil {
		old.Stop()
	}
}

func (s *Session) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open && !s.open {
		s.unread.Reset()
	}
	s.open = open
}

// rebuildTransport tears down whatever transport is running and, when the
// session is active with a known conversation, starts a fresh instance.
// Transports are single-use: a stopped one is never restarted.
func (s *Session) rebuildTransport() {
	s.mu.Lock()
	old := s.detachTransportLocked()
	var next Transport
	if s.active && s.factory != nil && s.conversation != nil && s.conversation.ID != "" {
		gen := s.transportGen
		next = s.factory(s.conversation.ID, &sinkBinding{session: s, gen: gen})
		s.transport = next
	}
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	if next != nil {
		next.Start()
	}
}

func (s *Session) detachTransportLocked() Transport {
	old := s.transport
	s.transport = nil
	s.transportGen++
	return old
}

// sinkBinding routes one transport instance's events into the session. The
// captured generation makes events from a replaced instance no-ops even if
// they were already in flight when the swap happened.
type sinkBinding struct {
	session *Session
	gen     int
}

func (b *sinkBinding) PushMessage(msg models.Message) {
	b.session.handlePushMessage(b.gen, msg)
}

func (b *sinkBinding) ConversationClosed() {
	b.session.handleConversationClosed(b.gen)
}

func (b *sinkBinding) PollResult(messages []models.Message) {
	b.session.handlePollResult(b.gen, messages)
}

func (b *sinkBinding) Invalidated() {
	b.session.handleInvalidated(b.gen)
}

func (s *Session) handlePushMessage(gen int, msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.transportGen {
		return
	}
	if s.store.Insert(msg) {
		s.unread.Note(1, s.open)
	}
}

func (s *Session) handleConversationClosed(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.transportGen {
		return
	}
	if s.conversation != nil {
		s.conversation.Status = models.StatusClosed
	}
}

func (s *Session) handlePollResult(gen int, messages []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.transportGen {
		return
	}
	added := s.store.MergeBatch(messages)
	s.unread.Note(added, s.open)
}

// handleInvalidated reacts to the conversation disappearing server-side: the
// persisted guest record points nowhere, so drop it. The in-memory state is
// kept; the next explicit start replaces it.
func (s *Session) handleInvalidated(gen int) {
	s.mu.Lock()
	if gen != s.transportGen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if err := s.guestStore.Clear(); err != nil {
		s.logger.Warn("clearing stale guest record failed", "error", err)
	}
}

func (s *Session) Conversation() (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation == nil {
		return models.Conversation{}, false
	}
	return *s.conversation, true
}

func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

func (s *Session) Display() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := s.store.List()
	return ProjectDisplay(messages, AutoResponseMarker(messages), s.now(), s.autoReply)
}

func (s *Session) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread.Count()
}

func (s *Session) TransportState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport == nil {
		return transport.StateDisconnected
	}
	return s.transport.State()
}

func (s *Session) Identity() models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident
}

func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

func (s *Session) setLastError(message string) {
	s.mu.Lock()
	s.lastError = message
	s.mu.Unlock()
}
