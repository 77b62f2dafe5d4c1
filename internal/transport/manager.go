package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shopchat/go-client/pkg/models"
)

const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

const DefaultPollInterval = 5 * time.Second

type Options struct {
	ConversationID string
	Dialer         PushDialer
	Lister         MessageLister
	Sink           EventSink
	PollInterval   time.Duration
	Logger         *slog.Logger
	Metrics        *Metrics
}

// Manager owns the delivery transport for one (conversation, active session)
// pair. It tries the push channel first and degrades to fixed-interval
// polling on channel failure; once degraded it stays on polling until the
// owning session rebuilds it from scratch. Independently of either path,
// Start issues a single history fetch so a restored conversation renders
// immediately; that bootstrap is not part of the poll loop, which stays
// inert while the push channel is connected. A manager is single-use: after
// Stop it never delivers again.
type Manager struct {
	opts Options

	mu         sync.Mutex
	state      string
	channel    PushChannel
	cancel     context.CancelFunc
	pollCancel context.CancelFunc
	closed     bool
	wg         sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		opts:  opts,
		state: StateDisconnected,
	}
}

// Start is non-blocking; connection and history sync run on the manager's
// own goroutines.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.closed || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.transitionLocked(StateConnecting)
	m.wg.Add(2)
	m.mu.Unlock()

	go m.initialSync(ctx)
	go m.run(ctx)
}

// Stop tears the transport down synchronously: when it returns, no further
// sink call can happen from this instance.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	cancel := m.cancel
	pollCancel := m.pollCancel
	channel := m.channel
	m.cancel = nil
	m.pollCancel = nil
	m.channel = nil
	m.transitionLocked(StateDisconnected)
	m.mu.Unlock()

	if pollCancel != nil {
		pollCancel()
	}
	if cancel != nil {
		cancel()
	}
	if channel != nil {
		_ = channel.Close()
	}
	m.wg.Wait()
}

func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// initialSync fetches the full history once so a restored conversation
// renders without waiting for the first poll tick or push event.
func (m *Manager) initialSync(ctx context.Context) {
	defer m.wg.Done()
	m.pollOnce(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	channel, err := m.opts.Dialer.OpenPushChannel(ctx, m.opts.ConversationID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.opts.Logger.Warn("push channel open failed, falling back to polling", "error", err)
		m.degrade(ctx)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = channel.Close()
		return
	}
	m.channel = channel
	m.transitionLocked(StateConnected)
	// Push takes priority over poll: a connected channel deterministically
	// cancels any running poll timer.
	m.stopPollLocked()
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-channel.Events():
			if !ok {
				// Channel closed or errored. Degrade to polling for the
				// remainder of this instance; push is not re-attempted.
				m.opts.Logger.Info("push channel ended, degrading to polling")
				m.degrade(ctx)
				return
			}
			m.dispatch(event)
		}
	}
}

func (m *Manager) dispatch(event PushEvent) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.opts.Metrics.ObservePushEvent(event.Type)
	switch event.Type {
	case EventNewMessage:
		m.opts.Sink.PushMessage(event.Message)
	case EventConversationClosed:
		m.opts.Sink.ConversationClosed()
	default:
		m.opts.Logger.Debug("ignoring unknown push event", "type", event.Type)
	}
}

func (m *Manager) degrade(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || ctx.Err() != nil {
		return
	}
	m.channel = nil
	m.transitionLocked(StateDisconnected)
	m.startPollLocked(ctx)
}

func (m *Manager) startPollLocked(ctx context.Context) {
	if m.pollCancel != nil {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	m.wg.Add(1)
	go m.pollLoop(pollCtx)
}

func (m *Manager) stopPollLocked() {
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	messages, err := m.opts.Lister.ListMessages(ctx, m.opts.ConversationID)
	m.opts.Metrics.ObservePollTick()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.opts.Metrics.ObservePollError()
		if isConversationGone(err) {
			m.deliverInvalidated()
			return
		}
		// Transient failure; the next tick retries.
		m.opts.Logger.Warn("message poll failed", "conversation_id", m.opts.ConversationID, "error", err)
		return
	}
	m.deliverPollResult(messages)
}

func (m *Manager) deliverPollResult(messages []models.Message) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.opts.Sink.PollResult(messages)
}

func (m *Manager) deliverInvalidated() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.opts.Logger.Info("conversation no longer valid", "conversation_id", m.opts.ConversationID)
	m.opts.Sink.Invalidated()
}

func (m *Manager) transitionLocked(next string) {
	if m.state == next {
		return
	}
	m.state = next
	m.opts.Metrics.ObserveTransition(next)
}

// isConversationGone reports whether the listing failed because the
// conversation is not found or forbidden, which invalidates any locally
// persisted reference to it.
func isConversationGone(err error) bool {
	var coded interface{ StatusCode() int }
	if !errors.As(err, &coded) {
		return false
	}
	code := coded.StatusCode()
	return code == 403 || code == 404
}
