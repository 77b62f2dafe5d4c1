package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"shopchat/go-client/internal/transport"
)

// WSDialer opens the websocket push channel for a conversation. It satisfies
// the transport.PushDialer port.
type WSDialer struct {
	baseURL string
	token   TokenFunc
	logger  *slog.Logger
}

func NewWSDialer(baseURL string, token TokenFunc, logger *slog.Logger) (*WSDialer, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("websocket base url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WSDialer{baseURL: base, token: token, logger: logger}, nil
}

func (d *WSDialer) OpenPushChannel(ctx context.Context, conversationID string) (transport.PushChannel, error) {
	endpoint := d.baseURL + "/api/v1/support/conversations/" + url.PathEscape(conversationID) + "/events"
	header := http.Header{}
	if d.token != nil {
		if token := d.token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Op: "open push channel", Status: resp.StatusCode}
		}
		return nil, err
	}
	channel := &wsChannel{
		conn:   conn,
		events: make(chan transport.PushEvent, 16),
		done:   make(chan struct{}),
		logger: d.logger,
	}
	go channel.readLoop()
	return channel, nil
}

type wsChannel struct {
	conn   *websocket.Conn
	events chan transport.PushEvent
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func (c *wsChannel) Events() <-chan transport.PushEvent { return c.events }

func (c *wsChannel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

type pushFrame struct {
	Type    string        `json:"type"`
	Message messageRecord `json:"message"`
}

func (c *wsChannel) readLoop() {
	defer close(c.events)
	for {
		var frame pushFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Debug("push channel read ended", "error", err)
			}
			return
		}
		event := transport.PushEvent{Type: frame.Type, Message: frame.Message.toModel()}
		select {
		case c.events <- event:
		case <-c.done:
			return
		}
	}
}
