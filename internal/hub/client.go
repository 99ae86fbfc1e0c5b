package hub

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcwilliam910/scm/pkg/log"
)

// Options bounds a connection's read/write behaviour.
type Options struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

// Client is one live websocket connection, already authenticated and bound
// to a user identity.
type Client struct {
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	opts Options
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(userID string, h *Hub, conn *websocket.Conn, opts Options) *Client {
	return &Client{
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		opts:   opts,
	}
}

// ReadPump reads inbound events and passes them to handler. It unregisters
// the client and closes the connection when the peer goes away. Events from
// one connection are handled sequentially, preserving per-sender order.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.L().Warn().Err(err).Str(log.FieldUserID, c.UserID).Msg("websocket read error")
			}
			break
		}
		handler(c, message)
	}
}

// WritePump flushes queued payloads to the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Receive returns the next queued outbound payload. Intended for tests.
func (c *Client) Receive() <-chan []byte {
	return c.send
}
