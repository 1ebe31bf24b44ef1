// Package relay manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package relay

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/nexus-relay/internal/logger"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// wsConn is the subset of *websocket.Conn the client relies on, expressed as
// an interface so tests can substitute a fake transport.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is the per-connection state record for one authenticated session:
// the user it was authenticated as, its transport, and its send capability.
// A connection moves from Connecting (no registry entry) to Active
// (registered) on admission, and to Closed through teardown exactly once.
type Client struct {
	id     string
	userID string
	conn   wsConn
	send   chan []byte
	hub    *Hub
	addr   string

	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a Client for an authenticated connection. The send
// channel is buffered so deliveries from other connections never block.
func NewClient(conn wsConn, hub *Hub, userID, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	limiter := newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval)

	return &Client{
		id:             uuid.NewString(),
		userID:         userID,
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    limiter,
		rateLimit:      cfg.RateLimit,
		done:           make(chan struct{}),
	}
}

// UserID returns the user identifier this connection was authenticated as.
func (c *Client) UserID() string {
	return c.userID
}

// trySend attempts one non-blocking delivery to this connection. It reports
// false when the send buffer is full; the frame is dropped, never queued.
func (c *Client) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// teardown is the single exit path for a connection. It runs at most once,
// no matter which pump or error triggered it: stop the write pump, close the
// transport, and, only if this connection still owned its registry entry,
// announce the user offline.
func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Warnf("Error closing connection for %s: %v", c.addr, err)
		}

		if c.hub.registry.Unregister(c.userID, c) {
			logger.Info("user disconnected",
				zap.String("userId", c.userID), zap.String("addr", c.addr),
				zap.Int("online", c.hub.registry.Count()))
			c.hub.AnnouncePresence(c.userID, StatusOffline)
		}
	})
}

// supersede closes a connection that has been replaced by a newer one for
// the same user. Only the write pump touches the transport, so the close goes
// through the ordinary teardown path. Teardown finds the registry entry
// pointing elsewhere, so no offline announcement is made for a user who is
// still online.
func (c *Client) supersede() {
	c.teardown()
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Warnf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Warnf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// handleReadError logs appropriate messages based on the error type and
// always reports that the read loop should stop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		logger.Warnf("Message from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		logger.Infof("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		logger.Infof("Client %s connection closed: %v", c.addr, err)
	default:
		logger.Warnf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// checkRateLimit verifies the client has not exceeded its message budget
// and returns true if the frame should be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		logger.Warnf("Rate limit exceeded for %s (%d messages per %s); discarding message",
			c.addr, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// handleFrame decodes one inbound frame and hands it to the router. A frame
// that is not valid JSON is logged and dropped; the connection stays up.
func (c *Client) handleFrame(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Warnf("Invalid frame from %s (user %s): %v", c.addr, c.userID, err)
		return
	}
	c.hub.Route(c.userID, env)
}

// readPump reads inbound frames for the connection's lifetime. Every exit,
// graceful or not, runs the single teardown path.
func (c *Client) readPump() {
	defer c.teardown()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.handleFrame(raw)
	}
}

// writePump flushes the send channel to the transport and keeps the
// connection alive with periodic pings. A failed write is treated as a dead
// connection and runs teardown.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Warnf("Error setting write deadline for %s: %v", c.addr, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					logger.Warnf("Error writing message to %s: %v", c.addr, err)
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Warnf("Error setting write deadline for ping to %s: %v", c.addr, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					logger.Warnf("Error writing ping message to %s: %v", c.addr, err)
				}
				return
			}
		}
	}
}
