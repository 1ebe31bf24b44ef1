// Package relay coordinates client admission, presence fan-out, event
// routing, and connection cleanup via the Hub type.
package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/nexus-relay/internal/logger"
)

// Hub routes typed client events and presence announcements over the
// connection registry. It owns no locking of its own: the registry serializes
// membership changes, and deliveries happen outside the registry lock on a
// snapshot of the resolved connections.
type Hub struct {
	registry *Registry
	wg       sync.WaitGroup
}

// NewHub creates a Hub over the provided registry. The registry is injected
// so tests and the server share one construction path.
func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Admit takes an authenticated connection through the admission sequence:
// register, announce online, ship the online snapshot, then start the pumps.
// Running the steps sequentially guarantees the online announcement reaches
// peers before any event from this connection is routed.
func (h *Hub) Admit(c *Client) {
	if old := h.registry.Register(c.userID, c); old != nil {
		logger.Info("connection superseded by reconnect",
			zap.String("userId", c.userID), zap.String("oldConn", old.id))
		old.supersede()
	}

	logger.Info("user connected",
		zap.String("userId", c.userID), zap.String("addr", c.addr),
		zap.Int("online", h.registry.Count()))

	h.AnnouncePresence(c.userID, StatusOnline)
	h.SendOnlineSnapshot(c)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// AnnouncePresence fans a userStatus event out to every registered
// connection, the subject included.
func (h *Hub) AnnouncePresence(userID, status string) {
	frame, err := marshalEvent(EventUserStatus, UserStatusPayload{UserID: userID, Status: status})
	if err != nil {
		logger.Errorf("Error encoding presence event for %s: %v", userID, err)
		return
	}

	for _, c := range h.registry.snapshotClients() {
		if !c.trySend(frame) {
			logger.Debug("presence event dropped: send buffer full",
				zap.String("userId", c.userID))
		}
	}
}

// SendOnlineSnapshot ships the full current online set to one connection so
// the client can render an initial list without waiting for announcements.
func (h *Hub) SendOnlineSnapshot(c *Client) {
	frame, err := marshalEvent(EventOnlineUsers, h.registry.SnapshotIDs())
	if err != nil {
		logger.Errorf("Error encoding online snapshot for %s: %v", c.userID, err)
		return
	}
	if !c.trySend(frame) {
		logger.Debug("online snapshot dropped: send buffer full",
			zap.String("userId", c.userID))
	}
}

// Route dispatches one inbound event from the named sender. Events naming a
// recipient that is not currently registered are discarded silently; that is
// the best-effort delivery contract, not an error.
func (h *Hub) Route(fromUserID string, env Envelope) {
	switch env.Event {
	case EventPrivateMessage:
		var p PrivateMessagePayload
		if !decodePayload(fromUserID, env, &p) || p.RecipientID == "" {
			return
		}
		h.sendTo(p.RecipientID, EventNewMessage, NewMessagePayload{
			SenderID: fromUserID,
			Message:  p.Message,
		})

	case EventTyping:
		var p TypingPayload
		if !decodePayload(fromUserID, env, &p) || p.RecipientID == "" {
			return
		}
		h.sendTo(p.RecipientID, EventUserTyping, UserTypingPayload{UserID: fromUserID})

	case EventStopTyping:
		var p TypingPayload
		if !decodePayload(fromUserID, env, &p) || p.RecipientID == "" {
			return
		}
		h.sendTo(p.RecipientID, EventUserStopTyping, UserTypingPayload{UserID: fromUserID})

	case EventMessageRead:
		var p MessageReadPayload
		if !decodePayload(fromUserID, env, &p) || p.SenderID == "" {
			return
		}
		h.sendTo(p.SenderID, EventMessageReadReceipt, ReadReceiptPayload{MessageID: p.MessageID})

	default:
		logger.Warnf("Unknown event %q from user %s; dropping", env.Event, fromUserID)
	}
}

// sendTo resolves the recipient and attempts one best-effort delivery. The
// send capability is copied out of the registry before delivery so the
// registry lock is never held while writing.
func (h *Hub) sendTo(userID, event string, data interface{}) {
	recipient, ok := h.registry.Lookup(userID)
	if !ok {
		return
	}

	frame, err := marshalEvent(event, data)
	if err != nil {
		logger.Errorf("Error encoding %s event for %s: %v", event, userID, err)
		return
	}
	if !recipient.trySend(frame) {
		logger.Debug("event dropped: send buffer full",
			zap.String("event", event), zap.String("userId", userID))
	}
}

// decodePayload unmarshals an inbound payload, logging and dropping the event
// on malformed input. The connection stays up.
func decodePayload(fromUserID string, env Envelope, out interface{}) bool {
	if err := json.Unmarshal(env.Data, out); err != nil {
		logger.Warnf("Malformed %s payload from user %s: %v", env.Event, fromUserID, err)
		return false
	}
	return true
}

// Shutdown tears down every live connection and waits for their pump
// goroutines to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	logger.Info("Shutting down all client connections...")

	clients := h.registry.snapshotClients()
	for _, c := range clients {
		c.teardown()
	}
	logger.Infof("Closed %d client connections", len(clients))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		logger.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
