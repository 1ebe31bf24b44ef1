// Package relay defines the JSON event vocabulary exchanged with clients.
// The outbound names and payload shapes are a frozen wire contract.
package relay

import "encoding/json"

// Inbound event names emitted by clients.
const (
	EventPrivateMessage = "privateMessage"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventMessageRead    = "messageRead"
)

// Outbound event names delivered to clients.
const (
	EventUserStatus         = "userStatus"
	EventOnlineUsers        = "onlineUsers"
	EventNewMessage         = "newMessage"
	EventUserTyping         = "userTyping"
	EventUserStopTyping     = "userStopTyping"
	EventMessageReadReceipt = "messageReadReceipt"
)

// Presence status values carried by userStatus events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope is the frame format for both directions: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PrivateMessagePayload is the inbound privateMessage payload.
type PrivateMessagePayload struct {
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
}

// TypingPayload is the inbound typing and stopTyping payload.
type TypingPayload struct {
	RecipientID string `json:"recipientId"`
}

// MessageReadPayload is the inbound messageRead payload. SenderID names the
// original sender of the message being acknowledged.
type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
}

// UserStatusPayload is the outbound userStatus payload.
type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// NewMessagePayload is the outbound newMessage payload.
type NewMessagePayload struct {
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
}

// UserTypingPayload is the outbound userTyping and userStopTyping payload.
type UserTypingPayload struct {
	UserID string `json:"userId"`
}

// ReadReceiptPayload is the outbound messageReadReceipt payload.
type ReadReceiptPayload struct {
	MessageID string `json:"messageId"`
}

// marshalEvent encodes an outbound frame. The payload is marshalled once and
// the resulting bytes are shared across all deliveries of the frame.
func marshalEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
