package relay

import (
	"context"
	"time"
)

// MessageRecord is the durable form of a private message, owned by the
// history service.
type MessageRecord struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MessageStore is the boundary contract of the persistence collaborator. The
// REST history service writes through it on its own path; the relay core
// never calls it, and live delivery makes no assumption about whether the
// durable write has happened. The two paths are eventually consistent by
// design.
type MessageStore interface {
	CreateMessage(ctx context.Context, senderID, recipientID, content string) (*MessageRecord, error)
	MarkRead(ctx context.Context, senderID, recipientID string) error
}
