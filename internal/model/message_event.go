package model

import "time"

const (
	EventMessageCreated = "created"
	EventMessageDeleted = "deleted"
)

// MessageEvent is an audit record of a message lifecycle action. Events are
// published to RabbitMQ and persisted asynchronously by the event worker.
type MessageEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;index" json:"message_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:16;not null;index" json:"action"`
	Text      string    `gorm:"size:140" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
