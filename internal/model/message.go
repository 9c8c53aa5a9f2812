package model

import "time"

// Message is a user-authored post. UserID is fixed at creation; there is no
// update path, so a message can never change owners.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:140;not null" json:"text"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
