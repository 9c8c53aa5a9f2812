package repository

import (
	"fmt"

	"gorm.io/gorm"

	"warbler/internal/model"
)

type MessageEventRepository struct {
	db *gorm.DB
}

func NewMessageEventRepository(db *gorm.DB) *MessageEventRepository {
	return &MessageEventRepository{db: db}
}

func (r *MessageEventRepository) Create(event *model.MessageEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("create message event failed: %w", err)
	}
	return nil
}
