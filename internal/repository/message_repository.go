package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"warbler/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(id uint) (*model.Message, error) {
	var message model.Message
	if err := r.db.First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query message by id failed: %w", err)
	}
	return &message, nil
}

func (r *MessageRepository) ListRecent(limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.Message
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) ListByUserID(userID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.Message
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list user messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Message{}, id).Error; err != nil {
		return fmt.Errorf("delete message failed: %w", err)
	}
	return nil
}
