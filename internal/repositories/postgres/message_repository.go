package postgres

import (
	"context"

	"alo17-service/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db}
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *MessageRepository) FindByRoomID(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&messages).Error
	return messages, err
}

// MarkRead flags a message as read. Receipts can arrive more than once per
// message; rewriting the flag is a no-op.
func (r *MessageRepository) MarkRead(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("read", true).Error
}
