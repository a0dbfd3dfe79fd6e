package repository

import (
	"context"
	"errors"
	"fmt"

	domainMessage "github.com/AzielCF/az-crm/domains/message"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"gorm.io/gorm"
)

// MessageRepository persists the append-only message log through gorm,
// on whichever driver the database layer was opened with.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) (*MessageRepository, error) {
	if err := db.AutoMigrate(&domainMessage.Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate messages table: %w", err)
	}
	return &MessageRepository{db: db}, nil
}

func (r *MessageRepository) Append(ctx context.Context, msg *domainMessage.Message) error {
	if msg.MessageID == "" {
		return pkgError.ValidationError("message_id cannot be blank")
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// re-delivery of an already stored event, the log keeps one copy
			return nil
		}
		return pkgError.InternalServerError(fmt.Sprintf("failed to store message %s: %v", msg.MessageID, err))
	}
	return nil
}

func (r *MessageRepository) GetByMessageID(ctx context.Context, messageID string) (*domainMessage.Message, error) {
	var msg domainMessage.Message
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgError.NotFoundError(fmt.Sprintf("message %s not found", messageID))
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) ListByPhone(ctx context.Context, phone string, limit int) ([]domainMessage.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []domainMessage.Message
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("timestamp DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
