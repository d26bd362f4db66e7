package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/types"
)

type ChatMessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) (*types.ChatMessage, error)
	ListByThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) ([]*types.ChatMessage, error)
	DeleteByThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) error
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) (*types.ChatMessage, error) {
	if message == nil {
		return nil, fmt.Errorf("missing message")
	}
	if message.ThreadID == uuid.Nil {
		return nil, fmt.Errorf("missing thread id")
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return message, nil
}

func (r *chatMessageRepo) ListByThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) ([]*types.ChatMessage, error) {
	if threadID == uuid.Nil {
		return nil, fmt.Errorf("missing thread id")
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ChatMessage
	if err := transaction.WithContext(ctx).
		Model(&types.ChatMessage{}).
		Where("thread_id = ?", threadID).
		Order("timestamp ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (r *chatMessageRepo) DeleteByThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) error {
	if threadID == uuid.Nil {
		return fmt.Errorf("missing thread id")
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&types.ChatMessage{}).Error; err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return nil
}
