package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
	"github.com/meroguru/meroguru-backend/internal/logger"
	"github.com/meroguru/meroguru-backend/internal/types"
)

type ChatThreadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, thread *types.ChatThread) (*types.ChatThread, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ChatThread, error)
	List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ChatThread, error)
	// Touch advances updated_at to now.
	Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type chatThreadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatThreadRepo(db *gorm.DB, baseLog *logger.Logger) ChatThreadRepo {
	return &chatThreadRepo{db: db, log: baseLog.With("repo", "ChatThreadRepo")}
}

func (r *chatThreadRepo) Create(ctx context.Context, tx *gorm.DB, thread *types.ChatThread) (*types.ChatThread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(thread).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return thread, nil
}

func (r *chatThreadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ChatThread, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing thread id")
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.ChatThread
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return &out, nil
}

func (r *chatThreadRepo) List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ChatThread, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ChatThread
	if err := transaction.WithContext(ctx).
		Model(&types.ChatThread{}).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (r *chatThreadRepo) Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing thread id")
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ChatThread{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *chatThreadRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing thread id")
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ChatThread{})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", apierr.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
