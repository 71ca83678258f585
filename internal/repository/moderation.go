package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/curatehub/curatehub/internal/model"
)

// ModerationRepository 审核流水只读查询（写入在 SubmissionRepository 事务内完成）
type ModerationRepository interface {
	ListBySubmission(ctx context.Context, submissionID string) ([]*model.ModerationAction, error)
	ListByFeed(ctx context.Context, feedID string, offset, limit int) ([]*model.ModerationAction, error)
}

type moderationRepository struct {
	db *gorm.DB
}

func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*model.ModerationAction, error) {
	var res []*model.ModerationAction
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

func (r *moderationRepository) ListByFeed(ctx context.Context, feedID string, offset, limit int) ([]*model.ModerationAction, error) {
	var res []*model.ModerationAction
	err := r.db.WithContext(ctx).
		Where("feed_id = ?", feedID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}
