package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/curatehub/curatehub/internal/model"
)

// SubmissionRepository 投稿与投稿-feed 关联仓储，拥有全部状态迁移
type SubmissionRepository interface {
	// GetOrCreate 幂等创建：external_id 已存在则原样返回，不覆盖策展字段
	GetOrCreate(ctx context.Context, sub *model.Submission) (*model.Submission, bool, error)
	Get(ctx context.Context, id string) (*model.Submission, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Submission, error)
	// AttachToFeed 幂等建关联；action 非空时与关联创建同事务落审核流水（自动通过）
	AttachToFeed(ctx context.Context, submissionID, feedID string, status model.SubmissionStatus, action *model.ModerationAction) (bool, error)
	GetFeedStatus(ctx context.Context, submissionID, feedID string) (*model.SubmissionFeed, error)
	ListFeedsFor(ctx context.Context, submissionID string) ([]*model.SubmissionFeed, error)
	// RecordModeration 仅 pending 可迁移；重放返回 applied=false 且零副作用
	RecordModeration(ctx context.Context, submissionID, feedID string, verb model.ModerationVerb, adminID, note, responseID string) (bool, error)
	ListByFeed(ctx context.Context, feedID string, status model.SubmissionStatus, offset, limit int) ([]*model.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetOrCreate(ctx context.Context, sub *model.Submission) (*model.Submission, bool, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	// 幂等：并发重复创建由唯一键兜底，冲突时回读已有行
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(sub)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return sub, true, nil
	}
	existing, err := r.GetByExternalID(ctx, sub.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *submissionRepository) Get(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Submission, error) {
	var sub model.Submission
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) AttachToFeed(ctx context.Context, submissionID, feedID string, status model.SubmissionStatus, action *model.ModerationAction) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sf := &model.SubmissionFeed{
			ID:           uuid.New().String(),
			SubmissionID: submissionID,
			FeedID:       feedID,
			Status:       status,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}, {Name: "feed_id"}},
			DoNothing: true,
		}).Create(sf)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 关联已存在，不重复记流水
			return nil
		}
		created = true
		if action == nil {
			return nil
		}
		if action.ID == "" {
			action.ID = uuid.New().String()
		}
		action.SubmissionID = submissionID
		action.FeedID = feedID
		return tx.Create(action).Error
	})
	return created, err
}

func (r *submissionRepository) GetFeedStatus(ctx context.Context, submissionID, feedID string) (*model.SubmissionFeed, error) {
	var sf model.SubmissionFeed
	err := r.db.WithContext(ctx).
		Where("submission_id = ? AND feed_id = ?", submissionID, feedID).
		First(&sf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sf, nil
}

func (r *submissionRepository) ListFeedsFor(ctx context.Context, submissionID string) ([]*model.SubmissionFeed, error) {
	var res []*model.SubmissionFeed
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).Order("created_at").Find(&res).Error
	return res, err
}

func (r *submissionRepository) RecordModeration(ctx context.Context, submissionID, feedID string, verb model.ModerationVerb, adminID, note, responseID string) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": verb.TargetStatus()}
		if responseID != "" {
			updates["moderation_response_id"] = responseID
		}
		// 状态迁移与审核流水同事务；WHERE status=pending 保证重放零影响
		res := tx.Model(&model.SubmissionFeed{}).
			Where("submission_id = ? AND feed_id = ? AND status = ?", submissionID, feedID, model.StatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return tx.Create(&model.ModerationAction{
			ID:           uuid.New().String(),
			SubmissionID: submissionID,
			FeedID:       feedID,
			AdminID:      adminID,
			Action:       verb,
			Note:         note,
		}).Error
	})
	return applied, err
}

func (r *submissionRepository) ListByFeed(ctx context.Context, feedID string, status model.SubmissionStatus, offset, limit int) ([]*model.Submission, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Joins("JOIN submission_feeds sf ON sf.submission_id = submissions.id").
		Where("sf.feed_id = ?", feedID)
	if status != "" {
		q = q.Where("sf.status = ?", status)
	}
	var res []*model.Submission
	err := q.Order("submissions.submitted_at DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}
