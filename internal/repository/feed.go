package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/curatehub/curatehub/internal/model"
)

// ErrNotFound 目标实体不存在，API 层映射为 404
var ErrNotFound = errors.New("record not found")

// FeedRepository feed 配置仓储
type FeedRepository interface {
	Create(ctx context.Context, feed *model.Feed) error
	Get(ctx context.Context, id string) (*model.Feed, error)
	Update(ctx context.Context, feed *model.Feed) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*model.Feed, error)
	ListEnabled(ctx context.Context) ([]*model.Feed, error)
}

type feedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) FeedRepository { return &feedRepository{db: db} }

func (r *feedRepository) Create(ctx context.Context, feed *model.Feed) error {
	return r.db.WithContext(ctx).Create(feed).Error
}

func (r *feedRepository) Get(ctx context.Context, id string) (*model.Feed, error) {
	var feed model.Feed
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&feed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (r *feedRepository) Update(ctx context.Context, feed *model.Feed) error {
	res := r.db.WithContext(ctx).Model(&model.Feed{}).Where("id = ?", feed.ID).
		Select("name", "description", "enabled", "approvers", "stream_output", "recap_outputs", "sources", "polling_interval_ms").
		Updates(feed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *feedRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Feed{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *feedRepository) List(ctx context.Context, offset, limit int) ([]*model.Feed, error) {
	var res []*model.Feed
	err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *feedRepository) ListEnabled(ctx context.Context) ([]*model.Feed, error) {
	var res []*model.Feed
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&res).Error
	return res, err
}
