package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/curatehub/curatehub/internal/model"
)

// CursorRepository 每 (feed, plugin, search) 至多一条在用游标
type CursorRepository interface {
	// Get 不存在时返回 (nil, nil)
	Get(ctx context.Context, feedID, plugin, searchID string) (*model.LastProcessedState, error)
	Upsert(ctx context.Context, feedID, plugin, searchID string, data model.CursorData) error
	Delete(ctx context.Context, feedID, plugin, searchID string) error
}

type cursorRepository struct {
	db *gorm.DB
}

func NewCursorRepository(db *gorm.DB) CursorRepository { return &cursorRepository{db: db} }

func (r *cursorRepository) Get(ctx context.Context, feedID, plugin, searchID string) (*model.LastProcessedState, error) {
	var st model.LastProcessedState
	err := r.db.WithContext(ctx).
		Where("feed_id = ? AND plugin = ? AND search_id = ?", feedID, plugin, searchID).
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *cursorRepository) Upsert(ctx context.Context, feedID, plugin, searchID string, data model.CursorData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	st := &model.LastProcessedState{
		ID:       uuid.New().String(),
		FeedID:   feedID,
		Plugin:   plugin,
		SearchID: searchID,
		Data:     datatypes.JSON(payload),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "feed_id"}, {Name: "plugin"}, {Name: "search_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(st).Error
}

func (r *cursorRepository) Delete(ctx context.Context, feedID, plugin, searchID string) error {
	return r.db.WithContext(ctx).
		Where("feed_id = ? AND plugin = ? AND search_id = ?", feedID, plugin, searchID).
		Delete(&model.LastProcessedState{}).Error
}
