package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/curatehub/curatehub/internal/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Feed{},
		&model.Submission{},
		&model.SubmissionFeed{},
		&model.ModerationAction{},
		&model.LastProcessedState{},
	))
	return db
}

func mustJSON(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(raw)
}

func seedFeed(t *testing.T, db *gorm.DB, id string, approvers ...string) *model.Feed {
	t.Helper()
	feed := &model.Feed{
		ID:        id,
		Name:      id,
		Enabled:   true,
		Approvers: mustJSON(t, approvers),
	}
	require.NoError(t, db.Create(feed).Error)
	return feed
}

func seedSubmission(t *testing.T, db *gorm.DB, externalID string) *model.Submission {
	t.Helper()
	sub := &model.Submission{
		ExternalID:      externalID,
		AuthorID:        "author-1",
		AuthorUsername:  "bob",
		Content:         "original post",
		CuratorID:       "curator-1",
		CuratorUsername: "alice",
		SubmittedAt:     time.Now().UTC(),
	}
	created, _, err := NewSubmissionRepository(db).GetOrCreate(context.Background(), sub)
	require.NoError(t, err)
	return created
}
