package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/curatehub/curatehub/internal/distribute"
	"github.com/curatehub/curatehub/internal/ingest"
	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/internal/transform"
)

// testEnv 全链路测试环境：sqlite 内存库 + memory 分发器
type testEnv struct {
	db           *gorm.DB
	feeds        repository.FeedRepository
	subs         repository.SubmissionRepository
	cursors      repository.CursorRepository
	sink         *distribute.Memory
	transforms   *transform.Registry
	distributors *distribute.Registry
	processor    *Processor
	subSvc       *SubmissionService
	modSvc       *ModerationService
	events       *EventHandler
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{
		db:           db,
		feeds:        repository.NewFeedRepository(db),
		subs:         repository.NewSubmissionRepository(db),
		cursors:      repository.NewCursorRepository(db),
		sink:         distribute.NewMemory(),
		transforms:   transform.NewRegistry(),
		distributors: distribute.NewRegistry(),
	}
	transform.RegisterBuiltins(env.transforms)
	env.distributors.Register("memory", env.sink)
	env.processor = NewProcessor(env.transforms, env.distributors)
	env.subSvc = NewSubmissionService(env.subs, env.feeds, nil, env.processor, 0)
	env.modSvc = NewModerationService(env.subs, env.feeds, env.processor)
	env.events = NewEventHandler(env.subSvc, env.modSvc)
	return env
}

func jsonBytes(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(raw)
}

// createFeed 建一个启用 stream 输出到 memory 分发器的 feed
func createFeed(t *testing.T, env *testEnv, id string, approvers ...string) *model.Feed {
	t.Helper()
	feed := &model.Feed{
		ID:        id,
		Name:      id,
		Enabled:   true,
		Approvers: jsonBytes(t, approvers),
		StreamOutput: jsonBytes(t, model.OutputConfig{
			Enabled:    true,
			Distribute: []model.DistributorConfig{{Plugin: "memory"}},
		}),
	}
	require.NoError(t, env.db.Create(feed).Error)
	return feed
}

func curateEvent(curatorID, curatorName, externalID, feedID, notes string) ingest.CuratedContentEvent {
	return ingest.CuratedContentEvent{
		RawEvent: ingest.RawEvent{
			ExternalID:     externalID,
			Plugin:         "memory",
			AuthorID:       curatorID,
			AuthorUsername: curatorName,
			Content:        "!curate #" + feedID + " " + notes,
			Timestamp:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			TriggerID:      externalID,
		},
		TargetFeedID: feedID,
		CuratorNotes: notes,
	}
}
