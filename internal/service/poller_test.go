package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatehub/curatehub/config"
	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/internal/source"
)

func newTestPoller(env *testEnv, adapter source.Adapter) *Poller {
	sources := source.NewRegistry()
	sources.Register("memory", adapter)
	return NewPoller(env.feeds, env.cursors, sources, env.events, config.PollerConfig{
		DefaultIntervalMs: 60000,
		AsyncRetryDelayMs: 1,
		MaxAsyncAttempts:  12,
	})
}

// feedWithSource 建一个挂了 memory 内容源的 feed
func feedWithSource(t *testing.T, env *testEnv, id string, approvers ...string) *model.Feed {
	t.Helper()
	feed := createFeed(t, env, id, approvers...)
	feed.Sources = jsonBytes(t, []model.SourceConfig{
		{Plugin: "memory", Searches: []model.SearchConfig{{ID: "s1", Query: "q"}}},
	})
	require.NoError(t, env.db.Save(feed).Error)
	return feed
}

func commandItem(id, externalID, content string) source.Item {
	return source.Item{
		ID:         id,
		ExternalID: externalID,
		Content:    content,
		Author:     source.Author{ID: "u1", Username: "alice"},
		CreatedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Metadata:   source.Metadata{SourcePlugin: "memory"},
	}
}

var pollSearchCfg = model.SearchConfig{ID: "s1", Query: "q"}

func TestPollFeedSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feedWithSource(t, env, "news", "mod1")

	adapter := source.NewMemory(source.MemoryResponse{Result: &source.Result{
		Items: []source.Item{
			commandItem("m1", "cmd-1", "!curate #news hello"),
			commandItem("m2", "chat-1", "good morning"), // 非指令，跳过
		},
		NextState: &model.CursorData{LatestProcessedID: "m1"},
	}})
	p := newTestPoller(env, adapter)
	p.PollFeed(ctx, "news")

	sub, err := env.subs.GetByExternalID(ctx, "cmd-1")
	require.NoError(t, err)
	sf, err := env.subs.GetFeedStatus(ctx, sub.ID, "news")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, sf.Status)

	st, err := env.cursors.Get(ctx, "news", "memory", "s1")
	require.NoError(t, err)
	require.NotNil(t, st)
	cur, err := st.Cursor()
	require.NoError(t, err)
	assert.Equal(t, "m1", cur.LatestProcessedID)
	assert.Len(t, adapter.Calls(), 1)
}

func TestPollFeedSameBatchCurateThenApprove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feedWithSource(t, env, "news", "mod1")

	// 同一批内先投稿后审核：审核指令必须看得到前一条刚写入的投稿，
	// 依赖 handleItems 按抓取顺序串行消费
	approve := source.Item{
		ID:         "m2",
		ExternalID: "cmd-2",
		Content:    "!approve cmd-1 #news lgtm",
		Author:     source.Author{ID: "u-mod1", Username: "mod1"},
		CreatedAt:  time.Date(2025, 6, 1, 10, 0, 1, 0, time.UTC),
		Metadata:   source.Metadata{SourcePlugin: "memory"},
	}
	adapter := source.NewMemory(source.MemoryResponse{Result: &source.Result{
		Items: []source.Item{
			commandItem("m1", "cmd-1", "!curate #news check this"),
			approve,
		},
		NextState: &model.CursorData{LatestProcessedID: "m2"},
	}})
	p := newTestPoller(env, adapter)
	p.PollFeed(ctx, "news")

	sub, err := env.subs.GetByExternalID(ctx, "cmd-1")
	require.NoError(t, err)
	sf, err := env.subs.GetFeedStatus(ctx, sub.ID, "news")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sf.Status)
	require.NotNil(t, sf.ModerationResponseID)
	assert.Equal(t, "m2", *sf.ModerationResponseID)

	var actions []model.ModerationAction
	require.NoError(t, env.db.Where("submission_id = ?", sub.ID).Find(&actions).Error)
	require.Len(t, actions, 1)
	assert.Equal(t, "mod1", actions[0].AdminID)
	assert.Equal(t, model.VerbApprove, actions[0].Action)
	assert.Equal(t, "lgtm", actions[0].Note)

	// 通过即走 stream 分发
	require.Len(t, env.sink.Deliveries(), 1)
	assert.Equal(t, "cmd-1", env.sink.Deliveries()[0].ExternalID)
}

func TestPollSearchResumesFromStoredCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := feedWithSource(t, env, "news")
	require.NoError(t, env.cursors.Upsert(ctx, "news", "memory", "s1",
		model.CursorData{LatestProcessedID: "m9"}))

	adapter := source.NewMemory(source.MemoryResponse{Result: &source.Result{
		NextState: &model.CursorData{LatestProcessedID: "m10"},
	}})
	p := newTestPoller(env, adapter)

	outcome := p.pollSearch(ctx, feed, adapter, "memory", pollSearchCfg)
	assert.Equal(t, OutcomeComplete, outcome)

	calls := adapter.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0])
	assert.Equal(t, "m9", calls[0].LatestProcessedID)
}

func TestPollSearchExhaustionDeletesCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := feedWithSource(t, env, "news")
	require.NoError(t, env.cursors.Upsert(ctx, "news", "memory", "s1",
		model.CursorData{LatestProcessedID: "m9"}))

	adapter := source.NewMemory(source.MemoryResponse{Result: &source.Result{}})
	p := newTestPoller(env, adapter)

	outcome := p.pollSearch(ctx, feed, adapter, "memory", pollSearchCfg)
	assert.Equal(t, OutcomeComplete, outcome)

	st, err := env.cursors.Get(ctx, "news", "memory", "s1")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestPollSearchAsyncMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := feedWithSource(t, env, "news")
	require.NoError(t, env.cursors.Upsert(ctx, "news", "memory", "s1",
		model.CursorData{LatestProcessedID: "committed"}))

	// 任务永远 processing，最后一个响应反复重放
	adapter := source.NewMemory(source.MemoryResponse{Result: &source.Result{
		Items: []source.Item{commandItem("m1", "cmd-1", "!curate #news hello")},
		NextState: &model.CursorData{
			LatestProcessedID: "committed",
			CurrentAsyncJob:   &model.AsyncJobState{ID: "job-1", Status: model.JobProcessing},
		},
	}})
	p := newTestPoller(env, adapter)

	outcome := p.pollSearch(ctx, feed, adapter, "memory", pollSearchCfg)
	assert.Equal(t, OutcomeMaxAttempts, outcome)
	assert.Len(t, adapter.Calls(), 12)

	// 半成品条目全部丢弃
	_, err := env.subs.GetByExternalID(ctx, "cmd-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// 游标停在最后一次成功提交的位置
	st, err := env.cursors.Get(ctx, "news", "memory", "s1")
	require.NoError(t, err)
	cur, err := st.Cursor()
	require.NoError(t, err)
	assert.Equal(t, "committed", cur.LatestProcessedID)
	assert.Nil(t, cur.CurrentAsyncJob)
}

func TestPollSearchAsyncCompletesAfterRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := feedWithSource(t, env, "news", "mod1")

	pending := &source.Result{NextState: &model.CursorData{
		CurrentAsyncJob: &model.AsyncJobState{ID: "job-1", Status: model.JobPending},
	}}
	done := &source.Result{
		Items:     []source.Item{commandItem("m1", "cmd-1", "!curate #news hello")},
		NextState: &model.CursorData{LatestProcessedID: "m1"},
	}
	adapter := source.NewMemory(
		source.MemoryResponse{Result: pending},
		source.MemoryResponse{Result: done},
	)
	p := newTestPoller(env, adapter)

	outcome := p.pollSearch(ctx, feed, adapter, "memory", pollSearchCfg)
	assert.Equal(t, OutcomeComplete, outcome)

	calls := adapter.Calls()
	require.Len(t, calls, 2)
	// 重询带着任务句柄
	require.NotNil(t, calls[1].CurrentAsyncJob)
	assert.Equal(t, "job-1", calls[1].CurrentAsyncJob.ID)

	_, err := env.subs.GetByExternalID(ctx, "cmd-1")
	require.NoError(t, err)
}

func TestPollSearchAsyncJobFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := feedWithSource(t, env, "news")

	adapter := source.NewMemory(source.MemoryResponse{Result: &source.Result{
		NextState: &model.CursorData{
			CurrentAsyncJob: &model.AsyncJobState{ID: "job-1", Status: model.JobTimeout},
		},
	}})
	p := newTestPoller(env, adapter)

	outcome := p.pollSearch(ctx, feed, adapter, "memory", pollSearchCfg)
	assert.Equal(t, OutcomeError, outcome)
	assert.Len(t, adapter.Calls(), 1)
}

func TestPollSearchFetchError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := feedWithSource(t, env, "news")
	require.NoError(t, env.cursors.Upsert(ctx, "news", "memory", "s1",
		model.CursorData{LatestProcessedID: "committed"}))

	adapter := source.NewMemory(source.MemoryResponse{Err: errors.New("rate limited")})
	p := newTestPoller(env, adapter)

	outcome := p.pollSearch(ctx, feed, adapter, "memory", pollSearchCfg)
	assert.Equal(t, OutcomeError, outcome)

	st, err := env.cursors.Get(ctx, "news", "memory", "s1")
	require.NoError(t, err)
	cur, err := st.Cursor()
	require.NoError(t, err)
	assert.Equal(t, "committed", cur.LatestProcessedID)
}

func TestPollFeedDisabledSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feed := feedWithSource(t, env, "news")
	feed.Enabled = false
	require.NoError(t, env.db.Save(feed).Error)

	adapter := source.NewMemory()
	p := newTestPoller(env, adapter)
	p.PollFeed(ctx, "news")
	assert.Empty(t, adapter.Calls())
}

func TestPollFeedInFlightGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	feedWithSource(t, env, "news")

	adapter := source.NewMemory()
	p := newTestPoller(env, adapter)

	require.True(t, p.acquire("news"))
	p.PollFeed(ctx, "news")
	assert.Empty(t, adapter.Calls())

	p.release("news")
	p.PollFeed(ctx, "news")
	assert.Len(t, adapter.Calls(), 1)
}

func TestPollerStartStop(t *testing.T) {
	env := newTestEnv(t)
	feed := feedWithSource(t, env, "news")
	feed.PollingIntervalMs = 1000
	require.NoError(t, env.db.Save(feed).Error)

	adapter := source.NewMemory()
	p := newTestPoller(env, adapter)
	require.NoError(t, p.Start(context.Background()))
	p.Stop()
}
