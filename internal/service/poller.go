package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/curatehub/curatehub/config"
	"github.com/curatehub/curatehub/internal/ingest"
	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/internal/source"
	"github.com/curatehub/curatehub/pkg/logger"
)

// PollOutcome 单次检索轮询的结局
type PollOutcome string

const (
	OutcomeComplete    PollOutcome = "complete"
	OutcomeError       PollOutcome = "error"
	OutcomeMaxAttempts PollOutcome = "max_attempts_reached"
)

// Poller 按 feed 独立定时拉取内容源，推进游标并驱动 ingest→route→处理
// 同一 feed 用 in-flight 标记防重入，feed 之间互不阻塞
type Poller struct {
	feeds   repository.FeedRepository
	cursors repository.CursorRepository
	sources *source.Registry
	events  *EventHandler

	defaultInterval  time.Duration
	asyncDelay       time.Duration
	maxAsyncAttempts int

	mu       sync.Mutex
	inFlight map[string]bool
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPoller(
	feeds repository.FeedRepository,
	cursors repository.CursorRepository,
	sources *source.Registry,
	events *EventHandler,
	cfg config.PollerConfig,
) *Poller {
	interval := time.Duration(cfg.DefaultIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}
	attempts := cfg.MaxAsyncAttempts
	if attempts <= 0 {
		attempts = 12
	}
	return &Poller{
		feeds:            feeds,
		cursors:          cursors,
		sources:          sources,
		events:           events,
		defaultInterval:  interval,
		asyncDelay:       cfg.AsyncRetryDelay(),
		maxAsyncAttempts: attempts,
		inFlight:         make(map[string]bool),
		stop:             make(chan struct{}),
	}
}

// Start 为每个启用的 feed 起一个独立定时循环
func (p *Poller) Start(ctx context.Context) error {
	feeds, err := p.feeds.ListEnabled(ctx)
	if err != nil {
		return err
	}
	for _, feed := range feeds {
		interval := feed.PollingInterval()
		if feed.PollingIntervalMs <= 0 {
			interval = p.defaultInterval
		}
		p.wg.Add(1)
		go p.feedLoop(feed.ID, interval)
	}
	logger.Info("poller started", zap.Int("feeds", len(feeds)))
	return nil
}

// Stop 取消全部定时器并等待在途轮询退出
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *Poller) feedLoop(feedID string, interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.PollFeed(context.Background(), feedID)
		}
	}
}

// PollFeed 轮询一个 feed 的全部内容源
// 配置每次实时重读：feed 被禁用或删除时本轮直接跳过
func (p *Poller) PollFeed(ctx context.Context, feedID string) {
	if !p.acquire(feedID) {
		logger.Debug("previous poll still in flight, skipping tick", zap.String("feed_id", feedID))
		return
	}
	defer p.release(feedID)

	feed, err := p.feeds.Get(ctx, feedID)
	if err != nil {
		logger.Warn("feed lookup failed, skipping poll", zap.String("feed_id", feedID), zap.Error(err))
		return
	}
	if !feed.Enabled {
		return
	}
	srcs, err := feed.SourceList()
	if err != nil {
		logger.Warn("invalid source config", zap.String("feed_id", feedID), zap.Error(err))
		return
	}

	for _, sc := range srcs {
		adapter, err := p.sources.Get(sc.Plugin)
		if err != nil {
			logger.Warn("source plugin not registered", zap.String("feed_id", feedID), zap.String("plugin", sc.Plugin))
			continue
		}
		for _, search := range sc.Searches {
			outcome := p.pollSearch(ctx, feed, adapter, sc.Plugin, search)
			logger.Debug("search polled",
				zap.String("feed_id", feedID),
				zap.String("plugin", sc.Plugin),
				zap.String("search_id", search.ID),
				zap.String("outcome", string(outcome)))
		}
	}
}

// pollSearch 单条检索配置的一个轮询周期
// 异步任务未完成时固定间隔重询同一请求，到达次数上限即丢弃本轮条目，
// 游标保持在最后一次成功提交的位置
func (p *Poller) pollSearch(ctx context.Context, feed *model.Feed, adapter source.Adapter, plugin string, search model.SearchConfig) PollOutcome {
	stored, err := p.cursors.Get(ctx, feed.ID, plugin, search.ID)
	if err != nil {
		logger.Warn("cursor load failed", zap.String("feed_id", feed.ID), zap.Error(err))
		return OutcomeError
	}
	cursor, err := stored.Cursor()
	if err != nil {
		logger.Warn("corrupt cursor data, restarting from scratch", zap.String("feed_id", feed.ID), zap.Error(err))
		cursor = nil
	}

	opts := source.SearchOptions{
		FeedID:   feed.ID,
		SearchID: search.ID,
		Type:     search.Type,
		Query:    search.Query,
		PageSize: search.PageSize,
	}

	attempts := 0
	for {
		res, err := adapter.Search(ctx, cursor, opts)
		if err != nil {
			logger.Warn("source fetch failed",
				zap.String("feed_id", feed.ID),
				zap.String("plugin", plugin),
				zap.String("search_id", search.ID),
				zap.Error(err))
			return OutcomeError
		}

		if job := asyncJob(res); job != nil {
			if job.Status.InFlight() {
				attempts++
				if attempts >= p.maxAsyncAttempts {
					logger.Warn("async job exceeded max attempts, discarding partial items",
						zap.String("feed_id", feed.ID),
						zap.String("job_id", job.ID),
						zap.Int("attempts", attempts))
					return OutcomeMaxAttempts
				}
				// 任务句柄只在本周期内存续，不落库；下个整周期重新发起
				cursor = res.NextState
				if !p.sleep(ctx, p.asyncDelay) {
					return OutcomeError
				}
				continue
			}
			// error/timeout：丢弃条目，终止本轮
			logger.Warn("async job failed",
				zap.String("feed_id", feed.ID),
				zap.String("job_id", job.ID),
				zap.String("status", string(job.Status)))
			return OutcomeError
		}

		// 成功：先提交游标，再顺序消费条目
		if res.NextState == nil {
			if err := p.cursors.Delete(ctx, feed.ID, plugin, search.ID); err != nil {
				logger.Warn("cursor delete failed", zap.String("feed_id", feed.ID), zap.Error(err))
			}
		} else {
			if err := p.cursors.Upsert(ctx, feed.ID, plugin, search.ID, *res.NextState); err != nil {
				logger.Warn("cursor upsert failed", zap.String("feed_id", feed.ID), zap.Error(err))
				return OutcomeError
			}
		}
		p.handleItems(ctx, res.Items)
		return OutcomeComplete
	}
}

// handleItems 按抓取顺序串行消费，保证同批内提交+立即审核的自引用可见
// 单条失败只记日志，不影响兄弟条目
func (p *Poller) handleItems(ctx context.Context, items []source.Item) {
	for _, item := range items {
		ev, err := ingest.ProcessSourceItem(item)
		if err != nil {
			logger.Warn("skipping malformed source item", zap.String("item_id", item.ID), zap.Error(err))
			continue
		}
		routed, err := ingest.Route(ev)
		if err != nil {
			if errors.Is(err, ingest.ErrUnroutable) {
				logger.Debug("non-command content skipped", zap.String("external_id", ev.ExternalID))
			} else {
				logger.Warn("routing failed", zap.String("external_id", ev.ExternalID), zap.Error(err))
			}
			continue
		}
		if err := p.events.Handle(ctx, routed); err != nil {
			logger.Warn("event handling failed",
				zap.String("external_id", ev.ExternalID),
				zap.Error(err))
		}
	}
}

func asyncJob(res *source.Result) *model.AsyncJobState {
	if res == nil || res.NextState == nil {
		return nil
	}
	return res.NextState.CurrentAsyncJob
}

// sleep 可被 Stop/ctx 打断；返回 false 表示应放弃本轮
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (p *Poller) acquire(feedID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[feedID] {
		return false
	}
	p.inFlight[feedID] = true
	return true
}

func (p *Poller) release(feedID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, feedID)
}
