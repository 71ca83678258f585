package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/pkg/logger"
)

var (
	// ErrNotApprover 操作者不在目标 feed 的审核人名单里
	ErrNotApprover = errors.New("actor is not an approver for this feed")
	// ErrInvalidAction 非 approve/reject
	ErrInvalidAction = errors.New("invalid moderation action")
)

// ModerationService 审核决策：权限校验、终态迁移、流水与下游触发
type ModerationService struct {
	subs      repository.SubmissionRepository
	feeds     repository.FeedRepository
	processor *Processor
}

func NewModerationService(
	subs repository.SubmissionRepository,
	feeds repository.FeedRepository,
	processor *Processor,
) *ModerationService {
	return &ModerationService{subs: subs, feeds: feeds, processor: processor}
}

// Decide 对 (submission, feed) 落一次审核决策
// 权限按 feed 配置实时判定；非 pending 的重复决策按重放忽略（告警不报错）
// 状态迁移与流水同事务提交；approve 的下游分发在事务外，失败不回滚通过状态
func (s *ModerationService) Decide(ctx context.Context, submissionID, feedID, actorID string, verb model.ModerationVerb, note, responseID string) error {
	if !verb.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, verb)
	}

	feed, err := s.feeds.Get(ctx, feedID)
	if err != nil {
		return fmt.Errorf("feed %q: %w", feedID, err)
	}
	if !feed.HasApprover(actorID) {
		return fmt.Errorf("%s on feed %s: %w", actorID, feedID, ErrNotApprover)
	}

	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("submission %q: %w", submissionID, err)
	}
	sf, err := s.subs.GetFeedStatus(ctx, submissionID, feedID)
	if err != nil {
		return fmt.Errorf("submission %q feed %q: %w", submissionID, feedID, err)
	}
	if sf.Decided() {
		logger.Warn("moderation replay ignored: pair already decided",
			zap.String("submission_id", submissionID),
			zap.String("feed_id", feedID),
			zap.String("status", string(sf.Status)))
		return nil
	}

	applied, err := s.subs.RecordModeration(ctx, submissionID, feedID, verb, actorID, note, responseID)
	if err != nil {
		return err
	}
	if !applied {
		// 读检查后被并发决策抢先，同样按重放处理
		logger.Warn("moderation raced with another decision, ignored",
			zap.String("submission_id", submissionID),
			zap.String("feed_id", feedID))
		return nil
	}

	logger.Info("submission moderated",
		zap.String("submission_id", submissionID),
		zap.String("feed_id", feedID),
		zap.String("action", string(verb)),
		zap.String("admin", actorID))

	if verb == model.VerbApprove {
		s.processor.DispatchStream(ctx, sub, feed)
	}
	return nil
}

// DecideByExternalID 平台指令按外部内容 id 定位投稿后决策
func (s *ModerationService) DecideByExternalID(ctx context.Context, externalID, feedID, actorID string, verb model.ModerationVerb, note, responseID string) error {
	sub, err := s.subs.GetByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("submission external id %q: %w", externalID, err)
	}
	return s.Decide(ctx, sub.ID, feedID, actorID, verb, note, responseID)
}
