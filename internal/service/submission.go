package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/curatehub/curatehub/internal/ingest"
	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/pkg/logger"
)

// ErrQuotaExceeded 当日新建投稿超限，仅拒绝本次尝试
var ErrQuotaExceeded = errors.New("daily submission quota exceeded")

// SubmissionService 投稿生命周期：幂等创建、配额、feed 关联与自动通过
type SubmissionService struct {
	subs       repository.SubmissionRepository
	feeds      repository.FeedRepository
	quota      repository.QuotaCounter
	processor  *Processor
	dailyLimit int
}

func NewSubmissionService(
	subs repository.SubmissionRepository,
	feeds repository.FeedRepository,
	quota repository.QuotaCounter,
	processor *Processor,
	dailyLimit int,
) *SubmissionService {
	return &SubmissionService{subs: subs, feeds: feeds, quota: quota, processor: processor, dailyLimit: dailyLimit}
}

// HandleCuratedContent 处理一条策展指令
// 指令带被策展内容（回复/引用）时投稿记目标内容，否则记指令本身
func (s *SubmissionService) HandleCuratedContent(ctx context.Context, ev ingest.CuratedContentEvent) error {
	feed, err := s.feeds.Get(ctx, ev.TargetFeedID)
	if err != nil {
		return fmt.Errorf("feed %q: %w", ev.TargetFeedID, err)
	}

	sub, err := s.getOrCreate(ctx, ev)
	if err != nil {
		return err
	}
	return s.attach(ctx, sub, feed, ev)
}

func (s *SubmissionService) getOrCreate(ctx context.Context, ev ingest.CuratedContentEvent) (*model.Submission, error) {
	externalID := ev.TargetID
	authorID, authorUsername, content := ev.TargetAuthorID, ev.TargetAuthorUsername, ev.TargetContent
	if externalID == "" {
		externalID = ev.ExternalID
		authorID, authorUsername, content = ev.AuthorID, ev.AuthorUsername, ev.Content
	}

	existing, err := s.subs.GetByExternalID(ctx, externalID)
	if err == nil {
		// 已存在：原样返回，不覆盖首位策展人的字段
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 配额只对新建尝试生效
	charged := false
	if s.dailyLimit > 0 && s.quota != nil {
		count, err := s.quota.Incr(ctx, ev.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("quota check: %w", err)
		}
		if count > int64(s.dailyLimit) {
			return nil, fmt.Errorf("curator %s: %w", ev.AuthorUsername, ErrQuotaExceeded)
		}
		charged = true
	}

	sub := &model.Submission{
		ExternalID:       externalID,
		AuthorID:         authorID,
		AuthorUsername:   authorUsername,
		Content:          content,
		CuratorID:        ev.AuthorID,
		CuratorUsername:  ev.AuthorUsername,
		CuratorNotes:     ev.CuratorNotes,
		CuratorTriggerID: ev.TriggerID,
		SubmittedAt:      ev.Timestamp,
	}
	sub, created, err := s.subs.GetOrCreate(ctx, sub)
	if err != nil {
		s.refund(ctx, ev.AuthorID, charged)
		return nil, err
	}
	if created {
		logger.Info("submission created",
			zap.String("external_id", sub.ExternalID),
			zap.String("curator", sub.CuratorUsername))
	} else {
		// 并发重复被唯一键兜住：没有真正新建，退还这次计数
		s.refund(ctx, ev.AuthorID, charged)
	}
	return sub, nil
}

// refund 退还配额，计数只反映成功创建的投稿
func (s *SubmissionService) refund(ctx context.Context, curatorID string, charged bool) {
	if !charged || s.quota == nil {
		return
	}
	if err := s.quota.Decr(ctx, curatorID); err != nil {
		logger.Warn("quota refund failed", zap.String("curator_id", curatorID), zap.Error(err))
	}
}

// attach 建立投稿-feed 关联；策展人本身是该 feed 审核人时直接落 approved（自动通过）
func (s *SubmissionService) attach(ctx context.Context, sub *model.Submission, feed *model.Feed, ev ingest.CuratedContentEvent) error {
	if !feed.HasApprover(ev.AuthorUsername) {
		_, err := s.subs.AttachToFeed(ctx, sub.ID, feed.ID, model.StatusPending, nil)
		return err
	}

	action := &model.ModerationAction{
		AdminID: ev.AuthorUsername,
		Action:  model.VerbApprove,
		Note:    "auto-approved: curator is a feed approver",
	}
	created, err := s.subs.AttachToFeed(ctx, sub.ID, feed.ID, model.StatusApproved, action)
	if err != nil {
		return err
	}
	if created {
		s.processor.DispatchStream(ctx, sub, feed)
	}
	return nil
}

// GetByExternalID 供指令/接口按外部 id 取投稿
func (s *SubmissionService) GetByExternalID(ctx context.Context, externalID string) (*model.Submission, error) {
	return s.subs.GetByExternalID(ctx, externalID)
}
