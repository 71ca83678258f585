package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/curatehub/curatehub/internal/ingest"
	"github.com/curatehub/curatehub/pkg/logger"
)

// EventHandler 消费路由后的事件，派发到各服务
type EventHandler struct {
	subs *SubmissionService
	mods *ModerationService
}

func NewEventHandler(subs *SubmissionService, mods *ModerationService) *EventHandler {
	return &EventHandler{subs: subs, mods: mods}
}

// Handle 封闭事件集合的穷举分发
func (h *EventHandler) Handle(ctx context.Context, ev ingest.Event) error {
	switch e := ev.(type) {
	case ingest.CuratedContentEvent:
		return h.subs.HandleCuratedContent(ctx, e)

	case ingest.ItemModerationEvent:
		return h.mods.DecideByExternalID(ctx, e.TargetExternalID, e.TargetFeedID, e.AuthorUsername, e.Action, e.Notes, e.TriggerID)

	case ingest.AdminCommandEvent:
		// 管理指令目前只落日志确认
		logger.Info("admin command received",
			zap.String("command", e.Command),
			zap.Strings("args", e.Args),
			zap.String("from", e.AuthorUsername))
		return nil

	default:
		// 事件集合是封闭的，走到这里说明新增了变体但漏了分支
		logger.Error("unhandled event variant", zap.String("type", fmt.Sprintf("%T", ev)))
		return nil
	}
}
