package ingest

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/curatehub/curatehub/internal/source"
	"github.com/curatehub/curatehub/pkg/logger"
)

// ErrMalformedItem 源条目缺少稳定标识，仅该条目失败，不影响同批其它条目
var ErrMalformedItem = errors.New("malformed source item")

// RawEvent 规范化后的源事件
type RawEvent struct {
	ExternalID     string
	Plugin         string
	AuthorID       string
	AuthorUsername string
	Content        string
	Timestamp      time.Time
	// TriggerID 触发本事件的平台条目 id（审核回执、策展触发都引用它）
	TriggerID string
	// Target* 指令指向的内容（回复/引用的原帖），源插件经 metadata 透传；可能为空
	TargetID             string
	TargetAuthorID       string
	TargetAuthorUsername string
	TargetContent        string
}

// ProcessSourceItem 把原始源条目转成 RawEvent
// 内容形态异常降级为空串并告警；缺标识才算硬错误
func ProcessSourceItem(item source.Item) (RawEvent, error) {
	if item.ExternalID == "" {
		return RawEvent{}, errors.Join(ErrMalformedItem, errors.New("missing external id"))
	}
	if item.Metadata.SourcePlugin == "" {
		return RawEvent{}, errors.Join(ErrMalformedItem, errors.New("missing source plugin"))
	}

	content := extractContent(item)
	ts := item.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	extra := item.Metadata.Extra
	return RawEvent{
		ExternalID:           item.ExternalID,
		Plugin:               item.Metadata.SourcePlugin,
		AuthorID:             item.Author.ID,
		AuthorUsername:       item.Author.Username,
		Content:              content,
		Timestamp:            ts,
		TriggerID:            item.ID,
		TargetID:             extra["targetId"],
		TargetAuthorID:       extra["targetAuthorId"],
		TargetAuthorUsername: extra["targetAuthorUsername"],
		TargetContent:        extra["targetContent"],
	}, nil
}

func extractContent(item source.Item) string {
	switch v := item.Content.(type) {
	case string:
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
	}
	logger.Warn("unrecognized content shape, degrading to empty",
		zap.String("external_id", item.ExternalID),
		zap.String("plugin", item.Metadata.SourcePlugin))
	return ""
}
