package ingest

import (
	"errors"
	"strings"

	"github.com/curatehub/curatehub/internal/model"
)

// ErrUnroutable 非指令内容，常见且无害，调用方按跳过处理
var ErrUnroutable = errors.New("unhandled event content")

// Event 路由产出的封闭事件集合
type Event interface {
	isEvent()
	Raw() RawEvent
}

// CuratedContentEvent 策展指令：把目标内容投进某个 feed
type CuratedContentEvent struct {
	RawEvent
	TargetFeedID string
	CuratorNotes string
}

// ItemModerationEvent 审核指令：对指定投稿做 approve/reject
type ItemModerationEvent struct {
	RawEvent
	Action           model.ModerationVerb
	TargetExternalID string
	TargetFeedID     string
	Notes            string
}

// AdminCommandEvent 管理指令
type AdminCommandEvent struct {
	RawEvent
	Command string
	Args    []string
}

func (CuratedContentEvent) isEvent() {}
func (ItemModerationEvent) isEvent() {}
func (AdminCommandEvent) isEvent()   {}

func (e CuratedContentEvent) Raw() RawEvent { return e.RawEvent }
func (e ItemModerationEvent) Raw() RawEvent { return e.RawEvent }
func (e AdminCommandEvent) Raw() RawEvent   { return e.RawEvent }

// Route 按指令前缀分类事件
// 规则：
//   - !curate/!submit + #feed        => CuratedContentEvent
//   - !approve/!reject + 目标id + #feed => ItemModerationEvent
//   - !admin <cmd> [args...]         => AdminCommandEvent
//   - 其它一律 ErrUnroutable
//
// 多个 #tag 取第一个作为 feed，其后全部文本作为备注；
// 投稿指令缺 #feed 直接路由失败，不猜默认 feed。
func Route(ev RawEvent) (Event, error) {
	fields := strings.Fields(ev.Content)
	if len(fields) == 0 {
		return nil, ErrUnroutable
	}

	cmdIdx := -1
	var cmd string
	for i, f := range fields {
		lower := strings.ToLower(f)
		switch lower {
		case "!curate", "!submit", "!approve", "!reject", "!admin":
			cmdIdx = i
			cmd = lower
		}
		if cmdIdx >= 0 {
			break
		}
	}
	if cmdIdx < 0 {
		return nil, ErrUnroutable
	}
	rest := fields[cmdIdx+1:]

	switch cmd {
	case "!curate", "!submit":
		feedID, notes := splitFeedTag(rest)
		if feedID == "" {
			return nil, errors.Join(ErrUnroutable, errors.New("submission missing feed tag"))
		}
		return CuratedContentEvent{RawEvent: ev, TargetFeedID: feedID, CuratorNotes: notes}, nil

	case "!approve", "!reject":
		action := model.VerbApprove
		if cmd == "!reject" {
			action = model.VerbReject
		}
		targetID := ""
		for _, f := range rest {
			if !strings.HasPrefix(f, "#") {
				targetID = f
				break
			}
		}
		feedID, notes := splitFeedTag(rest)
		if targetID == "" || feedID == "" {
			return nil, errors.Join(ErrUnroutable, errors.New("moderation command missing target or feed tag"))
		}
		return ItemModerationEvent{
			RawEvent:         ev,
			Action:           action,
			TargetExternalID: targetID,
			TargetFeedID:     feedID,
			Notes:            notes,
		}, nil

	case "!admin":
		if len(rest) == 0 {
			return nil, errors.Join(ErrUnroutable, errors.New("admin command missing subcommand"))
		}
		return AdminCommandEvent{RawEvent: ev, Command: strings.ToLower(rest[0]), Args: rest[1:]}, nil
	}
	return nil, ErrUnroutable
}

// splitFeedTag 取第一个 #tag 作为 feed id，其后的 token 拼成备注
func splitFeedTag(fields []string) (feedID, notes string) {
	for i, f := range fields {
		if strings.HasPrefix(f, "#") && len(f) > 1 {
			return strings.ToLower(strings.TrimPrefix(f, "#")), strings.Join(fields[i+1:], " ")
		}
	}
	return "", ""
}
