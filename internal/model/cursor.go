package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// AsyncJobStatus 平台侧异步任务状态
type AsyncJobStatus string

const (
	JobSubmitted  AsyncJobStatus = "submitted"
	JobPending    AsyncJobStatus = "pending"
	JobProcessing AsyncJobStatus = "processing"
	JobDone       AsyncJobStatus = "done"
	JobError      AsyncJobStatus = "error"
	JobTimeout    AsyncJobStatus = "timeout"
)

// InFlight 任务尚未结束，需要原样重询
func (s AsyncJobStatus) InFlight() bool {
	return s == JobSubmitted || s == JobPending || s == JobProcessing
}

// AsyncJobState 异步任务句柄，挂在游标数据里
type AsyncJobState struct {
	ID     string         `json:"id"`
	Status AsyncJobStatus `json:"status"`
}

// CursorData 游标内容：平台自定义负载 + 可选异步任务子结构
type CursorData struct {
	LatestProcessedID string            `json:"latestProcessedId,omitempty"`
	Payload           map[string]string `json:"payload,omitempty"`
	CurrentAsyncJob   *AsyncJobState    `json:"currentAsyncJob,omitempty"`
}

// LastProcessedState 可恢复拉取位置，(feed_id, plugin, search_id) 唯一
// ux_cursor_key = (feed_id, plugin, search_id)
type LastProcessedState struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	FeedID    string         `gorm:"type:varchar(64);uniqueIndex:ux_cursor_key;not null"`
	Plugin    string         `gorm:"type:varchar(64);uniqueIndex:ux_cursor_key;not null"`
	SearchID  string         `gorm:"type:varchar(64);uniqueIndex:ux_cursor_key;not null"`
	Data      datatypes.JSON `gorm:"column:data"`
	CreatedAt time.Time      `gorm:"<-:create"`
	UpdatedAt time.Time
}

func (LastProcessedState) TableName() string { return "last_processed_state" }

// Cursor 解码游标内容；空记录返回 nil
func (s *LastProcessedState) Cursor() (*CursorData, error) {
	if s == nil || len(s.Data) == 0 {
		return nil, nil
	}
	var out CursorData
	if err := json.Unmarshal(s.Data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
