package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// StageConfig 管道阶段配置（transform 或 distribute 共用），plugin 为注册名
type StageConfig struct {
	Plugin string         `json:"plugin"`
	Config map[string]any `json:"config,omitempty"`
}

// DistributorConfig 单个分发目标，可带自己的 transform 链
type DistributorConfig struct {
	Plugin    string         `json:"plugin"`
	Config    map[string]any `json:"config,omitempty"`
	Transform []StageConfig  `json:"transform,omitempty"`
}

// OutputConfig 单个输出管道：全局 transform 按序执行后扇出到各 distributor
type OutputConfig struct {
	Enabled        bool                `json:"enabled"`
	Transform      []StageConfig       `json:"transform,omitempty"`
	BatchTransform []StageConfig       `json:"batchTransform,omitempty"`
	Distribute     []DistributorConfig `json:"distribute,omitempty"`
	Schedule       string              `json:"schedule,omitempty"`
}

// SearchConfig 源插件下的一条检索配置
type SearchConfig struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Query    string `json:"query"`
	PageSize int    `json:"pageSize,omitempty"`
}

// SourceConfig 按插件声明的内容源
type SourceConfig struct {
	Plugin   string         `json:"plugin"`
	Searches []SearchConfig `json:"search"`
}

// Feed 策展频道配置，外部经 admin API 维护；id 即 slug，被 submission_feeds 引用
type Feed struct {
	ID                string         `gorm:"primaryKey;type:varchar(64)"`
	Name              string         `gorm:"type:varchar(255);not null"`
	Description       string         `gorm:"type:text"`
	Enabled           bool           `gorm:"index;not null;default:true"`
	Approvers         datatypes.JSON `gorm:"column:approvers"`
	StreamOutput      datatypes.JSON `gorm:"column:stream_output"`
	RecapOutputs      datatypes.JSON `gorm:"column:recap_outputs"`
	Sources           datatypes.JSON `gorm:"column:sources"`
	PollingIntervalMs int            `gorm:"not null;default:60000"`
	CreatedAt         time.Time      `gorm:"<-:create"`
	UpdatedAt         time.Time
}

func (Feed) TableName() string { return "feeds" }

// ApproverList 解码审核人列表，坏数据按空处理
func (f *Feed) ApproverList() []string {
	var out []string
	if len(f.Approvers) == 0 {
		return out
	}
	_ = json.Unmarshal(f.Approvers, &out)
	return out
}

// HasApprover 审核权限判定（大小写不敏感，实时读配置）
func (f *Feed) HasApprover(handle string) bool {
	for _, a := range f.ApproverList() {
		if strings.EqualFold(a, handle) {
			return true
		}
	}
	return false
}

// Stream 解码 stream 输出配置；未配置返回 nil
func (f *Feed) Stream() (*OutputConfig, error) {
	if len(f.StreamOutput) == 0 {
		return nil, nil
	}
	var out OutputConfig
	if err := json.Unmarshal(f.StreamOutput, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recaps 解码定时批量输出配置
func (f *Feed) Recaps() ([]OutputConfig, error) {
	if len(f.RecapOutputs) == 0 {
		return nil, nil
	}
	var out []OutputConfig
	if err := json.Unmarshal(f.RecapOutputs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SourceList 解码内容源配置
func (f *Feed) SourceList() ([]SourceConfig, error) {
	if len(f.Sources) == 0 {
		return nil, nil
	}
	var out []SourceConfig
	if err := json.Unmarshal(f.Sources, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PollingInterval 轮询间隔，低于 1s 的配置按默认 60s 处理
func (f *Feed) PollingInterval() time.Duration {
	if f.PollingIntervalMs < 1000 {
		return time.Minute
	}
	return time.Duration(f.PollingIntervalMs) * time.Millisecond
}
