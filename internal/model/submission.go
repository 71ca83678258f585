package model

import "time"

// SubmissionStatus 投稿在某个 feed 下的审核状态
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Submission 外部内容投稿（按 external_id 全局唯一，一条外部内容只建一行）
type Submission struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	ExternalID       string `gorm:"type:varchar(64);uniqueIndex:ux_submission_external;not null"`
	AuthorID         string `gorm:"type:varchar(64);index:idx_submission_author"`
	AuthorUsername   string `gorm:"type:varchar(64)"`
	Content          string `gorm:"type:text"`
	CuratorID        string `gorm:"type:varchar(64);index:idx_submission_curator"`
	CuratorUsername  string `gorm:"type:varchar(64)"`
	CuratorNotes     string `gorm:"type:text"`
	CuratorTriggerID string `gorm:"type:varchar(64)"`
	SubmittedAt      time.Time
	CreatedAt        time.Time `gorm:"<-:create"`
	UpdatedAt        time.Time
}

func (Submission) TableName() string { return "submissions" }

// SubmissionFeed 投稿与 feed 的关联，审核的最小单位
// 复合唯一键，避免重复关联
// ux_subfeed_pair = (submission_id, feed_id)
type SubmissionFeed struct {
	ID                   string           `gorm:"primaryKey;type:varchar(36)"`
	SubmissionID         string           `gorm:"type:varchar(36);index:idx_subfeed_submission;uniqueIndex:ux_subfeed_pair;not null"`
	FeedID               string           `gorm:"type:varchar(64);index:idx_subfeed_feed;uniqueIndex:ux_subfeed_pair;not null"`
	Status               SubmissionStatus `gorm:"type:varchar(16);index;not null;default:'pending'"`
	ModerationResponseID *string          `gorm:"type:varchar(64)"`
	CreatedAt            time.Time        `gorm:"<-:create"`
	UpdatedAt            time.Time
}

func (SubmissionFeed) TableName() string { return "submission_feeds" }

// Decided 是否已进入终态（approved/rejected 不可再变更）
func (sf *SubmissionFeed) Decided() bool {
	return sf.Status != StatusPending
}
