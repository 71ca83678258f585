package model

import "time"

// ModerationVerb 审核动作
type ModerationVerb string

const (
	VerbApprove ModerationVerb = "approve"
	VerbReject  ModerationVerb = "reject"
)

// Valid 仅接受 approve/reject
func (v ModerationVerb) Valid() bool {
	return v == VerbApprove || v == VerbReject
}

// TargetStatus 动作对应的终态
func (v ModerationVerb) TargetStatus() SubmissionStatus {
	if v == VerbApprove {
		return StatusApproved
	}
	return StatusRejected
}

// ModerationAction 审核流水，只追加不修改（自动通过也记一行，admin 为策展人）
type ModerationAction struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)"`
	SubmissionID string         `gorm:"type:varchar(36);index:idx_modaction_submission;not null"`
	FeedID       string         `gorm:"type:varchar(64);index:idx_modaction_feed;not null"`
	AdminID      string         `gorm:"type:varchar(64);not null"`
	Action       ModerationVerb `gorm:"type:varchar(16);not null"`
	Note         string         `gorm:"type:text"`
	CreatedAt    time.Time      `gorm:"<-:create;index"`
}

func (ModerationAction) TableName() string { return "moderation_history" }
