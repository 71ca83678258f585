package model

import "time"

// PipelineContent 在 transform/distribute 管道中流转的内容快照
type PipelineContent struct {
	ExternalID  string    `json:"externalId"`
	FeedID      string    `json:"feedId"`
	Author      string    `json:"author"`
	Curator     string    `json:"curator"`
	Notes       string    `json:"notes,omitempty"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ContentFromSubmission 用投稿生成管道初始内容
func ContentFromSubmission(sub *Submission, feedID string) PipelineContent {
	return PipelineContent{
		ExternalID:  sub.ExternalID,
		FeedID:      feedID,
		Author:      sub.AuthorUsername,
		Curator:     sub.CuratorUsername,
		Notes:       sub.CuratorNotes,
		Text:        sub.Content,
		SubmittedAt: sub.SubmittedAt,
	}
}
