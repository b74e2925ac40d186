package model

import "time"

// 异步入库任务状态
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobDone       = "done"
	JobFailed     = "failed"
)

// IngestJob 记录一次异步入库任务的进度，保存在 Redis 中。
type IngestJob struct {
	TaskID        string    `json:"taskId"`
	FileName      string    `json:"fileName"`
	Status        string    `json:"status"`
	DocumentCount int       `json:"documentCount"`
	Error         string    `json:"error,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
