// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestTask represents an uploaded PDF waiting to be extracted and indexed.
type IngestTask struct {
	TaskID     string `json:"task_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
}
