package model

import "time"

type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusUploading BackupStatus = "uploading"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup is one encrypted snapshot of the local store. ObjectKey names the
// object in the bucket; Entries counts the local rows it holds.
type Backup struct {
	ID          int64        `json:"id"`
	ObjectKey   string       `json:"key"`
	SizeBytes   int64        `json:"size_bytes"`
	Entries     int          `json:"entries"`
	Status      BackupStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
