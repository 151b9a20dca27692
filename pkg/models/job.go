// Package models contains shared data models used across the facequeue codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the client-visible state of a job. It is derived from the
// presence of the result object and never stored.
type JobStatus string

const (
	JobStatusDone    JobStatus = "done"
	JobStatusPending JobStatus = "pending"
)

// Submission is the audit record written once a job has been enqueued.
// It is not consulted to decide whether a job has completed.
type Submission struct {
	JobID       uuid.UUID  `db:"job_id"       json:"job_id"`
	Filename    string     `db:"filename"     json:"filename"`
	ObjectKey   string     `db:"object_key"   json:"object_key"`
	SizeBytes   int64      `db:"size_bytes"   json:"size_bytes"`
	ContentType string     `db:"content_type" json:"content_type"`
	APIKeyID    *uuid.UUID `db:"api_key_id"   json:"api_key_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}
