package dtos

import (
	"time"

	"github.com/google/uuid"
)

// Job tracks a long-running engine operation (full quantity rebuild,
// commission repair, bulk import) so callers can poll for progress.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`   // pending, processing, completed, failed
	Progress    int        `json:"progress"` // 0-100 percentage
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Created     int        `json:"created"`
	Updated     int        `json:"updated"`
	Failed      int        `json:"failed"`
	Errors      []JobError `json:"errors"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// JobError is one failed row in a batch job.
type JobError struct {
	Row     int    `json:"row"`
	Item    string `json:"item"`
	Message string `json:"message"`
}

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobKindRebuild          = "rebuild_quantities"
	JobKindCommissionRepair = "commission_repair"
	JobKindImport           = "bulk_import"
)
