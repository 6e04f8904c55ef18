package utils

import (
	"sync"
	"time"

	"tirestock-backend/dtos"

	"github.com/google/uuid"
)

// JobStore tracks long-running engine jobs in memory
type JobStore struct {
	jobs map[uuid.UUID]*dtos.Job
	mu   sync.RWMutex
}

// Global job store instance
var Store = &JobStore{
	jobs: make(map[uuid.UUID]*dtos.Job),
}

// CleanupOldJobs removes completed/failed jobs older than 1 hour.
func (js *JobStore) CleanupOldJobs() {
	js.mu.Lock()
	defer js.mu.Unlock()

	cutoff := time.Now().Add(-1 * time.Hour)
	for id, job := range js.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(js.jobs, id)
		} else if job.StartedAt.Before(cutoff) && (job.Status == dtos.JobStatusCompleted || job.Status == dtos.JobStatusFailed) {
			delete(js.jobs, id)
		}
	}
}

// CreateJob creates a new job of the given kind
func (js *JobStore) CreateJob(kind string, total int) *dtos.Job {
	// Clean up old jobs on each new creation
	js.CleanupOldJobs()

	js.mu.Lock()
	defer js.mu.Unlock()

	job := &dtos.Job{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    dtos.JobStatusPending,
		Total:     total,
		Errors:    []dtos.JobError{},
		StartedAt: time.Now(),
	}

	js.jobs[job.ID] = job
	return job
}

// GetJob retrieves a job by ID
func (js *JobStore) GetJob(id uuid.UUID) (*dtos.Job, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()

	job, exists := js.jobs[id]
	return job, exists
}

// UpdateJob applies updates to a job under the lock
func (js *JobStore) UpdateJob(id uuid.UUID, updates func(*dtos.Job)) {
	js.mu.Lock()
	defer js.mu.Unlock()

	if job, exists := js.jobs[id]; exists {
		updates(job)
	}
}

// SetProcessing marks a job as processing
func (js *JobStore) SetProcessing(id uuid.UUID) {
	js.UpdateJob(id, func(j *dtos.Job) {
		j.Status = dtos.JobStatusProcessing
	})
}

// AddProcessed bumps the processed counter and recomputes progress
func (js *JobStore) AddProcessed(id uuid.UUID) {
	js.UpdateJob(id, func(j *dtos.Job) {
		j.Processed++
		if j.Total > 0 {
			j.Progress = j.Processed * 100 / j.Total
		}
	})
}

// AddError records one failed row
func (js *JobStore) AddError(id uuid.UUID, row int, item, message string) {
	js.UpdateJob(id, func(j *dtos.Job) {
		j.Failed++
		j.Errors = append(j.Errors, dtos.JobError{Row: row, Item: item, Message: message})
	})
}

// CompleteJob marks a job as completed or failed
func (js *JobStore) CompleteJob(id uuid.UUID, status string) {
	js.UpdateJob(id, func(j *dtos.Job) {
		j.Status = status
		j.Progress = 100
		now := time.Now()
		j.CompletedAt = &now
	})
}
