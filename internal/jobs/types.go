// Package jobs defines the asynchronous statement import job and the queue
// abstractions it travels through.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportStatement represents a statement import job.
	JobTypeImportStatement JobType = "import_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ImportStatementJob is a job to import one uploaded statement from GCS.
// A failed import stays failed; the user re-uploads rather than the queue
// retrying a parse that already burned model quota.
type ImportStatementJob struct {
	JobID string `json:"job_id"`

	// StatementID is the statement's row id in BigQuery.
	StatementID string `json:"statement_id"`

	// GCSURI points at the uploaded file.
	GCSURI string `json:"gcs_uri"`

	// BankID selects the bank profile used for extraction.
	BankID string `json:"bank_id"`

	// ContentType is the uploaded file's MIME type.
	ContentType string `json:"content_type,omitempty"`

	// ImportRunID is the bookkeeping row opened for this attempt.
	ImportRunID string `json:"import_run_id,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ImportStatementJob) GetID() string        { return j.JobID }
func (j *ImportStatementJob) GetType() JobType     { return JobTypeImportStatement }
func (j *ImportStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher publishes jobs to a queue. The abstraction leaves room for Cloud
// Tasks or Pub/Sub behind the same surface.
type Publisher interface {
	PublishImportStatement(ctx context.Context, job *ImportStatementJob) error
	Close() error
}

// Consumer consumes jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; the handler runs for each job received.
	Start(ctx context.Context, handler JobHandler) error
	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can answer status polls.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ImportStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportStatementJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	StatementID string
	Status      JobStatus
	Limit       int
	Offset      int
}
