package service

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrIngestInProgress indicates another ingestion job is still running.
// Ingestions must be serialized; the caller retries after it finishes.
var ErrIngestInProgress = errors.New("an ingestion is already in progress")

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents a background ingestion job.
type Job struct {
	ID          string
	Type        string // "ingest"
	Status      JobStatus
	Progress    int
	Total       int
	Result      *IngestReport
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// JobView is an immutable copy of a job's state, safe to serialize.
type JobView struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Status      JobStatus     `json:"status"`
	Progress    int           `json:"progress"`
	Total       int           `json:"total"`
	Result      *IngestReport `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// SetRunning marks the job running with the given total. Nil-safe so the
// pipeline can run without job tracking.
func (j *Job) SetRunning(total int) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = JobStatusRunning
	j.Total = total
}

// SetProgress updates the number of processed items.
func (j *Job) SetProgress(done int) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = done
}

// Complete marks the job finished with its report.
func (j *Job) Complete(report *IngestReport) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Result = report
	j.Progress = j.Total
	j.CompletedAt = &now
}

// Fail marks the job failed with the error message.
func (j *Job) Fail(err error) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = err.Error()
	j.CompletedAt = &now
}

// View returns a consistent copy of the job's state.
func (j *Job) View() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobView{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		Progress:    j.Progress,
		Total:       j.Total,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

func (j *Job) terminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobManager tracks background jobs and enforces single-ingestion.
type JobManager struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewJobManager creates a new job manager.
func NewJobManager(logger *slog.Logger) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		jobs:   make(map[string]*Job),
		logger: logger,
	}
}

// CreateIngestJob creates a pending ingestion job. Returns
// ErrIngestInProgress if another ingestion has not finished yet.
func (m *JobManager) CreateIngestJob() (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Type == "ingest" && !job.terminal() {
			return nil, ErrIngestInProgress
		}
	}

	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Type:      "ingest",
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	m.jobs[job.ID] = job

	m.logger.Info("job created", "job_id", job.ID, "type", job.Type)
	return job, nil
}

// GetJob retrieves a job by ID, or nil if unknown.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs, most recent first.
func (m *JobManager) ListJobs() []JobView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := make([]JobView, 0, len(m.jobs))
	for _, job := range m.jobs {
		views = append(views, job.View())
	}
	slices.SortFunc(views, func(a, b JobView) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return views
}
