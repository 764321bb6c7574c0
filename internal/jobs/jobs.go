package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a processing job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrNotFound is returned when a job id is unknown to the registry.
var ErrNotFound = errors.New("jobs: job not found")

// Job is a snapshot of one processing job. FloorplanID is set on
// completion and names the stored tile set.
type Job struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	FloorplanID string    `json:"floorplan_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Registry tracks jobs in memory. All methods are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a new queued job and returns its id.
func (r *Registry) Create() string {
	id := uuid.NewString()
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &Job{
		ID:        id,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Get returns a copy of the job with the given id.
func (r *Registry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *j, nil
}

// SetProgress marks the job processing and advances its progress.
// Progress never moves backwards; stale updates are dropped.
func (r *Registry) SetProgress(id string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status == StatusCompleted || j.Status == StatusFailed {
		return
	}
	j.Status = StatusProcessing
	if progress > j.Progress {
		j.Progress = progress
	}
	j.UpdatedAt = time.Now().UTC()
}

// Complete marks the job completed with the stored floor plan id.
func (r *Registry) Complete(id, floorplanID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.Status = StatusCompleted
	j.Progress = 100
	j.FloorplanID = floorplanID
	j.UpdatedAt = time.Now().UTC()
}

// Fail marks the job failed with a human-readable reason.
func (r *Registry) Fail(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.Status = StatusFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now().UTC()
}
