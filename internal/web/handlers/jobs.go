package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-graph/internal/clustering"
	"github.com/kozaktomas/face-graph/internal/constants"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ClusteringJob is an incremental clustering run over every face.
type ClusteringJob struct {
	EventBroadcaster

	ID             string
	Status         JobStatus
	Progress       int
	TotalFaces     int
	ProcessedFaces int
	Error          string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Options        ClusteringJobOptions
	Result         *ClusteringJobSummary
}

// GetStatus returns the current job status (implements SSEJob).
func (j *ClusteringJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the clustering job.
func (j *ClusteringJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	if j.Status == JobStatusPending || j.Status == JobStatusRunning {
		j.Status = JobStatusCancelled
	}
	j.mu.Unlock()
}

// ClusteringJobView is the encoded state of a job.
type ClusteringJobView struct {
	ID             string                `json:"id"`
	Status         JobStatus             `json:"status"`
	Progress       int                   `json:"progress"`
	TotalFaces     int                   `json:"total_faces"`
	ProcessedFaces int                   `json:"processed_faces"`
	Error          string                `json:"error,omitempty"`
	StartedAt      time.Time             `json:"started_at"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
	Options        ClusteringJobOptions  `json:"options"`
	Result         *ClusteringJobSummary `json:"result,omitempty"`
}

// snapshot returns a copy safe to encode while the job runs.
func (j *ClusteringJob) snapshot() ClusteringJobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return ClusteringJobView{
		ID:             j.ID,
		Status:         j.Status,
		Progress:       j.Progress,
		TotalFaces:     j.TotalFaces,
		ProcessedFaces: j.ProcessedFaces,
		Error:          j.Error,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		Options:        j.Options,
		Result:         j.Result,
	}
}

// ClusteringJobOptions are the tunables of one run.
type ClusteringJobOptions struct {
	clustering.Options
	NeighborIndex string `json:"neighbor_index"`
}

// ClusteringJobSummary describes a finished run.
type ClusteringJobSummary struct {
	Clusters        int    `json:"clusters"`
	LargestCluster  int    `json:"largest_cluster"`
	Singletons      int    `json:"singletons"`
	SuspiciousPairs int    `json:"suspicious_pairs"`
	OutputPath      string `json:"output_path"`
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*ClusteringJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*ClusteringJob),
	}
}

// CreateJob creates a new clustering job.
func (m *JobManager) CreateJob(id string, options ClusteringJobOptions) *ClusteringJob {
	job := &ClusteringJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Options:   options,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *ClusteringJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// Running reports whether any job is pending or running.
func (m *JobManager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, job := range m.jobs {
		if !isJobTerminal(job.GetStatus()) {
			return true
		}
	}
	return false
}
