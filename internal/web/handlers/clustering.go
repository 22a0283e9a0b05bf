package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-graph/internal/clustering"
	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/logger"
)

// ClusteringHandler runs incremental clustering as background jobs.
type ClusteringHandler struct {
	config     *config.Config
	table      *database.EmbeddingTable
	jobManager *JobManager
	log        *logger.Logger
}

// NewClusteringHandler creates a new clustering handler
func NewClusteringHandler(cfg *config.Config, table *database.EmbeddingTable, jm *JobManager, log *logger.Logger) *ClusteringHandler {
	return &ClusteringHandler{
		config:     cfg,
		table:      table,
		jobManager: jm,
		log:        log,
	}
}

// ClusteringRequest overrides the configured tunables. Zero values keep
// the configuration.
type ClusteringRequest struct {
	K                 int     `json:"k"`
	DistanceThreshold float64 `json:"distance_threshold"`
	SizeThreshold     int     `json:"size_threshold"`
	NeighborIndex     string  `json:"neighbor_index"`
}

func (h *ClusteringHandler) options(req ClusteringRequest) (ClusteringJobOptions, error) {
	opts := ClusteringJobOptions{
		Options: clustering.Options{
			K:                 h.config.Clustering.K,
			DistanceThreshold: h.config.Clustering.DistanceThreshold,
			SizeThreshold:     h.config.Clustering.SizeThreshold,
		},
		NeighborIndex: h.config.Clustering.NeighborIndex,
	}
	if req.K > 0 {
		opts.K = req.K
	}
	if req.DistanceThreshold > 0 {
		opts.DistanceThreshold = req.DistanceThreshold
	}
	if req.SizeThreshold > 0 {
		opts.SizeThreshold = req.SizeThreshold
	}
	if req.NeighborIndex != "" {
		opts.NeighborIndex = req.NeighborIndex
	}
	switch opts.NeighborIndex {
	case config.NeighborIndexExact, config.NeighborIndexHNSW:
	default:
		return opts, fmt.Errorf("unknown neighbor_index %q", opts.NeighborIndex)
	}
	return opts, nil
}

// Start starts a new clustering job
func (h *ClusteringHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req ClusteringRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}
	opts, err := h.options(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.jobManager.Running() {
		respondError(w, http.StatusConflict, "a clustering job is already running")
		return
	}

	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID, opts)

	go h.runClusteringJob(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}

// Status returns the status of a clustering job
func (h *ClusteringHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job.snapshot())
}

// Events streams job events via SSE
func (h *ClusteringHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*ClusteringJob).snapshot()
		},
	)
}

// Cancel cancels a clustering job
func (h *ClusteringHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (h *ClusteringHandler) lookup(w http.ResponseWriter, r *http.Request) *ClusteringJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

func (h *ClusteringHandler) neighborSource(kind string) (clustering.NeighborSource, error) {
	if kind != config.NeighborIndexHNSW {
		return h.table, nil
	}
	if h.config.Database.HNSWIndexPath != "" {
		return database.LoadOrBuildHNSWIndex(h.config.Database.HNSWIndexPath, h.table)
	}
	return database.BuildHNSWIndex(h.table), nil
}

// runClusteringJob runs the clustering job in the background
func (h *ClusteringHandler) runClusteringJob(job *ClusteringJob) {
	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	defer cancel()

	log := h.log.With("job", job.ID)
	total := h.table.Len()

	job.mu.Lock()
	if job.Status == JobStatusCancelled {
		job.mu.Unlock()
		return
	}
	job.Status = JobStatusRunning
	job.TotalFaces = total
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Clustering job started", Data: map[string]int{"total": total}})

	source, err := h.neighborSource(job.Options.NeighborIndex)
	if err != nil {
		h.failJob(job, log, fmt.Sprintf("preparing neighbor index: %v", err))
		return
	}

	engine := clustering.NewEngine(h.table, source, job.Options.Options)
	engine.OnProgress = func(done, total int) {
		if done%constants.ProgressEventInterval != 0 && done != total {
			return
		}
		job.mu.Lock()
		job.ProcessedFaces = done
		job.Progress = done * 100 / total
		job.mu.Unlock()
		job.SendEvent(JobEvent{
			Type: "progress",
			Data: map[string]int{"processed_faces": done, "total_faces": total},
		})
	}

	if err := engine.Run(ctx); err != nil {
		if ctx.Err() != nil {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
			return
		}
		h.failJob(job, log, fmt.Sprintf("clustering failed: %v", err))
		return
	}

	result := engine.Result()
	path := h.config.ClusteringPath()
	if err := result.WriteFile(path); err != nil {
		h.failJob(job, log, fmt.Sprintf("writing result: %v", err))
		return
	}

	clusters, largest, singletons := result.Summary()
	summary := &ClusteringJobSummary{
		Clusters:        clusters,
		LargestCluster:  largest,
		Singletons:      singletons,
		SuspiciousPairs: len(result.SuspiciousPairs),
		OutputPath:      path,
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.ProcessedFaces = total
	job.Progress = 100
	job.Result = summary
	job.mu.Unlock()

	log.WithField("clusters", clusters).WithField("suspicious_pairs", summary.SuspiciousPairs).Info("clustering finished")
	job.SendEvent(JobEvent{Type: "completed", Data: summary})
}

func (h *ClusteringHandler) failJob(job *ClusteringJob, log *logger.Logger, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	log.Error(message)
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}
