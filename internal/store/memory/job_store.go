// Package memory provides an in-memory job store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

// JobStore keeps jobs and links in process memory.
type JobStore struct {
	mu     sync.RWMutex
	nextID int64
	jobs   []crawler.Job
	byJob  map[string]int
	links  []crawler.WorkflowObjectLink
}

// NewJobStore constructs an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{byJob: make(map[string]int)}
}

// Create stores a new pending job.
func (s *JobStore) Create(_ context.Context, jobID, spider, workflow string) (crawler.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byJob[jobID]; exists {
		return crawler.Job{}, &crawler.DuplicateJobError{JobID: jobID}
	}
	s.nextID++
	job := crawler.Job{
		ID:        s.nextID,
		JobID:     jobID,
		Spider:    spider,
		Workflow:  workflow,
		Status:    crawler.JobStatusPending,
		Scheduled: time.Now().UTC(),
	}
	s.byJob[jobID] = len(s.jobs)
	s.jobs = append(s.jobs, job)
	return job, nil
}

// GetByJobID fetches a job by external job id.
func (s *JobStore) GetByJobID(_ context.Context, jobID string) (crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byJob[jobID]
	if !ok {
		return crawler.Job{}, &crawler.JobNotFoundError{JobID: jobID}
	}
	return s.jobs[idx], nil
}

// Save overwrites the mutable fields of a stored job.
func (s *JobStore) Save(_ context.Context, job crawler.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byJob[job.JobID]
	if !ok {
		return &crawler.JobNotFoundError{JobID: job.JobID}
	}
	stored := s.jobs[idx]
	stored.Status = job.Status
	stored.Logs = job.Logs
	stored.Results = job.Results
	s.jobs[idx] = stored
	return nil
}

// List returns jobs newest first, limited to tail when tail > 0.
func (s *JobStore) List(_ context.Context, tail int) ([]crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.Job, 0, len(s.jobs))
	for i := len(s.jobs) - 1; i >= 0; i-- {
		if tail > 0 && len(out) == tail {
			break
		}
		out = append(out, s.jobs[i])
	}
	return out, nil
}

// CreateLink appends a job/workflow-object link.
func (s *JobStore) CreateLink(_ context.Context, link crawler.WorkflowObjectLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, link)
	return nil
}

// ListLinks returns links newest first, limited to tail when tail > 0.
func (s *JobStore) ListLinks(_ context.Context, tail int) ([]crawler.WorkflowObjectLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.WorkflowObjectLink, 0, len(s.links))
	for i := len(s.links) - 1; i >= 0; i-- {
		if tail > 0 && len(out) == tail {
			break
		}
		out = append(out, s.links[i])
	}
	return out, nil
}

// GetJobByObjectID resolves the job that a workflow object was spawned from.
func (s *JobStore) GetJobByObjectID(_ context.Context, objectID int64) (crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.ObjectID == objectID {
			if idx, ok := s.byJob[link.JobID]; ok {
				return s.jobs[idx], nil
			}
		}
	}
	return crawler.Job{}, &crawler.WorkflowObjectNotFoundError{ObjectID: objectID}
}
