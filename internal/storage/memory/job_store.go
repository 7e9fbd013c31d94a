// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// JobStore is an in-memory discovery.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]discovery.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]discovery.Job)}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job discovery.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (discovery.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return discovery.Job{}, discovery.ErrJobNotFound
	}
	return job, nil
}

// UpdateJobRun applies one run transition under the same runnability guard
// the Postgres store enforces with its conditional UPDATE.
func (s *JobStore) UpdateJobRun(_ context.Context, jobID string, next discovery.State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return false, discovery.ErrJobNotFound
	}
	if job.Status != discovery.StatusPending || job.Attempts >= job.MaxAttempts || job.Attempts != next.Attempts-1 {
		return false, nil
	}
	job.Status = next.Status
	job.Attempts = next.Attempts
	job.LastError = next.LastError
	job.Updated = time.Now().UTC()
	s.jobs[jobID] = job
	return true, nil
}

// ListJobs returns an owner's jobs, optionally filtered by status.
func (s *JobStore) ListJobs(_ context.Context, ownerID string, status *discovery.JobStatus) ([]discovery.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []discovery.Job
	for _, job := range s.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
