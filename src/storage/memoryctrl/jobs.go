// Package memoryctrl provides process-local job and asset stores for
// degraded or local operation when the external collaborators are not
// configured. State lives for the process lifetime only and must not be
// relied on across instances.
package memoryctrl

import (
	"context"
	"sort"
	"sync"
	"time"

	"alphogen/src/core/job"
)

// JobRepository is an in-process keyed map owned by the composition root
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]job.Job
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[string]job.Job),
	}
}

var _ job.Repository = (*JobRepository)(nil)

func (r *JobRepository) Insert(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now
	r.jobs[j.ID] = *j
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, id string) (*job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (r *JobRepository) GetByIDForUser(_ context.Context, id, userID string) (*job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok || j.UserID != userID {
		// Ownership mismatch is a nil result, not an error; the caller
		// decides the externally visible status.
		return nil, nil
	}
	return &j, nil
}

func (r *JobRepository) GetByProviderJobID(_ context.Context, providerJobID string) (*job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, j := range r.jobs {
		if j.ProviderJobID != nil && *j.ProviderJobID == providerJobID {
			found := j
			return &found, nil
		}
	}
	return nil, nil
}

func (r *JobRepository) List(_ context.Context) ([]job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]job.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	sortNewestFirst(jobs)
	return jobs, nil
}

func (r *JobRepository) ListForUser(_ context.Context, userID string) ([]job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]job.Job, 0)
	for _, j := range r.jobs {
		if j.UserID == userID {
			jobs = append(jobs, j)
		}
	}
	sortNewestFirst(jobs)
	return jobs, nil
}

func (r *JobRepository) Update(_ context.Context, id string, u job.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return job.ErrNotFound
	}

	if u.Status != nil {
		j.Status = *u.Status
	}
	if u.Progress != nil {
		j.Progress = *u.Progress
	}
	if u.ProviderJobID != nil {
		j.ProviderJobID = u.ProviderJobID
	}
	if u.ResultKey != nil {
		j.ResultKey = u.ResultKey
	}
	if u.ErrorMessage != nil {
		j.ErrorMessage = u.ErrorMessage
	}
	j.UpdatedAt = time.Now().UTC()

	r.jobs[id] = j
	return nil
}

func sortNewestFirst(jobs []job.Job) {
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
}
