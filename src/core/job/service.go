package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"alphogen/src/log"
)

// ProviderNoop is the provider name reported when a submission was
// accepted without dispatching to the inference service.
const ProviderNoop = "noop"

// CreateResult describes the outcome of a submission. Dispatched is false
// when the provider was unavailable and the job stayed queued.
type CreateResult struct {
	Job           *Job
	Provider      string
	ProviderJobID string
	Raw           json.RawMessage
	Dispatched    bool
}

// Service orchestrates job submissions and status reads
type Service struct {
	repo     Repository
	provider VideoProvider
}

func NewService(repo Repository, provider VideoProvider) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
	}
}

// Create validates the submission, inserts a queued row, and makes the
// single dispatch call to the provider. A provider that is unconfigured,
// or that rejects its own credentials, demotes the submission to no-op
// mode instead of failing it: the API contract never blocks submission on
// provider availability. A hard provider failure marks the row as errored
// and is surfaced to the caller.
func (s *Service) Create(ctx context.Context, userID, prompt string) (*CreateResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	j := &Job{
		ID:       uuid.New().String(),
		UserID:   userID,
		Prompt:   prompt,
		Status:   StatusQueued,
		Progress: 0,
	}
	if err := s.repo.Insert(ctx, j); err != nil {
		return nil, fmt.Errorf("%w: failed to create job: %v", ErrStore, err)
	}

	run, err := s.provider.Run(ctx, prompt, j.ID)
	if err != nil {
		if errors.Is(err, ErrProviderNotConfigured) {
			return &CreateResult{Job: j, Provider: ProviderNoop}, nil
		}
		if errors.Is(err, ErrProviderUnauthorized) {
			// Demoted to no-op on purpose: a misconfigured provider key
			// must not block user submissions.
			log.Error(err, "provider rejected credentials, submission kept in no-op mode", "job_id", j.ID)
			return &CreateResult{Job: j, Provider: ProviderNoop}, nil
		}

		// Best-effort mark; the dispatch failure is what the caller sees
		// even if this secondary write fails.
		msg := err.Error()
		errStatus := StatusError
		if updateErr := s.repo.Update(ctx, j.ID, Update{Status: &errStatus, ErrorMessage: &msg}); updateErr != nil {
			log.Error(updateErr, "failed to mark job as errored after dispatch failure", "job_id", j.ID)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	running := StatusRunning
	if updateErr := s.repo.Update(ctx, j.ID, Update{Status: &running, ProviderJobID: &run.ProviderJobID}); updateErr != nil {
		// The provider accepted the job; the response reflects that even
		// when the follow-up write fails. The webhook path will converge
		// the row by provider_job_id.
		log.Error(updateErr, "failed to attach provider job id", "job_id", j.ID, "provider_job_id", run.ProviderJobID)
	} else {
		j.Status = StatusRunning
		j.ProviderJobID = &run.ProviderJobID
	}

	return &CreateResult{
		Job:           j,
		Provider:      s.provider.Name(),
		ProviderJobID: run.ProviderJobID,
		Raw:           run.Raw,
		Dispatched:    true,
	}, nil
}

// Get returns a single job. User principals only see their own rows;
// a row owned by someone else reads as ErrNotFound, never as forbidden.
// Admin callers bypass ownership filtering.
func (s *Service) Get(ctx context.Context, id, userID string, admin bool) (*Job, error) {
	var (
		j   *Job
		err error
	)
	if admin {
		j, err = s.repo.GetByID(ctx, id)
	} else {
		j, err = s.repo.GetByIDForUser(ctx, id, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get job: %v", ErrStore, err)
	}
	if j == nil {
		return nil, ErrNotFound
	}
	return j, nil
}

// List returns the caller's jobs, newest first. Admin callers see all rows.
func (s *Service) List(ctx context.Context, userID string, admin bool) ([]Job, error) {
	var (
		jobs []Job
		err  error
	)
	if admin {
		jobs, err = s.repo.List(ctx)
	} else {
		jobs, err = s.repo.ListForUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list jobs: %v", ErrStore, err)
	}
	return jobs, nil
}
