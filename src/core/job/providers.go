package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no job matches the requested id for the
	// calling principal. Ownership mismatches surface as this same error so
	// existence is never confirmed to callers that do not own the row.
	ErrNotFound = errors.New("job not found")

	// ErrEmptyPrompt is returned when a submission carries no prompt text
	ErrEmptyPrompt = errors.New("prompt is required")

	// ErrAssetNotFound is returned by asset stores for unknown keys
	ErrAssetNotFound = errors.New("asset not found")

	// ErrProviderNotConfigured is the sentinel outcome of a VideoProvider
	// whose credentials are absent. It is an expected condition, not a
	// failure: submissions proceed in no-op mode.
	ErrProviderNotConfigured = errors.New("video provider not configured")

	// ErrProviderUnauthorized is returned when the provider rejects the
	// configured credentials.
	ErrProviderUnauthorized = errors.New("video provider rejected credentials")

	// ErrProvider marks a hard provider failure. Retryable by the caller;
	// never retried automatically here.
	ErrProvider = errors.New("provider call failed")

	// ErrStore marks a persistence failure
	ErrStore = errors.New("store operation failed")
)

// Update carries the mutable fields of a job row. Nil fields are left
// untouched by the repository.
type Update struct {
	Status        *Status
	Progress      *int
	ProviderJobID *string
	ResultKey     *string
	ErrorMessage  *string
}

// Repository defines the interface for job persistence
type Repository interface {
	Insert(ctx context.Context, j *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	// GetByIDForUser returns nil (not an error) when the row exists but
	// belongs to a different user.
	GetByIDForUser(ctx context.Context, id, userID string) (*Job, error)
	GetByProviderJobID(ctx context.Context, providerJobID string) (*Job, error)
	List(ctx context.Context) ([]Job, error)
	ListForUser(ctx context.Context, userID string) ([]Job, error)
	Update(ctx context.Context, id string, u Update) error
}

// RunResult is the provider's acknowledgement of an accepted job
type RunResult struct {
	ProviderJobID string
	Raw           json.RawMessage
}

// VideoProvider starts and polls generation jobs on the external
// inference service. Implementations make exactly one outbound call per
// method invocation; retry policy belongs to the caller.
type VideoProvider interface {
	Name() string
	Run(ctx context.Context, prompt, jobID string) (*RunResult, error)
	Status(ctx context.Context, providerJobID string) (json.RawMessage, error)
}

// AssetStore reads and writes result blobs and mints time-limited
// retrieval URLs. Signed URLs must not be cached beyond their TTL.
type AssetStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
