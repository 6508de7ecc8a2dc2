package job

import (
	"time"
)

// Status defines the lifecycle state of a job
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// IsTerminal reports whether a job in this status can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Terminal states absorb every later update; re-applying the identical
// terminal status is allowed so duplicate deliveries stay idempotent.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return s == next
	}
	return true
}

// Job represents one video-generation request and its tracked lifecycle
type Job struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Prompt        string    `json:"prompt"`
	Status        Status    `json:"status"`
	Progress      int       `json:"progress"`
	ProviderJobID *string   `json:"provider_job_id,omitempty"`
	ResultKey     *string   `json:"result_key,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ClampProgress bounds a reported progress percentage to [0, 100]
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
