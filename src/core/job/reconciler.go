package job

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"alphogen/src/log"
)

// Provider status vocabulary as delivered on webhook callbacks
const (
	ProviderStatusInQueue    = "IN_QUEUE"
	ProviderStatusInProgress = "IN_PROGRESS"
	ProviderStatusCompleted  = "COMPLETED"
	ProviderStatusFailed     = "FAILED"
)

const defaultInProgress = 50

// ProviderCallback is the decoded webhook payload. The provider joins on
// its own job id; it does not know the internal row id.
type ProviderCallback struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output *CallbackOutput `json:"output,omitempty"`
}

type CallbackOutput struct {
	ResultURL string `json:"result_url,omitempty"`
	Progress  *int   `json:"progress,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReconcileOutcome reports what a callback did to the joined row
type ReconcileOutcome string

const (
	// OutcomeApplied means the row was mutated
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeIgnored means the status is not one this system understands;
	// the callback is acknowledged so the provider stops retrying
	OutcomeIgnored ReconcileOutcome = "ignored"
	// OutcomeStale means the row is already terminal and the callback
	// arrived too late to matter
	OutcomeStale ReconcileOutcome = "stale"
)

// Reconciler applies provider-initiated state transitions to job rows,
// independent of and concurrent with orchestrator reads.
type Reconciler struct {
	repo    Repository
	assets  AssetStore
	fetcher *http.Client
}

func NewReconciler(repo Repository, assets AssetStore) *Reconciler {
	return &Reconciler{
		repo:   repo,
		assets: assets,
		fetcher: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Apply maps the provider's status vocabulary onto the canonical job
// state and writes the transition. Rows already in a terminal state are
// never moved backward; late or duplicate callbacks are acknowledged
// without mutation so delivery order cannot corrupt a finished job.
func (r *Reconciler) Apply(ctx context.Context, cb ProviderCallback) (*Job, ReconcileOutcome, error) {
	j, err := r.repo.GetByProviderJobID(ctx, cb.ID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to look up job by provider job id: %v", ErrStore, err)
	}
	if j == nil {
		return nil, "", ErrNotFound
	}

	if j.Status.IsTerminal() {
		// Late or redelivered callback for a finished row. The stored
		// state wins regardless of what the callback says; acknowledging
		// it keeps repeated terminal deliveries idempotent and stops a
		// delayed in-flight callback from reviving a done job.
		log.Info("callback for terminal job ignored",
			"job_id", j.ID, "job_status", j.Status, "provider_status", cb.Status)
		return j, OutcomeStale, nil
	}

	u, recognized := r.resolve(ctx, j, cb)
	if !recognized {
		log.Info("unhandled provider status acknowledged", "provider_job_id", cb.ID, "provider_status", cb.Status)
		return j, OutcomeIgnored, nil
	}

	if err := r.repo.Update(ctx, j.ID, u); err != nil {
		return nil, "", fmt.Errorf("%w: failed to update job from callback: %v", ErrStore, err)
	}

	j.Status = *u.Status
	if u.Progress != nil {
		j.Progress = *u.Progress
	}
	if u.ResultKey != nil {
		j.ResultKey = u.ResultKey
	}
	if u.ErrorMessage != nil {
		j.ErrorMessage = u.ErrorMessage
	}
	return j, OutcomeApplied, nil
}

// resolve turns the provider status vocabulary into a row update. The
// second return value is false for statuses this system does not handle.
func (r *Reconciler) resolve(ctx context.Context, j *Job, cb ProviderCallback) (Update, bool) {
	switch cb.Status {
	case ProviderStatusCompleted:
		if cb.Output == nil || cb.Output.ResultURL == "" {
			return Update{}, false
		}
		key, err := r.relayResult(ctx, j, cb.Output.ResultURL)
		if err != nil {
			// A completed job whose result cannot be stored must not sit
			// in flight forever.
			msg := fmt.Sprintf("failed to store result: %v", err)
			errStatus := StatusError
			return Update{Status: &errStatus, ErrorMessage: &msg}, true
		}
		done := StatusDone
		full := 100
		return Update{Status: &done, Progress: &full, ResultKey: &key}, true

	case ProviderStatusFailed:
		msg := "job failed on provider"
		if cb.Output != nil && cb.Output.Error != "" {
			msg = cb.Output.Error
		}
		errStatus := StatusError
		return Update{Status: &errStatus, ErrorMessage: &msg}, true

	case ProviderStatusInProgress:
		progress := defaultInProgress
		if cb.Output != nil && cb.Output.Progress != nil {
			progress = ClampProgress(*cb.Output.Progress)
		}
		running := StatusRunning
		return Update{Status: &running, Progress: &progress}, true

	case ProviderStatusInQueue:
		running := StatusRunning
		zero := 0
		return Update{Status: &running, Progress: &zero}, true
	}

	return Update{}, false
}

// relayResult moves the provider's result reference into the asset
// store. URLs are fetched and stored under a key derived from the job id;
// scheme-less references are treated as keys already in our namespace.
func (r *Reconciler) relayResult(ctx context.Context, j *Job, resultURL string) (string, error) {
	parsed, err := url.Parse(resultURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return resultURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build result request: %w", err)
	}
	resp, err := r.fetcher.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("result fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read result body: %w", err)
	}

	ext := path.Ext(parsed.Path)
	if ext == "" {
		ext = ".mp4"
	}
	key := fmt.Sprintf("results/%s%s", j.ID, strings.ToLower(ext))

	if err := r.assets.Put(ctx, key, data, resp.Header.Get("Content-Type")); err != nil {
		return "", fmt.Errorf("failed to store result: %w", err)
	}

	return key, nil
}
