// Package runpod implements the video provider adapter against RunPod's
// serverless endpoint API. One orchestrator invocation makes exactly one
// outbound call; there is no retry loop here.
package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"alphogen/src/core/job"
)

const (
	DefaultBaseURL = "https://api.runpod.ai"

	defaultTimeout = 30 * time.Second
)

// RunRequest is the payload for the serverless /run endpoint. The
// internal job id travels with the input so the worker can echo it back.
type RunRequest struct {
	Input RunInput `json:"input"`
}

type RunInput struct {
	Prompt string `json:"prompt"`
	JobID  string `json:"job_id"`
}

// RunResponse is RunPod's acknowledgement of an accepted job
type RunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client represents a RunPod serverless endpoint client
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	endpointID string
}

// NewClient creates a RunPod client. Missing credentials are not an
// error: the client is built anyway and reports job.ErrProviderNotConfigured
// on use, which callers treat as the no-op operating mode.
func NewClient(baseURL, apiKey, endpointID string, c *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if c == nil {
		c = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		httpClient: c,
		baseURL:    baseURL,
		apiKey:     apiKey,
		endpointID: endpointID,
	}
}

var _ job.VideoProvider = (*Client)(nil)

func (c *Client) Name() string {
	return "runpod"
}

func (c *Client) configured() bool {
	return c.apiKey != "" && c.endpointID != ""
}

// Run submits a generation job and returns the provider-assigned job id
// along with the raw response body.
func (c *Client) Run(ctx context.Context, prompt, jobID string) (*job.RunResult, error) {
	if !c.configured() {
		return nil, job.ErrProviderNotConfigured
	}

	reqBody := RunRequest{Input: RunInput{Prompt: prompt, JobID: jobID}}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/%s/run", c.baseURL, c.endpointID)
	raw, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}

	var runResp RunResponse
	if err := json.Unmarshal(raw, &runResp); err != nil {
		return nil, fmt.Errorf("error decoding run response: %w", err)
	}
	if runResp.ID == "" {
		return nil, fmt.Errorf("run response carried no job id")
	}

	return &job.RunResult{ProviderJobID: runResp.ID, Raw: raw}, nil
}

// Status polls a submitted job and returns the raw status document
func (c *Client) Status(ctx context.Context, providerJobID string) (json.RawMessage, error) {
	if !c.configured() {
		return nil, job.ErrProviderNotConfigured
	}

	url := fmt.Sprintf("%s/v2/%s/status/%s", c.baseURL, c.endpointID, providerJobID)
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling runpod: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", job.ErrProviderUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("runpod returned status %d", resp.StatusCode)
	}

	return data, nil
}
