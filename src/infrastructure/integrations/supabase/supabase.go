// Package supabase resolves bearer tokens to users through the GoTrue
// auth API. It is the identity-provider collaborator behind src/auth.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"alphogen/src/auth"
)

var (
	ErrNotConfigured = errors.New("supabase not configured")
	ErrTokenRejected = errors.New("supabase rejected token")
)

const defaultTimeout = 10 * time.Second

// Client represents a Supabase auth API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
}

// NewClient creates a client for the project at baseURL. An empty
// baseURL yields a client that rejects every token with ErrNotConfigured,
// which the validator maps to unauthenticated.
func NewClient(baseURL, serviceKey string, c *http.Client) *Client {
	if c == nil {
		c = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		httpClient: c,
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
	}
}

var _ auth.IdentityProvider = (*Client)(nil)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ResolveToken asks GoTrue which user the token belongs to. Every call
// hits the provider; no caching is done here.
func (c *Client) ResolveToken(ctx context.Context, token string) (*auth.User, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	url := fmt.Sprintf("%s/auth/v1/user", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling supabase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTokenRejected, resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("error decoding user response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrTokenRejected
	}

	return &auth.User{ID: user.ID, Email: user.Email}, nil
}
