// Package client talks to a running murmur server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/murmur/internal/api"
)

// ErrUnexpectedStatus wraps non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client is a murmur API client.
type Client struct {
	baseURL    string
	token      string
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a client for the server at baseURL. token may be empty when
// the server runs without authentication.
func New(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			// profile switches block until the model is loaded
			Timeout: 90 * time.Second,
		},
	}
}

// DedupeKey derives a stable dedupe key from text.
func DedupeKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:8])
}

// Speak enqueues req and returns the job id.
func (c *Client) Speak(ctx context.Context, req api.SpeakRequest) (string, error) {
	var resp api.SpeakResponse
	if err := c.do(ctx, http.MethodPost, "/v1/speak", req, &resp); err != nil {
		return "", err
	}
	c.logger.Debug("speak request accepted", "job_id", resp.JobID, "text_length", len(req.Text))
	return resp.JobID, nil
}

// Profiles lists the server's voice profiles.
func (c *Client) Profiles(ctx context.Context) (api.ProfilesResponse, error) {
	var resp api.ProfilesResponse
	err := c.do(ctx, http.MethodGet, "/v1/profiles", nil, &resp)
	return resp, err
}

// SelectProfile switches the server's active profile.
func (c *Client) SelectProfile(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/v1/profile", api.ProfileRequest{Name: name}, nil)
}

// Job returns the status of a job.
func (c *Client) Job(ctx context.Context, id string) (api.JobResponse, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodGet, "/v1/jobs/"+id, nil, &resp)
	return resp, err
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/v1/healthz", nil, &resp)
	return resp, err
}

// Wait polls a job until it reaches a terminal status or ctx ends.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration) (api.JobResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return job, err
		}
		switch job.Status {
		case "done", "failed", "cancelled", "expired":
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
