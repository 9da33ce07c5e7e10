// Package cache tells edge and client caches that a user's progress changed.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UserPaths are the per-user API resources that change when a walk lands.
var UserPaths = []string{"/v1/progress", "/v1/walks", "/v1/calendar"}

// NoopInvalidator is used when no invalidation endpoint is configured.
type NoopInvalidator struct{}

// InvalidateUser does nothing.
func (NoopInvalidator) InvalidateUser(context.Context, string) error { return nil }

// Purge is the body sent to the invalidation endpoint.
type Purge struct {
	UserID string   `json:"user_id"`
	Paths  []string `json:"paths"`
}

// HTTPInvalidator posts a Purge to an edge cache endpoint.
type HTTPInvalidator struct {
	client   *http.Client
	endpoint string
	token    string
}

// NewHTTPInvalidator constructs an HTTPInvalidator. A zero timeout leaves the
// client without one; callers bound the request through ctx instead.
func NewHTTPInvalidator(endpoint, token string, timeout time.Duration) *HTTPInvalidator {
	return &HTTPInvalidator{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
	}
}

// InvalidateUser purges every cached resource for userID.
func (h *HTTPInvalidator) InvalidateUser(ctx context.Context, userID string) error {
	body, err := json.Marshal(Purge{UserID: userID, Paths: UserPaths})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build purge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("purge %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &InvalidationError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return nil
}

// InvalidationError is returned for a non-2xx/3xx purge response.
type InvalidationError struct {
	Status int
	Body   string
}

func (e *InvalidationError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("cache purge failed: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("cache purge failed: %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}
