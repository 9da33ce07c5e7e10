package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const registryContentType = "application/vnd.schemaregistry.v1+json"

// RegistryError is a non-2xx answer from the schema registry.
type RegistryError struct {
	Status  int
	Code    int `json:"error_code"`
	Message string `json:"message"`
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("schema registry: status %d (code %d): %s", e.Status, e.Code, e.Message)
}

// SchemaRegistryClient talks to a Confluent-compatible schema registry using
// JSON Schema subjects.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchemaRegistryClient creates a client for baseURL.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema returns the id of schema under subject, registering it as a
// new version when the registry does not know it yet.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject, schema string) (int, error) {
	body, err := json.Marshal(map[string]string{"schemaType": "JSON", "schema": schema})
	if err != nil {
		return 0, err
	}

	// Looking a schema up by content only matches that exact schema.
	id, err := c.post(ctx, "/subjects/"+url.PathEscape(subject), body)
	var regErr *RegistryError
	if errors.As(err, &regErr) && regErr.Status == http.StatusNotFound {
		return c.post(ctx, "/subjects/"+url.PathEscape(subject)+"/versions", body)
	}
	return id, err
}

func (c *SchemaRegistryClient) post(ctx context.Context, path string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", registryContentType)
	req.Header.Set("Accept", registryContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("schema registry %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		regErr := &RegistryError{Status: resp.StatusCode}
		if json.Unmarshal(data, regErr) != nil || regErr.Message == "" {
			regErr.Message = strings.TrimSpace(string(data))
		}
		return 0, regErr
	}

	var out struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("decode schema registry response: %w", err)
	}
	return out.ID, nil
}
