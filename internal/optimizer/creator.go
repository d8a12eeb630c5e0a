// Package optimizer integrates with the optimization subsystem, the external
// service that tracks remediation work for detected conflicts.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rankforge/linkmesh/internal/model"
)

// Creator opens optimization tasks in the optimization subsystem.
type Creator interface {
	// CreateOptimization opens a task for the given conflict and returns
	// the new optimization ID.
	CreateOptimization(ctx context.Context, c *model.Conflict) (string, error)
	Close() error
}

// HTTPCreator implements Creator against the optimizer's HTTP/JSON API.
type HTTPCreator struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPCreator creates an HTTP creator targeting the given base URL.
func NewHTTPCreator(baseURL, token string) *HTTPCreator {
	return &HTTPCreator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP creator.
func (c *HTTPCreator) Close() error { return nil }

type createOptimizationRequest struct {
	ConflictID   string   `json:"conflict_id"`
	NetworkID    string   `json:"network_id"`
	ConflictType string   `json:"conflict_type"`
	Severity     string   `json:"severity"`
	NodeAID      string   `json:"node_a_id"`
	NodeBID      string   `json:"node_b_id,omitempty"`
	Members      []string `json:"members,omitempty"`
	Detail       string   `json:"detail,omitempty"`
}

func (c *HTTPCreator) CreateOptimization(ctx context.Context, conflict *model.Conflict) (string, error) {
	req := createOptimizationRequest{
		ConflictID:   conflict.ID,
		NetworkID:    conflict.NetworkID,
		ConflictType: string(conflict.Type),
		Severity:     string(conflict.Severity),
		NodeAID:      conflict.NodeAID,
		NodeBID:      conflict.NodeBID,
		Members:      conflict.Members,
		Detail:       conflict.Detail,
	}
	var resp struct {
		OptimizationID string `json:"optimization_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/optimizations", req, &resp); err != nil {
		return "", err
	}
	if resp.OptimizationID == "" {
		return "", fmt.Errorf("optimizer returned empty optimization_id")
	}
	return resp.OptimizationID, nil
}

// APIError represents an error response from the optimizer service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("optimizer API error (status %d): %s", e.StatusCode, e.Message)
}

func (c *HTTPCreator) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
