package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rankforge/linkmesh/internal/model"
)

// HTTPClient implements ConflictsClient using the linkmesh HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Detection ---

func (c *HTTPClient) Detect(ctx context.Context, networkID, actor string) (*DetectResponse, error) {
	q := url.Values{}
	if networkID != "" {
		q.Set("network_id", networkID)
	}
	path := "/conflicts/detect"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp DetectResponse
	if err := c.doJSON(ctx, http.MethodGet, path, actor, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Stored conflicts ---

func (c *HTTPClient) ListStored(ctx context.Context, req *ListConflictsRequest) (*ListConflictsResponse, error) {
	q := url.Values{}
	if req.NetworkID != "" {
		q.Set("network_id", req.NetworkID)
	}
	if len(req.Status) > 0 {
		q.Set("status", strings.Join(req.Status, ","))
	}
	if len(req.Type) > 0 {
		q.Set("type", strings.Join(req.Type, ","))
	}
	if len(req.Severity) > 0 {
		q.Set("severity", strings.Join(req.Severity, ","))
	}
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", req.Offset))
	}

	path := "/conflicts/stored"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListConflictsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetConflict(ctx context.Context, id string) (*model.Conflict, error) {
	var conflict model.Conflict
	if err := c.doJSON(ctx, http.MethodGet, "/conflicts/"+url.PathEscape(id), "", nil, &conflict); err != nil {
		return nil, err
	}
	return &conflict, nil
}

func (c *HTTPClient) GetEvents(ctx context.Context, id string) ([]*model.AuditEvent, error) {
	var resp struct {
		Events []*model.AuditEvent `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/conflicts/"+url.PathEscape(id)+"/events", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Lifecycle ---

func (c *HTTPClient) Resolve(ctx context.Context, id, actor string) (*model.Conflict, error) {
	return c.postTransition(ctx, "/conflicts/"+url.PathEscape(id)+"/resolve", actor)
}

func (c *HTTPClient) Ignore(ctx context.Context, id, actor string) (*model.Conflict, error) {
	return c.postTransition(ctx, "/conflicts/"+url.PathEscape(id)+"/ignore", actor)
}

func (c *HTTPClient) postTransition(ctx context.Context, path, actor string) (*model.Conflict, error) {
	var conflict model.Conflict
	if err := c.doJSON(ctx, http.MethodPost, path, actor, nil, &conflict); err != nil {
		return nil, err
	}
	return &conflict, nil
}

// --- Optimization tasks ---

func (c *HTTPClient) CreateOptimization(ctx context.Context, id, actor string) (*model.Conflict, error) {
	return c.postTransition(ctx, "/conflicts/"+url.PathEscape(id)+"/create-optimization", actor)
}

func (c *HTTPClient) BulkCreateOptimizations(ctx context.Context, networkID, actor string) (*BulkOptimizationResult, error) {
	body := map[string]string{}
	if networkID != "" {
		body["network_id"] = networkID
	}
	var result BulkOptimizationResult
	if err := c.doJSON(ctx, http.MethodPost, "/conflicts/create-optimizations", actor, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Metrics ---

func (c *HTTPClient) Metrics(ctx context.Context, networkID string, days int) (*model.ConflictMetrics, error) {
	q := url.Values{}
	if networkID != "" {
		q.Set("network_id", networkID)
	}
	if days > 0 {
		q.Set("days", fmt.Sprintf("%d", days))
	}
	path := "/conflicts/metrics"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var m model.ConflictMetrics
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", "", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// JSON response. A non-empty actor is sent as the X-Actor header. If result
// is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path, actor string, body any, result any) error {
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
	if actor != "" {
		req.Header.Set("X-Actor", actor)
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
