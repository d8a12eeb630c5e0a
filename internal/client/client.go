// Package client provides a transport-agnostic interface for the linkmesh
// service and an HTTP/JSON implementation that talks to the linkmesh REST API.
package client

import (
	"context"

	"github.com/rankforge/linkmesh/internal/model"
)

// ConflictsClient is the interface that all linkmesh CLI commands use to
// communicate with the conflict server. It is implemented by HTTPClient
// (default) and can be backed by any transport.
type ConflictsClient interface {
	// Detection
	Detect(ctx context.Context, networkID, actor string) (*DetectResponse, error)

	// Stored conflicts
	ListStored(ctx context.Context, req *ListConflictsRequest) (*ListConflictsResponse, error)
	GetConflict(ctx context.Context, id string) (*model.Conflict, error)
	GetEvents(ctx context.Context, id string) ([]*model.AuditEvent, error)

	// Lifecycle
	Resolve(ctx context.Context, id, actor string) (*model.Conflict, error)
	Ignore(ctx context.Context, id, actor string) (*model.Conflict, error)

	// Optimization tasks
	CreateOptimization(ctx context.Context, id, actor string) (*model.Conflict, error)
	BulkCreateOptimizations(ctx context.Context, networkID, actor string) (*BulkOptimizationResult, error)

	// Metrics
	Metrics(ctx context.Context, networkID string, days int) (*model.ConflictMetrics, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// RunSummary is the per-network outcome of a detection pass.
type RunSummary struct {
	NetworkID   string   `json:"network_id"`
	Candidates  int      `json:"candidates"`
	Created     int      `json:"created"`
	Recurrences int      `json:"recurrences"`
	SkippedOpen int      `json:"skipped_open"`
	Warnings    []string `json:"warnings,omitempty"`
}

// NetworkError records a per-network failure during a multi-network pass.
type NetworkError struct {
	NetworkID string `json:"network_id"`
	Error     string `json:"error"`
}

// DetectResponse is the response from Detect.
type DetectResponse struct {
	Summaries []*RunSummary  `json:"summaries"`
	Errors    []NetworkError `json:"errors,omitempty"`
}

// ListConflictsRequest holds parameters for listing stored conflicts.
type ListConflictsRequest struct {
	NetworkID string   `json:"network_id,omitempty"`
	Status    []string `json:"status,omitempty"`
	Type      []string `json:"type,omitempty"`
	Severity  []string `json:"severity,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}

// ListConflictsResponse is the response from ListStored.
type ListConflictsResponse struct {
	Conflicts []*model.Conflict `json:"conflicts"`
	Total     int               `json:"total"`
}

// TaskReport is the per-item outcome of a bulk task-link operation.
type TaskReport struct {
	ConflictID     string `json:"conflict_id"`
	OptimizationID string `json:"optimization_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BulkOptimizationResult is the response from BulkCreateOptimizations.
type BulkOptimizationResult struct {
	Created int          `json:"created"`
	Failed  int          `json:"failed"`
	Items   []TaskReport `json:"items"`
}
