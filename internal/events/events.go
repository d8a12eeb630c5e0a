package events

import (
	"context"

	"github.com/rankforge/linkmesh/internal/model"
)

// Event topic constants
const (
	TopicConflictDetected = "linkmesh.conflict.detected"
	TopicConflictRecurred = "linkmesh.conflict.recurred"
	TopicConflictLinked   = "linkmesh.conflict.linked"
	TopicConflictResolved = "linkmesh.conflict.resolved"
	TopicConflictIgnored  = "linkmesh.conflict.ignored"

	// Run events are emitted once per detection sweep.
	TopicRunCompleted = "linkmesh.run.completed"

	// TopicOptimizationCompleted is consumed, not published: the
	// optimizer service announces finished optimization tasks on it.
	TopicOptimizationCompleted = "optimizer.optimization.completed"
)

// Event types

type ConflictDetected struct {
	Conflict *model.Conflict `json:"conflict"`
}

type ConflictRecurred struct {
	Conflict        *model.Conflict `json:"conflict"`
	PriorConflictID string          `json:"prior_conflict_id"`
	RecurrenceCount int             `json:"recurrence_count"`
}

type ConflictLinked struct {
	Conflict       *model.Conflict `json:"conflict"`
	OptimizationID string          `json:"optimization_id"`
}

type ConflictResolved struct {
	Conflict   *model.Conflict `json:"conflict"`
	ResolvedBy string          `json:"resolved_by,omitempty"`
}

type ConflictIgnored struct {
	Conflict  *model.Conflict `json:"conflict"`
	IgnoredBy string          `json:"ignored_by,omitempty"`
}

type RunCompleted struct {
	NetworkID   string   `json:"network_id"`
	Candidates  int      `json:"candidates"`
	Created     int      `json:"created"`
	Recurrences int      `json:"recurrences"`
	SkippedOpen int      `json:"skipped_open"`
	Warnings    []string `json:"warnings,omitempty"`
}

// OptimizationCompleted is the payload of TopicOptimizationCompleted.
type OptimizationCompleted struct {
	OptimizationID string `json:"optimization_id"`
	CompletedBy    string `json:"completed_by,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
