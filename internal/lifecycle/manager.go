// Package lifecycle owns the conflict state machine: reconciling detector
// output against the store, linking remediation tasks, and driving manual
// and external transitions.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rankforge/linkmesh/internal/detect"
	"github.com/rankforge/linkmesh/internal/events"
	"github.com/rankforge/linkmesh/internal/graph"
	"github.com/rankforge/linkmesh/internal/idgen"
	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/optimizer"
	"github.com/rankforge/linkmesh/internal/store"
	"github.com/rankforge/linkmesh/internal/structure"
)

// DefaultRecurrenceWindow is how far back a terminal record chains
// recurrence_count onto a newly detected conflict with the same fingerprint.
const DefaultRecurrenceWindow = 7 * 24 * time.Hour

// systemActor is recorded when no explicit actor is supplied.
const systemActor = "system"

// ErrNoCreator is returned by task-linking operations when no optimization
// creator is configured.
var ErrNoCreator = errors.New("no optimization creator configured")

// Manager reconciles detection results against the store and drives all
// conflict status transitions.
type Manager struct {
	store     store.Store
	source    structure.Source
	detector  *detect.Detector
	creator   optimizer.Creator
	publisher events.Publisher
	logger    *slog.Logger

	recurrenceWindow time.Duration
	now              func() time.Time
}

// Options configures optional Manager collaborators.
type Options struct {
	// Creator opens remediation tasks. Task-linking operations fail with
	// ErrNoCreator when nil.
	Creator optimizer.Creator
	// RecurrenceWindow overrides DefaultRecurrenceWindow.
	RecurrenceWindow time.Duration
	Logger           *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewManager creates a Manager. The publisher may be a NoopPublisher; event
// emission is always best-effort.
func NewManager(st store.Store, src structure.Source, det *detect.Detector, pub events.Publisher, opts Options) *Manager {
	m := &Manager{
		store:            st,
		source:           src,
		detector:         det,
		creator:          opts.Creator,
		publisher:        pub,
		logger:           opts.Logger,
		recurrenceWindow: opts.RecurrenceWindow,
		now:              opts.Now,
	}
	if m.publisher == nil {
		m.publisher = &events.NoopPublisher{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.recurrenceWindow <= 0 {
		m.recurrenceWindow = DefaultRecurrenceWindow
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

// RunSummary reports the outcome of one detection+reconciliation pass over a
// network.
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

// RunDetection fetches the network snapshot, runs the detector, and
// reconciles each candidate against the store. Open records whose
// fingerprint is absent from the fresh candidate set are left open; closing
// a conflict always takes an explicit action.
func (m *Manager) RunDetection(ctx context.Context, networkID, actor string) (*RunSummary, error) {
	if actor == "" {
		actor = systemActor
	}

	entries, err := m.source.ListEntries(ctx, networkID)
	if err != nil {
		return nil, fmt.Errorf("fetching entries for %s: %w", networkID, err)
	}

	g := graph.New(networkID, entries)
	res := m.detector.Detect(g)

	summary := &RunSummary{
		NetworkID:  networkID,
		Candidates: len(res.Candidates),
		Warnings:   res.Warnings,
	}

	for _, cand := range res.Candidates {
		if err := m.reconcile(ctx, cand, actor, summary); err != nil {
			return nil, err
		}
	}

	m.logger.Info("detection run completed",
		"network_id", networkID,
		"candidates", summary.Candidates,
		"created", summary.Created,
		"recurrences", summary.Recurrences,
		"skipped_open", summary.SkippedOpen,
		"degraded", res.Degraded())

	if err := m.publisher.Publish(ctx, events.TopicRunCompleted, events.RunCompleted{
		NetworkID:   networkID,
		Candidates:  summary.Candidates,
		Created:     summary.Created,
		Recurrences: summary.Recurrences,
		SkippedOpen: summary.SkippedOpen,
		Warnings:    summary.Warnings,
	}); err != nil {
		m.logger.Warn("failed to publish run event", "network_id", networkID, "error", err)
	}

	return summary, nil
}

// reconcile applies the per-candidate algorithm: existing open record wins,
// a recent terminal record chains recurrence_count, otherwise a fresh record
// starts at zero.
func (m *Manager) reconcile(ctx context.Context, cand model.Candidate, actor string, summary *RunSummary) error {
	fp := cand.Fingerprint()

	open, err := m.store.OpenByFingerprint(ctx, fp)
	if err != nil {
		return fmt.Errorf("checking open record for %s: %w", fp, err)
	}
	if open != nil {
		summary.SkippedOpen++
		return nil
	}

	now := m.now()
	since := now.Add(-m.recurrenceWindow)
	prior, err := m.store.LatestTerminalByFingerprint(ctx, fp, since)
	if err != nil {
		return fmt.Errorf("checking terminal record for %s: %w", fp, err)
	}

	id, err := idgen.Generate()
	if err != nil {
		return fmt.Errorf("generating conflict id: %w", err)
	}

	conflict := &model.Conflict{
		ID:         id,
		NetworkID:  cand.NetworkID,
		Type:       cand.Type,
		Severity:   cand.Severity,
		Status:     model.StatusDetected,
		NodeAID:    cand.NodeAID,
		NodeBID:    cand.NodeBID,
		Members:    cand.Members,
		Detail:     cand.Detail,
		DetectedAt: now,
		DetectedBy: actor,
	}
	if prior != nil {
		conflict.RecurrenceCount = prior.RecurrenceCount + 1
		conflict.PriorConflictID = prior.ID
	}

	if err := m.store.CreateConflict(ctx, conflict); err != nil {
		if errors.Is(err, store.ErrDuplicateOpen) {
			// A concurrent run won the insert race; its record is the
			// open record this candidate would have created.
			summary.SkippedOpen++
			return nil
		}
		return fmt.Errorf("creating conflict for %s: %w", fp, err)
	}

	if prior != nil {
		summary.Recurrences++
		m.recordAndPublish(ctx, events.TopicConflictRecurred, conflict.ID, actor, events.ConflictRecurred{
			Conflict:        conflict,
			PriorConflictID: prior.ID,
			RecurrenceCount: conflict.RecurrenceCount,
		})
	} else {
		summary.Created++
		m.recordAndPublish(ctx, events.TopicConflictDetected, conflict.ID, actor, events.ConflictDetected{
			Conflict: conflict,
		})
	}
	return nil
}

// RunAll runs detection over every network the structure source knows about.
// Per-network failures are collected and skipped; the pass never aborts.
func (m *Manager) RunAll(ctx context.Context, actor string) ([]*RunSummary, []NetworkError, error) {
	networkIDs, err := m.source.ListNetworkIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing networks: %w", err)
	}

	var (
		summaries []*RunSummary
		failures  []NetworkError
	)
	for _, networkID := range networkIDs {
		summary, err := m.RunDetection(ctx, networkID, actor)
		if err != nil {
			m.logger.Warn("skipping network after detection failure",
				"network_id", networkID, "error", err)
			failures = append(failures, NetworkError{NetworkID: networkID, Error: err.Error()})
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, failures, nil
}

// Resolve manually moves an open conflict to resolved.
func (m *Manager) Resolve(ctx context.Context, id, actor string) (*model.Conflict, error) {
	if actor == "" {
		actor = systemActor
	}
	conflict, err := m.store.TransitionConflict(ctx, id, model.OpenStatuses(), model.StatusResolved, actor, m.now())
	if err != nil {
		return nil, err
	}
	m.recordAndPublish(ctx, events.TopicConflictResolved, conflict.ID, actor, events.ConflictResolved{
		Conflict:   conflict,
		ResolvedBy: actor,
	})
	return conflict, nil
}

// Ignore manually moves an open conflict to ignored.
func (m *Manager) Ignore(ctx context.Context, id, actor string) (*model.Conflict, error) {
	if actor == "" {
		actor = systemActor
	}
	conflict, err := m.store.TransitionConflict(ctx, id, model.OpenStatuses(), model.StatusIgnored, actor, m.now())
	if err != nil {
		return nil, err
	}
	m.recordAndPublish(ctx, events.TopicConflictIgnored, conflict.ID, actor, events.ConflictIgnored{
		Conflict:  conflict,
		IgnoredBy: actor,
	})
	return conflict, nil
}

// CompleteOptimization resolves the conflict linked to the given
// optimization. Called when the optimizer reports the task finished.
func (m *Manager) CompleteOptimization(ctx context.Context, optimizationID, actor string) (*model.Conflict, error) {
	if actor == "" {
		actor = systemActor
	}
	conflict, err := m.store.GetByOptimizationID(ctx, optimizationID)
	if err != nil {
		return nil, err
	}
	conflict, err = m.store.TransitionConflict(ctx, conflict.ID,
		[]model.Status{model.StatusUnderReview}, model.StatusResolved, actor, m.now())
	if err != nil {
		return nil, err
	}
	m.recordAndPublish(ctx, events.TopicConflictResolved, conflict.ID, actor, events.ConflictResolved{
		Conflict:   conflict,
		ResolvedBy: actor,
	})
	return conflict, nil
}

// CreateTaskFor opens a remediation task for a detected, unlinked conflict
// and moves it to under_review.
func (m *Manager) CreateTaskFor(ctx context.Context, conflictID, actor string) (*model.Conflict, error) {
	if m.creator == nil {
		return nil, ErrNoCreator
	}
	if actor == "" {
		actor = systemActor
	}

	conflict, err := m.store.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if conflict.Status != model.StatusDetected || conflict.LinkedOptimizationID != "" {
		return nil, store.ErrInvalidState
	}

	optimizationID, err := m.creator.CreateOptimization(ctx, conflict)
	if err != nil {
		return nil, fmt.Errorf("creating optimization for %s: %w", conflictID, err)
	}

	conflict, err = m.store.LinkOptimization(ctx, conflictID, optimizationID)
	if err != nil {
		// The task exists but the link failed (e.g. a concurrent linker
		// won). Surface the error; the optimizer side owns task cleanup.
		return nil, err
	}

	m.recordAndPublish(ctx, events.TopicConflictLinked, conflict.ID, actor, events.ConflictLinked{
		Conflict:       conflict,
		OptimizationID: optimizationID,
	})
	return conflict, nil
}

// TaskReport is the per-item outcome of a bulk task-link operation.
type TaskReport struct {
	ConflictID     string `json:"conflict_id"`
	OptimizationID string `json:"optimization_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BulkTaskResult aggregates a bulk task-link operation.
type BulkTaskResult struct {
	Created int          `json:"created"`
	Failed  int          `json:"failed"`
	Items   []TaskReport `json:"items"`
}

// CreateTasksForNetwork opens tasks for every eligible detected conflict.
// An empty networkID spans all networks. Individual failures are reported
// per item and never abort the batch.
func (m *Manager) CreateTasksForNetwork(ctx context.Context, networkID, actor string) (*BulkTaskResult, error) {
	if m.creator == nil {
		return nil, ErrNoCreator
	}

	conflicts, _, err := m.store.ListConflicts(ctx, model.ConflictFilter{
		NetworkID: networkID,
		Status:    []model.Status{model.StatusDetected},
	})
	if err != nil {
		return nil, fmt.Errorf("listing detected conflicts: %w", err)
	}

	result := &BulkTaskResult{Items: make([]TaskReport, 0, len(conflicts))}
	for _, c := range conflicts {
		if c.LinkedOptimizationID != "" {
			continue
		}
		linked, err := m.CreateTaskFor(ctx, c.ID, actor)
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, TaskReport{ConflictID: c.ID, Error: err.Error()})
			continue
		}
		result.Created++
		result.Items = append(result.Items, TaskReport{
			ConflictID:     c.ID,
			OptimizationID: linked.LinkedOptimizationID,
		})
	}
	return result, nil
}

// recordAndPublish writes an audit event to the store and the bus. Both
// writes are best-effort; a failed sink never fails the operation.
func (m *Manager) recordAndPublish(ctx context.Context, topic, conflictID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Warn("failed to marshal event", "topic", topic, "conflict_id", conflictID, "error", err)
		return
	}
	if err := m.store.RecordEvent(ctx, &model.AuditEvent{
		Topic:      topic,
		ConflictID: conflictID,
		Actor:      actor,
		Payload:    payload,
	}); err != nil {
		m.logger.Warn("failed to record event", "topic", topic, "conflict_id", conflictID, "error", err)
	}
	if err := m.publisher.Publish(ctx, topic, event); err != nil {
		m.logger.Warn("failed to publish event", "topic", topic, "conflict_id", conflictID, "error", err)
	}
}
