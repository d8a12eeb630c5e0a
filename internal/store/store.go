package store

import (
	"context"
	"errors"
	"time"

	"github.com/rankforge/linkmesh/internal/model"
)

// Sentinel errors returned by Store implementations. Transport layers map
// these to 404 / 409 responses.
var (
	// ErrNotFound indicates the requested conflict does not exist.
	ErrNotFound = errors.New("conflict not found")
	// ErrInvalidState indicates a guarded update found the conflict in a
	// state that does not allow the requested change.
	ErrInvalidState = errors.New("conflict is not in a valid state for this operation")
	// ErrDuplicateOpen indicates an insert lost the fingerprint race: an
	// open conflict with the same fingerprint already exists.
	ErrDuplicateOpen = errors.New("an open conflict with this fingerprint already exists")
)

// Store defines the persistence interface for conflicts and their audit
// trail. Conflicts are never hard-deleted.
type Store interface {
	// CreateConflict validates and inserts a new conflict record. It
	// returns ErrDuplicateOpen when an open record with the same fingerprint
	// already exists (the partial unique index is the compare-and-swap
	// that serializes concurrent detection runs).
	CreateConflict(ctx context.Context, c *model.Conflict) error
	GetConflict(ctx context.Context, id string) (*model.Conflict, error)
	// ListConflicts returns conflicts newest-first plus the total count
	// matching the filter (ignoring limit/offset).
	ListConflicts(ctx context.Context, filter model.ConflictFilter) ([]*model.Conflict, int, error)

	// OpenByFingerprint returns the open conflict for the fingerprint, or
	// nil when none exists.
	OpenByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.Conflict, error)
	// LatestTerminalByFingerprint returns the most recently closed terminal
	// record for the fingerprint whose closed_at falls after since, or nil
	// when none exists.
	LatestTerminalByFingerprint(ctx context.Context, fp model.Fingerprint, since time.Time) (*model.Conflict, error)

	// TransitionConflict moves a conflict from one of the given statuses to
	// the target status. resolved_at is set only when to is resolved;
	// closed_at and resolved_by record the transition time and actor for
	// both terminal states. It returns
	// ErrNotFound when the id does not exist and ErrInvalidState when the
	// conflict exists but its status is not in from.
	TransitionConflict(ctx context.Context, id string, from []model.Status, to model.Status, actor string, at time.Time) (*model.Conflict, error)
	// LinkOptimization attaches a remediation task to a detected, unlinked
	// conflict and moves it to under_review in one guarded update.
	LinkOptimization(ctx context.Context, id, optimizationID string) (*model.Conflict, error)
	// GetByOptimizationID resolves the conflict linked to an optimization,
	// or ErrNotFound.
	GetByOptimizationID(ctx context.Context, optimizationID string) (*model.Conflict, error)

	// Audit trail
	RecordEvent(ctx context.Context, event *model.AuditEvent) error
	GetEvents(ctx context.Context, conflictID string) ([]*model.AuditEvent, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
