package model

import (
	"fmt"
	"time"
)

// ConflictType identifies the detection rule that produced a conflict.
type ConflictType string

const (
	TypeOrphan                    ConflictType = "orphan"
	TypeTierInversion             ConflictType = "tier_inversion"
	TypeMultipleParentsToMain     ConflictType = "multiple_parents_to_main"
	TypeRedirectLoop              ConflictType = "redirect_loop"
	TypeCanonicalMismatch         ConflictType = "canonical_mismatch"
	TypeCanonicalRedirectConflict ConflictType = "canonical_redirect_conflict"
	TypeIndexNoindexMismatch      ConflictType = "index_noindex_mismatch"
	TypeNoindexHighTier           ConflictType = "noindex_high_tier"
	TypeKeywordCannibalization    ConflictType = "keyword_cannibalization"
	TypeCompetingTargets          ConflictType = "competing_targets"
	TypeDanglingTarget            ConflictType = "dangling_target"
	TypeMissingMain               ConflictType = "missing_main"
)

// String returns the string representation of the conflict type.
func (t ConflictType) String() string {
	return string(t)
}

// IsValid checks whether the conflict type is a known value.
func (t ConflictType) IsValid() bool {
	switch t {
	case TypeOrphan, TypeTierInversion, TypeMultipleParentsToMain,
		TypeRedirectLoop, TypeCanonicalMismatch, TypeCanonicalRedirectConflict,
		TypeIndexNoindexMismatch, TypeNoindexHighTier,
		TypeKeywordCannibalization, TypeCompetingTargets,
		TypeDanglingTarget, TypeMissingMain:
		return true
	}
	return false
}

// Severity ranks how damaging a conflict is to the network.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid checks whether the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Status represents the current state of a conflict in its lifecycle.
type Status string

const (
	StatusDetected    Status = "detected"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
	StatusIgnored     Status = "ignored"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDetected, StatusUnderReview, StatusResolved, StatusIgnored:
		return true
	}
	return false
}

// IsOpen reports whether the status is a non-terminal state.
func (s Status) IsOpen() bool {
	return s == StatusDetected || s == StatusUnderReview
}

// IsTerminal reports whether the status is a terminal state. Terminal records
// are never mutated; a re-detection creates a new record instead.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusIgnored
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// transition. Resolution is allowed directly from detected (manual resolve);
// no other transition skips a state, and terminal states have no exits.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDetected:
		return next == StatusUnderReview || next == StatusResolved || next == StatusIgnored
	case StatusUnderReview:
		return next == StatusResolved || next == StatusIgnored
	}
	return false
}

// OpenStatuses lists the non-terminal statuses, used for fingerprint
// uniqueness checks and guarded transitions.
func OpenStatuses() []Status {
	return []Status{StatusDetected, StatusUnderReview}
}

// Fingerprint is the dedup identity of a conflict: at most one open conflict
// may exist per fingerprint at any time.
type Fingerprint struct {
	NetworkID string       `json:"network_id"`
	Type      ConflictType `json:"conflict_type"`
	NodeA     string       `json:"node_a_id"`
	NodeB     string       `json:"node_b_id,omitempty"`
}

// String returns the canonical string form of the fingerprint, usable as a
// map key.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", f.NetworkID, f.Type, f.NodeA, f.NodeB)
}

// Conflict is a persisted detection finding tracked through the resolution
// workflow. Conflicts are never hard-deleted; terminal records remain for
// metrics and recurrence history.
type Conflict struct {
	ID                   string       `json:"id"`
	NetworkID            string       `json:"network_id"`
	Type                 ConflictType `json:"conflict_type"`
	Severity             Severity     `json:"severity"`
	Status               Status       `json:"status"`
	NodeAID              string       `json:"node_a_id"`
	NodeBID              string       `json:"node_b_id,omitempty"`
	Members              []string     `json:"members,omitempty"` // all nodes in a cycle or cluster
	Detail               string       `json:"detail,omitempty"`
	DetectedAt           time.Time    `json:"detected_at"`
	DetectedBy           string       `json:"detected_by,omitempty"`
	ResolvedAt           *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy           string       `json:"resolved_by,omitempty"`
	ClosedAt             *time.Time   `json:"closed_at,omitempty"` // set on every terminal transition; recurrence windows run from here
	RecurrenceCount      int          `json:"recurrence_count"`
	PriorConflictID      string       `json:"prior_conflict_id,omitempty"` // lineage to the prior terminal record
	LinkedOptimizationID string       `json:"linked_optimization_id,omitempty"`
}

// Fingerprint returns the conflict's dedup identity.
func (c *Conflict) Fingerprint() Fingerprint {
	return Fingerprint{
		NetworkID: c.NetworkID,
		Type:      c.Type,
		NodeA:     c.NodeAID,
		NodeB:     c.NodeBID,
	}
}
