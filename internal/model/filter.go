package model

import "time"

// ConflictFilter holds criteria for querying conflicts.
type ConflictFilter struct {
	NetworkID     string         `json:"network_id,omitempty"`
	Status        []Status       `json:"status,omitempty"`
	Type          []ConflictType `json:"type,omitempty"`
	Severity      []Severity     `json:"severity,omitempty"`
	ActiveSince   *time.Time     `json:"active_since,omitempty"` // window start for metrics reads: detected or resolved after this instant
	Limit         int            `json:"limit,omitempty"`
	Offset        int            `json:"offset,omitempty"`
}
