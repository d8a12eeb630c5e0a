package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rankforge/linkmesh/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanConflict scans a single row into a model.Conflict.
// The row must contain columns in the order defined by conflictColumns.
func scanConflict(row scannable) (*model.Conflict, error) {
	var c model.Conflict
	var (
		nodeB       sql.NullString
		members     []byte
		detail      sql.NullString
		detectedBy  sql.NullString
		resolvedAt  sql.NullTime
		resolvedBy  sql.NullString
		closedAt    sql.NullTime
		priorID     sql.NullString
		linkedOptID sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.NetworkID,
		&c.Type,
		&c.Severity,
		&c.Status,
		&c.NodeAID,
		&nodeB,
		&members,
		&detail,
		&c.DetectedAt,
		&detectedBy,
		&resolvedAt,
		&resolvedBy,
		&closedAt,
		&c.RecurrenceCount,
		&priorID,
		&linkedOptID,
	)
	if err != nil {
		return nil, err
	}

	c.NodeBID = nodeB.String
	c.Detail = detail.String
	c.DetectedBy = detectedBy.String
	c.ResolvedBy = resolvedBy.String
	c.PriorConflictID = priorID.String
	c.LinkedOptimizationID = linkedOptID.String

	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	if closedAt.Valid {
		t := closedAt.Time
		c.ClosedAt = &t
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &c.Members); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// scanConflictWithTotal scans a row that has a leading total_count column
// followed by the standard conflict columns. Used by queryListConflicts with
// COUNT(*) OVER().
func scanConflictWithTotal(row scannable) (*model.Conflict, int, error) {
	var total int
	var c model.Conflict
	var (
		nodeB       sql.NullString
		members     []byte
		detail      sql.NullString
		detectedBy  sql.NullString
		resolvedAt  sql.NullTime
		resolvedBy  sql.NullString
		closedAt    sql.NullTime
		priorID     sql.NullString
		linkedOptID sql.NullString
	)

	err := row.Scan(
		&total,
		&c.ID,
		&c.NetworkID,
		&c.Type,
		&c.Severity,
		&c.Status,
		&c.NodeAID,
		&nodeB,
		&members,
		&detail,
		&c.DetectedAt,
		&detectedBy,
		&resolvedAt,
		&resolvedBy,
		&closedAt,
		&c.RecurrenceCount,
		&priorID,
		&linkedOptID,
	)
	if err != nil {
		return nil, 0, err
	}

	c.NodeBID = nodeB.String
	c.Detail = detail.String
	c.DetectedBy = detectedBy.String
	c.ResolvedBy = resolvedBy.String
	c.PriorConflictID = priorID.String
	c.LinkedOptimizationID = linkedOptID.String

	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	if closedAt.Valid {
		t := closedAt.Time
		c.ClosedAt = &t
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &c.Members); err != nil {
			return nil, 0, err
		}
	}

	return &c, total, nil
}

// scanEvent scans a single row into a model.AuditEvent.
func scanEvent(row scannable) (*model.AuditEvent, error) {
	var e model.AuditEvent
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.ConflictID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.AuditEvent pointers.
func scanEvents(rows *sql.Rows) ([]*model.AuditEvent, error) {
	var events []*model.AuditEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// membersJSON marshals a members slice for the JSONB column; empty slices
// store NULL.
func membersJSON(members []string) []byte {
	if len(members) == 0 {
		return nil
	}
	data, err := json.Marshal(members)
	if err != nil {
		return nil
	}
	return data
}
