package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/store"
)

// conflictColumns is the column list used for SELECT statements on the
// conflicts table.
const conflictColumns = `id, network_id, conflict_type, severity, status,
	node_a_id, node_b_id, members, detail, detected_at, detected_by,
	resolved_at, resolved_by, closed_at, recurrence_count, prior_conflict_id,
	linked_optimization_id`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (the fingerprint CAS losing an insert race).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func queryCreateConflict(ctx context.Context, db executor, c *model.Conflict) error {
	if err := model.ValidateConflict(c); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO conflicts (
			id, network_id, conflict_type, severity, status,
			node_a_id, node_b_id, members, detail, detected_at, detected_by,
			resolved_at, resolved_by, closed_at, recurrence_count, prior_conflict_id,
			linked_optimization_id
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17
		)`,
		c.ID,
		c.NetworkID,
		string(c.Type),
		string(c.Severity),
		string(c.Status),
		c.NodeAID,
		nullString(c.NodeBID),
		membersJSON(c.Members),
		c.Detail,
		c.DetectedAt,
		c.DetectedBy,
		nullTimePtr(c.ResolvedAt),
		c.ResolvedBy,
		nullTimePtr(c.ClosedAt),
		c.RecurrenceCount,
		nullString(c.PriorConflictID),
		nullString(c.LinkedOptimizationID),
	)
	if isUniqueViolation(err) {
		return store.ErrDuplicateOpen
	}
	return err
}

func queryGetConflict(ctx context.Context, db executor, id string) (*model.Conflict, error) {
	row := db.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM conflicts WHERE id = $1`, id)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return c, err
}

func queryListConflicts(ctx context.Context, db executor, filter model.ConflictFilter) ([]*model.Conflict, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.NetworkID != "" {
		whereClauses = append(whereClauses, "network_id = "+nextArg())
		args = append(args, filter.NetworkID)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(filter.Type) > 0 {
		placeholders := make([]string, len(filter.Type))
		for i, t := range filter.Type {
			placeholders[i] = nextArg()
			args = append(args, string(t))
		}
		whereClauses = append(whereClauses, "conflict_type IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(filter.Severity) > 0 {
		placeholders := make([]string, len(filter.Severity))
		for i, s := range filter.Severity {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "severity IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.ActiveSince != nil {
		// Windowed reads keep long-lived records that were resolved inside
		// the window, not just ones detected inside it.
		arg := nextArg()
		whereClauses = append(whereClauses, "(detected_at >= "+arg+" OR resolved_at >= "+arg+")")
		args = append(args, *filter.ActiveSince)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + conflictColumns +
		" FROM conflicts" + whereSQL + " ORDER BY detected_at DESC, id DESC"

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*model.Conflict
	var total int
	for rows.Next() {
		c, t, err := scanConflictWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conflicts: %w", err)
		}
		total = t
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan conflicts: %w", err)
	}

	return conflicts, total, nil
}

func queryOpenByFingerprint(ctx context.Context, db executor, fp model.Fingerprint) (*model.Conflict, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+conflictColumns+` FROM conflicts
		WHERE network_id = $1 AND conflict_type = $2 AND node_a_id = $3
		  AND COALESCE(node_b_id, '') = $4
		  AND status IN ('detected', 'under_review')`,
		fp.NetworkID, string(fp.Type), fp.NodeA, fp.NodeB,
	)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func queryLatestTerminalByFingerprint(ctx context.Context, db executor, fp model.Fingerprint, since time.Time) (*model.Conflict, error) {
	// closed_at is set on every terminal transition, so the recurrence
	// window runs from when the record was closed, not when it was detected.
	row := db.QueryRowContext(ctx, `
		SELECT `+conflictColumns+` FROM conflicts
		WHERE network_id = $1 AND conflict_type = $2 AND node_a_id = $3
		  AND COALESCE(node_b_id, '') = $4
		  AND status IN ('resolved', 'ignored')
		  AND closed_at >= $5
		ORDER BY closed_at DESC
		LIMIT 1`,
		fp.NetworkID, string(fp.Type), fp.NodeA, fp.NodeB, since,
	)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func queryTransitionConflict(ctx context.Context, db executor, id string, from []model.Status, to model.Status, actor string, at time.Time) (*model.Conflict, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	row := db.QueryRowContext(ctx, `
		UPDATE conflicts
		SET status = $2,
		    resolved_at = CASE WHEN $2 = 'resolved' THEN $3 ELSE resolved_at END,
		    resolved_by = CASE WHEN $2 IN ('resolved', 'ignored') THEN $4 ELSE resolved_by END,
		    closed_at = CASE WHEN $2 IN ('resolved', 'ignored') THEN $3 ELSE closed_at END
		WHERE id = $1 AND status = ANY($5)
		RETURNING `+conflictColumns,
		id, string(to), at, actor, pq.Array(fromStrs),
	)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing conflict from one in the wrong state.
		if _, getErr := queryGetConflict(ctx, db, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrInvalidState
	}
	return c, err
}

func queryLinkOptimization(ctx context.Context, db executor, id, optimizationID string) (*model.Conflict, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE conflicts
		SET linked_optimization_id = $2, status = 'under_review'
		WHERE id = $1 AND status = 'detected' AND linked_optimization_id IS NULL
		RETURNING `+conflictColumns,
		id, optimizationID,
	)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := queryGetConflict(ctx, db, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrInvalidState
	}
	return c, err
}

func queryGetByOptimizationID(ctx context.Context, db executor, optimizationID string) (*model.Conflict, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+conflictColumns+` FROM conflicts
		WHERE linked_optimization_id = $1`,
		optimizationID,
	)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return c, err
}

func queryRecordEvent(ctx context.Context, db executor, e *model.AuditEvent) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO audit_events (topic, conflict_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.ConflictID, e.Actor, []byte(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, conflictID string) ([]*model.AuditEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, conflict_id, actor, payload, created_at
		FROM audit_events
		WHERE conflict_id = $1
		ORDER BY created_at ASC`,
		conflictID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
