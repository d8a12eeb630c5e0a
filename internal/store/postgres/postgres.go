// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateConflict(ctx context.Context, c *model.Conflict) error {
	return queryCreateConflict(ctx, s.db, c)
}

func (s *PostgresStore) GetConflict(ctx context.Context, id string) (*model.Conflict, error) {
	return queryGetConflict(ctx, s.db, id)
}

func (s *PostgresStore) ListConflicts(ctx context.Context, filter model.ConflictFilter) ([]*model.Conflict, int, error) {
	return queryListConflicts(ctx, s.db, filter)
}

func (s *PostgresStore) OpenByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.Conflict, error) {
	return queryOpenByFingerprint(ctx, s.db, fp)
}

func (s *PostgresStore) LatestTerminalByFingerprint(ctx context.Context, fp model.Fingerprint, since time.Time) (*model.Conflict, error) {
	return queryLatestTerminalByFingerprint(ctx, s.db, fp, since)
}

func (s *PostgresStore) TransitionConflict(ctx context.Context, id string, from []model.Status, to model.Status, actor string, at time.Time) (*model.Conflict, error) {
	return queryTransitionConflict(ctx, s.db, id, from, to, actor, at)
}

func (s *PostgresStore) LinkOptimization(ctx context.Context, id, optimizationID string) (*model.Conflict, error) {
	return queryLinkOptimization(ctx, s.db, id, optimizationID)
}

func (s *PostgresStore) GetByOptimizationID(ctx context.Context, optimizationID string) (*model.Conflict, error) {
	return queryGetByOptimizationID(ctx, s.db, optimizationID)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.AuditEvent) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, conflictID string) ([]*model.AuditEvent, error) {
	return queryGetEvents(ctx, s.db, conflictID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateConflict(ctx context.Context, c *model.Conflict) error {
	return queryCreateConflict(ctx, s.tx, c)
}

func (s *txStore) GetConflict(ctx context.Context, id string) (*model.Conflict, error) {
	return queryGetConflict(ctx, s.tx, id)
}

func (s *txStore) ListConflicts(ctx context.Context, filter model.ConflictFilter) ([]*model.Conflict, int, error) {
	return queryListConflicts(ctx, s.tx, filter)
}

func (s *txStore) OpenByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.Conflict, error) {
	return queryOpenByFingerprint(ctx, s.tx, fp)
}

func (s *txStore) LatestTerminalByFingerprint(ctx context.Context, fp model.Fingerprint, since time.Time) (*model.Conflict, error) {
	return queryLatestTerminalByFingerprint(ctx, s.tx, fp, since)
}

func (s *txStore) TransitionConflict(ctx context.Context, id string, from []model.Status, to model.Status, actor string, at time.Time) (*model.Conflict, error) {
	return queryTransitionConflict(ctx, s.tx, id, from, to, actor, at)
}

func (s *txStore) LinkOptimization(ctx context.Context, id, optimizationID string) (*model.Conflict, error) {
	return queryLinkOptimization(ctx, s.tx, id, optimizationID)
}

func (s *txStore) GetByOptimizationID(ctx context.Context, optimizationID string) (*model.Conflict, error) {
	return queryGetByOptimizationID(ctx, s.tx, optimizationID)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.AuditEvent) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, conflictID string) ([]*model.AuditEvent, error) {
	return queryGetEvents(ctx, s.tx, conflictID)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
