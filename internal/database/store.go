package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotCached is returned by GetDone style reads when no completed record
// exists for the requested id. A stub row (done=false) also yields
// ErrNotCached: stubs are forward references, not authoritative content.
// Callers should check with errors.Is().
var ErrNotCached = errors.New("no completed record cached")

// Store bundles the entity repositories over one connection pool. All write
// primitives take a sqlx.ExtContext so they work both on the pool directly
// and inside a transaction started with WithTx.
type Store struct {
	db *sqlx.DB

	Modules *ModuleRepository
	Courses *CourseRepository
	Exams   *ExamRepository
	Menus   *MenuRepository
	Users   *UserRepository
}

// NewStore creates a store with all repositories sharing the given pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:      db,
		Modules: NewModuleRepository(db),
		Courses: NewCourseRepository(db),
		Exams:   NewExamRepository(db),
		Menus:   NewMenuRepository(db),
		Users:   NewUserRepository(db),
	}
}

// DB exposes the underlying pool for direct writes outside a transaction.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside a transaction. The transaction is the unit of crawl
// consistency: every multi-table write for one logical fetch goes through
// here, so a reader never sees a done parent whose children are missing.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if fnErr := fn(tx); fnErr != nil {
		return fnErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", commitErr)
	}
	return nil
}
