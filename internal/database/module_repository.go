package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mohe2015/tucant/internal/domain"
)

// moduleColumns lists columns for SELECT queries on modules.
const moduleColumns = `tucan_id, last_checked, title, module_id, credits, content, done`

// ModuleRepository handles database operations for modules and their
// module-course / module-exam associations.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository creates a new module repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// GetDone returns the module if a completed record is cached.
// Stubs and missing rows yield ErrNotCached.
func (r *ModuleRepository) GetDone(ctx context.Context, id []byte) (*domain.Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM modules WHERE tucan_id = $1 AND done`

	var m domain.Module
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return &m, nil
}

// Courses returns the courses associated with a module, stubs included.
func (r *ModuleRepository) Courses(ctx context.Context, moduleID []byte) ([]domain.Course, error) {
	query := `
		SELECT c.tucan_id, c.last_checked, c.title, c.course_id, c.sws, c.content, c.done
		FROM courses c
		JOIN module_courses mc ON mc.course = c.tucan_id
		WHERE mc.module = $1
		ORDER BY c.tucan_id
	`

	var courses []domain.Course
	if err := r.db.SelectContext(ctx, &courses, query, moduleID); err != nil {
		return nil, fmt.Errorf("failed to list module courses: %w", err)
	}
	return courses, nil
}

// Exams returns the exams associated with a module, stubs included.
func (r *ModuleRepository) Exams(ctx context.Context, moduleID []byte) ([]domain.Exam, error) {
	query := `
		SELECT e.` + examColumnsPrefixed + `
		FROM exams e
		JOIN module_exams me ON me.exam = e.tucan_id
		WHERE me.module = $1
		ORDER BY e.tucan_id
	`

	var exams []domain.Exam
	if err := r.db.SelectContext(ctx, &exams, query, moduleID); err != nil {
		return nil, fmt.Errorf("failed to list module exams: %w", err)
	}
	return exams, nil
}

// Upsert inserts or refreshes a module row. done only ever moves from false
// to true, and a known credits value is never nulled by a fetch that lacks
// one.
func (r *ModuleRepository) Upsert(ctx context.Context, q sqlx.ExtContext, m *domain.Module) error {
	query := `
		INSERT INTO modules (tucan_id, last_checked, title, module_id, credits, content, done)
		VALUES ($1, NOW(), $2, $3, $4, $5, $6)
		ON CONFLICT (tucan_id) DO UPDATE SET
			last_checked = NOW(),
			title = EXCLUDED.title,
			module_id = EXCLUDED.module_id,
			credits = COALESCE(EXCLUDED.credits, modules.credits),
			content = EXCLUDED.content,
			done = modules.done OR EXCLUDED.done
	`

	_, err := q.ExecContext(ctx, query, m.TucanID, m.Title, m.ModuleID, m.Credits, m.Content, m.Done)
	if err != nil {
		return fmt.Errorf("failed to upsert module: %w", err)
	}
	return nil
}

// InsertStubs inserts forward-reference rows for modules discovered inside a
// parent document. An existing row, stub or complete, is left untouched.
func (r *ModuleRepository) InsertStubs(ctx context.Context, q sqlx.ExtContext, stubs []domain.Module) error {
	query := `
		INSERT INTO modules (tucan_id, last_checked, title, module_id, content, done)
		VALUES ($1, NOW(), $2, $3, '', FALSE)
		ON CONFLICT (tucan_id) DO NOTHING
	`

	for i := range stubs {
		s := &stubs[i]
		if _, err := q.ExecContext(ctx, query, s.TucanID, s.Title, s.ModuleID); err != nil {
			return fmt.Errorf("failed to insert module stub: %w", err)
		}
	}
	return nil
}

// LinkCourse records a module-course association.
func (r *ModuleRepository) LinkCourse(ctx context.Context, q sqlx.ExtContext, moduleID, courseID []byte) error {
	query := `INSERT INTO module_courses (module, course) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := q.ExecContext(ctx, query, moduleID, courseID); err != nil {
		return fmt.Errorf("failed to link module course: %w", err)
	}
	return nil
}

// LinkExam records a module-exam association.
func (r *ModuleRepository) LinkExam(ctx context.Context, q sqlx.ExtContext, moduleID, examID []byte) error {
	query := `INSERT INTO module_exams (module, exam) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := q.ExecContext(ctx, query, moduleID, examID); err != nil {
		return fmt.Errorf("failed to link module exam: %w", err)
	}
	return nil
}
