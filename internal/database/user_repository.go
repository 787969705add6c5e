package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mohe2015/tucant/internal/domain"
)

// UserRepository handles the per-user entity associations and the coarse
// per-listing "last checked" markers.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Checked returns when a user's listing of the given kind was last fully
// resolved. A listing that has never been resolved yields ErrNotCached.
func (r *UserRepository) Checked(ctx context.Context, userID, kind string) (time.Time, error) {
	query := `SELECT checked_at FROM user_checked WHERE user_id = $1 AND kind = $2`

	var checkedAt time.Time
	if err := r.db.GetContext(ctx, &checkedAt, query, userID, kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotCached
		}
		return time.Time{}, fmt.Errorf("failed to get user checked marker: %w", err)
	}
	return checkedAt, nil
}

// SetChecked stamps a user's listing of the given kind as fully resolved
// now. Written in the same transaction as the association rows, so the
// marker never claims completeness for a partial listing.
func (r *UserRepository) SetChecked(ctx context.Context, q sqlx.ExtContext, userID, kind string) error {
	query := `
		INSERT INTO user_checked (user_id, kind, checked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, kind) DO UPDATE SET checked_at = NOW()
	`

	if _, err := q.ExecContext(ctx, query, userID, kind); err != nil {
		return fmt.Errorf("failed to set user checked marker: %w", err)
	}
	return nil
}

// AddModules records modules as belonging to a user's profile. Association
// rows are append-only.
func (r *UserRepository) AddModules(ctx context.Context, q sqlx.ExtContext, userID string, ids [][]byte) error {
	query := `INSERT INTO user_modules (user_id, module) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	for _, id := range ids {
		if _, err := q.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("failed to add user module: %w", err)
		}
	}
	return nil
}

// AddCourses records courses as belonging to a user's profile.
func (r *UserRepository) AddCourses(ctx context.Context, q sqlx.ExtContext, userID string, ids [][]byte) error {
	query := `INSERT INTO user_courses (user_id, course) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	for _, id := range ids {
		if _, err := q.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("failed to add user course: %w", err)
		}
	}
	return nil
}

// AddCourseGroups records course groups as belonging to a user's profile.
func (r *UserRepository) AddCourseGroups(ctx context.Context, q sqlx.ExtContext, userID string, ids [][]byte) error {
	query := `INSERT INTO user_course_groups (user_id, course_group) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	for _, id := range ids {
		if _, err := q.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("failed to add user course group: %w", err)
		}
	}
	return nil
}

// AddExams records exams as belonging to a user's profile.
func (r *UserRepository) AddExams(ctx context.Context, q sqlx.ExtContext, userID string, ids [][]byte) error {
	query := `INSERT INTO user_exams (user_id, exam) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	for _, id := range ids {
		if _, err := q.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("failed to add user exam: %w", err)
		}
	}
	return nil
}

// Modules returns the modules recorded for a user's profile.
func (r *UserRepository) Modules(ctx context.Context, userID string) ([]domain.Module, error) {
	query := `
		SELECT m.tucan_id, m.last_checked, m.title, m.module_id, m.credits, m.content, m.done
		FROM modules m
		JOIN user_modules um ON um.module = m.tucan_id
		WHERE um.user_id = $1
		ORDER BY m.tucan_id
	`

	var modules []domain.Module
	if err := r.db.SelectContext(ctx, &modules, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user modules: %w", err)
	}
	return modules, nil
}

// Courses returns the courses recorded for a user's profile.
func (r *UserRepository) Courses(ctx context.Context, userID string) ([]domain.Course, error) {
	query := `
		SELECT c.tucan_id, c.last_checked, c.title, c.course_id, c.sws, c.content, c.done
		FROM courses c
		JOIN user_courses uc ON uc.course = c.tucan_id
		WHERE uc.user_id = $1
		ORDER BY c.tucan_id
	`

	var courses []domain.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user courses: %w", err)
	}
	return courses, nil
}

// CourseGroups returns the course groups recorded for a user's profile.
func (r *UserRepository) CourseGroups(ctx context.Context, userID string) ([]domain.CourseGroup, error) {
	query := `
		SELECT g.tucan_id, g.course, g.title, g.done
		FROM course_groups g
		JOIN user_course_groups ug ON ug.course_group = g.tucan_id
		WHERE ug.user_id = $1
		ORDER BY g.tucan_id
	`

	var groups []domain.CourseGroup
	if err := r.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user course groups: %w", err)
	}
	return groups, nil
}

// Exams returns the exams recorded for a user's profile.
func (r *UserRepository) Exams(ctx context.Context, userID string) ([]domain.Exam, error) {
	query := `
		SELECT e.` + examColumnsPrefixed + `
		FROM exams e
		JOIN user_exams ue ON ue.exam = e.tucan_id
		WHERE ue.user_id = $1
		ORDER BY e.tucan_id
	`

	var exams []domain.Exam
	if err := r.db.SelectContext(ctx, &exams, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user exams: %w", err)
	}
	return exams, nil
}
