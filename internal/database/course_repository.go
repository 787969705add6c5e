package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mohe2015/tucant/internal/domain"
)

const (
	// courseColumns lists columns for SELECT queries on courses.
	courseColumns = `tucan_id, last_checked, title, course_id, sws, content, done`
	// courseGroupColumns lists columns for SELECT queries on course_groups.
	courseGroupColumns = `tucan_id, course, title, done`
)

// CourseRepository handles database operations for courses, course groups
// and their schedule events.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// GetDone returns the course if a completed record is cached.
// Stubs and missing rows yield ErrNotCached.
func (r *CourseRepository) GetDone(ctx context.Context, id []byte) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE tucan_id = $1 AND done`

	var c domain.Course
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &c, nil
}

// GetGroupDone returns the course group if a completed record is cached.
// Stubs and missing rows yield ErrNotCached.
func (r *CourseRepository) GetGroupDone(ctx context.Context, id []byte) (*domain.CourseGroup, error) {
	query := `SELECT ` + courseGroupColumns + ` FROM course_groups WHERE tucan_id = $1 AND done`

	var g domain.CourseGroup
	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("failed to get course group: %w", err)
	}
	return &g, nil
}

// Groups returns the course groups of a course, stubs included.
func (r *CourseRepository) Groups(ctx context.Context, courseID []byte) ([]domain.CourseGroup, error) {
	query := `SELECT ` + courseGroupColumns + ` FROM course_groups WHERE course = $1 ORDER BY tucan_id`

	var groups []domain.CourseGroup
	if err := r.db.SelectContext(ctx, &groups, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list course groups: %w", err)
	}
	return groups, nil
}

// Events returns the schedule events of a course.
func (r *CourseRepository) Events(ctx context.Context, courseID []byte) ([]domain.CourseEvent, error) {
	query := `
		SELECT course, start_at, end_at, room, teachers
		FROM course_events
		WHERE course = $1
		ORDER BY start_at, end_at, room
	`

	var events []domain.CourseEvent
	if err := r.db.SelectContext(ctx, &events, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list course events: %w", err)
	}
	return events, nil
}

// GroupEvents returns the schedule events of a course group.
func (r *CourseRepository) GroupEvents(ctx context.Context, groupID []byte) ([]domain.CourseGroupEvent, error) {
	query := `
		SELECT course_group, start_at, end_at, room, teachers
		FROM course_group_events
		WHERE course_group = $1
		ORDER BY start_at, end_at, room
	`

	var events []domain.CourseGroupEvent
	if err := r.db.SelectContext(ctx, &events, query, groupID); err != nil {
		return nil, fmt.Errorf("failed to list course group events: %w", err)
	}
	return events, nil
}

// Upsert inserts or refreshes a course row. done only ever moves from false
// to true.
func (r *CourseRepository) Upsert(ctx context.Context, q sqlx.ExtContext, c *domain.Course) error {
	query := `
		INSERT INTO courses (tucan_id, last_checked, title, course_id, sws, content, done)
		VALUES ($1, NOW(), $2, $3, $4, $5, $6)
		ON CONFLICT (tucan_id) DO UPDATE SET
			last_checked = NOW(),
			title = EXCLUDED.title,
			course_id = EXCLUDED.course_id,
			sws = EXCLUDED.sws,
			content = EXCLUDED.content,
			done = courses.done OR EXCLUDED.done
	`

	_, err := q.ExecContext(ctx, query, c.TucanID, c.Title, c.CourseID, c.SWS, c.Content, c.Done)
	if err != nil {
		return fmt.Errorf("failed to upsert course: %w", err)
	}
	return nil
}

// UpsertGroup inserts or refreshes a course group row. The owning course is
// never nulled by an upsert that lacks it.
func (r *CourseRepository) UpsertGroup(ctx context.Context, q sqlx.ExtContext, g *domain.CourseGroup) error {
	query := `
		INSERT INTO course_groups (tucan_id, course, title, done)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tucan_id) DO UPDATE SET
			course = COALESCE(EXCLUDED.course, course_groups.course),
			title = EXCLUDED.title,
			done = course_groups.done OR EXCLUDED.done
	`

	if _, err := q.ExecContext(ctx, query, g.TucanID, g.Course, g.Title, g.Done); err != nil {
		return fmt.Errorf("failed to upsert course group: %w", err)
	}
	return nil
}

// InsertStubs inserts forward-reference rows for courses discovered inside a
// parent document. An existing row, stub or complete, is left untouched.
func (r *CourseRepository) InsertStubs(ctx context.Context, q sqlx.ExtContext, stubs []domain.Course) error {
	query := `
		INSERT INTO courses (tucan_id, last_checked, title, course_id, content, done)
		VALUES ($1, NOW(), $2, $3, '', FALSE)
		ON CONFLICT (tucan_id) DO NOTHING
	`

	for i := range stubs {
		s := &stubs[i]
		if _, err := q.ExecContext(ctx, query, s.TucanID, s.Title, s.CourseID); err != nil {
			return fmt.Errorf("failed to insert course stub: %w", err)
		}
	}
	return nil
}

// InsertGroupStubs inserts forward-reference rows for course groups
// discovered on a course page.
func (r *CourseRepository) InsertGroupStubs(ctx context.Context, q sqlx.ExtContext, stubs []domain.CourseGroup) error {
	query := `
		INSERT INTO course_groups (tucan_id, course, title, done)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (tucan_id) DO NOTHING
	`

	for i := range stubs {
		s := &stubs[i]
		if _, err := q.ExecContext(ctx, query, s.TucanID, s.Course, s.Title); err != nil {
			return fmt.Errorf("failed to insert course group stub: %w", err)
		}
	}
	return nil
}

// UpsertEvents writes schedule events of a course. Events are keyed by
// (course, start, end, room); on conflict only the teachers change, which
// tolerates minor drift in the source tables.
func (r *CourseRepository) UpsertEvents(ctx context.Context, q sqlx.ExtContext, events []domain.CourseEvent) error {
	query := `
		INSERT INTO course_events (course, start_at, end_at, room, teachers)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (course, start_at, end_at, room) DO UPDATE SET
			teachers = EXCLUDED.teachers
	`

	for i := range events {
		e := &events[i]
		if _, err := q.ExecContext(ctx, query, e.Course, e.Start, e.End, e.Room, e.Teachers); err != nil {
			return fmt.Errorf("failed to upsert course event: %w", err)
		}
	}
	return nil
}

// UpsertGroupEvents writes schedule events of a course group.
func (r *CourseRepository) UpsertGroupEvents(ctx context.Context, q sqlx.ExtContext, events []domain.CourseGroupEvent) error {
	query := `
		INSERT INTO course_group_events (course_group, start_at, end_at, room, teachers)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (course_group, start_at, end_at, room) DO UPDATE SET
			teachers = EXCLUDED.teachers
	`

	for i := range events {
		e := &events[i]
		if _, err := q.ExecContext(ctx, query, e.Group, e.Start, e.End, e.Room, e.Teachers); err != nil {
			return fmt.Errorf("failed to upsert course group event: %w", err)
		}
	}
	return nil
}

// LinkExam records a course-exam association.
func (r *CourseRepository) LinkExam(ctx context.Context, q sqlx.ExtContext, courseID, examID []byte) error {
	query := `INSERT INTO course_exams (course, exam) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := q.ExecContext(ctx, query, courseID, examID); err != nil {
		return fmt.Errorf("failed to link course exam: %w", err)
	}
	return nil
}
