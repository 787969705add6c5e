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
	// examColumns lists columns for SELECT queries on exams.
	examColumns = `tucan_id, exam_type, semester, exam_start, exam_end,
		register_from, register_to, unregister_from, unregister_to,
		examiner, room, done`
	// examColumnsPrefixed is examColumns with every column qualified as e
	// for joined queries.
	examColumnsPrefixed = `tucan_id, e.exam_type, e.semester, e.exam_start, e.exam_end,
		e.register_from, e.register_to, e.unregister_from, e.unregister_to,
		e.examiner, e.room, e.done`
)

// ExamRepository handles database operations for exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// GetDone returns the exam if a completed record is cached.
// Stubs and missing rows yield ErrNotCached.
func (r *ExamRepository) GetDone(ctx context.Context, id []byte) (*domain.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams WHERE tucan_id = $1 AND done`

	var e domain.Exam
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &e, nil
}

// Upsert inserts or refreshes an exam row. done only ever moves from false
// to true; known schedule and window timestamps are never nulled by a fetch
// that lacks them.
func (r *ExamRepository) Upsert(ctx context.Context, q sqlx.ExtContext, e *domain.Exam) error {
	query := `
		INSERT INTO exams (tucan_id, exam_type, semester, exam_start, exam_end,
			register_from, register_to, unregister_from, unregister_to,
			examiner, room, done)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tucan_id) DO UPDATE SET
			exam_type = EXCLUDED.exam_type,
			semester = EXCLUDED.semester,
			exam_start = COALESCE(EXCLUDED.exam_start, exams.exam_start),
			exam_end = COALESCE(EXCLUDED.exam_end, exams.exam_end),
			register_from = COALESCE(EXCLUDED.register_from, exams.register_from),
			register_to = COALESCE(EXCLUDED.register_to, exams.register_to),
			unregister_from = COALESCE(EXCLUDED.unregister_from, exams.unregister_from),
			unregister_to = COALESCE(EXCLUDED.unregister_to, exams.unregister_to),
			examiner = EXCLUDED.examiner,
			room = EXCLUDED.room,
			done = exams.done OR EXCLUDED.done
	`

	_, err := q.ExecContext(ctx, query,
		e.TucanID, e.ExamType, e.Semester, e.ExamStart, e.ExamEnd,
		e.RegisterFrom, e.RegisterTo, e.UnregisterFrom, e.UnregisterTo,
		e.Examiner, e.Room, e.Done,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exam: %w", err)
	}
	return nil
}

// InsertStubs inserts forward-reference rows for exams discovered inside a
// listing. An existing row, stub or complete, is left untouched.
func (r *ExamRepository) InsertStubs(ctx context.Context, q sqlx.ExtContext, stubs []domain.Exam) error {
	query := `
		INSERT INTO exams (tucan_id, exam_type, semester, done)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (tucan_id) DO NOTHING
	`

	for i := range stubs {
		s := &stubs[i]
		if _, err := q.ExecContext(ctx, query, s.TucanID, s.ExamType, s.Semester); err != nil {
			return fmt.Errorf("failed to insert exam stub: %w", err)
		}
	}
	return nil
}
