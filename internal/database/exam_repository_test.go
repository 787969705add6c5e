package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mohe2015/tucant/internal/database"
	"github.com/mohe2015/tucant/internal/domain"
)

func TestExamRepository_GetDone_Miss(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .+ FROM exams WHERE tucan_id = .+ AND done").
		WithArgs([]byte{0xE1}).
		WillReturnRows(sqlmock.NewRows([]string{"tucan_id"}))

	_, err := store.Exams.GetDone(context.Background(), []byte{0xE1})
	if !errors.Is(err, database.ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestExamRepository_Upsert_KeepsKnownWindows(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	examStart := time.Date(2023, time.July, 20, 9, 0, 0, 0, time.UTC)
	examEnd := examStart.Add(90 * time.Minute)
	e := &domain.Exam{
		TucanID:   []byte{0xE1},
		ExamType:  "Klausur",
		Semester:  "SoSe 2023",
		ExamStart: &examStart,
		ExamEnd:   &examEnd,
		Examiner:  "Doe",
		Room:      "S202/C205",
		Done:      true,
	}

	// absent registration windows must not null stored ones
	mock.ExpectExec(`INSERT INTO exams .+ register_from = COALESCE\(EXCLUDED\.register_from, exams\.register_from\)`).
		WithArgs(
			e.TucanID, e.ExamType, e.Semester, e.ExamStart, e.ExamEnd,
			nil, nil, nil, nil, e.Examiner, e.Room, e.Done,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Exams.Upsert(context.Background(), store.DB(), e); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	expectationsMet(t, mock)
}
