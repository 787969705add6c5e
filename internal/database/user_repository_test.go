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

func TestUserRepository_Checked_NeverResolved(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT checked_at FROM user_checked").
		WithArgs("ab12cdef", domain.UserCheckedModules).
		WillReturnRows(sqlmock.NewRows([]string{"checked_at"}))

	_, err := store.Users.Checked(context.Background(), "ab12cdef", domain.UserCheckedModules)
	if !errors.Is(err, database.ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestUserRepository_Checked_Resolved(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	checkedAt := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT checked_at FROM user_checked").
		WithArgs("ab12cdef", domain.UserCheckedExams).
		WillReturnRows(sqlmock.NewRows([]string{"checked_at"}).AddRow(checkedAt))

	got, err := store.Users.Checked(context.Background(), "ab12cdef", domain.UserCheckedExams)
	if err != nil {
		t.Fatalf("Checked() error = %v", err)
	}
	if !got.Equal(checkedAt) {
		t.Errorf("expected checked_at=%v, got %v", checkedAt, got)
	}

	expectationsMet(t, mock)
}

func TestUserRepository_SetChecked(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO user_checked .+ ON CONFLICT \(user_id, kind\) DO UPDATE SET checked_at = NOW\(\)`).
		WithArgs("ab12cdef", domain.UserCheckedCourses).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Users.SetChecked(context.Background(), store.DB(), "ab12cdef", domain.UserCheckedCourses)
	if err != nil {
		t.Fatalf("SetChecked() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestUserRepository_AddModules(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	ids := [][]byte{{0xA1}, {0xA2}}

	mock.ExpectExec(`INSERT INTO user_modules .+ ON CONFLICT DO NOTHING`).
		WithArgs("ab12cdef", ids[0]).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_modules .+ ON CONFLICT DO NOTHING`).
		WithArgs("ab12cdef", ids[1]).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Users.AddModules(context.Background(), store.DB(), "ab12cdef", ids); err != nil {
		t.Fatalf("AddModules() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestUserRepository_Exams(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	examStart := time.Date(2023, time.July, 20, 9, 0, 0, 0, time.UTC)
	examEnd := examStart.Add(90 * time.Minute)

	mock.ExpectQuery("SELECT .+ FROM exams e.+JOIN user_exams").
		WithArgs("ab12cdef").
		WillReturnRows(
			sqlmock.NewRows([]string{
				"tucan_id", "exam_type", "semester", "exam_start", "exam_end",
				"register_from", "register_to", "unregister_from", "unregister_to",
				"examiner", "room", "done",
			}).AddRow(
				[]byte{0xE1}, "Klausur", "SoSe 2023", examStart, examEnd,
				nil, nil, nil, nil, "Doe", "S202/C205", true,
			),
		)

	exams, err := store.Users.Exams(context.Background(), "ab12cdef")
	if err != nil {
		t.Fatalf("Exams() error = %v", err)
	}
	if len(exams) != 1 {
		t.Fatalf("expected 1 exam, got %d", len(exams))
	}
	if exams[0].ExamStart == nil || !exams[0].ExamStart.Equal(examStart) {
		t.Errorf("expected ExamStart=%v, got %v", examStart, exams[0].ExamStart)
	}
	if exams[0].RegisterFrom != nil {
		t.Errorf("expected nil RegisterFrom, got %v", exams[0].RegisterFrom)
	}

	expectationsMet(t, mock)
}
