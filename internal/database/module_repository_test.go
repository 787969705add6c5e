package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/mohe2015/tucant/internal/database"
	"github.com/mohe2015/tucant/internal/domain"
)

// moduleColumns lists the columns returned by modules SELECT queries.
var moduleColumns = []string{
	"tucan_id", "last_checked", "title", "module_id", "credits", "content", "done",
}

func TestModuleRepository_GetDone_Hit(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()
	credits := int32(6)

	mock.ExpectQuery("SELECT .+ FROM modules WHERE tucan_id = .+ AND done").
		WithArgs([]byte{0xA1}).
		WillReturnRows(
			sqlmock.NewRows(moduleColumns).AddRow(
				[]byte{0xA1}, now, "Intro to Systems", "MOD-101", credits, "<td>blurb</td>", true,
			),
		)

	m, err := store.Modules.GetDone(ctx, []byte{0xA1})
	if err != nil {
		t.Fatalf("GetDone() error = %v", err)
	}
	if m.Title != "Intro to Systems" {
		t.Errorf("expected Title=Intro to Systems, got %s", m.Title)
	}
	if m.ModuleID != "MOD-101" {
		t.Errorf("expected ModuleID=MOD-101, got %s", m.ModuleID)
	}
	if m.Credits == nil || *m.Credits != 6 {
		t.Errorf("expected Credits=6, got %v", m.Credits)
	}
	if !m.Done {
		t.Error("expected Done=true")
	}

	expectationsMet(t, mock)
}

func TestModuleRepository_GetDone_Miss(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .+ FROM modules WHERE tucan_id = .+ AND done").
		WithArgs([]byte{0xA1}).
		WillReturnRows(sqlmock.NewRows(moduleColumns))

	_, err := store.Modules.GetDone(context.Background(), []byte{0xA1})
	if !errors.Is(err, database.ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestModuleRepository_Upsert_MonotonicDone(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	credits := int32(9)
	m := &domain.Module{
		TucanID:  []byte{0xA1},
		Title:    "Operating Systems",
		ModuleID: "MOD-202",
		Credits:  &credits,
		Content:  "<td>content</td>",
		Done:     true,
	}

	// done may only move false -> true, and an absent credits value must
	// not null out a stored one.
	mock.ExpectExec(`INSERT INTO modules .+ done = modules\.done OR EXCLUDED\.done`).
		WithArgs(m.TucanID, m.Title, m.ModuleID, m.Credits, m.Content, m.Done).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Modules.Upsert(context.Background(), store.DB(), m); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestModuleRepository_InsertStubs_IgnoresConflicts(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	stubs := []domain.Module{
		{TucanID: []byte{0xB1}, Title: "stub one"},
		{TucanID: []byte{0xB2}, Title: "stub two"},
	}

	mock.ExpectExec(`INSERT INTO modules .+ ON CONFLICT \(tucan_id\) DO NOTHING`).
		WithArgs(stubs[0].TucanID, stubs[0].Title, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// second stub already cached: zero rows affected, still no error
	mock.ExpectExec(`INSERT INTO modules .+ ON CONFLICT \(tucan_id\) DO NOTHING`).
		WithArgs(stubs[1].TucanID, stubs[1].Title, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Modules.InsertStubs(context.Background(), store.DB(), stubs); err != nil {
		t.Fatalf("InsertStubs() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestModuleRepository_Courses(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM courses c.+JOIN module_courses").
		WithArgs([]byte{0xA1}).
		WillReturnRows(
			sqlmock.NewRows([]string{"tucan_id", "last_checked", "title", "course_id", "sws", "content", "done"}).
				AddRow([]byte{0xB1}, now, "stub one", "", int16(0), "", false).
				AddRow([]byte{0xB2}, now, "stub two", "", int16(0), "", false),
		)

	courses, err := store.Modules.Courses(context.Background(), []byte{0xA1})
	if err != nil {
		t.Fatalf("Courses() error = %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(courses))
	}
	if courses[0].Done || courses[1].Done {
		t.Error("expected stub rows with done=false")
	}

	expectationsMet(t, mock)
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	execErr := errors.New("constraint violation")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO modules").
		WillReturnError(execErr)
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return store.Modules.Upsert(context.Background(), tx, &domain.Module{TucanID: []byte{0xA1}, Done: true})
	})
	if !errors.Is(err, execErr) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestStore_WithTx_Commits(t *testing.T) {
	store, mock, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO modules").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return store.Modules.Upsert(context.Background(), tx, &domain.Module{TucanID: []byte{0xA1}, Done: true})
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	expectationsMet(t, mock)
}
