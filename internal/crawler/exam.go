package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mohe2015/tucant/internal/database"
	"github.com/mohe2015/tucant/internal/domain"
	"github.com/mohe2015/tucant/internal/scrape"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

// ExamOwner names the entity an exam offering was discovered under. An exam
// can hang off a module, a course or both; unset fields are simply not
// linked.
type ExamOwner struct {
	Module []byte
	Course []byte
}

// ResolveExam returns the exam for id, fetching and persisting it first
// unless a completed record is already cached. Owner associations are
// recorded either way, so a cached exam still gains a newly discovered
// owner.
func (r *Resolver) ResolveExam(ctx context.Context, id []byte, owner ExamOwner) (*domain.Exam, error) {
	log := r.opLog("resolve_exam").With("tucan_id", fmt.Sprintf("%x", id))

	cached, err := r.store.Exams.GetDone(ctx, id)
	if err == nil {
		log.Debug("serving cached exam")
		if owner.Module != nil || owner.Course != nil {
			if linkErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
				return r.linkExamOwner(ctx, tx, id, owner)
			}); linkErr != nil {
				return nil, linkErr
			}
		}
		return cached, nil
	}
	if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.ExamDetails, ID: id})
	if err != nil {
		return nil, err
	}

	extracted, err := scrape.Exam(doc, url)
	if err != nil {
		return nil, err
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		exam := &domain.Exam{
			TucanID:        id,
			ExamType:       extracted.ExamType,
			Semester:       extracted.Semester,
			ExamStart:      extracted.ExamStart,
			ExamEnd:        extracted.ExamEnd,
			RegisterFrom:   extracted.RegisterFrom,
			RegisterTo:     extracted.RegisterTo,
			UnregisterFrom: extracted.UnregisterFrom,
			UnregisterTo:   extracted.UnregisterTo,
			Examiner:       extracted.Examiner,
			Room:           extracted.Room,
			Done:           true,
		}
		if upsertErr := r.store.Exams.Upsert(ctx, tx, exam); upsertErr != nil {
			return upsertErr
		}
		return r.linkExamOwner(ctx, tx, id, owner)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("exam persisted")

	return r.store.Exams.GetDone(ctx, id)
}

// linkExamOwner records the owner associations, creating stub rows first so
// the links never dangle.
func (r *Resolver) linkExamOwner(ctx context.Context, tx *sqlx.Tx, examID []byte, owner ExamOwner) error {
	if owner.Module != nil {
		stub := []domain.Module{{TucanID: owner.Module}}
		if err := r.store.Modules.InsertStubs(ctx, tx, stub); err != nil {
			return err
		}
		if err := r.store.Modules.LinkExam(ctx, tx, owner.Module, examID); err != nil {
			return err
		}
	}
	if owner.Course != nil {
		stub := []domain.Course{{TucanID: owner.Course}}
		if err := r.store.Courses.InsertStubs(ctx, tx, stub); err != nil {
			return err
		}
		if err := r.store.Courses.LinkExam(ctx, tx, owner.Course, examID); err != nil {
			return err
		}
	}
	return nil
}
