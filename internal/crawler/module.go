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

// ModuleView is a module together with its associated courses. Courses may
// still be stubs; they become complete when resolved themselves.
type ModuleView struct {
	Module  domain.Module   `json:"module"`
	Courses []domain.Course `json:"courses"`
}

// ResolveModule returns the module for id, fetching and persisting it first
// unless a completed record is already cached.
func (r *Resolver) ResolveModule(ctx context.Context, id []byte) (*ModuleView, error) {
	log := r.opLog("resolve_module").With("tucan_id", fmt.Sprintf("%x", id))

	cached, err := r.store.Modules.GetDone(ctx, id)
	if err == nil {
		log.Debug("serving cached module")
		return r.moduleView(ctx, cached)
	}
	if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.ModuleDetails, ID: id})
	if err != nil {
		return nil, err
	}

	extracted, err := scrape.Module(doc, url)
	if err != nil {
		return nil, err
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.persistModule(ctx, tx, id, extracted)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("module persisted", "courses", len(extracted.Courses))

	fresh, err := r.store.Modules.GetDone(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.moduleView(ctx, fresh)
}

// persistModule writes the module, stub rows for every discovered course and
// the module-course associations in one transaction.
func (r *Resolver) persistModule(ctx context.Context, tx *sqlx.Tx, id []byte, extracted *scrape.ModuleDoc) error {
	credits := extracted.Credits
	module := &domain.Module{
		TucanID:  id,
		Title:    extracted.Title,
		ModuleID: extracted.ModuleID,
		Credits:  &credits,
		Content:  extracted.Content,
		Done:     true,
	}
	if err := r.store.Modules.Upsert(ctx, tx, module); err != nil {
		return err
	}

	stubs := make([]domain.Course, 0, len(extracted.Courses))
	for _, ref := range extracted.Courses {
		stubs = append(stubs, domain.Course{
			TucanID:  ref.ID,
			Title:    ref.Title,
			CourseID: ref.CourseID,
		})
	}
	if err := r.store.Courses.InsertStubs(ctx, tx, stubs); err != nil {
		return err
	}

	for _, ref := range extracted.Courses {
		if err := r.store.Modules.LinkCourse(ctx, tx, id, ref.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) moduleView(ctx context.Context, m *domain.Module) (*ModuleView, error) {
	courses, err := r.store.Modules.Courses(ctx, m.TucanID)
	if err != nil {
		return nil, err
	}
	return &ModuleView{Module: *m, Courses: courses}, nil
}
