package crawler

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/mohe2015/tucant/internal/database"
	"github.com/mohe2015/tucant/internal/domain"
	"github.com/mohe2015/tucant/internal/scrape"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

// MyCoursesView partitions a user's course listing into courses and course
// groups, since the listing mixes both under one program kind.
type MyCoursesView struct {
	Courses []domain.Course      `json:"courses"`
	Groups  []domain.CourseGroup `json:"groups"`
}

// ResolveMyModules resolves a user's module listing: fetch the listing once,
// resolve every child concurrently, then record the associations and the
// listing marker in one transaction. A listing already marked checked is
// served from cache without any fetch.
func (r *Resolver) ResolveMyModules(ctx context.Context, userID string) ([]domain.Module, error) {
	log := r.opLog("resolve_my_modules").With("user", userID)

	if _, err := r.store.Users.Checked(ctx, userID, domain.UserCheckedModules); err == nil {
		log.Debug("serving cached module listing")
		return r.store.Users.Modules(ctx, userID)
	} else if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.MyModules})
	if err != nil {
		return nil, err
	}
	ids, err := scrape.MyModules(doc, url)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			_, resolveErr := r.ResolveModule(gctx, id)
			return resolveErr
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, waitErr
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if addErr := r.store.Users.AddModules(ctx, tx, userID, ids); addErr != nil {
			return addErr
		}
		return r.store.Users.SetChecked(ctx, tx, userID, domain.UserCheckedModules)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("module listing resolved", "modules", len(ids))

	return r.store.Users.Modules(ctx, userID)
}

// ResolveMyCourses resolves a user's course listing. Children may turn out
// to be courses or course groups; each is disambiguated by its own resolve
// and recorded in the matching association table.
func (r *Resolver) ResolveMyCourses(ctx context.Context, userID string) (*MyCoursesView, error) {
	log := r.opLog("resolve_my_courses").With("user", userID)

	if _, err := r.store.Users.Checked(ctx, userID, domain.UserCheckedCourses); err == nil {
		log.Debug("serving cached course listing")
		return r.myCoursesView(ctx, userID)
	} else if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.MyCourses})
	if err != nil {
		return nil, err
	}
	ids, err := scrape.MyCourses(doc, url)
	if err != nil {
		return nil, err
	}

	results := make([]*CourseResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			result, resolveErr := r.ResolveCourse(gctx, id)
			if resolveErr != nil {
				return resolveErr
			}
			results[i] = result
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, waitErr
	}

	var courseIDs, groupIDs [][]byte
	for i, result := range results {
		if result.Course != nil {
			courseIDs = append(courseIDs, ids[i])
		} else {
			groupIDs = append(groupIDs, ids[i])
		}
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if addErr := r.store.Users.AddCourses(ctx, tx, userID, courseIDs); addErr != nil {
			return addErr
		}
		if addErr := r.store.Users.AddCourseGroups(ctx, tx, userID, groupIDs); addErr != nil {
			return addErr
		}
		return r.store.Users.SetChecked(ctx, tx, userID, domain.UserCheckedCourses)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("course listing resolved", "courses", len(courseIDs), "groups", len(groupIDs))

	return r.myCoursesView(ctx, userID)
}

// ResolveMyExams resolves a user's exam listing.
func (r *Resolver) ResolveMyExams(ctx context.Context, userID string) ([]domain.Exam, error) {
	log := r.opLog("resolve_my_exams").With("user", userID)

	if _, err := r.store.Users.Checked(ctx, userID, domain.UserCheckedExams); err == nil {
		log.Debug("serving cached exam listing")
		return r.store.Users.Exams(ctx, userID)
	} else if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.MyExams})
	if err != nil {
		return nil, err
	}
	ids, err := scrape.MyExams(doc, url)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			_, resolveErr := r.ResolveExam(gctx, id, ExamOwner{})
			return resolveErr
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, waitErr
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if addErr := r.store.Users.AddExams(ctx, tx, userID, ids); addErr != nil {
			return addErr
		}
		return r.store.Users.SetChecked(ctx, tx, userID, domain.UserCheckedExams)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("exam listing resolved", "exams", len(ids))

	return r.store.Users.Exams(ctx, userID)
}

func (r *Resolver) myCoursesView(ctx context.Context, userID string) (*MyCoursesView, error) {
	courses, err := r.store.Users.Courses(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups, err := r.store.Users.CourseGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MyCoursesView{Courses: courses, Groups: groups}, nil
}
