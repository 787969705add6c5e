package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmoiron/sqlx"

	"github.com/mohe2015/tucant/internal/database"
	"github.com/mohe2015/tucant/internal/domain"
	"github.com/mohe2015/tucant/internal/logger"
	"github.com/mohe2015/tucant/internal/scrape"
	"github.com/mohe2015/tucant/internal/tucanurl"
)

// CourseView is a course with its groups and schedule events.
type CourseView struct {
	Course domain.Course        `json:"course"`
	Groups []domain.CourseGroup `json:"groups"`
	Events []domain.CourseEvent `json:"events"`
}

// CourseGroupView is a course group with its schedule events.
type CourseGroupView struct {
	Group  domain.CourseGroup        `json:"group"`
	Events []domain.CourseGroupEvent `json:"events"`
}

// CourseResult is the outcome of resolving a course address. The portal
// serves courses and course groups under the same program kind, so exactly
// one of the two fields is set.
type CourseResult struct {
	Course *CourseView      `json:"course,omitempty"`
	Group  *CourseGroupView `json:"group,omitempty"`
}

// ResolveCourse returns the course or course group for id. Both caches are
// checked before fetching; when both miss, one fetch decides which extractor
// runs, so the ambiguity never costs a second request.
func (r *Resolver) ResolveCourse(ctx context.Context, id []byte) (*CourseResult, error) {
	log := r.opLog("resolve_course").With("tucan_id", fmt.Sprintf("%x", id))

	course, err := r.store.Courses.GetDone(ctx, id)
	if err == nil {
		log.Debug("serving cached course")
		return r.courseResult(ctx, course)
	}
	if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	group, err := r.store.Courses.GetGroupDone(ctx, id)
	if err == nil {
		log.Debug("serving cached course group")
		return r.groupResult(ctx, group)
	}
	if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.CourseDetails, ID: id})
	if err != nil {
		return nil, err
	}

	if scrape.IsCourseGroup(doc) {
		return r.resolveFetchedGroup(ctx, log, id, doc, url)
	}
	return r.resolveFetchedCourse(ctx, log, id, doc, url)
}

func (r *Resolver) resolveFetchedCourse(
	ctx context.Context,
	log logger.Interface,
	id []byte,
	doc *goquery.Document,
	url string,
) (*CourseResult, error) {
	extracted, err := scrape.Course(doc, url)
	if err != nil {
		return nil, err
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.persistCourse(ctx, tx, id, extracted)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("course persisted", "groups", len(extracted.Groups), "events", len(extracted.Events))

	fresh, err := r.store.Courses.GetDone(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.courseResult(ctx, fresh)
}

func (r *Resolver) resolveFetchedGroup(
	ctx context.Context,
	log logger.Interface,
	id []byte,
	doc *goquery.Document,
	url string,
) (*CourseResult, error) {
	extracted, err := scrape.CourseGroup(doc, url)
	if err != nil {
		return nil, err
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.persistGroup(ctx, tx, id, extracted)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("course group persisted", "events", len(extracted.Events))

	fresh, err := r.store.Courses.GetGroupDone(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.groupResult(ctx, fresh)
}

// persistCourse writes the course, stub rows for its groups and its
// schedule events in one transaction.
func (r *Resolver) persistCourse(ctx context.Context, tx *sqlx.Tx, id []byte, extracted *scrape.CourseDoc) error {
	course := &domain.Course{
		TucanID:  id,
		Title:    extracted.Title,
		CourseID: extracted.CourseID,
		SWS:      extracted.SWS,
		Content:  extracted.Content,
		Done:     true,
	}
	if err := r.store.Courses.Upsert(ctx, tx, course); err != nil {
		return err
	}

	stubs := make([]domain.CourseGroup, 0, len(extracted.Groups))
	for _, ref := range extracted.Groups {
		stubs = append(stubs, domain.CourseGroup{
			TucanID: ref.ID,
			Course:  id,
			Title:   ref.Title,
		})
	}
	if err := r.store.Courses.InsertGroupStubs(ctx, tx, stubs); err != nil {
		return err
	}

	events := make([]domain.CourseEvent, 0, len(extracted.Events))
	for _, ev := range extracted.Events {
		events = append(events, domain.CourseEvent{
			Course:   id,
			Start:    ev.Start,
			End:      ev.End,
			Room:     ev.Room,
			Teachers: ev.Teachers,
		})
	}
	return r.store.Courses.UpsertEvents(ctx, tx, events)
}

func (r *Resolver) persistGroup(ctx context.Context, tx *sqlx.Tx, id []byte, extracted *scrape.CourseGroupDoc) error {
	group := &domain.CourseGroup{
		TucanID: id,
		Title:   extracted.Title,
		Done:    true,
	}
	if err := r.store.Courses.UpsertGroup(ctx, tx, group); err != nil {
		return err
	}

	events := make([]domain.CourseGroupEvent, 0, len(extracted.Events))
	for _, ev := range extracted.Events {
		events = append(events, domain.CourseGroupEvent{
			Group:    id,
			Start:    ev.Start,
			End:      ev.End,
			Room:     ev.Room,
			Teachers: ev.Teachers,
		})
	}
	return r.store.Courses.UpsertGroupEvents(ctx, tx, events)
}

func (r *Resolver) courseResult(ctx context.Context, c *domain.Course) (*CourseResult, error) {
	groups, err := r.store.Courses.Groups(ctx, c.TucanID)
	if err != nil {
		return nil, err
	}
	events, err := r.store.Courses.Events(ctx, c.TucanID)
	if err != nil {
		return nil, err
	}
	return &CourseResult{Course: &CourseView{Course: *c, Groups: groups, Events: events}}, nil
}

func (r *Resolver) groupResult(ctx context.Context, g *domain.CourseGroup) (*CourseResult, error) {
	events, err := r.store.Courses.GroupEvents(ctx, g.TucanID)
	if err != nil {
		return nil, err
	}
	return &CourseResult{Group: &CourseGroupView{Group: *g, Events: events}}, nil
}
