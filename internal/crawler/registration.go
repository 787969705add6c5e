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

// RegistrationView is one resolved level of the registration tree. A node
// has either submenu children or module children, never both; recursing
// into submenus is the caller's call, one level at a time.
type RegistrationView struct {
	Menu     domain.ModuleMenu   `json:"menu"`
	Submenus []domain.ModuleMenu `json:"submenus,omitempty"`
	Modules  []domain.Module     `json:"modules,omitempty"`
}

// ResolveRegistrationRoot discovers the root of the registration tree. The
// root page is addressed without an id, so there is nothing to cache
// against; every call fetches.
func (r *Resolver) ResolveRegistrationRoot(ctx context.Context) (*domain.ModuleMenu, error) {
	log := r.opLog("resolve_registration_root")

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.RootRegistration})
	if err != nil {
		return nil, err
	}

	ref, err := scrape.RootRegistration(doc, url)
	if err != nil {
		return nil, err
	}

	root := domain.ModuleMenu{
		TucanID:        ref.ID,
		Name:           ref.Name,
		NormalizedName: scrape.Slugify(ref.Name),
	}
	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.store.Menus.InsertStubs(ctx, tx, []domain.ModuleMenu{root})
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("registration root discovered", "tucan_id", fmt.Sprintf("%x", ref.ID))

	return &root, nil
}

// ResolveRegistration resolves one node of the registration tree: classify
// it as submenu-level or module-level, persist the node and its typed
// children with parent back-pointers, and return the level. A node cached
// as done is served without a fetch.
func (r *Resolver) ResolveRegistration(ctx context.Context, id []byte) (*RegistrationView, error) {
	log := r.opLog("resolve_registration").With("tucan_id", fmt.Sprintf("%x", id))

	cached, err := r.store.Menus.GetDone(ctx, id)
	if err == nil {
		log.Debug("serving cached menu node")
		return r.registrationView(ctx, cached)
	}
	if !errors.Is(err, database.ErrNotCached) {
		return nil, err
	}

	doc, url, err := r.fetcher.Fetch(ctx, tucanurl.Program{Kind: tucanurl.Registration, ID: id})
	if err != nil {
		return nil, err
	}

	extracted, err := scrape.Registration(doc, url, id)
	if err != nil {
		return nil, err
	}

	if txErr := r.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.persistRegistration(ctx, tx, id, extracted)
	}); txErr != nil {
		return nil, txErr
	}
	log.Info("menu node persisted",
		"child_type", extracted.ChildType,
		"submenus", len(extracted.Menus),
		"modules", len(extracted.Modules))

	fresh, err := r.store.Menus.GetDone(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.registrationView(ctx, fresh)
}

// persistRegistration writes the node and its children in one transaction.
// Submenu children get the parent back-pointer both on the stub insert and,
// for rows that already existed, via SetParent.
func (r *Resolver) persistRegistration(ctx context.Context, tx *sqlx.Tx, id []byte, extracted *scrape.RegistrationDoc) error {
	menu := &domain.ModuleMenu{
		TucanID:        id,
		Name:           extracted.Name,
		NormalizedName: scrape.Slugify(extracted.Name),
		ChildType:      extracted.ChildType,
		Done:           true,
	}
	if err := r.store.Menus.Upsert(ctx, tx, menu); err != nil {
		return err
	}

	for _, ref := range extracted.Menus {
		stub := domain.ModuleMenu{
			TucanID:        ref.ID,
			Name:           ref.Name,
			NormalizedName: scrape.Slugify(ref.Name),
			Parent:         id,
		}
		if err := r.store.Menus.InsertStubs(ctx, tx, []domain.ModuleMenu{stub}); err != nil {
			return err
		}
		if err := r.store.Menus.SetParent(ctx, tx, ref.ID, id); err != nil {
			return err
		}
	}

	for _, entry := range extracted.Modules {
		if err := r.persistModuleEntry(ctx, tx, id, entry); err != nil {
			return err
		}
	}
	return nil
}

// persistModuleEntry writes one module offered on a module-leaf page: its
// stub, the menu attachment, and stub rows plus associations for the
// courses listed beneath its header.
func (r *Resolver) persistModuleEntry(ctx context.Context, tx *sqlx.Tx, menuID []byte, entry scrape.ModuleEntry) error {
	stub := domain.Module{
		TucanID:  entry.ID,
		Title:    entry.Title,
		ModuleID: scrape.Slugify(entry.Title),
	}
	if err := r.store.Modules.InsertStubs(ctx, tx, []domain.Module{stub}); err != nil {
		return err
	}
	if err := r.store.Menus.LinkModule(ctx, tx, menuID, entry.ID); err != nil {
		return err
	}

	courses := make([]domain.Course, 0, len(entry.Courses))
	for _, ref := range entry.Courses {
		courses = append(courses, domain.Course{
			TucanID:  ref.ID,
			Title:    ref.Title,
			CourseID: ref.CourseID,
		})
	}
	if err := r.store.Courses.InsertStubs(ctx, tx, courses); err != nil {
		return err
	}
	for _, ref := range entry.Courses {
		if err := r.store.Modules.LinkCourse(ctx, tx, entry.ID, ref.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) registrationView(ctx context.Context, menu *domain.ModuleMenu) (*RegistrationView, error) {
	view := &RegistrationView{Menu: *menu}

	switch menu.ChildType {
	case domain.MenuChildMenus:
		submenus, err := r.store.Menus.Submenus(ctx, menu.TucanID)
		if err != nil {
			return nil, err
		}
		view.Submenus = submenus
	case domain.MenuChildModules:
		modules, err := r.store.Menus.Modules(ctx, menu.TucanID)
		if err != nil {
			return nil, err
		}
		view.Modules = modules
	}
	return view, nil
}
