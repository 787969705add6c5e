package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mohe2015/tucant/internal/domain"
)

// menuColumns lists columns for SELECT queries on module_menu.
const menuColumns = `tucan_id, last_checked, name, normalized_name, child_type, parent, done`

// MenuRepository handles database operations for the registration tree.
type MenuRepository struct {
	db *sqlx.DB
}

// NewMenuRepository creates a new menu repository.
func NewMenuRepository(db *sqlx.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// GetDone returns the menu node if a completed record is cached.
// Stubs and missing rows yield ErrNotCached.
func (r *MenuRepository) GetDone(ctx context.Context, id []byte) (*domain.ModuleMenu, error) {
	query := `SELECT ` + menuColumns + ` FROM module_menu WHERE tucan_id = $1 AND done`

	var m domain.ModuleMenu
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("failed to get menu node: %w", err)
	}
	return &m, nil
}

// Submenus returns the child menu nodes of a menu node.
func (r *MenuRepository) Submenus(ctx context.Context, parent []byte) ([]domain.ModuleMenu, error) {
	query := `SELECT ` + menuColumns + ` FROM module_menu WHERE parent = $1 ORDER BY name, tucan_id`

	var menus []domain.ModuleMenu
	if err := r.db.SelectContext(ctx, &menus, query, parent); err != nil {
		return nil, fmt.Errorf("failed to list submenus: %w", err)
	}
	return menus, nil
}

// Modules returns the modules attached to a module-leaf menu node, stubs
// included.
func (r *MenuRepository) Modules(ctx context.Context, menuID []byte) ([]domain.Module, error) {
	query := `
		SELECT m.tucan_id, m.last_checked, m.title, m.module_id, m.credits, m.content, m.done
		FROM modules m
		JOIN module_menu_modules mm ON mm.module = m.tucan_id
		WHERE mm.module_menu = $1
		ORDER BY m.tucan_id
	`

	var modules []domain.Module
	if err := r.db.SelectContext(ctx, &modules, query, menuID); err != nil {
		return nil, fmt.Errorf("failed to list menu modules: %w", err)
	}
	return modules, nil
}

// Upsert inserts or refreshes a menu node. Three invariants live in the
// conflict clause: done only ever moves from false to true, a known parent
// is never nulled by an upsert that lacks one, and the child type is fixed
// once it is determined.
func (r *MenuRepository) Upsert(ctx context.Context, q sqlx.ExtContext, m *domain.ModuleMenu) error {
	query := `
		INSERT INTO module_menu (tucan_id, last_checked, name, normalized_name, child_type, parent, done)
		VALUES ($1, NOW(), $2, $3, $4, $5, $6)
		ON CONFLICT (tucan_id) DO UPDATE SET
			last_checked = NOW(),
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			child_type = CASE WHEN module_menu.child_type = 0
				THEN EXCLUDED.child_type ELSE module_menu.child_type END,
			parent = COALESCE(module_menu.parent, EXCLUDED.parent),
			done = module_menu.done OR EXCLUDED.done
	`

	_, err := q.ExecContext(ctx, query,
		m.TucanID, m.Name, m.NormalizedName, m.ChildType, m.Parent, m.Done,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert menu node: %w", err)
	}
	return nil
}

// InsertStubs inserts forward-reference rows for submenus discovered on a
// parent menu page. The parent back-pointer is part of the stub; an existing
// row, stub or complete, is left untouched.
func (r *MenuRepository) InsertStubs(ctx context.Context, q sqlx.ExtContext, stubs []domain.ModuleMenu) error {
	query := `
		INSERT INTO module_menu (tucan_id, last_checked, name, normalized_name, child_type, parent, done)
		VALUES ($1, NOW(), $2, $3, 0, $4, FALSE)
		ON CONFLICT (tucan_id) DO NOTHING
	`

	for i := range stubs {
		s := &stubs[i]
		if _, err := q.ExecContext(ctx, query, s.TucanID, s.Name, s.NormalizedName, s.Parent); err != nil {
			return fmt.Errorf("failed to insert menu stub: %w", err)
		}
	}
	return nil
}

// SetParent records the parent back-pointer of an existing node, without
// ever overwriting a parent that is already known.
func (r *MenuRepository) SetParent(ctx context.Context, q sqlx.ExtContext, id, parent []byte) error {
	query := `UPDATE module_menu SET parent = $2 WHERE tucan_id = $1 AND parent IS NULL`

	if _, err := q.ExecContext(ctx, query, id, parent); err != nil {
		return fmt.Errorf("failed to set menu parent: %w", err)
	}
	return nil
}

// LinkModule attaches a module to a module-leaf menu node.
func (r *MenuRepository) LinkModule(ctx context.Context, q sqlx.ExtContext, menuID, moduleID []byte) error {
	query := `INSERT INTO module_menu_modules (module_menu, module) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := q.ExecContext(ctx, query, menuID, moduleID); err != nil {
		return fmt.Errorf("failed to link menu module: %w", err)
	}
	return nil
}

// ModulePaths returns, for one module, every breadcrumb step from the menu
// nodes the module hangs under up to the tree root. Leaf marks the steps the
// module is directly attached to; callers reassemble the chains via the
// parent pointers.
func (r *MenuRepository) ModulePaths(ctx context.Context, moduleID []byte) ([]domain.MenuPathPart, error) {
	query := `
		WITH RECURSIVE path (tucan_id, name, parent, leaf) AS (
			SELECT m.tucan_id, m.name, m.parent, TRUE
			FROM module_menu m
			JOIN module_menu_modules mm ON mm.module_menu = m.tucan_id
			WHERE mm.module = $1
			UNION
			SELECT m.tucan_id, m.name, m.parent, FALSE
			FROM module_menu m
			JOIN path p ON p.parent = m.tucan_id
		)
		SELECT tucan_id, name, parent, leaf FROM path
	`

	var parts []domain.MenuPathPart
	if err := r.db.SelectContext(ctx, &parts, query, moduleID); err != nil {
		return nil, fmt.Errorf("failed to resolve module menu path: %w", err)
	}
	return parts, nil
}
