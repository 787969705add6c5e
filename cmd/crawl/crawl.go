// Package crawl implements the crawl subcommands that resolve portal pages
// through the cache-or-fetch pipeline and print the result as JSON.
package crawl

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/mohe2015/tucant/internal/config"
	"github.com/mohe2015/tucant/internal/crawler"
	"github.com/mohe2015/tucant/internal/database"
	"github.com/mohe2015/tucant/internal/domain"
	"github.com/mohe2015/tucant/internal/fetcher"
	"github.com/mohe2015/tucant/internal/logger"
)

// deps bundles everything a crawl subcommand needs at run time.
type deps struct {
	log      logger.Interface
	store    *database.Store
	resolver *crawler.Resolver
	userID   string
}

// Command builds the crawl command tree.
func Command(cfg *config.Config, log logger.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Resolve portal pages through the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		moduleCommand(cfg, log),
		courseCommand(cfg, log),
		examCommand(cfg, log),
		registrationCommand(cfg, log),
		listCommand(cfg, log, "my-modules", "Resolve the user's registered modules"),
		listCommand(cfg, log, "my-courses", "Resolve the user's registered courses"),
		listCommand(cfg, log, "my-exams", "Resolve the user's exams"),
		pathCommand(cfg, log),
	)

	return cmd
}

func moduleCommand(cfg *config.Config, log logger.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "module <hex-id>",
		Short: "Resolve a module details page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), cfg, log, func(ctx context.Context, d *deps) error {
				view, err := d.resolver.ResolveModule(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(view)
			})
		},
	}
}

func courseCommand(cfg *config.Config, log logger.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "course <hex-id>",
		Short: "Resolve a course or course group details page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), cfg, log, func(ctx context.Context, d *deps) error {
				result, err := d.resolver.ResolveCourse(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
}

func examCommand(cfg *config.Config, log logger.Interface) *cobra.Command {
	var moduleHex, courseHex string

	cmd := &cobra.Command{
		Use:   "exam <hex-id>",
		Short: "Resolve an exam details page, optionally linking it to an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var owner crawler.ExamOwner
			if moduleHex != "" {
				if owner.Module, err = parseID(moduleHex); err != nil {
					return err
				}
			}
			if courseHex != "" {
				if owner.Course, err = parseID(courseHex); err != nil {
					return err
				}
			}
			return withDeps(cmd.Context(), cfg, log, func(ctx context.Context, d *deps) error {
				exam, err := d.resolver.ResolveExam(ctx, id, owner)
				if err != nil {
					return err
				}
				return printJSON(exam)
			})
		},
	}

	cmd.Flags().StringVar(&moduleHex, "module", "", "hex id of the module this exam belongs to")
	cmd.Flags().StringVar(&courseHex, "course", "", "hex id of the course this exam belongs to")

	return cmd
}

func registrationCommand(cfg *config.Config, log logger.Interface) *cobra.Command {
	var walk bool

	cmd := &cobra.Command{
		Use:   "registration [hex-id]",
		Short: "Resolve a registration menu, starting at the root when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), cfg, log, func(ctx context.Context, d *deps) error {
				var id []byte
				if len(args) == 1 {
					parsed, err := parseID(args[0])
					if err != nil {
						return err
					}
					id = parsed
				} else {
					root, err := d.resolver.ResolveRegistrationRoot(ctx)
					if err != nil {
						return err
					}
					id = root.TucanID
				}

				if walk {
					return walkRegistration(ctx, d, id)
				}

				view, err := d.resolver.ResolveRegistration(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(view)
			})
		},
	}

	cmd.Flags().BoolVar(&walk, "walk", false, "recursively resolve the whole menu tree below the start")

	return cmd
}

// walkRegistration resolves the menu tree depth-first, printing each level.
func walkRegistration(ctx context.Context, d *deps, id []byte) error {
	view, err := d.resolver.ResolveRegistration(ctx, id)
	if err != nil {
		return err
	}
	if err := printJSON(view); err != nil {
		return err
	}
	for _, sub := range view.Submenus {
		if err := walkRegistration(ctx, d, sub.TucanID); err != nil {
			return err
		}
	}
	return nil
}

func listCommand(cfg *config.Config, log logger.Interface, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), cfg, log, func(ctx context.Context, d *deps) error {
				if d.userID == "" {
					return fmt.Errorf("portal.user_id must be configured for %s", use)
				}
				var view any
				var err error
				switch use {
				case "my-modules":
					view, err = d.resolver.ResolveMyModules(ctx, d.userID)
				case "my-courses":
					view, err = d.resolver.ResolveMyCourses(ctx, d.userID)
				case "my-exams":
					view, err = d.resolver.ResolveMyExams(ctx, d.userID)
				}
				if err != nil {
					return err
				}
				return printJSON(view)
			})
		},
	}
}

func pathCommand(cfg *config.Config, log logger.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "path <module-hex-id>",
		Short: "Print the registration menu paths leading to a cached module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), cfg, log, func(ctx context.Context, d *deps) error {
				parts, err := d.store.Menus.ModulePaths(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(parts)
			})
		},
	}
}

// withDeps builds the database connection, fetcher and resolver, runs fn,
// and tears the connection down afterwards.
func withDeps(ctx context.Context, cfg *config.Config, log logger.Interface, fn func(context.Context, *deps) error) error {
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	store := database.NewStore(db)

	client := &http.Client{Timeout: time.Duration(cfg.Portal.TimeoutSeconds) * time.Second}
	session := domain.Session{Nr: cfg.Portal.SessionNr, ID: cfg.Portal.SessionID}
	f := fetcher.New(client, cfg.Portal.BaseURL, semaphore.NewWeighted(cfg.Portal.FetchLimit), session, log)

	d := &deps{
		log:      log,
		store:    store,
		resolver: crawler.NewResolver(store, f, log),
		userID:   cfg.Portal.UserID,
	}

	return fn(ctx, d)
}

// parseID decodes a hex-encoded portal id.
func parseID(s string) ([]byte, error) {
	id, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex id %q: %w", s, err)
	}
	if len(id) == 0 {
		return nil, fmt.Errorf("id must not be empty")
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
