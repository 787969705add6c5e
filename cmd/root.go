// Package cmd implements the command-line interface for the tucant crawler.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mohe2015/tucant/cmd/crawl"
	"github.com/mohe2015/tucant/internal/config"
	"github.com/mohe2015/tucant/internal/logger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug forces debug-level console logging regardless of config.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "tucant",
		Short: "A crawl-and-cache frontend for the TUCaN campus portal",
		Long: `tucant crawls the session-authenticated TUCaN campus portal and
caches modules, courses, exams and registration menus in PostgreSQL.
Completed records are served from the cache without touching the portal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, environment variables win)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so the config layer sees its variables.
	_ = godotenv.Load()

	// Parse flags before building the logger so --debug takes effect.
	_ = rootCmd.ParseFlags(os.Args[1:])

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck // stdout sync errors are expected on some platforms

	rootCmd.AddCommand(crawl.Command(cfg, log))

	return rootCmd.ExecuteContext(context.Background())
}
