// Package cli implements walkerctl, the operator command line for LazyWalker.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"example.com/lazywalker/internal/app"
	"example.com/lazywalker/internal/config"
	"example.com/lazywalker/internal/domain"
	"example.com/lazywalker/internal/observability"
)

type options struct {
	driver     string
	sqlitePath string
	postgres   string
	verbose    bool
}

// env is resolved once per invocation in PersistentPreRunE.
type env struct {
	opts   options
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand builds walkerctl. Output goes to the command's out writer so
// tests can capture it.
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "walkerctl",
		Short:         "Operate the LazyWalker progression engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.opts.driver, "driver", "", "storage driver (postgres or sqlite), overrides STORAGE_DRIVER")
	flags.StringVar(&e.opts.sqlitePath, "sqlite-path", "", "SQLite database path, overrides SQLITE_PATH")
	flags.StringVar(&e.opts.postgres, "postgres-url", "", "Postgres connection string, overrides POSTGRES_URL")
	flags.BoolVarP(&e.opts.verbose, "verbose", "v", false, "log progression steps to stderr")

	root.AddCommand(newMigrateCmd(e))
	root.AddCommand(newProgressCmd(e))
	root.AddCommand(newWalksCmd(e))
	root.AddCommand(newTokenCmd(e))
	root.AddCommand(newDLQCmd(e))

	return root
}

// Execute runs walkerctl against os.Args.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "walkerctl:", err)
		return 1
	}
	return 0
}

func (e *env) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if e.opts.driver != "" {
		cfg.StorageDriver = e.opts.driver
	}
	if e.opts.sqlitePath != "" {
		cfg.SQLitePath = e.opts.sqlitePath
	}
	if e.opts.postgres != "" {
		cfg.PostgresURL = e.opts.postgres
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg

	if e.opts.verbose {
		e.logger = observability.NewLogger("debug", "text", cmd.ErrOrStderr())
	} else {
		e.logger = observability.DiscardLogger()
	}
	return nil
}

// withService opens the configured backend for the duration of fn.
func (e *env) withService(ctx context.Context, fn func(*domain.Service) error) error {
	backend, err := app.OpenBackend(ctx, e.cfg, false)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc, err := app.NewService(e.cfg, backend.Store, e.logger)
	if err != nil {
		return err
	}
	return fn(svc)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
