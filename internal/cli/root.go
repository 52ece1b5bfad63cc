// Package cli is the eventease command line: a local front end over the same ledgers
// the HTTP server uses.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eventease/backend/config"
	"github.com/eventease/backend/internal/app"
	"github.com/eventease/backend/pkg/kvstore"
)

var (
	Version = "dev"
	Commit  = "none"
)

// Options configure the root command.
type Options struct {
	// Store replaces the configured backend; tests pass a shared memory store.
	Store  kvstore.Store
	Logger *zap.Logger
}

type env struct {
	opts    Options
	app     *app.App
	driver  string
	sqlite  string
	asJSON  bool
	verbose bool
}

// NewRootCmd builds the eventease command tree.
func NewRootCmd(opts Options) *cobra.Command {
	root, _ := newRootCmd(opts)
	return root
}

func newRootCmd(opts Options) (*cobra.Command, *env) {
	e := &env{opts: opts}
	root := &cobra.Command{
		Use:     "eventease",
		Version: Version + " (" + Commit + ")",
		Short:   "Register for events and record attendance",
		Long: `eventease keeps event registrations and attendance records for the
logged-in user. State lives in the configured store (STORE_DRIVER), so the
CLI and the HTTP server see the same data.`,
		SilenceUsage:      true,
		PersistentPreRunE: e.open,
	}
	root.PersistentFlags().StringVar(&e.driver, "driver", "", "store driver (memory, sqlite, redis, postgres); overrides STORE_DRIVER")
	root.PersistentFlags().StringVar(&e.sqlite, "sqlite-path", "", "sqlite database file; overrides SQLITE_PATH")
	root.PersistentFlags().BoolVar(&e.asJSON, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(
		e.loginCmd(),
		e.logoutCmd(),
		e.whoamiCmd(),
		e.eventsCmd(),
		e.registerCmd(),
		e.cancelCmd(),
		e.registrationsCmd(),
		e.checkinCmd(),
		e.checkoutCmd(),
		e.attendanceCmd(),
		e.statsCmd(),
	)
	for _, cmd := range root.Commands() {
		e.closeAfter(cmd)
	}
	return root, e
}

// closeAfter closes the app once cmd's RunE returns. Cobra skips post-run hooks when
// RunE fails, so the close cannot live there.
func (e *env) closeAfter(cmd *cobra.Command) {
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		defer e.close()
		return run(cmd, args)
	}
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCmd(Options{}).Execute()
}

func (e *env) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if e.driver != "" {
		cfg.Store.Driver = e.driver
	}
	if e.sqlite != "" {
		cfg.Store.SQLitePath = e.sqlite
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := e.opts.Logger
	if logger == nil {
		logger = zap.NewNop()
		if e.verbose {
			logger, _ = zap.NewDevelopment()
		}
	}
	a, err := app.New(ctxOf(cmd), cfg, app.Options{Store: e.opts.Store}, logger)
	if err != nil {
		return err
	}
	e.app = a
	return nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Close()
		e.app = nil
	}
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (e *env) print(w io.Writer, v any, text func(io.Writer) error) error {
	if e.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}

func (e *env) requireEvent(id string) error {
	if _, ok := e.app.Catalog.Get(id); !ok {
		return fmt.Errorf("unknown event %q (see `eventease events`)", id)
	}
	return nil
}
