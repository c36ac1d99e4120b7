// Package cli implements the shoal command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/shoal/internal/collection"
	"github.com/llehouerou/shoal/internal/config"
	"github.com/llehouerou/shoal/internal/errmsg"
	"github.com/llehouerou/shoal/internal/logging"
)

var version = "dev"

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// opError is a command failure printed with errmsg formatting.
type opError struct {
	op      errmsg.Op
	context string
	err     error
}

func (e *opError) Error() string { return errmsg.FormatWith(e.op, e.context, e.err) }
func (e *opError) Unwrap() error { return e.err }

func fail(op errmsg.Op, err error) error {
	return &opError{op: op, err: err}
}

func failWith(op errmsg.Op, context string, err error) error {
	return &opError{op: op, context: context, err: err}
}

// app is the state shared by every command, filled before each run.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "shoal",
		Short: "Query a local music collection",
		Long: `shoal - a music collection query service.

Tracks are stored in a SQLite collection and queried with XML queries,
either from the command line or over D-Bus by other programs.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: XDG config dir, then ./config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newQueryCmd(a),
		newAddCmd(a),
		newMountsCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fail(errmsg.OpConfigLoad, err)
	}

	logCfg := a.cfg.GetLogConfig()
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	}
	a.logger = logging.SetupWriter(cmd.ErrOrStderr(), logCfg.Level, *logCfg.Console)
	return nil
}

func (a *app) openCollection(ctx context.Context) (*collection.Collection, error) {
	path, err := a.cfg.DatabasePath()
	if err != nil {
		return nil, fail(errmsg.OpCollectionOpen, err)
	}
	q := a.cfg.GetQueryConfig()
	c, err := collection.Open(ctx, collection.Options{
		Path:          path,
		MountPoints:   a.cfg.Collection.MountPoints,
		Workers:       q.Workers,
		BatchSize:     q.BatchSize,
		SweepInterval: a.cfg.GetRegistryConfig().SweepInterval,
		Logger:        &a.logger,
	})
	if err != nil {
		return nil, failWith(errmsg.OpCollectionOpen, path, err)
	}
	a.logger.Debug().
		Str("collection", c.ID()).
		Str("path", path).
		Msg("collection opened")
	return c, nil
}

// openManager opens the local collection followed by every configured
// collection database. The databases must exist.
func (a *app) openManager(ctx context.Context) (*collection.Manager, error) {
	local, err := a.openCollection(ctx)
	if err != nil {
		return nil, err
	}
	mgr := collection.NewManager()
	mgr.Add(local)

	q := a.cfg.GetQueryConfig()
	for _, path := range a.cfg.Collection.Databases {
		if _, err := os.Stat(path); err != nil {
			mgr.Close()
			return nil, failWith(errmsg.OpCollectionOpen, path, err)
		}
		c, err := collection.Open(ctx, collection.Options{
			Path:          path,
			Workers:       q.Workers,
			BatchSize:     q.BatchSize,
			SweepInterval: a.cfg.GetRegistryConfig().SweepInterval,
			Logger:        &a.logger,
		})
		if err != nil {
			mgr.Close()
			return nil, failWith(errmsg.OpCollectionOpen, path, err)
		}
		a.logger.Debug().
			Str("collection", c.ID()).
			Str("path", path).
			Msg("collection opened")
		mgr.Add(c)
	}
	return mgr, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shoal %s\n", version)
		},
	}
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}
