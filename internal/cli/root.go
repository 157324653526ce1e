// Package cli implements the labelstream operator commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rpggio/labelstream/internal/annotation"
	"github.com/rpggio/labelstream/internal/config"
	"github.com/rpggio/labelstream/internal/filestore"
	"github.com/rpggio/labelstream/internal/logging"
	"github.com/rpggio/labelstream/internal/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	configPath string

	logger *zap.Logger
	store  *annotation.Store
}

// Execute runs the command line in args. The store opened for the command is
// closed before Execute returns, whether or not the command succeeded.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	cmd := a.rootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labelstream",
		Short: "Text annotation store",
		Long: `labelstream manages annotation projects: import text records, maintain each
project's label vocabulary, label records and export the results.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: $"+config.PathEnv+")")

	cmd.AddCommand(
		a.newProjectsCmd(),
		a.newCreateCmd(),
		a.newDeleteCmd(),
		a.newShowCmd(),
		a.newDescribeCmd(),
		a.newLabelCmd(),
		a.newImportCmd(),
		a.newPageCmd(),
		a.newTagCmd(),
		a.newExportCmd(),
		a.newCheckCmd(),
	)
	return cmd
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	backend, err := openBackend(cfg)
	if err != nil {
		logger.Error("failed to open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
		return err
	}

	a.logger = logger
	a.store = annotation.New(backend, annotation.Options{
		LockWait:   cfg.Lock.WaitTimeout,
		RetryDelay: cfg.Retry.Delay,
	}, logger)
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	a.store = nil
	_ = a.logger.Sync()
}

func openBackend(cfg *config.Config) (annotation.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendFile:
		return filestore.Open(cfg.Store.Dir)
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Store.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		return sqlite.Open(cfg.Store.DBPath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
