// Package cmd defines and implements the CLI commands for the
// inspire-crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inspirehep/inspire-crawler/internal/app"
	"github.com/inspirehep/inspire-crawler/internal/config"
	"github.com/inspirehep/inspire-crawler/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory, replaceable in tests.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspire-crawler",
		Short: "Coordination service for asynchronous crawl jobs.",
		Long: `inspire-crawler schedules crawls on an external crawl service, tracks
each job's lifecycle in durable storage, and ingests the produced records
into the downstream workflow pipeline once a crawl finishes.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newScheduleCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSpidersCmd())
	cmd.AddCommand(newJobCmd())
	cmd.AddCommand(newWorkflowCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// warnExit prints a colored warning for user-facing "not found" conditions
// and terminates with exit code 1. All other failures propagate as errors.
func warnExit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\x1b[33m"+format+"\x1b[0m\n", args...)
	os.Exit(1)
}
