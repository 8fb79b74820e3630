// Command sweeper demotes expired subscriptions outside the API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sflix/server/internal/app"
	"github.com/sflix/server/internal/shared/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "sweeper",
	Short:         "Expiry sweeper for subscriptions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep on the configured interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := newWorker()
		if err != nil {
			return err
		}
		defer worker.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		worker.Sweeper().Start()
		worker.Logger().Info("sweeper running")
		<-ctx.Done()
		worker.Logger().Info("sweeper stopping")
		return nil
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single sweep and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := newWorker()
		if err != nil {
			return err
		}
		defer worker.Close()

		result, err := worker.Sweeper().RunOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		worker.Logger().Info("sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("demoted", result.Demoted),
			zap.Int("failed", result.Failed),
		)
		return nil
	},
}

func newWorker() (*app.Worker, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.NewWorker(cfg)
}

func init() {
	rootCmd.AddCommand(runCmd, onceCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
