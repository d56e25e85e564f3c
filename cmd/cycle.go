package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/clipcast/app"
	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/infra/logger"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single dispatch cycle and exit",
	RunE:  runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("cycle-command").Errorf("service close: %v", err)
		}
	}()

	rep, err := svc.Coordinator.RunCycle(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("attempted=%d succeeded=%d failed=%d skipped=%d reaped=%d\n",
		rep.Attempted, rep.Succeeded, rep.Failed, rep.Skipped, rep.Reaped)
	return nil
}
