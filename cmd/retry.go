package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/core/store"
	"github.com/kilianp07/clipcast/infra/sqlite"
)

var retryCmd = &cobra.Command{
	Use:   "retry <content-hash> <platform>",
	Short: "Mark a pair for immediate retry, ignoring backoff",
	Args:  cobra.ExactArgs(2),
	RunE:  runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hash, platform := args[0], args[1]
	if _, err := st.Get(ctx, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("unknown content hash %s", hash)
		}
		return err
	}
	attempt, err := st.RequestRetry(ctx, hash, platform, time.Now().UTC(), "operator retry")
	if err != nil {
		if errors.Is(err, store.ErrClaimConflict) {
			return fmt.Errorf("an attempt for %s/%s is in flight", hash, platform)
		}
		return err
	}
	fmt.Printf("retry queued: %s/%s seq=%d\n", hash, platform, attempt.Seq)
	return nil
}
