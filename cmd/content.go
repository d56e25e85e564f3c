package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/infra/sqlite"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Content related commands",
}

var contentLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List content records with their success counts",
	RunE:  runContentLs,
}

func init() {
	contentCmd.AddCommand(contentLsCmd)
	rootCmd.AddCommand(contentCmd)
}

func runContentLs(cmd *cobra.Command, args []string) error {
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
	items, err := st.List(ctx)
	if err != nil {
		return err
	}
	counts, err := st.SuccessCounts(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("%-12s  %-30s scheduled=%s successes=%d\n",
			shortHash(item.Hash), item.Name, item.ScheduledAt.Format(time.RFC3339), counts[item.Hash])
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
