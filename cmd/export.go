package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/clipcast/config"
	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/store"
	"github.com/kilianp07/clipcast/infra/sqlite"
	"github.com/kilianp07/clipcast/pkg/export"
)

var (
	exportFormat   string
	exportOut      string
	exportPlatform string
	exportStatus   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export delivery attempts as JSON or CSV",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportPlatform, "platform", "", "filter by platform")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "filter by status")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	q := store.AttemptQuery{Platform: exportPlatform}
	if exportStatus != "" {
		status := model.AttemptStatus(exportStatus)
		if !status.Valid() {
			return fmt.Errorf("invalid status %q", exportStatus)
		}
		q.Status = status
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	attempts, err := st.Attempts(ctx, q)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	switch exportFormat {
	case "json":
		return export.WriteJSON(w, attempts)
	case "csv":
		return export.WriteCSV(w, attempts)
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
}
