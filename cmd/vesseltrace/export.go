package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vesselworks/vesseltrace/pkg/cost"
	"github.com/vesselworks/vesseltrace/pkg/engine"
	"github.com/vesselworks/vesseltrace/pkg/export"
	"github.com/vesselworks/vesseltrace/pkg/store"
)

var exportSerials []string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export asset history reports",
	Long: `Export renders per-asset history reports as JSON and writes them to
the destinations configured in the export section. Without --serial
every asset in the record set is exported.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringArrayVar(&exportSerials, "serial", nil,
		"serial number to export (repeatable)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Export == nil {
		return fmt.Errorf("export section is required in config")
	}

	ctx := context.Background()

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() { _ = st.Stop() }()

	eng := engine.New(log, st, st, cost.Rates{
		LaborPerHour: cfg.Rates.LaborPerHour,
		QCPerHour:    cfg.Rates.QCPerHour,
	})

	exp, err := export.NewExporter(log, eng, cfg.Export)
	if err != nil {
		return fmt.Errorf("creating exporter: %w", err)
	}

	if err := exp.Export(ctx, exportSerials); err != nil {
		return fmt.Errorf("exporting reports: %w", err)
	}

	return nil
}
