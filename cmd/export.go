package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/export"
	"github.com/jaibojo/txo-crm/internal/store"
)

var (
	exportRunID  string
	exportDir    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a completed run to XLSX or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runID := exportRunID
		if runID == "" {
			run, err := st.LatestRun(ctx)
			if err != nil {
				return eris.Wrap(err, "export: no completed run to export")
			}
			runID = run.ID
		}

		ids, err := st.ListIdentities(ctx, runID)
		if err != nil {
			return err
		}
		opps, err := st.ListOpportunities(ctx, runID)
		if err != nil {
			return err
		}

		switch exportFormat {
		case "xlsx":
			path := filepath.Join(exportDir, "funnel.xlsx")
			if err := export.WriteXLSX(path, ids, opps); err != nil {
				return err
			}
		case "csv":
			if err := export.WriteIdentitiesCSV(filepath.Join(exportDir, "identities.csv"), ids); err != nil {
				return err
			}
			if err := export.WriteOpportunitiesCSV(filepath.Join(exportDir, "opportunities.csv"), opps); err != nil {
				return err
			}
		default:
			return eris.Errorf("export: unknown format %q, want xlsx or csv", exportFormat)
		}

		zap.L().Info("export complete",
			zap.String("run", runID),
			zap.String("format", exportFormat),
			zap.String("dir", exportDir),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run id to export (default: latest completed run)")
	exportCmd.Flags().StringVar(&exportDir, "out", ".", "output directory")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx or csv")

	rootCmd.AddCommand(exportCmd)
}
