package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/ingest"
	"github.com/jaibojo/txo-crm/internal/model"
	"github.com/jaibojo/txo-crm/internal/pipeline"
	"github.com/jaibojo/txo-crm/internal/store"
)

var (
	runClientsPath string
	runSpocsPath   string
	runMboxPath    string
	runEnrichPath  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full lead pipeline over the given exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var raws []model.RawRecord

		if runSpocsPath != "" {
			crm, err := ingest.ReadCRM(runClientsPath, runSpocsPath)
			if err != nil {
				return err
			}
			raws = append(raws, crm...)
		}
		if runMboxPath != "" {
			mail, err := ingest.ReadMbox(runMboxPath, cfg.Ingest.OwnDomains)
			if err != nil {
				return err
			}
			raws = append(raws, mail...)
		}
		if runEnrichPath != "" {
			enriched, err := ingest.ReadEnrichment(runEnrichPath)
			if err != nil {
				return err
			}
			raws = append(raws, enriched...)
		}
		if len(raws) == 0 {
			return eris.New("run: no input records, pass at least one of --spocs, --mbox, --enrichment")
		}

		p, err := pipeline.New(*cfg, st)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx, raws)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run finished",
			zap.String("run", result.RunID),
			zap.Int("identities", len(result.Identities)),
			zap.Int("opportunities", len(result.Opportunities)),
			zap.Int("rejected", result.Report.RecordsRejected),
			zap.Int("merge_conflicts", len(result.Report.MergeConflicts)),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runClientsPath, "clients", "", "path to clients.csv export")
	runCmd.Flags().StringVar(&runSpocsPath, "spocs", "", "path to spocs.csv export")
	runCmd.Flags().StringVar(&runMboxPath, "mbox", "", "path to mbox email archive")
	runCmd.Flags().StringVar(&runEnrichPath, "enrichment", "", "path to LinkedIn enrichment CSV")

	rootCmd.AddCommand(runCmd)
}
