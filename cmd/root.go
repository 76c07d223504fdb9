package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "txo-crm",
	Short: "Lead intelligence pipeline for recruitment CRM data",
	Long:  "Ingests CRM exports, email archives and enrichment dumps, dedupes contacts into identities, classifies them into funnel stages, scores them, and derives outreach opportunities.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
