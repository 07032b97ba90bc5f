package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crewvet/trust-cli/internal/config"
	"github.com/crewvet/trust-cli/internal/scorer"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trust-cli",
	Short: "Candidate trust scoring and hiring decisions",
	Long:  "Scores seafarer contract histories into a Crew Reliability Index and combines it with sibling-engine signals into an approve, review or reject recommendation.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := scorer.ValidateCalibration(cfg.Calibration); err != nil {
			return fmt.Errorf("validate calibration: %w", err)
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
