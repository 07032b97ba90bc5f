package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crewvet/trust-cli/internal/engine"
)

var evaluateInput string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the full pipeline on a YAML case without a store",
	Long:  "Reads contracts, behavioral data, sibling snapshots and overrides from a YAML case and prints the trust profile and executive summary as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := readCase(evaluateInput)
		if err != nil {
			return err
		}
		ev := engine.Evaluate(cfg.Calibration, *c, time.Now().UTC())
		return writeJSON(cmd.OutOrStdout(), ev)
	},
}

func readCase(path string) (*engine.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open case %s", path)
	}
	defer f.Close() //nolint:errcheck
	return engine.DecodeCase(f)
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateInput, "input", "", "path to the YAML case")
	_ = evaluateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(evaluateCmd)
}
