package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedInput     string
	seedRecompute bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a YAML case into the configured store",
	Long:  "Writes a case's contracts, behavioral profile, sibling snapshots and overrides into the store for local runs, then recomputes its trust profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := readCase(seedInput)
		if err != nil {
			return err
		}

		svc, st, err := openService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := svc.Seed(ctx, c); err != nil {
			return err
		}
		if !seedRecompute {
			return nil
		}

		res := svc.Recompute(ctx, c.CandidateID)
		profile, ok := res.Get()
		if !ok {
			zap.L().Warn("recompute after seed unavailable",
				zap.String("candidate_id", c.CandidateID),
				zap.String("reason", res.Reason()),
			)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), profile)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedInput, "input", "", "path to the YAML case")
	seedCmd.Flags().BoolVar(&seedRecompute, "recompute", true, "recompute the trust profile after seeding")
	_ = seedCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(seedCmd)
}
