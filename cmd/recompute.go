package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crewvet/trust-cli/internal/monitoring"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute <candidate-id>...",
	Short: "Recompute and persist trust profiles",
	Long:  "Rebuilds the Crew Reliability Index for each candidate from stored contracts. One ID recomputes directly; several run as a concurrent batch with a single bulk write.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, st, err := openService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if len(args) == 1 {
			res := svc.Recompute(ctx, args[0])
			profile, ok := res.Get()
			if !ok {
				return eris.Errorf("recompute %s: %s", args[0], res.Reason())
			}
			return writeJSON(cmd.OutOrStdout(), profile)
		}

		out := svc.RecomputeBatch(ctx, args)
		profiles := make(map[string]any, len(out.Results))
		for id, r := range out.Results {
			if p, ok := r.Get(); ok {
				profiles[id] = p
				continue
			}
			profiles[id] = map[string]string{"unavailable": r.Reason()}
		}
		if err := writeJSON(cmd.OutOrStdout(), profiles); err != nil {
			return err
		}
		if out.Failed > 0 {
			zap.L().Warn("some candidates could not be recomputed", zap.Int64("failed", out.Failed))
		}

		snap := monitoring.Collect(out, time.Now())
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		if alerts := alerter.Evaluate(snap); len(alerts) > 0 {
			alerter.SendAlerts(ctx, alerts)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
}
