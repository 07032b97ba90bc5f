package main

import (
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <candidate-id>",
	Short: "Print the executive summary for a candidate",
	Long:  "Combines the stored trust profile, sibling-engine snapshots and any active override into one decision summary. Missing signals lower confidence instead of failing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, st, err := openService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return writeJSON(cmd.OutOrStdout(), svc.Summary(ctx, args[0]))
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
