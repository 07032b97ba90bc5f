package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crewvet/trust-cli/internal/engine"
	"github.com/crewvet/trust-cli/internal/model"
)

var (
	overrideDecision string
	overrideReason   string
	overrideBy       string
	overrideExpires  string
	overrideTTL      time.Duration
)

var overrideCmd = &cobra.Command{
	Use:   "override <candidate-id>",
	Short: "Record a human decision override",
	Long:  "Appends an override that replaces the engine decision in summaries until it expires. The engine decision and scores stay visible alongside it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req := engine.OverrideRequest{
			CandidateID: args[0],
			Decision:    model.Decision(overrideDecision),
			Reason:      overrideReason,
			CreatedBy:   overrideBy,
		}
		expires, err := parseExpiry(overrideExpires, overrideTTL, time.Now().UTC())
		if err != nil {
			return err
		}
		req.ExpiresAt = expires

		svc, st, err := openService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		o, err := svc.CreateOverride(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), o)
	},
}

// parseExpiry resolves --expires (RFC 3339) or --ttl into an expiry instant.
// Neither flag means the override never expires.
func parseExpiry(expires string, ttl time.Duration, now time.Time) (*time.Time, error) {
	if expires != "" && ttl > 0 {
		return nil, eris.New("use either --expires or --ttl, not both")
	}
	if expires != "" {
		t, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return nil, eris.Wrap(err, "parse --expires")
		}
		t = t.UTC()
		return &t, nil
	}
	if ttl > 0 {
		t := now.Add(ttl)
		return &t, nil
	}
	return nil, nil
}

func init() {
	overrideCmd.Flags().StringVar(&overrideDecision, "decision", "", "override decision: approve, review or reject")
	overrideCmd.Flags().StringVar(&overrideReason, "reason", "", "why the engine decision is overridden")
	overrideCmd.Flags().StringVar(&overrideBy, "by", "", "who is recording the override")
	overrideCmd.Flags().StringVar(&overrideExpires, "expires", "", "expiry instant (RFC 3339)")
	overrideCmd.Flags().DurationVar(&overrideTTL, "ttl", 0, "expire after this duration")
	_ = overrideCmd.MarkFlagRequired("decision")
	_ = overrideCmd.MarkFlagRequired("reason")
	_ = overrideCmd.MarkFlagRequired("by")
	rootCmd.AddCommand(overrideCmd)
}
