package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankrec/internal/match"
)

// rangeFlags are the account and date range a working set is read for.
type rangeFlags struct {
	account int
	from    string
	to      string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&r.account, "account", 0, "ledger account id (required)")
	cmd.Flags().StringVar(&r.from, "from", "", "first day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&r.to, "to", "", "last day, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func newMatchCommand(opts *globalOptions) *cobra.Command {
	var rf rangeFlags

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show the working set with match tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := dateRange(rf.from, rf.to)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.newSession().Refresh(cmd.Context(), rf.account, from, to)
			if err != nil {
				return err
			}
			ccy, err := a.accounts.Currency(rf.account)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %d (%s), %s to %s\n\n", rf.account, ccy, from, to)
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
	rf.register(cmd)

	return cmd
}

func printSnapshot(out io.Writer, snap *match.Snapshot) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "CANDIDATE\tDATE\tAMOUNT\tCHECK\tTIER\tTRANSACTION")
	for _, c := range snap.Candidates() {
		tier, _ := snap.CandidateTier(c.ID)
		txID, _ := snap.ResolveMatch(c.ID)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Date, c.Amount.StringFixed(2), dash(c.CheckNo), tier, dash(txID))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "TRANSACTION\tDATE\tAMOUNT\tCHECK\tTIER\tDESCRIPTION")
	for _, t := range snap.Transactions() {
		tier, _ := snap.TransactionTier(t.ID)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Amount.StringFixed(2), dash(t.CheckNo), tier, t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	txCounts, candCounts := snap.Counts()
	fmt.Fprintf(out, "\nCandidates: %d exact, %d approximate, %d unmatched\n", candCounts.Exact, candCounts.Approximate, candCounts.Unmatched)
	fmt.Fprintf(out, "Transactions: %d exact, %d approximate, %d unmatched\n", txCounts.Exact, txCounts.Approximate, txCounts.Unmatched)
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
