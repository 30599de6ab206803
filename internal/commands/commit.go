package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankrec/internal/reconcile"
)

func newCommitCommand(opts *globalOptions) *cobra.Command {
	var (
		rf  rangeFlags
		all bool
	)

	cmd := &cobra.Command{
		Use:   "commit [candidate-id...]",
		Short: "Reconcile candidates against their matched transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name candidate ids or pass --all")
			}
			from, to, err := dateRange(rf.from, rf.to)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			session := a.newSession()
			snap, err := session.Refresh(cmd.Context(), rf.account, from, to)
			if err != nil {
				return err
			}

			// Named ids go straight to the committer, which skips ones that
			// are already reconciled and rejects unmatched ones.
			ids := args
			if all {
				ids = nil
				for _, c := range snap.Candidates() {
					if tier, _ := snap.CandidateTier(c.ID); reconcile.IsSelectable(tier) {
						ids = append(ids, c.ID)
					}
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to commit.")
					return nil
				}
				if err := session.Select(ids...); err != nil {
					return err
				}
			}

			var res reconcile.CommitResult
			if all {
				res, err = session.Commit(cmd.Context(), snap.Version())
			} else {
				res, err = session.CommitCandidates(cmd.Context(), snap.Version(), ids)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range res.Pairs {
				fmt.Fprintf(out, "%s -> %s\n", p.CandidateID, p.ReconcileID)
			}
			for _, cid := range res.Stale {
				fmt.Fprintf(out, "%s already reconciled, skipped\n", cid)
			}
			fmt.Fprintf(out, "Committed %d of %d selected\n", res.AppliedCount, len(ids))
			if res.RefreshErr != nil {
				fmt.Fprintf(out, "warning: commit applied but the working set could not be re-read: %v\n", res.RefreshErr)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "commit every matched candidate in range")

	return cmd
}
