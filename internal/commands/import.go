package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankrec/internal/importer"
	"github.com/cleared-dev/bankrec/internal/store/csvstore"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var (
		accountID  int
		format     string
		candidates string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bank statements from import/, or ledger candidates with --candidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			if candidates != "" {
				return runImportCandidates(cmd.Context(), cmd, a, candidates)
			}
			return runImportStatements(cmd.Context(), cmd, a, accountID, format)
		},
	}

	cmd.Flags().IntVar(&accountID, "account", 0, "ledger account id the statements belong to (default: the only configured account)")
	cmd.Flags().StringVar(&format, "format", "chase", "statement format ("+strings.Join(importer.DefaultRegistry().Formats(), ", ")+")")
	cmd.Flags().StringVar(&candidates, "candidates", "", "candidates CSV exported from the ledger")

	return cmd
}

func runImportStatements(ctx context.Context, cmd *cobra.Command, a *app, accountID int, format string) error {
	if accountID == 0 {
		if all := a.accounts.All(); len(all) == 1 {
			accountID = all[0].AccountID
		}
	}
	account, ok := a.accounts.Get(accountID)
	if !ok {
		return fmt.Errorf("account %d is not in bank_accounts", accountID)
	}
	parser := importer.DefaultRegistry().Get(format)
	if parser == nil {
		return fmt.Errorf("unknown statement format %q (known: %s)", format, strings.Join(importer.DefaultRegistry().Formats(), ", "))
	}

	files, err := importer.Scan(a.root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No files to import.")
		return nil
	}

	for _, f := range files {
		txns, err := importer.ParseFile(parser, f.Path, account)
		if err != nil {
			return err
		}
		added, err := a.store.AppendTransactions(ctx, txns)
		if err != nil {
			return fmt.Errorf("importing %s: %w", f.Name, err)
		}
		if err := importer.MarkProcessed(a.root, f.Name); err != nil {
			return err
		}
		a.log.Info().Str("file", f.Name).Int("rows", len(txns)).Int("added", added).Msg("statement imported")
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new, %d already imported\n", f.Name, added, len(txns)-added)
	}
	return nil
}

func runImportCandidates(ctx context.Context, cmd *cobra.Command, a *app, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening candidates: %w", err)
	}
	defer f.Close()

	cands, err := csvstore.ReadCandidates(f)
	if err != nil {
		return err
	}
	for _, c := range cands {
		if !a.accounts.Exists(c.AccountID) {
			return fmt.Errorf("candidate %s: account %d is not in bank_accounts", c.ID, c.AccountID)
		}
	}
	added, err := a.store.AppendCandidates(ctx, cands)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d new candidates, %d already known\n", added, len(cands)-added)
	return nil
}
