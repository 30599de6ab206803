package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommentCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <candidate-id> <text...>",
		Short: "Annotate a candidate",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			text := strings.Join(args[1:], " ")
			if err := a.newSession().UpdateComment(cmd.Context(), args[0], text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment saved on %s\n", args[0])
			return nil
		},
	}
}
