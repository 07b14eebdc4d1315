package arg

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
)

func newSyncCmd(opts *options) *cobra.Command {
	var anchor int64
	cmd := &cobra.Command{
		Use:   "sync <client-id>",
		Short: "Show what a client receives on its next anchored sync",
		Long: `Queries the history the way a syncing client does. Anchors are not
stored between runs; pass the counter the client last saw with --anchor.
Examples:
  overridectl sync pump
  overridectl sync pump --anchor 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				clientID := args[0]
				if anchor >= 0 {
					seed := history.QueryAnchor{ModificationCounter: anchor}
					if err := a.anchors.SetAnchor(ctx, a.userID, clientID, seed); err != nil {
						return err
					}
				}

				result, err := a.service.Sync(ctx, a.userID, clientID)
				if err != nil {
					return fmt.Errorf("failed to sync: %w", err)
				}

				out := cmd.OutOrStdout()
				for _, o := range result.Changed {
					fmt.Fprintf(out, "changed: %s\n", o)
				}
				for _, o := range result.Deleted {
					fmt.Fprintf(out, "deleted: %s\n", o)
				}
				fmt.Fprintf(out, "anchor: %d\n", result.Anchor.ModificationCounter)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&anchor, "anchor", -1, "Modification counter the client last saw, -1 for a first sync")
	return cmd
}
