package arg

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
)

func newEventsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the user's recent override events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				events, err := a.service.Events(ctx, a.userID)
				if err != nil {
					return fmt.Errorf("failed to list events: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(out, "No recent override events")
					return nil
				}
				for _, e := range events {
					fmt.Fprintf(out, "[%d] %s", e.ModificationCounter, e.Override)
					if end := e.Override.ActualEnd(); end.Kind == override.EndEarly {
						fmt.Fprintf(out, " ended %s", end.Date.Format(time.RFC3339))
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

func newUsersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users with a stored history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				users, err := a.store.Users(ctx)
				if err != nil {
					return err
				}
				for _, id := range users {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}
