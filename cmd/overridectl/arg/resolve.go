package arg

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
)

func newResolveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Show the effective therapy settings at --now",
		Long: `Applies the recorded overrides to the schedules given with --basal,
--sensitivity, --carb-ratio and --target and prints the values in effect.
Example:
  overridectl resolve --basal "00:00=0.8,12:00=1.2" --target "00:00=100-120"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				status, err := a.service.Status(ctx, a.userID)
				if err != nil {
					return fmt.Errorf("failed to resolve schedules: %w", err)
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func printStatus(w io.Writer, status *domain.OverrideStatus) {
	fmt.Fprintf(w, "at: %s\n", status.At.Format(time.RFC3339))
	if status.Active != nil {
		fmt.Fprintf(w, "active: %s\n", *status.Active)
	} else {
		fmt.Fprintln(w, "active: none")
	}
	for _, o := range status.Upcoming {
		fmt.Fprintf(w, "upcoming: %s\n", o)
	}
	printValue(w, "basal", status.Basal)
	printValue(w, "sensitivity", status.Sensitivity)
	printValue(w, "carb ratio", status.CarbRatio)
	if status.Target != nil {
		fmt.Fprintf(w, "target: %g-%g\n", status.Target.MinValue, status.Target.MaxValue)
	}
}

func printValue(w io.Writer, name string, v *float64) {
	if v != nil {
		fmt.Fprintf(w, "%s: %g\n", name, *v)
	}
}
