package arg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/schedule"
)

type recordOptions struct {
	scale    float64
	target   string
	start    string
	duration string
	syncID   string
	preMeal  bool
	remote   string
}

func newRecordCmd(opts *options) *cobra.Command {
	ro := &recordOptions{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an override, enabled at --now",
		Long: `Record an override in the user's history. Passing the sync ID of a
logged override replaces it, which is how edits are made.
Examples:
  overridectl record --scale 0.8 --duration 2h
  overridectl record --range 150-170 --pre-meal --duration 0
  overridectl record --sync-id 7d6c... --scale 1.2 --start 2024-05-14T09:00:00Z --duration 90m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				o, err := ro.build(a.now)
				if err != nil {
					return err
				}
				if err := a.service.Record(ctx, a.userID, o); err != nil {
					return fmt.Errorf("failed to record override: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recorded %s\n", o)
				return nil
			})
		},
	}

	cmd.Flags().Float64VarP(&ro.scale, "scale", "s", 0, "Insulin needs scale factor, e.g. 0.8")
	cmd.Flags().StringVarP(&ro.target, "range", "r", "", "Target range override as min-max")
	cmd.Flags().StringVar(&ro.start, "start", "", "Start time (RFC3339), defaults to --now")
	cmd.Flags().StringVarP(&ro.duration, "duration", "d", "1h", "Duration, 0 for indefinite")
	cmd.Flags().StringVar(&ro.syncID, "sync-id", "", "Sync identifier, set to edit a logged override")
	cmd.Flags().BoolVar(&ro.preMeal, "pre-meal", false, "Mark the override as a pre-meal target")
	cmd.Flags().StringVar(&ro.remote, "remote", "", "Remote address that enacted the override")
	return cmd
}

func (ro *recordOptions) build(now time.Time) (override.Override, error) {
	var scale *float64
	if ro.scale != 0 {
		scale = &ro.scale
	}
	var target *schedule.DoubleRange
	if ro.target != "" {
		r, err := parseRange(ro.target)
		if err != nil {
			return override.Override{}, err
		}
		target = &r
	}
	settings, err := override.NewSettings(target, scale)
	if err != nil {
		return override.Override{}, err
	}

	start := now
	if ro.start != "" {
		if start, err = time.Parse(time.RFC3339, ro.start); err != nil {
			return override.Override{}, fmt.Errorf("invalid --start (use RFC3339): %w", err)
		}
	}

	duration := override.Indefinite
	if ro.duration != "" && ro.duration != "0" {
		d, err := time.ParseDuration(ro.duration)
		if err != nil {
			return override.Override{}, fmt.Errorf("invalid --duration: %w", err)
		}
		if duration, err = override.Finite(d); err != nil {
			return override.Override{}, err
		}
	}

	id := uuid.New()
	if ro.syncID != "" {
		if id, err = uuid.Parse(ro.syncID); err != nil {
			return override.Override{}, fmt.Errorf("invalid --sync-id: %w", err)
		}
	}

	overrideCtx := override.CustomContext
	if ro.preMeal {
		overrideCtx = override.PreMealContext
	}
	trigger := override.LocalTrigger
	if ro.remote != "" {
		trigger = override.RemoteTrigger(ro.remote)
	}
	return override.New(overrideCtx, settings, start, duration, trigger, id)
}

func parseRange(s string) (schedule.DoubleRange, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return schedule.DoubleRange{}, fmt.Errorf("range %q must look like min-max", s)
	}
	minValue, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return schedule.DoubleRange{}, fmt.Errorf("invalid range minimum: %w", err)
	}
	maxValue, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return schedule.DoubleRange{}, fmt.Errorf("invalid range maximum: %w", err)
	}
	return schedule.NewDoubleRange(minValue, maxValue)
}

func newCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the override active at --now",
		Long:  `Ends the active override early, or deletes it when it has not started yet.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.service.Cancel(ctx, a.userID); err != nil {
					return fmt.Errorf("failed to cancel override: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cancelled active override at %s\n", a.now.Format(time.RFC3339))
				return nil
			})
		},
	}
}
