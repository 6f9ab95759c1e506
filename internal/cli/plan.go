package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"raceplan/internal/app"
)

func planCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the next six slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				p, err := a.Engine().BuildPlan(ctx, now)
				if err != nil {
					return err
				}
				terminal(a).Plan(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
}

func slotCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "slot",
		Short: "Show the current slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				terminal(a).Slot(cmd.OutOrStdout(), a.Engine().ResolveSlot(now), now)
				return nil
			})
		},
	}
}
