package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"raceplan/internal/app"
	"raceplan/internal/render"
)

func buffCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buff",
		Short: "Manage the secretary buff",
	}
	set := &cobra.Command{
		Use:   "set <role> [start]",
		Short: "Hold a secretary role (start: now, HH:MM, 10m or q<N>)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				raw := ""
				if len(args) == 2 {
					raw = args[1]
				}
				start, err := a.Engine().ParseBuffStart(raw, now)
				if err != nil {
					return err
				}
				if _, err := a.Engine().SetSecretaryBuff(ctx, args[0], start, now); err != nil {
					return err
				}
				st, err := a.Engine().SecretaryStatus(ctx, now)
				if err != nil {
					return err
				}
				terminal(a).Buff(cmd.OutOrStdout(), st, now)
				return nil
			})
		},
	}
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Clear the secretary buff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				if err := a.Engine().ClearSecretaryBuff(ctx, now); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Secretary buff cleared")
				return nil
			})
		},
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the secretary buff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				st, err := a.Engine().SecretaryStatus(ctx, now)
				if err != nil {
					return err
				}
				terminal(a).Buff(cmd.OutOrStdout(), st, now)
				return nil
			})
		},
	}
	roster := &cobra.Command{
		Use:   "roster",
		Short: "List secretary roles and bonuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			render.Terminal(nil).Roster(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.AddCommand(set, clear, status, roster)
	return cmd
}

func swapCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Manage today's slot swap",
	}
	arm := &cobra.Command{
		Use:   "arm <from> <to>",
		Short: "Swap two Arms Race slots for the current game day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("from: %w", err)
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("to: %w", err)
			}
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				sw, err := a.Engine().ArmSlotSwap(ctx, from, to, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Slots %d <-> %d swapped for %s\n", sw.FromSlot, sw.ToSlot, sw.GameDate)
				return nil
			})
		},
	}
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Clear today's swap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				if err := a.Engine().ClearSlotSwap(ctx, now); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Swap cleared")
				return nil
			})
		},
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the swap state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				ok, sw, err := a.Engine().CanSwapToday(ctx, now)
				if err != nil {
					return err
				}
				terminal(a).Swap(cmd.OutOrStdout(), ok, sw)
				return nil
			})
		},
	}
	cmd.AddCommand(arm, clear, status)
	return cmd
}
