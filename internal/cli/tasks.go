package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"raceplan/internal/app"
	"raceplan/internal/gametime"
)

func tasksCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List active task instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				tasks, err := a.Engine().ActiveTasks(ctx, now)
				if err != nil {
					return err
				}
				terminal(a).Tasks(cmd.OutOrStdout(), tasks, now)
				return nil
			})
		},
	}
}

func templatesCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List or restore task templates",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List templates with today's quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				tpls, err := a.Engine().Templates(ctx)
				if err != nil {
					return err
				}
				quotas, err := a.Engine().Quotas(ctx, now)
				if err != nil {
					return err
				}
				terminal(a).Templates(cmd.OutOrStdout(), tpls, quotas)
				return nil
			})
		},
	}
	restore := &cobra.Command{
		Use:   "restore",
		Short: "Restore factory templates, keeping custom ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				tpls, err := a.Engine().RestoreDefaultTemplates(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d templates\n", len(tpls))
				return nil
			})
		},
	}
	cmd.AddCommand(list, restore)
	return cmd
}

func activateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <template> [rarity]",
		Short: "Start a task instance",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rarity := ""
			if len(args) == 2 {
				rarity = args[1]
			}
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				inst, err := a.Engine().Activate(ctx, args[0], rarity, now)
				if err != nil {
					return err
				}
				loc := a.Engine().Resolver().Location()
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Started %s\n  id:   %s\n  ends: %s (%s)\n",
					inst.TaskName, inst.TaskID, inst.EndUTC.In(loc).Format("Mon 15:04"), gametime.Countdown(now, inst.EndUTC))
				return nil
			})
		},
	}
}

func completeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Finish an active task early",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				inst, err := a.Engine().Complete(ctx, strings.TrimSpace(args[0]), now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Completed %s\n", inst.TaskName)
				return nil
			})
		},
	}
}

func sweepCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Move expired task instances to history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				n, err := a.Engine().SweepExpired(ctx, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d expired\n", n)
				return nil
			})
		},
	}
}
