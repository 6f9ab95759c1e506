package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"raceplan/internal/app"
	"raceplan/internal/model"
)

func scheduleCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect or edit the weekly Arms Race schedule",
	}

	show := &cobra.Command{
		Use:   "show [day]",
		Short: "Print the canonical schedule, optionally for one weekday",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var only *time.Weekday
			if len(args) == 1 {
				d, ok := model.ParseWeekday(args[0])
				if !ok {
					return fmt.Errorf("unknown weekday %q", args[0])
				}
				only = &d
			}
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				sc, err := a.Engine().Schedule(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for d := time.Sunday; d <= time.Saturday; d++ {
					if only != nil && *only != d {
						continue
					}
					rows := sc.ArmsRaceRows(d)
					vs := sc.VsRows(d)
					if len(rows) == 0 && len(vs) == 0 {
						continue
					}
					fmt.Fprintf(w, "%s\n", d)
					for _, r := range rows {
						fmt.Fprintf(w, "  #%d  %-22s %s", r.Slot, r.Event, r.Task)
						if r.Points != "" {
							fmt.Fprintf(w, " (%s)", r.Points)
						}
						fmt.Fprintln(w)
					}
					for _, v := range vs {
						fmt.Fprintf(w, "  vs  %-22s %s", v.Event, v.Task)
						if v.Points != nil {
							fmt.Fprintf(w, " (%g)", *v.Points)
						}
						fmt.Fprintln(w)
					}
				}
				return nil
			})
		},
	}

	var task, points string
	set := &cobra.Command{
		Use:   "set <day> <slot> <event>",
		Short: "Replace the Arms Race event of one slot",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := model.ParseWeekday(args[0])
			if !ok {
				return fmt.Errorf("unknown weekday %q", args[0])
			}
			slot, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("slot: %w", err)
			}
			row := model.ScheduleSlot{Day: d, Slot: slot, Event: args[2], Task: task, Points: points}
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				if err := a.Engine().SetArmsRaceSlot(ctx, row); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s slot %d = %s\n", d, slot, row.Event)
				return nil
			})
		},
	}
	set.Flags().StringVar(&task, "task", "", "task description")
	set.Flags().StringVar(&points, "points", "", "points text")

	cmd.AddCommand(show, set)
	return cmd
}
