package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"raceplan/internal/app"
	"raceplan/internal/model"
)

func eventsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage special events",
	}

	var days int
	upcoming := &cobra.Command{
		Use:   "upcoming",
		Short: "List special-event occurrences starting soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be >= 1")
			}
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				occ, err := a.Engine().UpcomingEvents(ctx, now, now.AddDate(0, 0, days))
				if err != nil {
					return err
				}
				terminal(a).Occurrences(cmd.OutOrStdout(), occ)
				return nil
			})
		},
	}
	upcoming.Flags().IntVarP(&days, "days", "d", 7, "look-ahead in days")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored special events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				events, err := a.Engine().SpecialEvents(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(w, "no special events")
					return nil
				}
				for _, ev := range events {
					fmt.Fprintf(w, "%-20s %-8s %s  %s-%s", ev.Name, ev.Frequency, dayList(ev.Days), ev.Start, ev.End)
					if ev.Frequency == model.Biweekly {
						fmt.Fprintf(w, "  parity=%d", ev.RefParity)
					}
					if !ev.IsDefault {
						fmt.Fprint(w, "  (custom)")
					}
					fmt.Fprintln(w)
				}
				return nil
			})
		},
	}

	var (
		dayFlag  string
		start    string
		end      string
		biweekly bool
		parity   int
	)
	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Add or replace a special event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wds, err := parseDays(dayFlag)
			if err != nil {
				return err
			}
			ev := model.SpecialEvent{
				Name:      strings.TrimSpace(args[0]),
				Days:      wds,
				Frequency: model.Weekly,
				Start:     start,
				End:       end,
			}
			if biweekly {
				ev.Frequency = model.Biweekly
				ev.RefParity = parity
			}
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				if err := a.Engine().UpsertSpecialEvent(ctx, ev); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s\n", ev.Name)
				return nil
			})
		},
	}
	set.Flags().StringVar(&dayFlag, "days", "", "comma separated weekdays, e.g. sat,sun")
	set.Flags().StringVar(&start, "start", "", "start time HH:MM (server time)")
	set.Flags().StringVar(&end, "end", "", "end time HH:MM, wraps past midnight when <= start")
	set.Flags().BoolVar(&biweekly, "biweekly", false, "repeat every other ISO week")
	set.Flags().IntVar(&parity, "parity", 0, "ISO week parity (0 or 1) for biweekly events")
	_ = set.MarkFlagRequired("days")
	_ = set.MarkFlagRequired("start")
	_ = set.MarkFlagRequired("end")

	restore := &cobra.Command{
		Use:   "restore",
		Short: "Restore factory special events, keeping custom ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				events, err := a.Engine().RestoreDefaultEvents(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d special events\n", len(events))
				return nil
			})
		},
	}

	cmd.AddCommand(upcoming, list, set, restore)
	return cmd
}

func parseDays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, ok := model.ParseWeekday(part)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one weekday required")
	}
	return out, nil
}

func dayList(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, d.String()[:3])
	}
	return strings.Join(parts, ",")
}
