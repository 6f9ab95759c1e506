package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"raceplan/internal/app"
	"raceplan/internal/export"
)

func exportCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the plan to other formats",
	}
	var (
		out  string
		days int
	)
	ics := &cobra.Command{
		Use:   "ics",
		Short: "Write the plan and upcoming special events as iCalendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app.App, now time.Time) error {
				p, err := a.Engine().BuildPlan(ctx, now)
				if err != nil {
					return err
				}
				occ, err := a.Engine().UpcomingEvents(ctx, now, now.AddDate(0, 0, days))
				if err != nil {
					return err
				}
				var w io.Writer = cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				if err := export.Write(w, p, occ, now); err != nil {
					return err
				}
				if out != "" && out != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s (%d slots, %d events)\n", out, len(p.Rows), len(occ))
				}
				return nil
			})
		},
	}
	ics.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	ics.Flags().IntVarP(&days, "days", "d", 7, "special-event look-ahead in days")
	cmd.AddCommand(ics)
	return cmd
}
