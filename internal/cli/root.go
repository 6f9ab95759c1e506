// Package cli implements the raceplan command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"raceplan/internal/app"
	"raceplan/internal/render"
)

type options struct {
	configPath string
	now        string
	noColor    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "raceplan",
		Short: "Arms Race and VS Duel planner",
		Long: `raceplan tracks the Arms Race rotation, VS Duel overlaps, special events,
timed tasks with daily quotas, the secretary buff and the daily slot swap.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	defaultCfg := os.Getenv("RACEPLAN_CONFIG")
	if defaultCfg == "" {
		defaultCfg = "raceplan.yaml"
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultCfg, "config file (YAML or JSON)")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "evaluate at this RFC3339 instant instead of the wall clock")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		planCmd(opts),
		slotCmd(opts),
		tasksCmd(opts),
		templatesCmd(opts),
		activateCmd(opts),
		completeCmd(opts),
		sweepCmd(opts),
		buffCmd(opts),
		swapCmd(opts),
		eventsCmd(opts),
		scheduleCmd(opts),
		exportCmd(opts),
		serveCmd(opts),
	)
	return root
}

func (o *options) clock() (time.Time, error) {
	if o.now == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, o.now)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return t, nil
}

// run opens the app for one command and closes it afterwards.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, now time.Time) error) error {
	now, err := o.clock()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Open(ctx, o.configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, now)
}

func terminal(a *app.App) render.Renderer {
	return render.Terminal(a.Engine().Resolver().Location())
}
