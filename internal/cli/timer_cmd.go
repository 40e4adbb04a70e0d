package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/studytime/internal/store"
	"github.com/sadopc/studytime/internal/timer"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the timer and today's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd, app)
		},
	}
}

func printStatus(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	snap := app.Ctl.Snapshot()
	out := cmd.OutOrStdout()

	phase := snap.Timer.Phase()
	fmt.Fprintf(out, "Timer:    %s %s\n", phase, formatDuration(snap.Elapsed()))
	if s := subject(snap.Timer); s != "" {
		fmt.Fprintf(out, "Subject:  %s\n", s)
	} else {
		fmt.Fprintln(out, "Subject:  none selected")
	}

	today := todayTotal(snap.Data, snap.Now)
	goal := time.Duration(app.Store.GetIntSetting(ctx, store.SettingDailyGoal, 0)) * time.Second
	if goal > 0 {
		fmt.Fprintf(out, "Today:    %s of %s goal\n", formatDuration(today), formatDuration(goal))
	} else {
		fmt.Fprintf(out, "Today:    %s\n", formatDuration(today))
	}
	fmt.Fprintf(out, "Sessions: %d (%s total)\n", snap.Data.Len(), formatDuration(snap.Data.Total()))
	return nil
}

func newStartCmd(app *App) *cobra.Command {
	var discipline, topic, customDiscipline, customTopic string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start or resume the timer",
		Long: `Start or resume the timer.

Examples:
  studytime start --discipline Mathematics --topic Algebra
  studytime start --discipline Other --custom-discipline Astronomy --topic Other --custom-topic Stars
  studytime start                     # resume with the current selection`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctl := app.Ctl

			if cmd.Flags().Changed("discipline") || cmd.Flags().Changed("topic") {
				if err := ctl.Select(ctx, discipline, topic, customDiscipline, customTopic); err != nil {
					return err
				}
			}
			if err := ctl.Start(ctx); err != nil {
				return err
			}

			snap := ctl.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Timing %s (%s so far)\n", subject(snap.Timer), formatDuration(snap.Elapsed()))
			return nil
		},
	}

	cmd.Flags().StringVar(&discipline, "discipline", "", "Discipline to study (Other for free text)")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic to study (Other for free text)")
	cmd.Flags().StringVar(&customDiscipline, "custom-discipline", "", "Discipline name when --discipline is Other")
	cmd.Flags().StringVar(&customTopic, "custom-topic", "", "Topic name when --topic is Other")
	cmd.MarkFlagsRequiredTogether("discipline", "topic")

	return cmd
}

func newPauseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Ctl.Pause(cmd.Context()); err != nil {
				return err
			}
			snap := app.Ctl.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Paused at %s\n", formatDuration(snap.Elapsed()))
			return nil
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the timed duration, keeping the selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Ctl.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Timer reset")
			return nil
		},
	}
}

func newSaveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the timed duration as a study session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Ctl.Save(cmd.Context())
			if s.ID == "" {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s of %s / %s\n", formatDuration(s.Duration), s.Discipline, s.Topic)
			return err
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	var limit time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a running timer reconciled until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if limit > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, limit)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			if app.Ctl.Snapshot().Timer.Phase() != timer.Running {
				fmt.Fprintln(out, "Timer is not running")
				return nil
			}
			fmt.Fprintln(out, "Watching, press Ctrl-C to stop")

			err := app.Ctl.Run(ctx, app.Config.TickInterval)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				err = nil
			}

			snap := app.Ctl.Snapshot()
			fmt.Fprintf(out, "Stopped watching at %s (%s)\n", formatDuration(snap.Elapsed()), snap.Timer.Phase())
			return err
		},
	}

	cmd.Flags().DurationVar(&limit, "for", 0, "Stop after this long (0 watches until interrupted)")
	return cmd
}
