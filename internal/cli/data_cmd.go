package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/studytime/internal/config"
	"github.com/sadopc/studytime/internal/export"
	"github.com/sadopc/studytime/internal/study"
)

func newStatsCmd(app *App) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the most studied disciplines and topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := app.Ctl.Snapshot().Data
			out := cmd.OutOrStdout()

			if data.Len() == 0 {
				fmt.Fprintln(out, "No sessions yet.")
				return nil
			}

			nd, nt := app.Config.TopDisciplines, app.Config.TopTopics
			if top > 0 {
				nd, nt = top, top
			}

			fmt.Fprintf(out, "Total studied: %s in %d sessions\n\n", formatDuration(data.Total()), data.Len())

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tDISCIPLINE\tTOTAL")
			for i, d := range data.TopDisciplines(nd) {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, d.Discipline, formatDuration(d.Total))
				for _, t := range data.Topics(d.Discipline) {
					fmt.Fprintf(w, "\t  %s\t%s\n", t.Topic, formatDuration(t.Total))
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tTOPIC\tDISCIPLINE\tTOTAL")
			for i, t := range data.TopTopics(nt) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, t.Topic, t.Discipline, formatDuration(t.Total))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "Rows per ranking (default from config)")
	return cmd
}

func newSessionsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := recent(app.Ctl.Snapshot().Data.Sessions(), limit)
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tDISCIPLINE\tTOPIC\tDURATION\tID")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					s.Date.Local().Format("2006-01-02 15:04"), s.Discipline, s.Topic, formatDuration(s.Duration), s.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of sessions to show (0 for all)")
	return cmd
}

func newClearCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved session and total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the study history without --yes")
			}
			n := app.Ctl.Snapshot().Data.Len()
			if err := app.Ctl.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d sessions\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing the history")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the study history as CSV or JSON",
		Long: `Export the study history.

The JSON backup can be restored with "studytime import".

Examples:
  studytime export                          # CSV in the current directory
  studytime export --format json --out backup.json
  studytime export --format csv --out -     # write to stdout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := app.Ctl.Snapshot().Data

			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q (use csv or json)", format)
			}

			if outPath == "-" {
				if format == "csv" {
					return export.WriteCSV(cmd.OutOrStdout(), data.Sessions())
				}
				return export.WriteJSON(cmd.OutOrStdout(), data)
			}

			if outPath == "" {
				outPath = fmt.Sprintf("studytime-export-%s.%s", time.Now().Format("2006-01-02"), format)
			}

			var err error
			if format == "csv" {
				err = export.ToCSV(data.Sessions(), outPath)
			} else {
				err = export.ToJSON(data, outPath)
			}
			if err != nil {
				return err
			}

			abs, _ := filepath.Abs(outPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sessions to %s\n", data.Len(), abs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file, - for stdout")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the study history with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, entries, err := export.FromJSON(args[0])
			if err != nil {
				return err
			}
			if err := app.Ctl.Import(cmd.Context(), sessions, entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sessions across %d disciplines\n", len(sessions), len(entries))
			return nil
		},
	}
}

func newDoctorCmd(app *App) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the totals match the saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			data := app.Ctl.Snapshot().Data

			stored, err := app.Store.CountSessions(ctx)
			if err != nil {
				return err
			}
			if stored != data.Len() {
				fmt.Fprintf(out, "Database holds %d sessions, memory %d\n", stored, data.Len())
			}

			err = data.Consistent()
			if err == nil {
				fmt.Fprintf(out, "OK: %d sessions, totals consistent\n", data.Len())
				return nil
			}
			if !errors.Is(err, study.ErrInconsistent) {
				return err
			}

			fmt.Fprintf(out, "Problem: %v\n", err)
			if !repair {
				return errors.New("totals do not match the sessions; run with --repair to rebuild them")
			}
			if err := app.Ctl.Repair(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Repaired: totals rebuilt from sessions")
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Rebuild the totals from the session list")
	return cmd
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(app))
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return fmt.Errorf("locate config: %w", err)
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
