// Package cli is the studytime command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/studytime/internal/clock"
	"github.com/sadopc/studytime/internal/config"
	"github.com/sadopc/studytime/internal/logging"
	"github.com/sadopc/studytime/internal/store"
	"github.com/sadopc/studytime/internal/tracker"
	"github.com/sadopc/studytime/internal/tui"
)

// skipSetup marks commands that run without opening the database.
const skipSetup = "skip-setup"

// App holds the wiring shared by every command. Fields left nil are built
// from the config before a command runs.
type App struct {
	Config *config.Config
	Store  *store.Store
	Ctl    *tracker.Controller
	Log    *zap.Logger
	Clock  clock.Clock

	// IsInteractive decides whether the bare command opens the TUI.
	IsInteractive func() bool
	// RunTUI runs the full-screen interface until the user quits.
	RunTUI func(ctx context.Context, app *App) error

	configPath string
	verbose    bool
	closers    []func() error
}

// NewRootCmd creates the top-level "studytime" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "studytime",
		Short:         "Track study time per discipline and topic",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return app.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.interactive() {
				return app.runTUI(cmd.Context())
			}
			return printStatus(cmd, app)
		},
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/studytime/config.yaml)")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newStatusCmd(app),
		newStartCmd(app),
		newPauseCmd(app),
		newResetCmd(app),
		newSaveCmd(app),
		newWatchCmd(app),
		newStatsCmd(app),
		newSessionsCmd(app),
		newClearCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newDoctorCmd(app),
		newConfigCmd(app),
	)

	return root
}

// Execute runs the command tree with the process defaults.
func Execute(ctx context.Context, args []string) error {
	app := &App{
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
	root := NewRootCmd(app)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, app.close())
}

func (a *App) setup(ctx context.Context) error {
	if a.Config == nil {
		path := a.configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return fmt.Errorf("locate config: %w", err)
			}
			path = p
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.Config = cfg
	}

	if a.Log == nil {
		log, err := logging.New(a.Config.Logging, a.verbose)
		if err != nil {
			return err
		}
		a.Log = log
		a.closers = append(a.closers, func() error {
			_ = log.Sync()
			return nil
		})
	}

	if a.Store == nil {
		s, err := store.New(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.Store = s
		a.closers = append(a.closers, s.Close)
	}

	if a.Ctl == nil {
		if a.Clock == nil {
			a.Clock = clock.System{}
		}
		a.Ctl = tracker.New(a.Store, tracker.WithClock(a.Clock), tracker.WithLogger(a.Log))
		if err := a.Ctl.Load(ctx); err != nil {
			return fmt.Errorf("load state: %w", err)
		}
	}
	return nil
}

// close releases what setup opened, newest first. It is safe to call twice.
func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) runTUI(ctx context.Context) error {
	if a.RunTUI != nil {
		return a.RunTUI(ctx, a)
	}
	return runProgram(ctx, a)
}

func runProgram(ctx context.Context, a *App) error {
	p := tea.NewProgram(tui.NewApp(ctx, a.Ctl, a.Store, a.Config), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if flushErr := a.Ctl.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		a.Log.Warn("flush timer", zap.Error(flushErr))
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
