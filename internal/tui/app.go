package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytime/internal/config"
	"github.com/sadopc/studytime/internal/export"
	"github.com/sadopc/studytime/internal/store"
	"github.com/sadopc/studytime/internal/tracker"
)

// App is the root Bubble Tea model.
type App struct {
	ctl    *tracker.Controller
	store  *store.Store
	cfg    *config.Config
	ctx    context.Context
	width  int
	height int

	activeView    viewState
	ticking       bool // a tickMsg is scheduled
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard   dashboardModel
	disciplines disciplinesModel
	reports     reportsModel
	settings    settingsModel

	help      help.Model
	status    string
	statusErr bool
	statusID  int
}

// NewApp builds the UI over a loaded controller.
func NewApp(ctx context.Context, ctl *tracker.Controller, s *store.Store, cfg *config.Config) App {
	h := help.New()
	h.ShowAll = false

	a := App{
		ctl:         ctl,
		store:       s,
		cfg:         cfg,
		ctx:         ctx,
		activeView:  viewDashboard,
		dashboard:   newDashboardModel(ctx, ctl, cfg),
		disciplines: newDisciplinesModel(ctx, ctl, cfg),
		reports:     newReportsModel(),
		settings:    newSettingsModel(ctx, s, ctl, cfg),
		help:        h,
	}
	a.refresh()
	a.ticking = a.dashboard.isRunning()
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.settings.refresh(), frameCmd(a.cfg.FrameInterval)}
	if a.ticking {
		cmds = append(cmds, tickCmd(a.cfg.TickInterval))
	}
	return tea.Batch(cmds...)
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func frameCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// run calls a controller operation off the update loop.
func run(ctx context.Context, op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return transitionMsg{op: op, err: fn(ctx)}
	}
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		text, isErr := describeError(err)
		return statusMsg{text: text, isError: isErr}
	}
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("enter a %s", field)
		}
		return nil
	}
}

// refresh pushes a fresh controller snapshot into every view.
func (a *App) refresh() {
	snap := a.ctl.Snapshot()
	a.dashboard.setSnapshot(snap)
	a.disciplines.setSnapshot(snap)
	a.reports.setSnapshot(snap)
}

func (a *App) setStatus(text string, isErr bool) tea.Cmd {
	a.statusID++
	a.status = text
	a.statusErr = isErr
	id := a.statusID
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.disciplines.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewDisciplines
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReports
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			if a.activeView == viewSettings {
				return a, a.settings.refresh()
			}
			return a, nil
		}

	case tickMsg:
		// Ticks stop while the timer is idle or paused; a start re-arms them.
		if !a.dashboard.isRunning() {
			a.ticking = false
			return a, nil
		}
		return a, tea.Batch(
			tickCmd(a.cfg.TickInterval),
			run(a.ctx, "tick", a.ctl.Tick),
		)

	case frameMsg:
		// Frames only move the dashboard clock, even under a form.
		a.dashboard, _ = a.dashboard.update(msg)
		return a, frameCmd(a.cfg.FrameInterval)

	case transitionMsg:
		a.refresh()
		cmd := a.transitionStatus(msg)
		if a.dashboard.isRunning() && !a.ticking {
			a.ticking = true
			cmd = tea.Batch(cmd, tickCmd(a.cfg.TickInterval))
		}
		return a, cmd

	case settingsDataMsg:
		a.dashboard.applySettings(msg.settings)
		a.reports.weekday = msg.settings.weekStart
		a.reports.recompute()
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case statusMsg:
		return a, a.setStatus(msg.text, msg.isError)

	case clearStatusMsg:
		if msg.id == a.statusID {
			a.status = ""
			a.statusErr = false
		}
		return a, nil

	case exportDoneMsg:
		a.exportPicking = false
		return a, a.setStatus("Exported to "+msg.path, false)
	}

	return a.updateActiveView(msg)
}

func (a *App) transitionStatus(msg transitionMsg) tea.Cmd {
	if msg.err != nil {
		text, isErr := describeError(msg.err)
		return a.setStatus(text, isErr)
	}

	switch msg.op {
	case "start":
		return a.setStatus("Timer started", false)
	case "pause":
		return a.setStatus("Timer paused", false)
	case "reset":
		return a.setStatus("Timer reset", false)
	case "select":
		return a.setStatus("Studying "+a.dashboard.timer.subject(), false)
	case "save":
		s := msg.session
		return a.setStatus(fmt.Sprintf("Saved %s of %s / %s", formatDuration(s.Duration), s.Discipline, s.Topic), false)
	case "clear":
		return a.setStatus("History cleared", false)
	}
	return nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewDisciplines:
		a.disciplines, cmd = a.disciplines.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.formActive
	case viewDisciplines:
		return a.disciplines.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewDisciplines:
		content = a.disciplines.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("studytime")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	timerInfo := ""
	switch {
	case a.dashboard.isRunning():
		timerInfo = successStyle.Render(" ● " + formatDuration(a.dashboard.elapsed()))
	case a.dashboard.isPaused():
		timerInfo = warningStyle.Render(" ⏸ " + formatDuration(a.dashboard.elapsed()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export Format"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	data := a.ctl.Snapshot().Data
	return func() tea.Msg {
		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path := exportPath(home, format, time.Now())

		if format == 0 {
			if err := export.ToCSV(data.Sessions(), path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			if err := export.ToJSON(data, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}
		return exportDoneMsg{path: path}
	}
}

func exportPath(dir string, format int, now time.Time) string {
	ext := "csv"
	if format == 1 {
		ext = "json"
	}
	return filepath.Join(dir, fmt.Sprintf("studytime-export-%s.%s", now.Format("2006-01-02"), ext))
}
