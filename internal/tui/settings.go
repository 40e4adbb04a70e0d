package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytime/internal/config"
	"github.com/sadopc/studytime/internal/store"
	"github.com/sadopc/studytime/internal/tracker"
)

const settingWeekStart = "week_start"

// appSettings are the effective preferences: stored values over config
// defaults.
type appSettings struct {
	topDisciplines int
	topTopics      int
	dailyGoal      time.Duration
	weekStart      time.Weekday
}

type settingsModel struct {
	store  *store.Store
	ctl    *tracker.Controller
	ctx    context.Context
	cfg    *config.Config
	width  int
	height int

	current    appSettings
	formActive bool
	form       *huh.Form
	formType   string // "edit" or "clear"

	// Form values as pointers (survive value copies)
	topDisciplines *string
	topTopics      *string
	dailyGoal      *string
	weekStart      *string
	confirmClear   *bool
}

func newSettingsModel(ctx context.Context, s *store.Store, ctl *tracker.Controller, cfg *config.Config) settingsModel {
	td, tt, dg, ws, cc := "", "", "", "", false
	return settingsModel{
		store:          s,
		ctl:            ctl,
		ctx:            ctx,
		cfg:            cfg,
		current:        appSettings{topDisciplines: cfg.TopDisciplines, topTopics: cfg.TopTopics, weekStart: time.Monday},
		topDisciplines: &td,
		topTopics:      &tt,
		dailyGoal:      &dg,
		weekStart:      &ws,
		confirmClear:   &cc,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings appSettings
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return settingsDataMsg{settings: loadSettings(s.ctx, s.store, s.cfg)}
	}
}

func loadSettings(ctx context.Context, st *store.Store, cfg *config.Config) appSettings {
	out := appSettings{
		topDisciplines: st.GetIntSetting(ctx, store.SettingTopDisciplines, cfg.TopDisciplines),
		topTopics:      st.GetIntSetting(ctx, store.SettingTopTopics, cfg.TopTopics),
		dailyGoal:      time.Duration(st.GetIntSetting(ctx, store.SettingDailyGoal, 0)) * time.Second,
		weekStart:      time.Monday,
	}
	if v, err := st.GetSetting(ctx, settingWeekStart); err == nil && v == "sunday" {
		out.weekStart = time.Sunday
	}
	return out
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.current = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		case key.Matches(msg, keys.Clear):
			return s.showClearForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.topDisciplines = strconv.Itoa(s.current.topDisciplines)
	*s.topTopics = strconv.Itoa(s.current.topTopics)
	*s.dailyGoal = fmt.Sprintf("%.1f", s.current.dailyGoal.Hours())
	*s.weekStart = "monday"
	if s.current.weekStart == time.Sunday {
		*s.weekStart = "sunday"
	}
	s.formType = "edit"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Disciplines on the board").Value(s.topDisciplines).Validate(positiveInt),
			huh.NewInput().Title("Topics on the board").Value(s.topTopics).Validate(positiveInt),
		).Title("Board"),
		huh.NewGroup(
			huh.NewInput().Title("Daily goal (hours)").Value(s.dailyGoal).Validate(nonNegativeHours),
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(s.weekStart),
		).Title("Goals"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showClearForm() (settingsModel, tea.Cmd) {
	*s.confirmClear = false
	s.formType = "clear"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Clear all study history?").
				Description("Every saved session and total is removed. This can't be undone.").
				Affirmative("Clear").
				Negative("Cancel").
				Value(s.confirmClear),
		),
	).WithShowHelp(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		switch s.formType {
		case "clear":
			if *s.confirmClear {
				return s, run(s.ctx, "clear", s.ctl.Clear)
			}
			return s, nil
		default:
			if err := s.saveSettings(); err != nil {
				return s, errorCmd(err)
			}
			return s, s.refresh()
		}
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	pairs := [][2]string{
		{store.SettingTopDisciplines, *s.topDisciplines},
		{store.SettingTopTopics, *s.topTopics},
		{store.SettingDailyGoal, hoursToSecs(*s.dailyGoal)},
		{settingWeekStart, *s.weekStart},
	}
	for _, p := range pairs {
		if err := s.store.SetSetting(s.ctx, p[0], p[1]); err != nil {
			return fmt.Errorf("save setting %s: %w", p[0], err)
		}
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	title := titleStyle.Render("Settings")

	rows := []string{title, ""}
	for _, kv := range [][2]string{
		{"Disciplines on the board", strconv.Itoa(s.current.topDisciplines)},
		{"Topics on the board", strconv.Itoa(s.current.topTopics)},
		{"Daily goal", formatGoal(s.current.dailyGoal)},
		{"Week starts on", s.current.weekStart.String()},
		{"Catalog disciplines", strconv.Itoa(len(s.cfg.Catalog))},
		{"Database", s.cfg.DatabasePath},
	} {
		label := lipgloss.NewStyle().Width(26).Render(kv[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(kv[1])))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to edit settings, D to clear all history"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatGoal(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}

func hoursToSecs(s string) string {
	if hours, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.Itoa(int(hours * 3600))
	}
	return s
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}

func nonNegativeHours(s string) error {
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || h < 0 {
		return fmt.Errorf("enter a number of hours, 0 to turn the goal off")
	}
	return nil
}
