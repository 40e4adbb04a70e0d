package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytime/internal/config"
	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/timer"
	"github.com/sadopc/studytime/internal/tracker"
)

type dashboardModel struct {
	ctl    *tracker.Controller
	ctx    context.Context
	cfg    *config.Config
	timer  timerModel
	width  int
	height int

	data           study.Aggregate
	todayTotal     time.Duration
	topDisciplines int
	topTopics      int
	dailyGoal      time.Duration

	// Board state
	boardCursor int
	expanded    map[string]bool

	formActive bool
	form       *huh.Form
	formType   string // "choose" or "save"

	// Form field pointers (survive value copies)
	discipline       *string
	topic            *string
	customDiscipline *string
	customTopic      *string
	confirm          *bool
}

func newDashboardModel(ctx context.Context, ctl *tracker.Controller, cfg *config.Config) dashboardModel {
	d, t, cd, ct, ok := "", "", "", "", false
	return dashboardModel{
		ctl:              ctl,
		ctx:              ctx,
		cfg:              cfg,
		topDisciplines:   cfg.TopDisciplines,
		topTopics:        cfg.TopTopics,
		expanded:         make(map[string]bool),
		discipline:       &d,
		topic:            &t,
		customDiscipline: &cd,
		customTopic:      &ct,
		confirm:          &ok,
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d *dashboardModel) setSnapshot(snap tracker.Snapshot) {
	d.timer.sync(snap.Timer, snap.Now)
	d.data = snap.Data

	local := snap.Now.Local()
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	d.todayTotal = 0
	for _, row := range snap.Data.DailyTotals(dayStart, dayStart.AddDate(0, 0, 1), time.Local) {
		d.todayTotal += row.Total
	}

	if n := len(d.board()); d.boardCursor >= n {
		d.boardCursor = max(0, n-1)
	}
}

func (d *dashboardModel) applySettings(s appSettings) {
	d.topDisciplines = s.topDisciplines
	d.topTopics = s.topTopics
	d.dailyGoal = s.dailyGoal
}

func (d dashboardModel) isRunning() bool { return d.timer.running() }
func (d dashboardModel) isPaused() bool  { return d.timer.paused() }
func (d dashboardModel) elapsed() time.Duration {
	return d.timer.currentElapsed()
}

func (d dashboardModel) board() []study.DisciplineTotal {
	return d.data.TopDisciplines(d.topDisciplines)
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}

	switch msg := msg.(type) {
	case frameMsg:
		d.timer.advance(time.Time(msg))
		return d, nil

	case tea.KeyMsg:
		ctl := d.ctl
		switch {
		case key.Matches(msg, keys.Start):
			return d, run(d.ctx, "start", ctl.Start)

		case key.Matches(msg, keys.Pause):
			if d.timer.running() {
				return d, run(d.ctx, "pause", ctl.Pause)
			}
			return d, run(d.ctx, "start", ctl.Start)

		case key.Matches(msg, keys.Reset):
			return d, run(d.ctx, "reset", ctl.Reset)

		case key.Matches(msg, keys.Save):
			if d.timer.state.Phase() == timer.Idle {
				return d, errorCmd(timer.ErrNothingToSave)
			}
			return d.showSaveForm()

		case key.Matches(msg, keys.Choose):
			if d.timer.state.Locked() {
				return d, errorCmd(timer.ErrSelectorsLocked)
			}
			return d.showChooseForm()

		case key.Matches(msg, keys.Up):
			if d.boardCursor > 0 {
				d.boardCursor--
			}
		case key.Matches(msg, keys.Down):
			if d.boardCursor < len(d.board())-1 {
				d.boardCursor++
			}
		case key.Matches(msg, keys.Enter):
			if b := d.board(); d.boardCursor < len(b) {
				name := b[d.boardCursor].Discipline
				d.expanded[name] = !d.expanded[name]
			}
		}
	}
	return d, nil
}

func (d dashboardModel) showChooseForm() (dashboardModel, tea.Cmd) {
	st := d.timer.state
	*d.discipline = st.Discipline
	*d.topic = st.Topic
	*d.customDiscipline = st.CustomDiscipline
	*d.customTopic = st.CustomTopic
	d.formType = "choose"

	cfg, data := d.cfg, d.data
	disc, topic := d.discipline, d.topic

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Discipline").
				Options(huh.NewOptions(append(disciplineNames(cfg, data), timer.Other)...)...).
				Value(d.discipline),
		),
		huh.NewGroup(
			huh.NewInput().Title("Which discipline?").Value(d.customDiscipline).Validate(required("discipline")),
		).WithHideFunc(func() bool { return *disc != timer.Other }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Topic").
				OptionsFunc(func() []huh.Option[string] {
					return huh.NewOptions(append(topicNames(cfg, data, *disc), timer.Other)...)
				}, disc).
				Value(d.topic),
		),
		huh.NewGroup(
			huh.NewInput().Title("Which topic?").Value(d.customTopic).Validate(required("topic")),
		).WithHideFunc(func() bool { return *topic != timer.Other }),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) showSaveForm() (dashboardModel, tea.Cmd) {
	*d.confirm = true
	d.formType = "save"

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this session?").
				Description(fmt.Sprintf("%s of %s", formatDuration(d.timer.currentElapsed()), d.timer.subject())).
				Affirmative("Save").
				Negative("Keep timing").
				Value(d.confirm),
		),
	).WithShowHelp(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formActive = false
			d.form = nil
			return d, nil
		}
	}
	if msg, ok := msg.(frameMsg); ok {
		d.timer.advance(time.Time(msg))
		return d, nil
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	if d.form.State == huh.StateCompleted {
		d.formActive = false
		ctl := d.ctl
		switch d.formType {
		case "choose":
			disc, topic, cd, ct := *d.discipline, *d.topic, *d.customDiscipline, *d.customTopic
			return d, run(d.ctx, "select", func(ctx context.Context) error {
				return ctl.Select(ctx, disc, topic, cd, ct)
			})
		case "save":
			if !*d.confirm {
				return d, nil
			}
			ctx := d.ctx
			return d, func() tea.Msg {
				s, err := ctl.Save(ctx)
				return transitionMsg{op: "save", session: s, err: err}
			}
		}
	}

	return d, cmd
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	if d.formActive && d.form != nil {
		title := titleStyle.Render("Choose what to study")
		if d.formType == "save" {
			title = titleStyle.Render("Save Session")
		}
		return activePanelStyle.Width(contentWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", d.form.View()),
		)
	}

	timerPanel := d.renderTimerPanel(contentWidth)
	todayPanel := d.renderTodayPanel(contentWidth)

	half := contentWidth / 2
	board := lipgloss.JoinHorizontal(lipgloss.Top,
		d.renderDisciplineBoard(half),
		d.renderTopicBoard(contentWidth-half),
	)

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, todayPanel, board)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	timeStr := formatDuration(d.timer.currentElapsed())
	subject := d.timer.subject()

	var timeDisplay, indicator, hint string
	style := panelStyle

	switch d.timer.state.Phase() {
	case timer.Running:
		timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
		indicator = successStyle.Render("●  RUNNING")
		hint = mutedStyle.Render("space: pause  w: save  r: reset")
		style = activePanelStyle
	case timer.Paused:
		timeDisplay = timerPausedStyle.Width(w - 6).Render(timeStr)
		indicator = warningStyle.Render("⏸  PAUSED")
		hint = mutedStyle.Render("space: resume  w: save  r: reset")
		style = activePanelStyle
	default:
		timeDisplay = timerStyle.Width(w - 6).Render(timeStr)
		indicator = mutedStyle.Render("■  STOPPED")
		hint = mutedStyle.Render("c: choose subject  s: start")
	}

	subjectLine := mutedStyle.Render("nothing selected")
	if subject != "" {
		subjectLine = highlightStyle.Render(subject)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		timeDisplay,
		indicator,
		subjectLine,
		hint,
	)
	return style.Width(w).Render(content)
}

func (d dashboardModel) renderTodayPanel(w int) string {
	title := titleStyle.Render("Today")
	total := highlightStyle.Render(formatDuration(d.todayTotal))
	header := fmt.Sprintf("%s  %s", title, total)

	if d.dailyGoal <= 0 {
		return panelStyle.Width(w).Render(header)
	}

	barWidth := max(10, min(40, w-30))
	ratio := float64(d.todayTotal) / float64(d.dailyGoal)
	filled := min(barWidth, int(ratio*float64(barWidth)))
	bar := goalDoneStyle.Render(strings.Repeat("█", filled)) +
		goalLeftStyle.Render(strings.Repeat("░", barWidth-filled))
	goal := mutedStyle.Render(fmt.Sprintf("%3.0f%% of %s", ratio*100, formatHours(d.dailyGoal)))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		bar+"  "+goal,
	))
}

func (d dashboardModel) renderDisciplineBoard(w int) string {
	title := titleStyle.Render(fmt.Sprintf("Top %d Disciplines", d.topDisciplines))
	top := d.board()
	if len(top) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet"),
		))
	}

	var rows []string
	rows = append(rows, title)
	for i, dt := range top {
		cursor := "  "
		style := normalItemStyle
		if i == d.boardCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		arrow := "▸"
		if d.expanded[dt.Discipline] {
			arrow = "▾"
		}
		dot := lipgloss.NewStyle().Foreground(disciplineColor(colorIndex(d.data, dt.Discipline))).Render("●")
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s %-18s", cursor, arrow, rankStyle.Render(fmt.Sprintf("%d.", i+1)), dt.Discipline))+
			" "+dot+" "+formatDuration(dt.Total))
		if d.expanded[dt.Discipline] {
			for _, tt := range d.data.Topics(dt.Discipline) {
				rows = append(rows, mutedStyle.Render(fmt.Sprintf("       %-20s %s", tt.Topic, formatDuration(tt.Total))))
			}
		}
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderTopicBoard(w int) string {
	title := titleStyle.Render(fmt.Sprintf("Top %d Topics", d.topTopics))
	top := d.data.TopTopics(d.topTopics)
	if len(top) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet"),
		))
	}

	var rows []string
	rows = append(rows, title)
	for i, tt := range top {
		rows = append(rows, fmt.Sprintf("  %s %-18s %s",
			rankStyle.Render(fmt.Sprintf("%d.", i+1)),
			tt.Topic,
			formatDuration(tt.Total),
		))
		rows = append(rows, mutedStyle.Render("     "+tt.Discipline))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
