package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytime/internal/config"
	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/timer"
	"github.com/sadopc/studytime/internal/tracker"
)

// disciplinesModel browses the catalog with the time studied per discipline
// and topic. Picking a topic selects it for the timer.
type disciplinesModel struct {
	ctl    *tracker.Controller
	ctx    context.Context
	cfg    *config.Config
	width  int
	height int

	data          study.Aggregate
	locked        bool
	names         []string
	topics        []string
	cursor        int
	topicCursor   int
	viewingTopics bool

	formActive bool
	form       *huh.Form
	formType   string // "discipline" or "topic"

	// Form field pointers (survive value copies)
	formName *string
}

func newDisciplinesModel(ctx context.Context, ctl *tracker.Controller, cfg *config.Config) disciplinesModel {
	name := ""
	d := disciplinesModel{
		ctl:      ctl,
		ctx:      ctx,
		cfg:      cfg,
		formName: &name,
	}
	d.names = disciplineNames(cfg, d.data)
	return d
}

func (p *disciplinesModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *disciplinesModel) setSnapshot(snap tracker.Snapshot) {
	p.data = snap.Data
	p.locked = snap.Timer.Locked()
	p.names = disciplineNames(p.cfg, p.data)
	if p.cursor >= len(p.names) {
		p.cursor = max(0, len(p.names)-1)
	}
	if p.viewingTopics {
		p.topics = topicNames(p.cfg, p.data, p.current())
		if p.topicCursor >= len(p.topics) {
			p.topicCursor = max(0, len(p.topics)-1)
		}
	}
}

func (p disciplinesModel) current() string {
	if p.cursor < len(p.names) {
		return p.names[p.cursor]
	}
	return ""
}

func (p disciplinesModel) update(msg tea.Msg) (disciplinesModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if p.viewingTopics {
			return p.updateTopicView(msg)
		}
		return p.updateDisciplineList(msg)
	}
	return p, nil
}

func (p disciplinesModel) updateDisciplineList(msg tea.KeyMsg) (disciplinesModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.names)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(p.names) > 0 {
			p.viewingTopics = true
			p.topicCursor = 0
			p.topics = topicNames(p.cfg, p.data, p.current())
		}
	case key.Matches(msg, keys.New):
		return p.showNameForm("discipline")
	}
	return p, nil
}

func (p disciplinesModel) updateTopicView(msg tea.KeyMsg) (disciplinesModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		p.viewingTopics = false
	case key.Matches(msg, keys.Up):
		if p.topicCursor > 0 {
			p.topicCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.topicCursor < len(p.topics)-1 {
			p.topicCursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(p.topics) > 0 {
			return p, p.choose(p.current(), p.topics[p.topicCursor], "", "")
		}
	case key.Matches(msg, keys.New):
		return p.showNameForm("topic")
	}
	return p, nil
}

func (p disciplinesModel) choose(discipline, topic, customDiscipline, customTopic string) tea.Cmd {
	if p.locked {
		return errorCmd(timer.ErrSelectorsLocked)
	}
	ctl := p.ctl
	return run(p.ctx, "select", func(ctx context.Context) error {
		return ctl.Select(ctx, discipline, topic, customDiscipline, customTopic)
	})
}

func (p disciplinesModel) showNameForm(formType string) (disciplinesModel, tea.Cmd) {
	if p.locked {
		return p, errorCmd(timer.ErrSelectorsLocked)
	}
	*p.formName = ""
	p.formType = formType

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("New %s", formType)).
				Value(p.formName).
				Validate(required(formType)),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p disciplinesModel) updateForm(msg tea.Msg) (disciplinesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		name := strings.TrimSpace(*p.formName)
		switch p.formType {
		case "discipline":
			// A new discipline has no topic yet; the topic is picked next.
			return p, p.choose(timer.Other, "", name, "")
		case "topic":
			return p, p.choose(p.current(), timer.Other, "", name)
		}
	}

	return p, cmd
}

func (p disciplinesModel) view() string {
	if p.formActive && p.form != nil {
		title := titleStyle.Render("New " + strings.ToUpper(p.formType[:1]) + p.formType[1:])
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View())
		return panelStyle.Width(p.width - 4).Render(content)
	}

	if p.viewingTopics {
		return p.renderTopicView()
	}
	return p.renderDisciplineList()
}

func (p disciplinesModel) dot(discipline string) string {
	i := colorIndex(p.data, discipline)
	if i < 0 {
		return lipgloss.NewStyle().Foreground(colorSubtle).Render("○")
	}
	return lipgloss.NewStyle().Foreground(disciplineColor(i)).Render("●")
}

func (p disciplinesModel) renderDisciplineList() string {
	w := p.width - 4
	title := titleStyle.Render("Disciplines")

	if len(p.names) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("The catalog is empty. Press n to add a discipline."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %10s %8s", "", "Name", "Studied", "Topics"))
	rows = append(rows, header)

	for i, name := range p.names {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		var total string
		topics := 0
		if e, ok := p.data.Entry(name); ok {
			total = formatDuration(e.TotalTime)
			topics = len(e.Topics)
		} else {
			total = mutedStyle.Render("-")
		}
		row := style.Render(fmt.Sprintf("%s%s %-24s %10s %8d", cursor, p.dot(name), name, total, topics))
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new discipline  enter: topics"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p disciplinesModel) renderTopicView() string {
	w := p.width - 4
	discipline := p.current()
	title := titleStyle.Render(fmt.Sprintf("%s %s · Topics", p.dot(discipline), discipline))

	if len(p.topics) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No topics. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	entry, _ := p.data.Entry(discipline)

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, topic := range p.topics {
		cursor := "  "
		style := normalItemStyle
		if i == p.topicCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		spent := mutedStyle.Render("-")
		if d, ok := entry.Topic(topic); ok {
			spent = formatDuration(d)
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-28s", cursor, topic))+" "+spent)
	}

	rows = append(rows, "")
	hint := "  n: new topic  enter: study this  esc: back"
	if p.locked {
		hint = "  reset the timer to change the subject  esc: back"
	}
	rows = append(rows, mutedStyle.Render(hint))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
