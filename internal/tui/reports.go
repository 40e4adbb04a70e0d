package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/tracker"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
	reportTotals // all time, per discipline
)

type reportsModel struct {
	width  int
	height int

	mode    reportMode
	data    study.Aggregate
	now     time.Time
	totals  []study.DayTotal
	offset  int // 7-day blocks or weeks back from today (0 = current)
	weekday time.Weekday

	chart barchart.Model
}

func newReportsModel() reportsModel {
	return reportsModel{
		chart:   barchart.New(60, 12),
		now:     time.Now(),
		weekday: time.Monday,
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

func (r *reportsModel) setSnapshot(snap tracker.Snapshot) {
	r.data = snap.Data
	r.now = snap.Now
	r.recompute()
}

func (r *reportsModel) recompute() {
	from, to := r.dateRange()
	r.totals = r.data.DailyTotals(from, to, time.Local)
	r.buildChart()
}

func (r reportsModel) dateRange() (time.Time, time.Time) {
	now := r.now.Local()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	switch r.mode {
	case reportWeekly:
		back := (int(today.Weekday()) - int(r.weekday) + 7) % 7
		startOfWeek := today.AddDate(0, 0, -back-7*r.offset)
		return startOfWeek, startOfWeek.AddDate(0, 0, 7)
	default:
		// Daily: last 7 days
		end := today.AddDate(0, 0, 1-7*r.offset)
		start := end.AddDate(0, 0, -7)
		return start, end
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case r.mode == reportTotals:
			if key.Matches(msg, keys.Enter) {
				r.mode = reportDaily
				r.recompute()
			}
		case key.Matches(msg, keys.Left):
			r.offset++
			r.recompute()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			r.recompute()
		case key.Matches(msg, keys.Enter):
			r.mode++
			r.offset = 0
			r.recompute()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)
	if r.mode == reportTotals {
		r.chart.PushAll(r.totalBars())
		r.chart.Draw()
		return
	}

	from, to := r.dateRange()

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")

		var values []barchart.BarValue
		for _, t := range r.totals {
			if t.Date == dateStr {
				values = append(values, barchart.BarValue{
					Name:  t.Discipline,
					Value: t.Total.Hours(),
					Style: lipgloss.NewStyle().Foreground(disciplineColor(colorIndex(r.data, t.Discipline))),
				})
			}
		}

		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}

		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: values,
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

// totalBars has one bar per discipline, in minutes, highest first.
func (r reportsModel) totalBars() []barchart.BarData {
	var bars []barchart.BarData
	for _, d := range r.data.TopDisciplines(0) {
		bars = append(bars, barchart.BarData{
			Label: truncate(d.Discipline, 10),
			Values: []barchart.BarValue{{
				Name:  d.Discipline,
				Value: d.Total.Minutes(),
				Style: lipgloss.NewStyle().Foreground(disciplineColor(colorIndex(r.data, d.Discipline))),
			}},
		})
	}
	return bars
}

func (r reportsModel) periodTotal() time.Duration {
	if r.mode == reportTotals {
		return r.data.Total()
	}
	var total time.Duration
	for _, t := range r.totals {
		total += t.Total
	}
	return total
}

func (r reportsModel) view() string {
	w := r.width - 4

	var tabs []string
	for i, name := range []string{"Daily", "Weekly", "Totals"} {
		if reportMode(i) == r.mode {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	dateLabel := mutedStyle.Render("all time")
	if r.mode != reportTotals {
		from, to := r.dateRange()
		dateLabel = mutedStyle.Render(fmt.Sprintf("%s - %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))
	}
	total := highlightStyle.Render(formatHours(r.periodTotal()))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", dateLabel, "  ", total,
	)

	if r.mode == reportTotals {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				header, "", r.chart.View(), "", r.renderShares(), "", r.renderTopTopics(),
				"", mutedStyle.Render("  minutes per discipline  enter: switch mode"),
			),
		)
	}

	nav := mutedStyle.Render("  ←/→: navigate  enter: switch mode")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderLegend(), "", r.renderSummaryTable(w), "", nav,
		),
	)
}

// renderShares lists each discipline's share of all study time.
func (r reportsModel) renderShares() string {
	all := r.data.Total()
	if all <= 0 {
		return mutedStyle.Render("  No study time yet")
	}
	var rows []string
	for _, d := range r.data.TopDisciplines(0) {
		dot := lipgloss.NewStyle().Foreground(disciplineColor(colorIndex(r.data, d.Discipline))).Render("●")
		rows = append(rows, fmt.Sprintf("  %s %-18s %10s %5.1f%%",
			dot, d.Discipline, formatDuration(d.Total), 100*d.Total.Seconds()/all.Seconds(),
		))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderTopTopics() string {
	top := r.data.TopTopics(5)
	if len(top) == 0 {
		return ""
	}
	rows := []string{titleStyle.Render("  Top topics")}
	for i, t := range top {
		rows = append(rows, fmt.Sprintf("  %s %-30s %10s",
			rankStyle.Render(fmt.Sprintf("%d.", i+1)), t.Discipline+" / "+t.Topic, formatDuration(t.Total),
		))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderSummaryTable(w int) string {
	if len(r.totals) == 0 {
		return mutedStyle.Render("  No study time in this period")
	}

	var rows []string
	headerRow := mutedStyle.Render(fmt.Sprintf("  %-12s %-20s %10s %8s", "Date", "Discipline", "Duration", "Sessions"))
	rows = append(rows, headerRow)
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 54))))

	for _, t := range r.totals {
		dot := lipgloss.NewStyle().Foreground(disciplineColor(colorIndex(r.data, t.Discipline))).Render("●")
		rows = append(rows, fmt.Sprintf("  %-12s %s %-18s %10s %8d",
			t.Date, dot, t.Discipline, formatDuration(t.Total), t.Sessions,
		))
	}

	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	seen := make(map[string]bool)
	var items []string
	for _, t := range r.totals {
		if seen[t.Discipline] {
			continue
		}
		seen[t.Discipline] = true
		dot := lipgloss.NewStyle().Foreground(disciplineColor(colorIndex(r.data, t.Discipline))).Render("●")
		items = append(items, fmt.Sprintf("%s %s", dot, t.Discipline))
	}
	if len(items) == 0 {
		return ""
	}
	return "  " + strings.Join(items, "  ")
}
