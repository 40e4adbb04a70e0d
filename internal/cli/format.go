package cli

import (
	"fmt"
	"time"

	"github.com/sadopc/studytime/internal/export"
	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/timer"
)

func formatDuration(d time.Duration) string {
	return export.FormatDuration(d)
}

func subject(st timer.State) string {
	d, t := st.EffectiveDiscipline(), st.EffectiveTopic()
	switch {
	case d == "":
		return ""
	case t == "":
		return d
	default:
		return fmt.Sprintf("%s / %s", d, t)
	}
}

// todayTotal sums the sessions dated on now's local calendar day.
func todayTotal(data study.Aggregate, now time.Time) time.Duration {
	local := now.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	var total time.Duration
	for _, row := range data.DailyTotals(start, start.AddDate(0, 0, 1), time.Local) {
		total += row.Total
	}
	return total
}

// recent returns up to n sessions, newest first. n <= 0 returns all.
func recent(sessions []study.Session, n int) []study.Session {
	if n <= 0 || n > len(sessions) {
		n = len(sessions)
	}
	out := make([]study.Session, 0, n)
	for i := len(sessions) - 1; i >= len(sessions)-n; i-- {
		out = append(out, sessions[i])
	}
	return out
}
