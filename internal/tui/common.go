package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/timer"
	"github.com/sadopc/studytime/internal/tracker"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewDisciplines
	viewReports
	viewSettings
)

var viewNames = []string{"Dashboard", "Disciplines", "Reports", "Settings"}

// statusTTL is how long a status message stays in the footer.
const statusTTL = 4 * time.Second

// --- Messages ---

// transitionMsg reports a finished controller call.
type transitionMsg struct {
	op      string
	session study.Session
	err     error
}

type statusMsg struct {
	text    string
	isError bool
}

type clearStatusMsg struct {
	id int
}

type tickMsg time.Time

type frameMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// describeError turns controller errors into footer text.
func describeError(err error) (string, bool) {
	var (
		missing *timer.MissingSelectionError
		invalid *study.InvalidSessionError
		persist *tracker.PersistError
	)
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("Select a %s first (press c)", missing.Field), true
	case errors.Is(err, timer.ErrSelectorsLocked):
		return "Can't change the selection while the timer has time. Reset it first.", true
	case errors.Is(err, timer.ErrNothingToSave):
		return "Nothing to save yet", true
	case errors.As(err, &invalid):
		return "Not saved: " + invalid.Reason, true
	case errors.As(err, &persist):
		return "Warning: " + persist.Error(), true
	default:
		return "Error: " + err.Error(), true
	}
}
