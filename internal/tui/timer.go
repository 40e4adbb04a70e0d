package tui

import (
	"time"

	"github.com/sadopc/studytime/internal/clock"
	"github.com/sadopc/studytime/internal/timer"
)

// timerModel mirrors the controller's timer for display. The controller
// stays authoritative; frames only smooth the shown value between ticks.
type timerModel struct {
	state timer.State
	frame clock.Frame
	shown time.Duration
}

// sync adopts a fresh controller state.
func (t *timerModel) sync(st timer.State, now time.Time) {
	t.state = st
	t.shown = t.frame.Advance(st.Counter, now)
}

func (t *timerModel) advance(now time.Time) {
	t.shown = t.frame.Advance(t.state.Counter, now)
}

func (t timerModel) running() bool { return t.state.Phase() == timer.Running }
func (t timerModel) paused() bool  { return t.state.Phase() == timer.Paused }

func (t timerModel) currentElapsed() time.Duration {
	return t.shown
}

// subject is "discipline / topic" using the custom text for Other.
func (t timerModel) subject() string {
	d, tp := t.state.EffectiveDiscipline(), t.state.EffectiveTopic()
	switch {
	case d == "":
		return ""
	case tp == "":
		return d
	default:
		return d + " / " + tp
	}
}
