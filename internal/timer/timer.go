package timer

import (
	"strings"
	"time"

	"github.com/sadopc/studytime/internal/clock"
	"github.com/sadopc/studytime/internal/study"
)

// Other is the catch-all catalog value that switches a selector to free text.
const Other = "Other"

// Phase is the coarse state of the timer.
type Phase int

const (
	Idle Phase = iota
	Paused
	Running
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// State is the in-progress study session: the elapsed-time counter and the
// (discipline, topic) it is attributed to.
//
// Transitions are methods that return a new State; the receiver is never
// modified.
type State struct {
	clock.Counter

	Discipline           string
	Topic                string
	CustomDiscipline     string
	CustomTopic          string
	ShowCustomDiscipline bool
	ShowCustomTopic      bool
}

// Phase reports whether the timer is idle, paused or running.
func (s State) Phase() Phase {
	switch {
	case s.Running:
		return Running
	case s.Elapsed > 0:
		return Paused
	default:
		return Idle
	}
}

// Locked reports whether the selection may no longer change.
func (s State) Locked() bool {
	return s.Running || s.Elapsed > 0
}

// EffectiveDiscipline resolves the Other sentinel to the free-text value.
func (s State) EffectiveDiscipline() string {
	if s.Discipline == Other {
		return strings.TrimSpace(s.CustomDiscipline)
	}
	return strings.TrimSpace(s.Discipline)
}

// EffectiveTopic resolves the Other sentinel to the free-text value.
func (s State) EffectiveTopic() string {
	if s.Topic == Other {
		return strings.TrimSpace(s.CustomTopic)
	}
	return strings.TrimSpace(s.Topic)
}

func (s State) checkSelection() error {
	if s.EffectiveDiscipline() == "" {
		return &MissingSelectionError{Field: "discipline"}
	}
	if s.EffectiveTopic() == "" {
		return &MissingSelectionError{Field: "topic"}
	}
	return nil
}

// Reconcile folds the wall-clock gap into the elapsed time.
func (s State) Reconcile(now time.Time, force bool) State {
	s.Counter = clock.Reconcile(s.Counter, now, force)
	return s
}

// Start moves an idle or paused timer to running. Starting a running timer
// changes nothing.
func (s State) Start(now time.Time) (State, error) {
	if s.Running {
		return s, nil
	}
	if err := s.checkSelection(); err != nil {
		return s, err
	}
	s.Running = true
	s.LastUpdated = &now
	return s, nil
}

// Pause stops a running timer after folding in the time up to now.
// Pausing a stopped timer changes nothing.
func (s State) Pause(now time.Time) State {
	if !s.Running {
		return s
	}
	s = s.Reconcile(now, false)
	s.Running = false
	s.LastUpdated = nil
	return s
}

// Reset discards the elapsed time. The selection is kept.
func (s State) Reset() State {
	s.Counter = clock.Counter{}
	return s
}

// Commit pauses the timer and hands the elapsed time to agg as a new session.
//
// On success the returned timer is reset and the returned aggregate includes
// the session. If agg rejects the session the timer is returned paused with
// its elapsed time intact, agg is returned unchanged and the error is
// *study.InvalidSessionError.
func (s State) Commit(agg study.Aggregate, now time.Time, id string) (State, study.Aggregate, study.Session, error) {
	if s.Pause(now).Elapsed <= 0 {
		return s, agg, study.Session{}, ErrNothingToSave
	}
	if err := s.checkSelection(); err != nil {
		return s, agg, study.Session{}, err
	}

	paused := s.Pause(now)
	session := study.NewSession(id, paused.EffectiveDiscipline(), paused.EffectiveTopic(), paused.Elapsed, now)
	next, err := agg.Commit(session)
	if err != nil {
		return paused, agg, study.Session{}, err
	}
	return paused.Reset(), next, session, nil
}

func (s State) unlocked() error {
	if s.Locked() {
		return ErrSelectorsLocked
	}
	return nil
}

// SetDiscipline selects a discipline and clears the topic, which belongs to
// the previous discipline.
func (s State) SetDiscipline(v string) (State, error) {
	if err := s.unlocked(); err != nil {
		return s, err
	}
	s.Discipline = v
	s.Topic = ""
	s.CustomTopic = ""
	s.ShowCustomDiscipline = v == Other
	s.ShowCustomTopic = false
	return s, nil
}

func (s State) SetTopic(v string) (State, error) {
	if err := s.unlocked(); err != nil {
		return s, err
	}
	s.Topic = v
	s.ShowCustomTopic = v == Other
	return s, nil
}

func (s State) SetCustomDiscipline(v string) (State, error) {
	if err := s.unlocked(); err != nil {
		return s, err
	}
	s.CustomDiscipline = v
	return s, nil
}

func (s State) SetCustomTopic(v string) (State, error) {
	if err := s.unlocked(); err != nil {
		return s, err
	}
	s.CustomTopic = v
	return s, nil
}
