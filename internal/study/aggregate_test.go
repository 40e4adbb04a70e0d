package study

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func sess(id, discipline, topic string, secs int) Session {
	return NewSession(id, discipline, topic, time.Duration(secs)*time.Second, day0)
}

func mustCommit(t *testing.T, a Aggregate, sessions ...Session) Aggregate {
	t.Helper()
	for _, s := range sessions {
		next, err := a.Commit(s)
		require.NoError(t, err)
		a = next
	}
	return a
}

// sums recomputes the totals straight from the session list.
func sums(sessions []Session) (map[string]time.Duration, map[[2]string]time.Duration) {
	disc := make(map[string]time.Duration)
	topic := make(map[[2]string]time.Duration)
	for _, s := range sessions {
		disc[s.Discipline] += s.Duration
		topic[[2]string{s.Discipline, s.Topic}] += s.Duration
	}
	return disc, topic
}

func totalsOf(a Aggregate) (map[string]time.Duration, map[[2]string]time.Duration) {
	disc := make(map[string]time.Duration)
	topic := make(map[[2]string]time.Duration)
	for _, e := range a.Entries() {
		disc[e.Discipline] = e.TotalTime
		for _, t := range e.Topics {
			topic[[2]string{e.Discipline, t.Topic}] = t.Time
		}
	}
	return disc, topic
}

// ============================================================
// Commit
// ============================================================

func TestCommitSingleSession(t *testing.T) {
	a := mustCommit(t, Aggregate{}, sess("1", "Math", "Algebra", 65))

	require.Equal(t, 1, a.Len())
	e, ok := a.Entry("Math")
	require.True(t, ok)
	assert.Equal(t, 65*time.Second, e.TotalTime)
	got, ok := e.Topic("Algebra")
	require.True(t, ok)
	assert.Equal(t, 65*time.Second, got)
}

func TestCommitSameDisciplineTwoTopics(t *testing.T) {
	a := mustCommit(t, Aggregate{},
		sess("1", "Math", "Algebra", 30),
		sess("2", "Math", "Geometry", 90),
	)

	e, _ := a.Entry("Math")
	assert.Equal(t, 120*time.Second, e.TotalTime)

	top := a.TopTopics(5)
	require.Len(t, top, 2)
	assert.Equal(t, "Geometry", top[0].Topic)
	assert.Equal(t, 90*time.Second, top[0].Total)
}

func TestCommitRejectsInvalidSessions(t *testing.T) {
	base := mustCommit(t, Aggregate{}, sess("dup", "Math", "Algebra", 10))

	tests := []struct {
		name string
		s    Session
	}{
		{"empty discipline", sess("a", "", "Algebra", 10)},
		{"blank discipline", Session{ID: "b", Discipline: "  ", Topic: "Algebra", Duration: time.Second}},
		{"empty topic", sess("c", "Math", "", 10)},
		{"zero duration", sess("d", "Math", "Algebra", 0)},
		{"negative duration", Session{ID: "e", Discipline: "Math", Topic: "Algebra", Duration: -time.Second}},
		{"empty id", sess("", "Math", "Algebra", 10)},
		{"duplicate id", sess("dup", "Math", "Algebra", 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.Commit(tt.s)

			var invalid *InvalidSessionError
			require.ErrorAs(t, err, &invalid)
			assert.NotEmpty(t, invalid.Reason)
			assert.Equal(t, 1, got.Len())
			assert.Equal(t, base.Sessions(), got.Sessions())
			e, _ := got.Entry("Math")
			assert.Equal(t, 10*time.Second, e.TotalTime)
		})
	}
}

func TestCommitDoesNotMutateReceiver(t *testing.T) {
	a := mustCommit(t, Aggregate{}, sess("1", "Math", "Algebra", 10))
	before := a.Entries()

	_ = mustCommit(t, a, sess("2", "Math", "Algebra", 20), sess("3", "Physics", "Optics", 5))

	assert.Equal(t, 1, a.Len())
	if diff := cmp.Diff(before, a.Entries()); diff != "" {
		t.Fatalf("receiver changed (-before +after):\n%s", diff)
	}
}

func TestCommitInvariantRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	disciplines := []string{"Math", "Physics", "History"}
	topics := []string{"A", "B", "C", "D"}

	var a Aggregate
	for i := 0; i < 200; i++ {
		s := NewSession(fmt.Sprintf("s%d", i),
			disciplines[rng.Intn(len(disciplines))],
			topics[rng.Intn(len(topics))],
			time.Duration(rng.Intn(5000)+1)*time.Millisecond, day0)
		next, err := a.Commit(s)
		require.NoError(t, err)
		a = next

		wantDisc, wantTopic := sums(a.Sessions())
		gotDisc, gotTopic := totalsOf(a)
		if diff := cmp.Diff(wantDisc, gotDisc); diff != "" {
			t.Fatalf("discipline totals after %d commits (-want +got):\n%s", i+1, diff)
		}
		if diff := cmp.Diff(wantTopic, gotTopic); diff != "" {
			t.Fatalf("topic totals after %d commits (-want +got):\n%s", i+1, diff)
		}
	}
	require.NoError(t, a.Consistent())
}

func TestNewSessionRoundsAndTrims(t *testing.T) {
	s := NewSession("x", " Math ", "Algebra\t", 1500*time.Microsecond, day0.In(time.FixedZone("X", 3600)))
	assert.Equal(t, "Math", s.Discipline)
	assert.Equal(t, "Algebra", s.Topic)
	assert.Equal(t, 2*time.Millisecond, s.Duration)
	assert.Equal(t, time.UTC, s.Date.Location())
}

// ============================================================
// Clear / Load / Rebuild
// ============================================================

func TestClear(t *testing.T) {
	a := mustCommit(t, Aggregate{}, sess("1", "Math", "Algebra", 10), sess("2", "Physics", "Optics", 20))
	saved, savedEntries := a.Sessions(), a.Entries()

	cleared := a.Clear()
	assert.Zero(t, cleared.Len())
	assert.Empty(t, cleared.Entries())
	assert.Empty(t, cleared.TopDisciplines(0))

	restored := Load(saved, savedEntries)
	assert.Equal(t, 2, restored.Len())
	if diff := cmp.Diff(savedEntries, restored.Entries()); diff != "" {
		t.Fatalf("restored entries (-want +got):\n%s", diff)
	}
}

func TestLoadIsVerbatim(t *testing.T) {
	sessions := []Session{sess("1", "Math", "Algebra", 10)}
	entries := []Entry{{Discipline: "Math", TotalTime: time.Hour, Topics: []TopicTime{{"Algebra", time.Hour}}}}

	a := Load(sessions, entries)

	e, _ := a.Entry("Math")
	assert.Equal(t, time.Hour, e.TotalTime, "load must not recompute")
	assert.ErrorIs(t, a.Consistent(), ErrInconsistent)
}

func TestLoadCopiesInput(t *testing.T) {
	sessions := []Session{sess("1", "Math", "Algebra", 10)}
	a := Load(sessions, nil)
	sessions[0].Topic = "changed"

	assert.Equal(t, "Algebra", a.Sessions()[0].Topic)
}

func TestRebuildHealsLoadedPair(t *testing.T) {
	sessions := []Session{sess("1", "Math", "Algebra", 10), sess("2", "Math", "Algebra", 5)}
	broken := Load(sessions, []Entry{{Discipline: "Math", TotalTime: time.Second}})
	require.Error(t, broken.Consistent())

	healed, err := Rebuild(broken.Sessions())
	require.NoError(t, err)
	require.NoError(t, healed.Consistent())
	e, _ := healed.Entry("Math")
	assert.Equal(t, 15*time.Second, e.TotalTime)
}

func TestRebuildReportsBadSession(t *testing.T) {
	_, err := Rebuild([]Session{sess("1", "Math", "Algebra", 10), sess("2", "Math", "", 10)})

	var invalid *InvalidSessionError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "session 1")
}

func TestConsistentDetectsExtraDiscipline(t *testing.T) {
	a := Load(nil, []Entry{{Discipline: "Ghost", TotalTime: time.Minute}})
	err := a.Consistent()
	require.True(t, errors.Is(err, ErrInconsistent))
	assert.Contains(t, err.Error(), "Ghost")
}

// ============================================================
// Queries
// ============================================================

func TestTopDisciplinesOrderAndLimit(t *testing.T) {
	a := mustCommit(t, Aggregate{},
		sess("1", "History", "Rome", 30),
		sess("2", "Math", "Algebra", 90),
		sess("3", "Physics", "Optics", 30),
		sess("4", "Biology", "Cells", 10),
	)

	got := a.TopDisciplines(3)
	want := []DisciplineTotal{
		{"Math", 90 * time.Second},
		{"History", 30 * time.Second}, // tie with Physics, seen first
		{"Physics", 30 * time.Second},
	}
	assert.Equal(t, want, got)
	assert.Len(t, a.TopDisciplines(0), 4)
	assert.Len(t, a.TopDisciplines(10), 4)
}

func TestTopTopicsGlobalTieBreak(t *testing.T) {
	a := mustCommit(t, Aggregate{},
		sess("1", "Math", "Algebra", 20),
		sess("2", "Physics", "Optics", 20),
		sess("3", "Math", "Geometry", 20),
		sess("4", "Physics", "Waves", 50),
	)

	got := a.TopTopics(0)
	want := []TopicTotal{
		{"Physics", "Waves", 50 * time.Second},
		{"Math", "Algebra", 20 * time.Second},
		{"Math", "Geometry", 20 * time.Second},
		{"Physics", "Optics", 20 * time.Second},
	}
	assert.Equal(t, want, got)
}

func TestTopicsOfDiscipline(t *testing.T) {
	a := mustCommit(t, Aggregate{},
		sess("1", "Math", "Algebra", 20),
		sess("2", "Math", "Geometry", 40),
	)

	got := a.Topics("Math")
	require.Len(t, got, 2)
	assert.Equal(t, "Geometry", got[0].Topic)
	assert.Nil(t, a.Topics("Unknown"))
}

func TestTotal(t *testing.T) {
	a := mustCommit(t, Aggregate{}, sess("1", "Math", "Algebra", 20), sess("2", "Art", "Color", 40))
	assert.Equal(t, time.Minute, a.Total())
	assert.Zero(t, Aggregate{}.Total())
}

func TestDailyTotals(t *testing.T) {
	mk := func(id, d string, secs int, at time.Time) Session {
		return NewSession(id, d, "T", time.Duration(secs)*time.Second, at)
	}
	a := mustCommit(t, Aggregate{},
		mk("1", "Math", 60, day0),
		mk("2", "Art", 30, day0.Add(time.Hour)),
		mk("3", "Math", 60, day0.Add(2*time.Hour)),
		mk("4", "Math", 10, day0.Add(24*time.Hour)),
		mk("5", "Math", 99, day0.Add(-48*time.Hour)),
	)

	got := a.DailyTotals(day0.Add(-time.Hour), day0.Add(48*time.Hour), time.UTC)
	want := []DayTotal{
		{Date: "2025-03-10", Discipline: "Math", Total: 2 * time.Minute, Sessions: 2},
		{Date: "2025-03-10", Discipline: "Art", Total: 30 * time.Second, Sessions: 1},
		{Date: "2025-03-11", Discipline: "Math", Total: 10 * time.Second, Sessions: 1},
	}
	assert.Equal(t, want, got)
}

func TestOrderEntries(t *testing.T) {
	sessions := []Session{sess("1", "Physics", "Waves", 1), sess("2", "Math", "Geometry", 1), sess("3", "Math", "Algebra", 1)}
	entries := []Entry{
		{Discipline: "Zoology"},
		{Discipline: "Math", Topics: []TopicTime{{"Algebra", 1}, {"Calculus", 1}, {"Geometry", 1}}},
		{Discipline: "Art"},
		{Discipline: "Physics"},
	}

	got := OrderEntries(sessions, entries)

	var names []string
	for _, e := range got {
		names = append(names, e.Discipline)
	}
	assert.Equal(t, []string{"Physics", "Math", "Art", "Zoology"}, names)
	assert.Equal(t, []TopicTime{{"Geometry", 1}, {"Algebra", 1}, {"Calculus", 1}}, got[1].Topics)
	// Input untouched.
	assert.Equal(t, "Algebra", entries[1].Topics[0].Topic)
}
