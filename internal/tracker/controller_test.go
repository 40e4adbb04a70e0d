package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sadopc/studytime/internal/clock"
	"github.com/sadopc/studytime/internal/store"
	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/timer"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// memStore is an in-process Persister that can be told to fail writes.
type memStore struct {
	mu      sync.Mutex
	data    study.Aggregate
	state   timer.State
	failErr error
	writes  int
}

func (m *memStore) LoadStudyData(context.Context) (study.Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memStore) SaveStudyData(_ context.Context, agg study.Aggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.writes++
	m.data = agg
	return nil
}

func (m *memStore) LoadTimer(context.Context) (timer.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memStore) SaveTimer(_ context.Context, st timer.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.writes++
	m.state = st
	return nil
}

func (m *memStore) Revision(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(m.writes), nil
}

func (m *memStore) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func newController(t *testing.T) (*Controller, *memStore, *clock.Manual) {
	t.Helper()
	ms := &memStore{}
	clk := clock.NewManual(t0)
	c := New(ms, WithClock(clk), WithIDFunc(sequentialIDs()))
	require.NoError(t, c.Load(context.Background()))
	return c, ms, clk
}

func studyFor(t *testing.T, c *Controller, clk *clock.Manual, discipline, topic string, d time.Duration) study.Session {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, discipline, topic, "", ""))
	require.NoError(t, c.Start(ctx))
	clk.Advance(d)
	require.NoError(t, c.Tick(ctx))
	s, err := c.Save(ctx)
	require.NoError(t, err)
	return s
}

// ============================================================
// Scenarios
// ============================================================

func TestSaveAfterSixtyFiveSeconds(t *testing.T) {
	c, ms, clk := newController(t)
	session := studyFor(t, c, clk, "Math", "Algebra", 65*time.Second)

	assert.Equal(t, 65*time.Second, session.Duration)
	assert.Equal(t, "s1", session.ID)

	snap := c.Snapshot()
	assert.Equal(t, timer.Idle, snap.Timer.Phase())
	e, ok := snap.Data.Entry("Math")
	require.True(t, ok)
	assert.Equal(t, 65*time.Second, e.TotalTime)
	topic, _ := e.Topic("Algebra")
	assert.Equal(t, 65*time.Second, topic)

	assert.Equal(t, 1, ms.data.Len(), "commit is persisted")
	assert.Equal(t, timer.Idle, ms.state.Phase(), "reset timer is persisted")
}

func TestSaveWithNothingElapsed(t *testing.T) {
	c, ms, _ := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, "Math", "Algebra", "", ""))

	_, err := c.Save(ctx)

	assert.ErrorIs(t, err, timer.ErrNothingToSave)
	assert.Zero(t, c.Snapshot().Data.Len())
	assert.Zero(t, ms.data.Len())
}

func TestTopTopicAfterTwoSessions(t *testing.T) {
	c, _, clk := newController(t)
	studyFor(t, c, clk, "Math", "Algebra", 30*time.Second)
	studyFor(t, c, clk, "Math", "Geometry", 90*time.Second)

	data := c.Snapshot().Data
	e, _ := data.Entry("Math")
	assert.Equal(t, 120*time.Second, e.TotalTime)
	top := data.TopTopics(1)
	require.Len(t, top, 1)
	assert.Equal(t, "Geometry", top[0].Topic)
}

func TestStartWithoutTopic(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()
	require.NoError(t, c.SetDiscipline(ctx, "Math"))

	err := c.Start(ctx)

	var missing *timer.MissingSelectionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "topic", missing.Field)
	assert.Equal(t, timer.Idle, c.Snapshot().Timer.Phase())
}

func TestClearThenImportRestores(t *testing.T) {
	c, ms, clk := newController(t)
	ctx := context.Background()
	studyFor(t, c, clk, "Math", "Algebra", 30*time.Second)
	studyFor(t, c, clk, "Physics", "Optics", 45*time.Second)
	saved := c.Snapshot().Data

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Snapshot().Data.Len())
	assert.Empty(t, c.Snapshot().Data.Entries())
	assert.Zero(t, ms.data.Len())

	require.NoError(t, c.Import(ctx, saved.Sessions(), saved.Entries()))
	assert.Equal(t, saved.Entries(), c.Snapshot().Data.Entries())
	assert.Equal(t, 2, ms.data.Len())
}

// ============================================================
// Timer behaviour
// ============================================================

func TestSelectionLockedWhileTiming(t *testing.T) {
	c, _, clk := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, c.Start(ctx))
	clk.Advance(time.Second)
	require.NoError(t, c.Pause(ctx))

	err := c.Select(ctx, "Physics", "Optics", "", "")

	assert.ErrorIs(t, err, timer.ErrSelectorsLocked)
	st := c.Snapshot().Timer
	assert.Equal(t, "Math", st.Discipline)
	assert.Equal(t, "Algebra", st.Topic)

	require.NoError(t, c.Reset(ctx))
	assert.NoError(t, c.SetDiscipline(ctx, "Physics"))
}

func TestPauseCountsUntilNow(t *testing.T) {
	c, _, clk := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, c.Start(ctx))
	clk.Advance(2500 * time.Millisecond)

	require.NoError(t, c.Pause(ctx))
	clk.Advance(time.Hour)

	snap := c.Snapshot()
	assert.Equal(t, timer.Paused, snap.Timer.Phase())
	assert.Equal(t, 2500*time.Millisecond, snap.Elapsed())
}

func TestSnapshotProjectsRunningGap(t *testing.T) {
	c, _, clk := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, c.Start(ctx))
	clk.Advance(700 * time.Millisecond)

	snap := c.Snapshot()
	assert.Zero(t, snap.Timer.Elapsed, "no tick yet")
	assert.Equal(t, 700*time.Millisecond, snap.Elapsed())
}

func TestSaveWithCustomSelection(t *testing.T) {
	c, _, clk := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, timer.Other, timer.Other, " Astronomy ", "Black holes"))
	require.NoError(t, c.Start(ctx))
	clk.Advance(time.Minute)

	session, err := c.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Astronomy", session.Discipline)
	assert.Equal(t, "Black holes", session.Topic)
}

func TestRejectedSaveKeepsTime(t *testing.T) {
	ms := &memStore{}
	clk := clock.NewManual(t0)
	c := New(ms, WithClock(clk), WithIDFunc(func() string { return "same" }))
	ctx := context.Background()
	studyFor(t, c, clk, "Math", "Algebra", time.Second)

	require.NoError(t, c.Start(ctx))
	clk.Advance(10 * time.Second)
	_, err := c.Save(ctx)

	var invalid *study.InvalidSessionError
	require.ErrorAs(t, err, &invalid)
	snap := c.Snapshot()
	assert.Equal(t, timer.Paused, snap.Timer.Phase())
	assert.Equal(t, 10*time.Second, snap.Timer.Elapsed)
	assert.Equal(t, 1, snap.Data.Len())
}

// ============================================================
// Persistence
// ============================================================

func TestLoadReconcilesRunningTimer(t *testing.T) {
	ms := &memStore{}
	clk := clock.NewManual(t0)
	ctx := context.Background()

	first := New(ms, WithClock(clk))
	require.NoError(t, first.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, first.Start(ctx))
	clk.Advance(5 * time.Second)
	require.NoError(t, first.Tick(ctx))

	// The process is gone for a minute.
	clk.Advance(time.Minute)
	second := New(ms, WithClock(clk))
	require.NoError(t, second.Load(ctx))

	snap := second.Snapshot()
	assert.Equal(t, timer.Running, snap.Timer.Phase())
	assert.Equal(t, 65*time.Second, snap.Timer.Elapsed)
	assert.Equal(t, 65*time.Second, ms.state.Elapsed, "reconciled state is written back")
}

func TestLoadLeavesPausedTimer(t *testing.T) {
	ms := &memStore{}
	clk := clock.NewManual(t0)
	ctx := context.Background()

	first := New(ms, WithClock(clk))
	require.NoError(t, first.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, first.Start(ctx))
	clk.Advance(5 * time.Second)
	require.NoError(t, first.Pause(ctx))

	clk.Advance(time.Hour)
	second := New(ms, WithClock(clk))
	require.NoError(t, second.Load(ctx))

	assert.Equal(t, 5*time.Second, second.Snapshot().Timer.Elapsed)
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	c, ms, clk := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, c.Start(ctx))
	clk.Advance(20 * time.Second)

	diskFull := errors.New("disk full")
	ms.fail(diskFull)
	session, err := c.Save(ctx)

	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, 20*time.Second, session.Duration)
	assert.Equal(t, 1, c.Snapshot().Data.Len(), "commit applied in memory")
	assert.Zero(t, ms.data.Len())

	// The next successful write catches the store up.
	ms.fail(nil)
	require.NoError(t, c.Repair(ctx))
	assert.Equal(t, 1, ms.data.Len())
}

func TestFailedTransitionDoesNotWrite(t *testing.T) {
	c, ms, _ := newController(t)
	before := ms.writes

	err := c.Start(context.Background())

	require.Error(t, err)
	assert.Equal(t, before, ms.writes)
}

func TestRepairRebuildsTotals(t *testing.T) {
	ms := &memStore{data: study.Load(
		[]study.Session{study.NewSession("a", "Math", "Algebra", time.Minute, t0)},
		[]study.Entry{{Discipline: "Math", TotalTime: time.Hour,
			Topics: []study.TopicTime{{Topic: "Algebra", Time: time.Hour}}}},
	)}
	c := New(ms)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	require.ErrorIs(t, c.Snapshot().Data.Consistent(), study.ErrInconsistent)

	require.NoError(t, c.Repair(ctx))

	assert.NoError(t, c.Snapshot().Data.Consistent())
	e, _ := ms.data.Entry("Math")
	assert.Equal(t, time.Minute, e.TotalTime)
}

func TestWithSQLiteStore(t *testing.T) {
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	clk := clock.NewManual(t0)

	c := New(st, WithClock(clk))
	require.NoError(t, c.Load(ctx))
	studyFor(t, c, clk, "Math", "Algebra", 42*time.Second)

	reopened := New(st, WithClock(clk))
	require.NoError(t, reopened.Load(ctx))
	e, ok := reopened.Snapshot().Data.Entry("Math")
	require.True(t, ok)
	assert.Equal(t, 42*time.Second, e.TotalTime)
	assert.Equal(t, "Math", reopened.Snapshot().Timer.Discipline)
}

// openShared opens a controller on its own connection to the database at
// path, the way separate invocations of the binary would.
func openShared(t *testing.T, path string, clk *clock.Manual, idPrefix string) *Controller {
	t.Helper()
	st, err := store.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	n := 0
	c := New(st, WithClock(clk), WithIDFunc(func() string {
		n++
		return fmt.Sprintf("%s%d", idPrefix, n)
	}))
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestWatcherAdoptsSaveFromAnotherProcess(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "studytime.db")
	clk := clock.NewManual(t0)

	watcher := openShared(t, path, clk, "w")
	require.NoError(t, watcher.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, watcher.Start(ctx))
	clk.Advance(60 * time.Second)
	require.NoError(t, watcher.Tick(ctx))

	other := openShared(t, path, clk, "o")
	saved, err := other.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, saved.Duration)

	clk.Advance(5 * time.Second)
	require.NoError(t, watcher.Tick(ctx))
	require.NoError(t, watcher.Flush(ctx))

	snap := watcher.Snapshot()
	assert.Equal(t, timer.Idle, snap.Timer.Phase())
	assert.Equal(t, 1, snap.Data.Len())

	fresh := openShared(t, path, clk, "f")
	snap = fresh.Snapshot()
	assert.Equal(t, timer.Idle, snap.Timer.Phase())
	assert.Zero(t, snap.Timer.Elapsed)
	assert.Equal(t, 1, snap.Data.Len())
	assert.Equal(t, 60*time.Second, snap.Data.Total())

	_, err = watcher.Save(ctx)
	assert.ErrorIs(t, err, timer.ErrNothingToSave, "the time was already saved elsewhere")
}

func TestCommitKeepsSessionSavedElsewhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studytime.db")
	clk := clock.NewManual(t0)

	ui := openShared(t, path, clk, "u")
	other := openShared(t, path, clk, "o")
	studyFor(t, other, clk, "Physics", "Optics", 30*time.Second)

	studyFor(t, ui, clk, "Math", "Algebra", 20*time.Second)
	assert.Equal(t, 2, ui.Snapshot().Data.Len())

	fresh := openShared(t, path, clk, "f")
	data := fresh.Snapshot().Data
	assert.Equal(t, 2, data.Len())
	assert.Equal(t, 50*time.Second, data.Total())
	_, ok := data.Entry("Physics")
	assert.True(t, ok)
}

// ============================================================
// Ticker
// ============================================================

func TestRunStopsAndFlushes(t *testing.T) {
	defer goleak.VerifyNone(t)

	ms := &memStore{}
	c := New(ms)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Select(ctx, "Math", "Algebra", "", ""))
	require.NoError(t, c.Start(ctx))

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 10*time.Millisecond) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Positive(t, ms.state.Elapsed)
}

func TestConcurrentTransitions(t *testing.T) {
	c, _, clk := newController(t)
	ctx := context.Background()
	require.NoError(t, c.Select(ctx, "Math", "Algebra", "", ""))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Start(ctx)
			c.Tick(ctx)
			c.Pause(ctx)
			c.Snapshot()
		}()
	}
	wg.Wait()

	clk.Advance(time.Second)
	require.NoError(t, c.Start(ctx))
	clk.Advance(time.Second)
	_, err := c.Save(ctx)
	require.NoError(t, err)
	assert.NoError(t, c.Snapshot().Data.Consistent())
}
