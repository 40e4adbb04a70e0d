package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sadopc/studytime/internal/clock"
	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/timer"
)

// Persister is the durable side of the controller. *store.Store satisfies it.
type Persister interface {
	LoadStudyData(ctx context.Context) (study.Aggregate, error)
	SaveStudyData(ctx context.Context, agg study.Aggregate) error
	LoadTimer(ctx context.Context) (timer.State, error)
	SaveTimer(ctx context.Context, st timer.State) error
	// Revision counts committed saves from every process sharing the store.
	Revision(ctx context.Context) (int64, error)
}

// Controller owns the timer and the study aggregate. Every transition runs
// under one lock; the new state is swapped in before it is persisted.
type Controller struct {
	mu    sync.Mutex
	state timer.State
	data  study.Aggregate
	rev   int64 // store revision the in-memory state matches

	store Persister
	clock clock.Clock
	log   *zap.Logger
	newID func() string
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// WithIDFunc replaces the session ID generator (uuid v4 by default).
func WithIDFunc(fn func() string) Option {
	return func(ctl *Controller) { ctl.newID = fn }
}

func New(store Persister, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		clock: clock.System{},
		log:   zap.NewNop(),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot is a consistent read-only view of the controller.
type Snapshot struct {
	Timer timer.State
	Data  study.Aggregate
	Now   time.Time
}

// Elapsed includes the running gap not yet folded in by a tick.
func (s Snapshot) Elapsed() time.Duration {
	return clock.Projected(s.Timer.Counter, s.Now)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Timer: c.state, Data: c.data, Now: c.clock.Now()}
}

// Load restores the saved aggregate and timer. A timer that was running when
// it was saved is reconciled up to now, so time spent closed is counted.
func (c *Controller) Load(ctx context.Context) (err error) {
	defer c.observe("load", time.Now(), &err)

	rev, err := c.store.Revision(ctx)
	if err != nil {
		return fmt.Errorf("read revision: %w", err)
	}
	data, err := c.store.LoadStudyData(ctx)
	if err != nil {
		return fmt.Errorf("load study data: %w", err)
	}
	st, err := c.store.LoadTimer(ctx)
	if err != nil {
		return fmt.Errorf("load timer: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.state = st
	c.rev = rev
	if st.Running {
		c.state = st.Reconcile(c.clock.Now(), true)
		return c.saveTimer(ctx)
	}
	return nil
}

// Tick folds the wall-clock gap into a running timer and persists it.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(ctx)
	if !c.state.Running {
		return nil
	}
	c.state = c.state.Reconcile(c.clock.Now(), false)
	return c.saveTimer(ctx)
}

// Run ticks every interval until ctx is cancelled, then persists the final
// reconciled timer.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	err := clock.Run(ctx, interval, func(time.Time) {
		if err := c.Tick(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("tick", zap.Error(err))
		}
	})
	if flushErr := c.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		c.log.Warn("flush timer", zap.Error(flushErr))
	}
	return err
}

// Flush reconciles and persists the timer. Call it on shutdown.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(ctx)
	c.state = c.state.Reconcile(c.clock.Now(), false)
	return c.saveTimer(ctx)
}

func (c *Controller) Start(ctx context.Context) (err error) {
	defer c.observe("start", time.Now(), &err)
	return c.transition(ctx, func(st timer.State, now time.Time) (timer.State, error) {
		return st.Start(now)
	})
}

func (c *Controller) Pause(ctx context.Context) (err error) {
	defer c.observe("pause", time.Now(), &err)
	return c.transition(ctx, func(st timer.State, now time.Time) (timer.State, error) {
		return st.Pause(now), nil
	})
}

func (c *Controller) Reset(ctx context.Context) (err error) {
	defer c.observe("reset", time.Now(), &err)
	return c.transition(ctx, func(st timer.State, _ time.Time) (timer.State, error) {
		return st.Reset(), nil
	})
}

func (c *Controller) SetDiscipline(ctx context.Context, v string) (err error) {
	defer c.observe("set_discipline", time.Now(), &err, zap.String("value", v))
	return c.transition(ctx, func(st timer.State, _ time.Time) (timer.State, error) {
		return st.SetDiscipline(v)
	})
}

func (c *Controller) SetTopic(ctx context.Context, v string) (err error) {
	defer c.observe("set_topic", time.Now(), &err, zap.String("value", v))
	return c.transition(ctx, func(st timer.State, _ time.Time) (timer.State, error) {
		return st.SetTopic(v)
	})
}

func (c *Controller) SetCustomDiscipline(ctx context.Context, v string) (err error) {
	defer c.observe("set_custom_discipline", time.Now(), &err)
	return c.transition(ctx, func(st timer.State, _ time.Time) (timer.State, error) {
		return st.SetCustomDiscipline(v)
	})
}

func (c *Controller) SetCustomTopic(ctx context.Context, v string) (err error) {
	defer c.observe("set_custom_topic", time.Now(), &err)
	return c.transition(ctx, func(st timer.State, _ time.Time) (timer.State, error) {
		return st.SetCustomTopic(v)
	})
}

// Select sets discipline and topic in one step. Either value may be
// timer.Other, in which case the matching custom text is used.
func (c *Controller) Select(ctx context.Context, discipline, topic, customDiscipline, customTopic string) (err error) {
	defer c.observe("select", time.Now(), &err,
		zap.String("discipline", discipline), zap.String("topic", topic))
	return c.transition(ctx, func(st timer.State, _ time.Time) (timer.State, error) {
		st, err := st.SetDiscipline(discipline)
		if err != nil {
			return st, err
		}
		if st, err = st.SetCustomDiscipline(customDiscipline); err != nil {
			return st, err
		}
		if st, err = st.SetTopic(topic); err != nil {
			return st, err
		}
		return st.SetCustomTopic(customTopic)
	})
}

// transition applies fn under the lock. The state is replaced only when fn
// succeeds; a failed write afterwards is reported as *PersistError.
func (c *Controller) transition(ctx context.Context, fn func(timer.State, time.Time) (timer.State, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(ctx)
	next, err := fn(c.state, c.clock.Now())
	if err != nil {
		return err
	}
	c.state = next
	return c.saveTimer(ctx)
}

// Save commits the elapsed time as a session and resets the timer.
func (c *Controller) Save(ctx context.Context) (session study.Session, err error) {
	start := time.Now()
	defer func() {
		c.observe("save", start, &err,
			zap.String("discipline", session.Discipline),
			zap.String("topic", session.Topic),
			zap.Int64("session_ms", session.Duration.Milliseconds()))
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(ctx)

	st, data, session, err := c.state.Commit(c.data, c.clock.Now(), c.newID())
	if err != nil {
		var invalid *study.InvalidSessionError
		if errors.As(err, &invalid) {
			// Commit paused the timer before the aggregate refused it.
			c.state = st
			if perr := c.saveTimer(ctx); perr != nil {
				c.log.Warn("save timer after rejected commit", zap.Error(perr))
			}
		}
		return study.Session{}, err
	}

	c.state, c.data = st, data
	return session, errors.Join(c.saveData(ctx), c.saveTimer(ctx))
}

// Clear removes every session and total. The timer is left alone.
func (c *Controller) Clear(ctx context.Context) (err error) {
	defer c.observe("clear", time.Now(), &err)
	return c.replaceData(ctx, func(d study.Aggregate) (study.Aggregate, error) {
		return d.Clear(), nil
	})
}

// Import replaces the study data with a restored pair, verbatim.
func (c *Controller) Import(ctx context.Context, sessions []study.Session, entries []study.Entry) (err error) {
	defer c.observe("import", time.Now(), &err, zap.Int("sessions", len(sessions)))
	return c.replaceData(ctx, func(study.Aggregate) (study.Aggregate, error) {
		return study.Load(sessions, entries), nil
	})
}

// Repair recomputes every total from the session list.
func (c *Controller) Repair(ctx context.Context) (err error) {
	defer c.observe("repair", time.Now(), &err)
	return c.replaceData(ctx, func(d study.Aggregate) (study.Aggregate, error) {
		return study.Rebuild(d.Sessions())
	})
}

func (c *Controller) replaceData(ctx context.Context, fn func(study.Aggregate) (study.Aggregate, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync(ctx)
	next, err := fn(c.data)
	if err != nil {
		return err
	}
	c.data = next
	return c.saveData(ctx)
}

// sync adopts the stored state when another process saved since this one
// last read or wrote it. If the store can't be read the in-memory state is
// kept. Callers hold c.mu.
func (c *Controller) sync(ctx context.Context) {
	rev, err := c.store.Revision(ctx)
	if err != nil {
		c.log.Warn("read store revision", zap.Error(err))
		return
	}
	if rev == c.rev {
		return
	}
	data, err := c.store.LoadStudyData(ctx)
	if err != nil {
		c.log.Warn("reload study data", zap.Error(err))
		return
	}
	st, err := c.store.LoadTimer(ctx)
	if err != nil {
		c.log.Warn("reload timer", zap.Error(err))
		return
	}
	c.log.Info("adopted state saved by another process",
		zap.Int64("revision", rev), zap.Int64("previous", c.rev))
	c.data, c.state, c.rev = data, st, rev
}

// noteWrite moves c.rev past a save of ours. When another process saved in
// between, c.rev stays behind so the next sync reloads.
func (c *Controller) noteWrite(ctx context.Context) {
	rev, err := c.store.Revision(ctx)
	if err == nil && rev == c.rev+1 {
		c.rev = rev
	}
}

func (c *Controller) saveTimer(ctx context.Context) error {
	if err := c.store.SaveTimer(ctx, c.state); err != nil {
		return &PersistError{Op: "save timer", Err: err}
	}
	c.noteWrite(ctx)
	return nil
}

func (c *Controller) saveData(ctx context.Context) error {
	if err := c.store.SaveStudyData(ctx, c.data); err != nil {
		return &PersistError{Op: "save study data", Err: err}
	}
	c.noteWrite(ctx)
	return nil
}

func (c *Controller) observe(name string, started time.Time, errp *error, fields ...zap.Field) {
	err := *errp
	fields = append(fields,
		zap.String("use_case", name),
		zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		zap.Bool("success", err == nil),
	)
	if err != nil {
		fields = append(fields, zap.Error(err))
		c.log.Error("use_case", fields...)
		return
	}
	c.log.Info("use_case", fields...)
}
