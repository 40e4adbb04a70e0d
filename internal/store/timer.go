package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/studytime/internal/timer"
)

// SaveTimer stores the whole timer state, replacing the previous one.
func (s *Store) SaveTimer(ctx context.Context, st timer.State) error {
	var lastUpdated *string
	if st.LastUpdated != nil {
		v := st.LastUpdated.UTC().Format(timeLayout)
		lastUpdated = &v
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO timer_state (id, running, elapsed_ns, last_updated, discipline, topic,
			custom_discipline, custom_topic, show_custom_discipline, show_custom_topic, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			running = excluded.running,
			elapsed_ns = excluded.elapsed_ns,
			last_updated = excluded.last_updated,
			discipline = excluded.discipline,
			topic = excluded.topic,
			custom_discipline = excluded.custom_discipline,
			custom_topic = excluded.custom_topic,
			show_custom_discipline = excluded.show_custom_discipline,
			show_custom_topic = excluded.show_custom_topic,
			updated_at = excluded.updated_at`,
		boolToInt(st.Running), int64(st.Elapsed), lastUpdated, st.Discipline, st.Topic,
		st.CustomDiscipline, st.CustomTopic, boolToInt(st.ShowCustomDiscipline), boolToInt(st.ShowCustomTopic),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save timer: %w", err)
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LoadTimer returns the stored timer state, or the zero state if none was
// saved yet.
func (s *Store) LoadTimer(ctx context.Context) (timer.State, error) {
	var (
		st                         timer.State
		running, showDisc, showTop int
		elapsed                    int64
		lastUpdated                sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT running, elapsed_ns, last_updated, discipline, topic,
			custom_discipline, custom_topic, show_custom_discipline, show_custom_topic
		FROM timer_state WHERE id = 1`,
	).Scan(&running, &elapsed, &lastUpdated, &st.Discipline, &st.Topic,
		&st.CustomDiscipline, &st.CustomTopic, &showDisc, &showTop)
	if errors.Is(err, sql.ErrNoRows) {
		return timer.State{}, nil
	}
	if err != nil {
		return timer.State{}, fmt.Errorf("load timer: %w", err)
	}

	st.Running = running == 1
	st.Elapsed = time.Duration(elapsed)
	st.ShowCustomDiscipline = showDisc == 1
	st.ShowCustomTopic = showTop == 1
	if lastUpdated.Valid {
		t, err := time.Parse(timeLayout, lastUpdated.String)
		if err != nil {
			return timer.State{}, fmt.Errorf("parse timer last_updated: %w", err)
		}
		st.LastUpdated = &t
	}
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
