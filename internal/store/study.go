package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/studytime/internal/study"
)

// SaveStudyData replaces the stored session list and totals with agg in a
// single transaction.
func (s *Store) SaveStudyData(ctx context.Context, agg study.Aggregate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"topic_totals", "discipline_totals", "sessions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, sess := range agg.Sessions() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (seq, id, discipline, topic, duration_ms, date) VALUES (?, ?, ?, ?, ?, ?)`,
			i+1, sess.ID, sess.Discipline, sess.Topic, sess.Duration.Milliseconds(), sess.Date.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert session %q: %w", sess.ID, err)
		}
	}

	for i, e := range agg.Entries() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO discipline_totals (discipline, position, total_ms) VALUES (?, ?, ?)`,
			e.Discipline, i, e.TotalTime.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert discipline total %q: %w", e.Discipline, err)
		}
		for j, t := range e.Topics {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO topic_totals (discipline, topic, position, total_ms) VALUES (?, ?, ?, ?)`,
				e.Discipline, t.Topic, j, t.Time.Milliseconds(),
			)
			if err != nil {
				return fmt.Errorf("insert topic total %q/%q: %w", e.Discipline, t.Topic, err)
			}
		}
	}

	if err := bumpRevision(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LoadStudyData restores the aggregate exactly as stored. Totals are not
// recomputed from the sessions.
func (s *Store) LoadStudyData(ctx context.Context) (study.Aggregate, error) {
	sessions, err := s.loadSessions(ctx)
	if err != nil {
		return study.Aggregate{}, err
	}
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return study.Aggregate{}, err
	}
	return study.Load(sessions, entries), nil
}

func (s *Store) loadSessions(ctx context.Context) ([]study.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, discipline, topic, duration_ms, date FROM sessions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []study.Session
	for rows.Next() {
		var (
			sess    study.Session
			ms      int64
			dateStr string
		)
		if err := rows.Scan(&sess.ID, &sess.Discipline, &sess.Topic, &ms, &dateStr); err != nil {
			return nil, err
		}
		sess.Duration = time.Duration(ms) * time.Millisecond
		sess.Date, err = time.Parse(timeLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse date of session %q: %w", sess.ID, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) loadEntries(ctx context.Context) ([]study.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.discipline, d.total_ms, t.topic, t.total_ms
		FROM discipline_totals d
		LEFT JOIN topic_totals t ON t.discipline = d.discipline
		ORDER BY d.position, t.position`)
	if err != nil {
		return nil, fmt.Errorf("list totals: %w", err)
	}
	defer rows.Close()

	var entries []study.Entry
	for rows.Next() {
		var (
			discipline string
			totalMs    int64
			topic      sql.NullString
			topicMs    sql.NullInt64
		)
		if err := rows.Scan(&discipline, &totalMs, &topic, &topicMs); err != nil {
			return nil, err
		}
		if n := len(entries); n == 0 || entries[n-1].Discipline != discipline {
			entries = append(entries, study.Entry{
				Discipline: discipline,
				TotalTime:  time.Duration(totalMs) * time.Millisecond,
			})
		}
		if topic.Valid {
			last := &entries[len(entries)-1]
			last.Topics = append(last.Topics, study.TopicTime{
				Topic: topic.String,
				Time:  time.Duration(topicMs.Int64) * time.Millisecond,
			})
		}
	}
	return entries, rows.Err()
}

// CountSessions returns the number of stored sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
