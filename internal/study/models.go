package study

import (
	"strings"
	"time"
)

// Resolution is the granularity session durations are stored at.
const Resolution = time.Millisecond

// Session is one committed block of study time. Sessions are values and are
// never modified after creation.
type Session struct {
	ID         string
	Discipline string
	Topic      string
	Duration   time.Duration
	Date       time.Time
}

// NewSession builds a session with trimmed labels and the duration rounded
// to Resolution.
func NewSession(id, discipline, topic string, d time.Duration, date time.Time) Session {
	return Session{
		ID:         id,
		Discipline: strings.TrimSpace(discipline),
		Topic:      strings.TrimSpace(topic),
		Duration:   d.Round(Resolution),
		Date:       date.UTC(),
	}
}

// TopicTime is the accumulated time of one topic within a discipline.
type TopicTime struct {
	Topic string
	Time  time.Duration
}

// Entry is the aggregate of one discipline. Topics are in first-seen order.
type Entry struct {
	Discipline string
	TotalTime  time.Duration
	Topics     []TopicTime
}

// Topic returns the accumulated time of topic within the entry.
func (e Entry) Topic(topic string) (time.Duration, bool) {
	for _, t := range e.Topics {
		if t.Topic == topic {
			return t.Time, true
		}
	}
	return 0, false
}

// DisciplineTotal is one row of the discipline ranking.
type DisciplineTotal struct {
	Discipline string
	Total      time.Duration
}

// TopicTotal is one row of the (discipline, topic) ranking.
type TopicTotal struct {
	Discipline string
	Topic      string
	Total      time.Duration
}

// DayTotal is the time spent on a discipline on one calendar day.
type DayTotal struct {
	Date       string // 2006-01-02 in the requested location
	Discipline string
	Total      time.Duration
	Sessions   int
}
