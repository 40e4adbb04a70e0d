package study

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Aggregate owns the ordered session list and the per-discipline and
// per-topic totals derived from it.
//
// Aggregate is a value: Commit, Clear and Load return a new Aggregate and
// never modify the receiver. The zero value is an empty aggregate.
//
// After every Commit, for each discipline d the total of d equals the sum of
// the durations of the sessions of d, and likewise for each (d, topic).
type Aggregate struct {
	sessions []Session
	entries  map[string]*entry
	order    []string // disciplines in first-seen order
}

type entry struct {
	total  time.Duration
	topics map[string]time.Duration
	order  []string // topics in first-seen order
}

// Commit appends s to the session list and folds its duration into the
// totals. An invalid session yields *InvalidSessionError and the receiver is
// returned unchanged.
func (a Aggregate) Commit(s Session) (Aggregate, error) {
	if err := a.validate(s); err != nil {
		return a, err
	}

	next := a.clone()
	next.sessions = append(next.sessions, s)

	e, ok := next.entries[s.Discipline]
	if !ok {
		e = &entry{topics: make(map[string]time.Duration)}
		next.entries[s.Discipline] = e
		next.order = append(next.order, s.Discipline)
	}
	e.total += s.Duration
	if _, ok := e.topics[s.Topic]; !ok {
		e.topics[s.Topic] = 0
		e.order = append(e.order, s.Topic)
	}
	e.topics[s.Topic] += s.Duration

	return next, nil
}

func (a Aggregate) validate(s Session) error {
	switch {
	case strings.TrimSpace(s.Discipline) == "":
		return &InvalidSessionError{Reason: "discipline is empty"}
	case strings.TrimSpace(s.Topic) == "":
		return &InvalidSessionError{Reason: "topic is empty"}
	case s.Duration <= 0:
		return &InvalidSessionError{Reason: fmt.Sprintf("duration %s is not positive", s.Duration)}
	case s.ID == "":
		return &InvalidSessionError{Reason: "id is empty"}
	}
	for _, existing := range a.sessions {
		if existing.ID == s.ID {
			return &InvalidSessionError{Reason: fmt.Sprintf("duplicate id %q", s.ID)}
		}
	}
	return nil
}

// Clear returns an empty aggregate.
func (a Aggregate) Clear() Aggregate {
	return Aggregate{}
}

// Load restores a previously saved pair verbatim. The entries are not
// checked against the sessions; see Consistent.
func Load(sessions []Session, entries []Entry) Aggregate {
	a := Aggregate{
		sessions: slices.Clone(sessions),
		entries:  make(map[string]*entry, len(entries)),
	}
	for _, in := range entries {
		e, ok := a.entries[in.Discipline]
		if !ok {
			e = &entry{topics: make(map[string]time.Duration, len(in.Topics))}
			a.entries[in.Discipline] = e
			a.order = append(a.order, in.Discipline)
		}
		e.total = in.TotalTime
		for _, t := range in.Topics {
			if _, seen := e.topics[t.Topic]; !seen {
				e.order = append(e.order, t.Topic)
			}
			e.topics[t.Topic] = t.Time
		}
	}
	return a
}

// Rebuild folds sessions, in order, into a fresh aggregate.
func Rebuild(sessions []Session) (Aggregate, error) {
	var a Aggregate
	for i, s := range sessions {
		next, err := a.Commit(s)
		if err != nil {
			return Aggregate{}, fmt.Errorf("session %d: %w", i, err)
		}
		a = next
	}
	return a, nil
}

// Consistent reports whether the totals match the session list. The returned
// error wraps ErrInconsistent and names the first mismatch found.
func (a Aggregate) Consistent() error {
	want, err := Rebuild(a.sessions)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	for _, d := range union(a.order, want.order) {
		got, wantE := a.entries[d], want.entries[d]
		if got.totalOrZero() != wantE.totalOrZero() {
			return fmt.Errorf("%w: discipline %q total %s, sessions sum to %s",
				ErrInconsistent, d, got.totalOrZero(), wantE.totalOrZero())
		}
		var gotTopics, wantTopics []string
		if got != nil {
			gotTopics = got.order
		}
		if wantE != nil {
			wantTopics = wantE.order
		}
		for _, t := range union(gotTopics, wantTopics) {
			if got.topicOrZero(t) != wantE.topicOrZero(t) {
				return fmt.Errorf("%w: topic %q/%q total %s, sessions sum to %s",
					ErrInconsistent, d, t, got.topicOrZero(t), wantE.topicOrZero(t))
			}
		}
	}
	return nil
}

func (e *entry) totalOrZero() time.Duration {
	if e == nil {
		return 0
	}
	return e.total
}

func (e *entry) topicOrZero(topic string) time.Duration {
	if e == nil {
		return 0
	}
	return e.topics[topic]
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func (a Aggregate) clone() Aggregate {
	next := Aggregate{
		sessions: slices.Clip(slices.Clone(a.sessions)),
		entries:  make(map[string]*entry, len(a.entries)+1),
		order:    slices.Clone(a.order),
	}
	for d, e := range a.entries {
		topics := make(map[string]time.Duration, len(e.topics)+1)
		for t, v := range e.topics {
			topics[t] = v
		}
		next.entries[d] = &entry{total: e.total, topics: topics, order: slices.Clone(e.order)}
	}
	return next
}

// Len returns the number of committed sessions.
func (a Aggregate) Len() int { return len(a.sessions) }

// Sessions returns a copy of the session list in commit order.
func (a Aggregate) Sessions() []Session {
	return slices.Clone(a.sessions)
}

// Total returns the sum of all discipline totals.
func (a Aggregate) Total() time.Duration {
	var total time.Duration
	for _, e := range a.entries {
		total += e.total
	}
	return total
}

// Entry returns the aggregate of one discipline.
func (a Aggregate) Entry(discipline string) (Entry, bool) {
	e, ok := a.entries[discipline]
	if !ok {
		return Entry{}, false
	}
	return e.export(discipline), true
}

// Entries returns every discipline aggregate in first-seen order.
func (a Aggregate) Entries() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, d := range a.order {
		out = append(out, a.entries[d].export(d))
	}
	return out
}

func (e *entry) export(discipline string) Entry {
	out := Entry{Discipline: discipline, TotalTime: e.total}
	for _, t := range e.order {
		out.Topics = append(out.Topics, TopicTime{Topic: t, Time: e.topics[t]})
	}
	return out
}

// TopDisciplines ranks disciplines by total time, highest first. Ties keep
// first-seen order. n <= 0 returns every discipline.
func (a Aggregate) TopDisciplines(n int) []DisciplineTotal {
	out := make([]DisciplineTotal, 0, len(a.order))
	for _, d := range a.order {
		out = append(out, DisciplineTotal{Discipline: d, Total: a.entries[d].total})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return limit(out, n)
}

// TopTopics ranks (discipline, topic) pairs across all disciplines by topic
// time, highest first. Ties keep discipline first-seen order, then topic
// first-seen order. n <= 0 returns every pair.
func (a Aggregate) TopTopics(n int) []TopicTotal {
	var out []TopicTotal
	for _, d := range a.order {
		e := a.entries[d]
		for _, t := range e.order {
			out = append(out, TopicTotal{Discipline: d, Topic: t, Total: e.topics[t]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return limit(out, n)
}

// Topics ranks the topics of one discipline by time, highest first.
func (a Aggregate) Topics(discipline string) []TopicTotal {
	e, ok := a.entries[discipline]
	if !ok {
		return nil
	}
	out := make([]TopicTotal, 0, len(e.order))
	for _, t := range e.order {
		out = append(out, TopicTotal{Discipline: discipline, Topic: t, Total: e.topics[t]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// DailyTotals sums session time per day and discipline for sessions dated in
// [from, to). Days are calendar days in loc. Rows are ordered by day, then by
// discipline first-seen order.
func (a Aggregate) DailyTotals(from, to time.Time, loc *time.Location) []DayTotal {
	if loc == nil {
		loc = time.UTC
	}
	type key struct{ day, discipline string }
	idx := make(map[key]int)
	var out []DayTotal
	for _, s := range a.sessions {
		if s.Date.Before(from) || !s.Date.Before(to) {
			continue
		}
		k := key{s.Date.In(loc).Format("2006-01-02"), s.Discipline}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, DayTotal{Date: k.day, Discipline: k.discipline})
		}
		out[i].Total += s.Duration
		out[i].Sessions++
	}
	rank := make(map[string]int, len(a.order))
	for i, d := range a.order {
		rank[d] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return rank[out[i].Discipline] < rank[out[j].Discipline]
	})
	return out
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// OrderEntries arranges entries decoded from an unordered source. Disciplines
// and topics that appear in sessions come first, in session order; the rest
// follow sorted by name.
func OrderEntries(sessions []Session, entries []Entry) []Entry {
	discRank := make(map[string]int)
	topicRank := make(map[[2]string]int)
	for _, s := range sessions {
		if _, ok := discRank[s.Discipline]; !ok {
			discRank[s.Discipline] = len(discRank)
		}
		k := [2]string{s.Discipline, s.Topic}
		if _, ok := topicRank[k]; !ok {
			topicRank[k] = len(topicRank)
		}
	}

	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Topics = slices.Clone(e.Topics)
		sort.SliceStable(e.Topics, func(x, y int) bool {
			return ranked(topicRank, [2]string{e.Discipline, e.Topics[x].Topic}, [2]string{e.Discipline, e.Topics[y].Topic},
				e.Topics[x].Topic < e.Topics[y].Topic)
		})
		out[i] = e
	}
	sort.SliceStable(out, func(x, y int) bool {
		return ranked(discRank, out[x].Discipline, out[y].Discipline, out[x].Discipline < out[y].Discipline)
	})
	return out
}

func ranked[K comparable](rank map[K]int, a, b K, byName bool) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA != okB:
		return okA
	default:
		return byName
	}
}
