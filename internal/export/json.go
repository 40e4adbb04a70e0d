package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/sadopc/studytime/internal/study"
)

// FormatVersion is the version written into JSON backups.
const FormatVersion = 1

// backup holds the two logical records: the session list and the aggregate
// map. Durations are seconds.
type backup struct {
	Version    int                        `json:"version"`
	ExportedAt string                     `json:"exported_at,omitempty"`
	Sessions   []jsonSession              `json:"sessions"`
	StudyData  map[string]jsonDisciplines `json:"studyData"`
}

type jsonSession struct {
	ID         string  `json:"id"`
	Discipline string  `json:"discipline"`
	Topic      string  `json:"topic"`
	Duration   float64 `json:"duration"`
	Date       string  `json:"date"`
}

type jsonDisciplines struct {
	TotalTime float64            `json:"totalTime"`
	Topics    map[string]float64 `json:"topics"`
}

// ToJSON writes a backup of agg to path.
func ToJSON(agg study.Aggregate, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, agg); err != nil {
		return err
	}
	return f.Close()
}

func WriteJSON(w io.Writer, agg study.Aggregate) error {
	b := backup{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Sessions:   []jsonSession{},
		StudyData:  make(map[string]jsonDisciplines),
	}

	for _, s := range agg.Sessions() {
		b.Sessions = append(b.Sessions, jsonSession{
			ID:         s.ID,
			Discipline: s.Discipline,
			Topic:      s.Topic,
			Duration:   s.Duration.Seconds(),
			Date:       s.Date.UTC().Format(time.RFC3339Nano),
		})
	}
	for _, e := range agg.Entries() {
		d := jsonDisciplines{TotalTime: e.TotalTime.Seconds(), Topics: make(map[string]float64, len(e.Topics))}
		for _, t := range e.Topics {
			d.Topics[t.Topic] = t.Time.Seconds()
		}
		b.StudyData[e.Discipline] = d
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return nil
}

// FromJSON reads a backup written by ToJSON.
func FromJSON(path string) ([]study.Session, []study.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// ReadJSON decodes a backup. Every session must be valid; the totals are
// returned as stored, ordered by first appearance in the session list.
func ReadJSON(r io.Reader) ([]study.Session, []study.Entry, error) {
	var b backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, nil, fmt.Errorf("decode json: %w", err)
	}
	if b.Version != FormatVersion {
		return nil, nil, fmt.Errorf("unsupported backup version %d", b.Version)
	}

	sessions := make([]study.Session, 0, len(b.Sessions))
	for i, js := range b.Sessions {
		date, err := time.Parse(time.RFC3339Nano, js.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("session %d: parse date: %w", i, err)
		}
		sessions = append(sessions, study.NewSession(js.ID, js.Discipline, js.Topic, seconds(js.Duration), date))
	}
	if _, err := study.Rebuild(sessions); err != nil {
		return nil, nil, err
	}

	entries := make([]study.Entry, 0, len(b.StudyData))
	for name, d := range b.StudyData {
		e := study.Entry{Discipline: name, TotalTime: seconds(d.TotalTime)}
		for topic, s := range d.Topics {
			e.Topics = append(e.Topics, study.TopicTime{Topic: topic, Time: seconds(s)})
		}
		entries = append(entries, e)
	}
	return sessions, study.OrderEntries(sessions, entries), nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}
