package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/studytime/internal/study"
)

// ToCSV writes one row per session to path.
func ToCSV(sessions []study.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, sessions); err != nil {
		return err
	}
	return f.Close()
}

func WriteCSV(out io.Writer, sessions []study.Session) error {
	w := csv.NewWriter(out)

	// Header
	if err := w.Write([]string{"ID", "Discipline", "Topic", "Date", "Duration (s)", "Duration"}); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			s.ID,
			s.Discipline,
			s.Topic,
			s.Date.Local().Format(time.RFC3339),
			strconv.FormatFloat(s.Duration.Seconds(), 'f', -1, 64),
			FormatDuration(s.Duration),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// FormatDuration renders d as HH:MM:SS, truncating sub-second time.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
