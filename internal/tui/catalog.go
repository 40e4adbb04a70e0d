package tui

import (
	"slices"

	"github.com/sadopc/studytime/internal/config"
	"github.com/sadopc/studytime/internal/study"
	"github.com/sadopc/studytime/internal/timer"
)

// disciplineNames lists the catalog disciplines, then studied disciplines
// missing from the catalog. timer.Other is not included.
func disciplineNames(cfg *config.Config, data study.Aggregate) []string {
	names := without(cfg.Disciplines(), timer.Other)
	for _, e := range data.Entries() {
		if !slices.Contains(names, e.Discipline) {
			names = append(names, e.Discipline)
		}
	}
	return names
}

// topicNames lists the catalog topics of discipline, then studied topics
// missing from the catalog. timer.Other is not included.
func topicNames(cfg *config.Config, data study.Aggregate, discipline string) []string {
	names := without(cfg.Topics(discipline), timer.Other)
	if e, ok := data.Entry(discipline); ok {
		for _, t := range e.Topics {
			if !slices.Contains(names, t.Topic) {
				names = append(names, t.Topic)
			}
		}
	}
	return names
}

func without(names []string, drop string) []string {
	return slices.DeleteFunc(slices.Clone(names), func(n string) bool { return n == drop })
}

// colorIndex is the discipline's first-studied position, or -1.
func colorIndex(data study.Aggregate, discipline string) int {
	return slices.IndexFunc(data.Entries(), func(e study.Entry) bool { return e.Discipline == discipline })
}
