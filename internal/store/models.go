package store

import "time"

type Setting struct {
	Key   string
	Value string
}

// Setting keys. The top_* keys are only present once changed from the
// config defaults.
const (
	SettingTopDisciplines = "top_disciplines"
	SettingTopTopics      = "top_topics"
	SettingDailyGoal      = "daily_goal" // seconds
)

const timeLayout = time.RFC3339Nano
