// Package config loads the studytime YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/studytime/internal/timer"
)

const appName = "studytime"

// Config holds all studytime configuration.
type Config struct {
	DatabasePath   string        `yaml:"database_path"`
	Logging        Logging       `yaml:"logging"`
	TickInterval   time.Duration `yaml:"tick_interval"`  // reconciliation tick
	FrameInterval  time.Duration `yaml:"frame_interval"` // display refresh
	TopDisciplines int           `yaml:"top_disciplines"`
	TopTopics      int           `yaml:"top_topics"`
	Catalog        []Discipline  `yaml:"catalog"`
}

// Logging configures the log file.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty disables logging
}

// Discipline is one catalog entry offered by the selectors.
type Discipline struct {
	Name   string   `yaml:"discipline"`
	Topics []string `yaml:"topics"`
}

// Dir returns the per-user studytime directory.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, appName), nil
}

// DefaultPath returns ~/.config/studytime/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		TickInterval:   time.Second,
		FrameInterval:  100 * time.Millisecond,
		TopDisciplines: 3,
		TopTopics:      5,
		Catalog: []Discipline{
			{Name: "Mathematics", Topics: []string{"Algebra", "Geometry", "Calculus", "Statistics"}},
			{Name: "Language", Topics: []string{"Grammar", "Literature", "Writing", "Reading comprehension"}},
			{Name: "History", Topics: []string{"Ancient", "Medieval", "Modern", "Contemporary"}},
			{Name: "Geography", Topics: []string{"Physical", "Human", "Geopolitics"}},
			{Name: "Science", Topics: []string{"Physics", "Chemistry", "Biology"}},
			{Name: "Physics", Topics: []string{"Mechanics", "Thermodynamics", "Electromagnetism", "Modern physics"}},
			{Name: "Chemistry", Topics: []string{"Organic", "Inorganic", "Physical chemistry"}},
			{Name: "Biology", Topics: []string{"Cytology", "Genetics", "Ecology", "Physiology"}},
			{Name: "English", Topics: []string{"Grammar", "Vocabulary", "Conversation"}},
		},
	}
	if dir, err := Dir(); err == nil {
		cfg.DatabasePath = filepath.Join(dir, appName+".db")
		cfg.Logging.File = filepath.Join(dir, appName+".log")
	}
	return cfg
}

// Load reads the config at path. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("STUDYTIME_DB"); path != "" {
		c.DatabasePath = path
	}
	if level := os.Getenv("STUDYTIME_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the values the rest of the program relies on.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is not set (set it in the config file or STUDYTIME_DB)")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.FrameInterval <= 0 || c.FrameInterval > c.TickInterval {
		return fmt.Errorf("frame_interval must be in (0, %s], got %s", c.TickInterval, c.FrameInterval)
	}
	if c.TopDisciplines < 1 || c.TopTopics < 1 {
		return fmt.Errorf("top_disciplines and top_topics must be at least 1")
	}
	for _, d := range c.Catalog {
		if d.Name == "" || d.Name == timer.Other {
			return fmt.Errorf("invalid catalog discipline %q", d.Name)
		}
	}
	return nil
}

// Disciplines lists the catalog disciplines followed by timer.Other.
func (c *Config) Disciplines() []string {
	out := make([]string, 0, len(c.Catalog)+1)
	for _, d := range c.Catalog {
		out = append(out, d.Name)
	}
	return append(out, timer.Other)
}

// Topics lists the catalog topics of discipline followed by timer.Other.
// Unknown disciplines, including timer.Other itself, only offer timer.Other.
func (c *Config) Topics(discipline string) []string {
	i := slices.IndexFunc(c.Catalog, func(d Discipline) bool { return d.Name == discipline })
	if i < 0 {
		return []string{timer.Other}
	}
	topics := slices.DeleteFunc(slices.Clone(c.Catalog[i].Topics), func(t string) bool { return t == timer.Other })
	return append(topics, timer.Other)
}
