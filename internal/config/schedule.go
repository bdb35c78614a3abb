package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TaskSchedule overrides one task's registration.
type TaskSchedule struct {
	Schedule string `yaml:"schedule"`
	Disabled bool   `yaml:"disabled"`
}

type scheduleFile struct {
	Tasks map[string]TaskSchedule `yaml:"tasks"`
}

// LoadSchedules reads a schedule override file:
//
//	tasks:
//	  work-digest:
//	    schedule: "30 8 * * 1-5"
//	  other-task:
//	    disabled: true
func LoadSchedules(path string) (map[string]TaskSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	var f scheduleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schedule file %s: %w", path, err)
	}
	if f.Tasks == nil {
		f.Tasks = map[string]TaskSchedule{}
	}
	return f.Tasks, nil
}

// TaskSchedule returns the schedule for task name, or fallback when not overridden.
// ok is false when the task is disabled.
func (c *Config) TaskSchedule(name, fallback string) (schedule string, ok bool) {
	s, found := c.Schedules[name]
	if !found {
		return fallback, true
	}
	if s.Disabled {
		return "", false
	}
	if s.Schedule == "" {
		return fallback, true
	}
	return s.Schedule, true
}
