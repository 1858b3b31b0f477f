package schedules

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/teetime-sniper/internal/booking"
)

type yamlSchedule struct {
	Name            string   `yaml:"name"`
	Facilities      []int    `yaml:"facilities"`
	Start           string   `yaml:"start"`
	DurationMinutes int      `yaml:"duration_minutes"`
	BufferMax       int      `yaml:"buffer_max"`
	Weekdays        []string `yaml:"weekdays"`
	Quantity        int      `yaml:"quantity"`
	Date            string   `yaml:"date"`
	Players         int      `yaml:"players"`
	Holes           int      `yaml:"holes"`
}

type taskFile struct {
	Schedules []yamlSchedule `yaml:"schedules"`
}

// LoadFile reads schedule descriptors from a YAML task file.
func LoadFile(path string) ([]booking.Schedule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAML(b)
}

func parseYAML(b []byte) ([]booking.Schedule, error) {
	var tf taskFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	if len(tf.Schedules) == 0 {
		return nil, fmt.Errorf("task file has no schedules")
	}

	out := make([]booking.Schedule, 0, len(tf.Schedules))
	for _, ys := range tf.Schedules {
		s := booking.Schedule{
			ID:          ys.Name,
			FacilityIDs: ys.Facilities,
			Start:       ys.Start,
			Duration:    time.Duration(ys.DurationMinutes) * time.Minute,
			BufferMax:   ys.BufferMax,
			Quantity:    ys.Quantity,
			Players:     ys.Players,
			Holes:       ys.Holes,
		}
		if s.Quantity == 0 {
			s.Quantity = 1
		}
		if s.Players == 0 {
			s.Players = 4
		}
		if s.Holes == 0 {
			s.Holes = 18
		}
		for _, w := range ys.Weekdays {
			d, err := ParseWeekday(w)
			if err != nil {
				return nil, fmt.Errorf("schedule %s: %w", ys.Name, err)
			}
			s.Weekdays = append(s.Weekdays, d)
		}
		if ys.Date != "" {
			d, err := time.Parse("2006-01-02", ys.Date)
			if err != nil {
				return nil, fmt.Errorf("schedule %s: invalid date %q", ys.Name, ys.Date)
			}
			s.Date = d
		}
		out = append(out, s)
	}

	if err := validateAll(out); err != nil {
		return nil, err
	}
	return out, nil
}
