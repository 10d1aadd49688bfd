// Package plan loads workout plan files: the ordered exercise list a
// session is built from, plus the optional warmup, stretch, and challenge
// settings.
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/claude/repflow/internal/session"
)

// Plan is one parsed workout plan file.
type Plan struct {
	Name           string              `yaml:"name"`
	UserID         int                 `yaml:"user_id"`
	WarmupSeconds  int                 `yaml:"warmup_seconds"`
	StretchSeconds int                 `yaml:"stretch_seconds"`
	Exercises      []session.PlanEntry `yaml:"exercises"`
	Challenge      *session.PlanEntry  `yaml:"challenge"`
}

// Load reads and validates a plan from a YAML file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a plan from YAML bytes.
func Parse(data []byte) (*Plan, error) {
	p := &Plan{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("plan validation: %w", err)
	}
	return p, nil
}

func (p *Plan) validate() error {
	if len(p.Exercises) == 0 {
		return fmt.Errorf("plan needs at least one exercise")
	}
	for i, e := range p.Exercises {
		if err := validateEntry(e); err != nil {
			return fmt.Errorf("exercise %d: %w", i+1, err)
		}
	}
	if p.Challenge != nil {
		if err := validateEntry(*p.Challenge); err != nil {
			return fmt.Errorf("challenge: %w", err)
		}
	}
	if p.WarmupSeconds < 0 || p.StretchSeconds < 0 {
		return fmt.Errorf("warmup and stretch durations must not be negative")
	}
	return nil
}

func validateEntry(e session.PlanEntry) error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if e.TargetSets <= 0 {
		return fmt.Errorf("sets must be positive")
	}
	if len(e.RepsPerSet) > 0 {
		if len(e.RepsPerSet) != e.TargetSets {
			return fmt.Errorf("reps_per_set has %d entries for %d sets",
				len(e.RepsPerSet), e.TargetSets)
		}
		for _, r := range e.RepsPerSet {
			if r <= 0 {
				return fmt.Errorf("reps_per_set entries must be positive")
			}
		}
	} else if e.TargetReps <= 0 {
		return fmt.Errorf("reps must be positive")
	}
	if e.TargetWeightKg < 0 {
		return fmt.Errorf("weight_kg must not be negative")
	}
	if e.RestSeconds < 0 || e.TransitionSeconds < 0 {
		return fmt.Errorf("rest and transition durations must not be negative")
	}
	return nil
}

// Options converts the plan header into session options. The caller may
// still override durations from server config.
func (p *Plan) Options() session.Options {
	userID := p.UserID
	if userID == 0 {
		userID = 1
	}
	return session.Options{
		UserID:         userID,
		PlanName:       p.Name,
		WarmupSeconds:  p.WarmupSeconds,
		StretchSeconds: p.StretchSeconds,
		Challenge:      p.Challenge,
	}
}
