// Package scenario runs scripted sequences of missions described in YAML.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/mission"
	"github.com/san-kum/lander/internal/tune"
	"gopkg.in/yaml.v3"
)

// Scenario is a named list of missions flown in order.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step starts from a preset (or the defaults), applies its overrides and
// flies one mission.
type Step struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Controller string             `yaml:"controller"`
	Integrator string             `yaml:"integrator"`
	Seed       *uint64            `yaml:"seed"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Gravity    float64            `yaml:"gravity"`
	Params     map[string]float64 `yaml:"params"`
}

// Outcome is the result of one step together with the configuration it
// was flown with.
type Outcome struct {
	Step   Step
	Config *config.Config
	Runner *mission.Runner
	Result *mission.Result
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: no steps", path)
	}
	return &sc, nil
}

// Config resolves the configuration of step i.
func (sc *Scenario) Config(i int) (*config.Config, error) {
	step := sc.Steps[i]
	cfg := config.DefaultConfig()
	if step.Preset != "" {
		if cfg = config.GetPreset(step.Preset); cfg == nil {
			return nil, fmt.Errorf("step %d: unknown preset %q", i+1, step.Preset)
		}
	}
	if step.Controller != "" {
		cfg.Controller.Type = step.Controller
	}
	if step.Integrator != "" {
		cfg.Integrator = step.Integrator
	}
	if step.Seed != nil {
		cfg.Seed = *step.Seed
	}
	if step.Duration > 0 {
		cfg.Duration = step.Duration
	}
	if step.Dt > 0 {
		cfg.Dt = step.Dt
	}
	if step.Gravity > 0 {
		cfg.Plant.Gravity = step.Gravity
	}
	if err := tune.Apply(cfg, step.Params); err != nil {
		return nil, fmt.Errorf("step %d: %w", i+1, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("step %d: %w", i+1, err)
	}
	return cfg, nil
}

// Run flies every step in order and stops at the first step that cannot
// be built or whose mission fails. Outcomes of the steps already flown are
// returned with the error.
func Run(ctx context.Context, sc *Scenario, log *slog.Logger) ([]Outcome, error) {
	out := make([]Outcome, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		cfg, err := sc.Config(i)
		if err != nil {
			return out, err
		}
		log.Info("scenario step", "step", i+1, "of", len(sc.Steps), "name", step.Name, "controller", cfg.Controller.Type)

		r, err := mission.Build(cfg, mission.WithLogger(log))
		if err != nil {
			return out, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := r.Run(ctx)
		if err != nil {
			return out, fmt.Errorf("step %d run: %w", i+1, err)
		}
		out = append(out, Outcome{Step: step, Config: cfg, Runner: r, Result: res})
	}
	return out, nil
}
