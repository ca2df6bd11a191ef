package tune

import (
	"fmt"
	"sort"

	"github.com/san-kum/lander/internal/config"
)

// setters maps a tunable parameter name to the config field it writes.
var setters = map[string]func(*config.Config, float64){
	"control_cost": func(c *config.Config, v float64) { c.Regulator.ControlCost = v },
	"q_h":          func(c *config.Config, v float64) { setIndex(&c.Regulator.StateCost, 0, v) },
	"q_v":          func(c *config.Config, v float64) { setIndex(&c.Regulator.StateCost, 1, v) },
	"q_g":          func(c *config.Config, v float64) { setIndex(&c.Regulator.StateCost, 2, v) },
	"horizon":      func(c *config.Config, v float64) { c.Regulator.Horizon = int(v) },
	"max_thrust":   func(c *config.Config, v float64) { c.Controller.MaxThrust = v },
	"kp":           func(c *config.Config, v float64) { c.Controller.Kp = v },
	"ki":           func(c *config.Config, v float64) { c.Controller.Ki = v },
	"kd":           func(c *config.Config, v float64) { c.Controller.Kd = v },
	"rate":         func(c *config.Config, v float64) { c.Controller.Rate = v },
	"sigma_m":      func(c *config.Config, v float64) { c.Plant.SigmaM = v },
	"r":            func(c *config.Config, v float64) { c.Estimator.MeasurementVariance = v },
}

func setIndex(s *[]float64, i int, v float64) {
	for len(*s) <= i {
		*s = append(*s, 0)
	}
	(*s)[i] = v
}

// Params lists the tunable parameter names.
func Params() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply writes every parameter in params into cfg.
func Apply(cfg *config.Config, params map[string]float64) error {
	for name, v := range params {
		set, ok := setters[name]
		if !ok {
			return fmt.Errorf("tune: unknown parameter %q", name)
		}
		set(cfg, v)
	}
	return nil
}
