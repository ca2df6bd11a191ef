package tune

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/metrics"
	"github.com/san-kum/lander/internal/mission"
)

// Trial is one point of the grid and the score it reached.
type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

// GridSearch evaluates every combination of parameter values and keeps the
// one with the lowest mean metric over an ensemble of seeds.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	runs       int
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, runs: 1}
}

// Runs sets the number of seeds each grid point is flown with.
func (g *GridSearch) Runs(n int) *GridSearch {
	if n > 0 {
		g.runs = n
	}
	return g
}

func (g *GridSearch) Workers(n int) *GridSearch {
	g.workers = n
	return g
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search flies base at every grid point and returns the trials sorted by
// score, best first. Points whose configuration is invalid or whose
// missions fail are reported with a non-nil Err and score +Inf. NaN scores
// (a metric with nothing to measure) also rank last.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) ([]Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("tune: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for i, name := range g.paramNames {
		if _, ok := setters[name]; !ok {
			return nil, fmt.Errorf("tune: unknown parameter %q", name)
		}
		if len(g.ranges[i]) == 0 {
			return nil, fmt.Errorf("tune: no values for %q", name)
		}
	}

	trials := make([]Trial, 0, g.Size())
	err := g.searchRecursive(ctx, 0, map[string]float64{}, func(params map[string]float64) error {
		score, err := g.evaluate(ctx, base, params, metricName)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil || math.IsNaN(score) {
			score = math.Inf(1)
		}
		trials = append(trials, Trial{Params: params, Score: score, Err: err})
		return nil
	})
	if err != nil {
		return trials, err
	}

	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Score < trials[j].Score })
	return trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		return visit(maps.Clone(current))
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, current, visit); err != nil {
			return err
		}
	}
	delete(current, name)
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, metricName string) (float64, error) {
	cfg := base.Clone()
	if err := Apply(cfg, params); err != nil {
		return 0, err
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	out, err := mission.NewEnsemble(cfg, g.runs).Workers(g.workers).Run(ctx)
	if err != nil {
		return 0, err
	}
	sum, ok := find(out.Summary, metricName)
	if !ok {
		return 0, fmt.Errorf("tune: metric %q not recorded", metricName)
	}
	return sum.Mean, nil
}

func find(sum []metrics.Summary, name string) (metrics.Summary, bool) {
	for _, s := range sum {
		if s.Name == name {
			return s, true
		}
	}
	return metrics.Summary{}, false
}
