package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes one metric across an ensemble of runs.
type Summary struct {
	Name   string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
}

// Summarize aggregates per-run metric maps. NaN values are skipped.
func Summarize(runs []map[string]float64) []Summary {
	values := make(map[string][]float64)
	for _, run := range runs {
		for name, v := range run {
			if !math.IsNaN(v) {
				values[name] = append(values[name], v)
			}
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		v := values[name]
		sort.Float64s(v)
		mean, std := stat.MeanStdDev(v, nil)
		if len(v) < 2 {
			std = 0
		}
		out = append(out, Summary{
			Name:   name,
			Mean:   mean,
			StdDev: std,
			Min:    v[0],
			Max:    v[len(v)-1],
			Median: stat.Quantile(0.5, stat.Empirical, v, nil),
		})
	}
	return out
}
